// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package config reads the depthcharge-tools configuration files.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// DefaultConfDir is where the system configuration lives.
const DefaultConfDir = "/etc/depthcharge-tools"

// File describes the depthcharge-tools configuration options.
type File struct {
	Board           string `ini:"board"`
	ImagesDir       string `ini:"images-dir"`
	VbootKeyblock   string `ini:"vboot-keyblock"`
	VbootPrivateKey string `ini:"vboot-private-key"`
	VbootPublicKey  string `ini:"vboot-public-key"`
	KernelCmdline   string `ini:"kernel-cmdline"`
	IgnoreInitramfs bool   `ini:"ignore-initramfs"`

	// Tool paths, overriding PATH lookup when set.
	VbutilKernelPath string `ini:"vbutil-kernel-path"`
	MkimagePath      string `ini:"mkimage-path"`
	CgptPath         string `ini:"cgpt-path"`

	// Raw configuration, kept around for the board database sections.
	Raw *ini.File `ini:"-"`
}

// currentConfig corresponds to the current configuration, may
// be useful for packages requiring to share the same configuration.
var currentConfig *File

// SetCurrentConfig sets the provided configuration as the current
// configuration.
func SetCurrentConfig(config *File) {
	currentConfig = config
}

// GetCurrentConfig returns the current configuration if any.
func GetCurrentConfig() *File {
	return currentConfig
}

// SystemPaths returns the configuration files read by default: the main
// config followed by the config.d drop-ins in lexical order. Missing
// files are fine, ini.LooseLoad skips them.
func SystemPaths() []string {
	paths := []string{filepath.Join(DefaultConfDir, "config")}

	dropins, err := filepath.Glob(filepath.Join(DefaultConfDir, "config.d", "*"))
	if err == nil {
		sort.Strings(dropins)
		paths = append(paths, dropins...)
	}

	return paths
}

// Parse reads and merges the given configuration files in order, later
// files overriding earlier ones.
func Parse(paths ...string) (*File, error) {
	if len(paths) == 0 {
		paths = SystemPaths()
	}

	sources := make([]interface{}, 0, len(paths))
	for _, p := range paths[1:] {
		sources = append(sources, p)
	}

	raw, err := ini.LooseLoad(paths[0], sources...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}

	c := &File{
		ImagesDir: "/boot/depthcharge",
		Raw:       raw,
	}

	section := raw.Section("depthchargectl")
	if err := section.MapTo(c); err != nil {
		return nil, fmt.Errorf("invalid depthchargectl configuration: %w", err)
	}

	log.Debugf("Read configuration from %v", paths)
	return c, nil
}

// Cmdline returns the configured kernel command line as individual
// parameters.
func (c *File) Cmdline() []string {
	return strings.Fields(c.KernelCmdline)
}
