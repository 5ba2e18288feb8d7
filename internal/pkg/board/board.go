// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package board holds the per-board database that describes what each
// depthcharge machine can boot.
package board

import (
	_ "embed"
	"fmt"
	"regexp"

	units "github.com/docker/go-units"
	"gopkg.in/ini.v1"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/kernel"
)

//go:embed boards.ini
var defaultDB []byte

// Board describes a depthcharge machine model.
type Board struct {
	Codename     string
	Name         string
	Arch         kernel.Architecture
	ImageFormat  string
	MaxSize      int64
	DTCompatible *regexp.Regexp
	BootsLZ4     bool
	BootsLZMA    bool
}

type rawBoard struct {
	Name         string `ini:"name"`
	Arch         string `ini:"arch"`
	ImageFormat  string `ini:"image-format"`
	MaxSize      string `ini:"image-max-size"`
	DTCompatible string `ini:"dt-compatible"`
	BootsLZ4     bool   `ini:"boots-lz4-kernel"`
	BootsLZMA    bool   `ini:"boots-lzma-kernel"`
}

// Lookup resolves codename to a board description. Sections named
// "board/<codename>" in the user configuration override the database
// shipped with depthcharge-tools.
func Lookup(codename string, userConf *ini.File) (*Board, error) {
	if codename == "" {
		return nil, fmt.Errorf("no board codename given")
	}

	section := "board/" + codename

	if userConf != nil {
		if s, err := userConf.GetSection(section); err == nil {
			return fromSection(codename, s)
		}
	}

	db, err := ini.Load(defaultDB)
	if err != nil {
		return nil, fmt.Errorf("unable to parse builtin board database: %w", err)
	}

	s, err := db.GetSection(section)
	if err != nil {
		return nil, fmt.Errorf("unknown board %q", codename)
	}

	return fromSection(codename, s)
}

func fromSection(codename string, s *ini.Section) (*Board, error) {
	raw := rawBoard{ImageFormat: "fit"}
	if err := s.MapTo(&raw); err != nil {
		return nil, fmt.Errorf("invalid board entry %q: %w", codename, err)
	}

	b := &Board{
		Codename:    codename,
		Name:        raw.Name,
		Arch:        kernel.Architecture(raw.Arch),
		ImageFormat: raw.ImageFormat,
		BootsLZ4:    raw.BootsLZ4,
		BootsLZMA:   raw.BootsLZMA,
	}

	if !b.Arch.Known() {
		return nil, fmt.Errorf("board %q has unknown arch %q", codename, raw.Arch)
	}

	switch b.ImageFormat {
	case "fit", "zimage":
	default:
		return nil, fmt.Errorf("board %q has unknown image format %q", codename, raw.ImageFormat)
	}

	if raw.MaxSize != "" {
		size, err := units.RAMInBytes(raw.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("board %q has invalid image-max-size %q: %w", codename, raw.MaxSize, err)
		}
		b.MaxSize = size
	}

	if raw.DTCompatible != "" {
		pattern, err := regexp.Compile(raw.DTCompatible)
		if err != nil {
			return nil, fmt.Errorf("board %q has invalid dt-compatible pattern %q: %w", codename, raw.DTCompatible, err)
		}
		b.DTCompatible = pattern
	}

	return b, nil
}
