// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package bin provides access to external binaries
package bin

import (
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/config"
)

// FindBin returns the path to the named binary, or an error if it is not found.
func FindBin(name string) (path string, err error) {
	switch name {
	// vboot reference tools, can be pinned in the configuration as
	// distros package them under different names and locations
	case "vbutil_kernel", "cgpt", "mkimage":
		return findFromConfigOrPath(name)
	// u-boot and device-tree helpers that we assume are on PATH
	case "fdtget":
		return findOnPath(name)
	// compression tools used when packing kernels
	case "lz4", "xz":
		return findOnPath(name)
	// basic system executables that we assume are always on PATH
	case "findmnt":
		return findOnPath(name)
	default:
		return "", fmt.Errorf("executable name %q is not known to FindBin", name)
	}
}

// findOnPath performs a simple search on PATH for the named executable,
// returning its full path.
func findOnPath(name string) (path string, err error) {
	path, err = exec.LookPath(name)
	if err == nil {
		log.Debugf("Found %q at %q", name, path)
	}
	return path, err
}

// findFromConfigOrPath retrieves the path to an executable from the
// depthcharge-tools configuration, or searches PATH if not set there.
func findFromConfigOrPath(name string) (path string, err error) {
	cfg := config.GetCurrentConfig()
	if cfg != nil {
		switch name {
		case "vbutil_kernel":
			path = cfg.VbutilKernelPath
		case "mkimage":
			path = cfg.MkimagePath
		case "cgpt":
			path = cfg.CgptPath
		}
	}

	if path == "" {
		return findOnPath(name)
	}

	log.Debugf("Using %q at %q (from configuration)", name, path)

	// Use lookPath with the absolute path to confirm it is accessible & executable
	return exec.LookPath(path)
}
