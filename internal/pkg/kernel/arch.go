// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package kernel deals with kernel files installed on the host system.
package kernel

import (
	"github.com/samber/lo"
)

// Architecture is a CPU architecture name. Distros, the kernel, mkimage
// and the vboot tools don't agree on what each architecture is called,
// so names within the same group compare as equal.
type Architecture string

var (
	arm32Arches  = []Architecture{"arm"}
	arm64Arches  = []Architecture{"arm64", "aarch64"}
	x86x32Arches = []Architecture{"i386", "x86"}
	x86x64Arches = []Architecture{"x86_64", "amd64"}

	archGroups = [][]Architecture{
		arm32Arches,
		arm64Arches,
		x86x32Arches,
		x86x64Arches,
	}
)

// Known returns true if arch belongs to one of the supported
// architecture groups.
func (a Architecture) Known() bool {
	return a.group() != nil
}

func (a Architecture) group() []Architecture {
	for _, group := range archGroups {
		if lo.Contains(group, a) {
			return group
		}
	}
	return nil
}

// Matches reports whether two architecture names refer to the same
// architecture group.
func (a Architecture) Matches(other Architecture) bool {
	if a == other {
		return true
	}
	group := a.group()
	return group != nil && lo.Contains(group, other)
}

// Aliases returns every name the architecture group of a is known by.
func (a Architecture) Aliases() []Architecture {
	if group := a.group(); group != nil {
		return group
	}
	return []Architecture{a}
}

// Mkimage returns the architecture name the mkimage tool expects.
func (a Architecture) Mkimage() string {
	switch {
	case a.Matches("arm"):
		return "arm"
	case a.Matches("arm64"):
		return "arm64"
	case a.Matches("i386"):
		return "x86"
	case a.Matches("x86_64"):
		return "x86_64"
	}
	return ""
}

// Vboot returns the architecture name the vbutil_kernel tool expects.
func (a Architecture) Vboot() string {
	switch {
	case a.Matches("arm"):
		return "arm"
	case a.Matches("arm64"):
		return "aarch64"
	case a.Matches("i386"):
		return "x86"
	case a.Matches("x86_64"):
		return "amd64"
	}
	return ""
}
