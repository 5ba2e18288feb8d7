// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
	log "github.com/sirupsen/logrus"
)

// Entry is a kernel version installed on the system, along with the
// files that belong to it.
type Entry struct {
	Release string
	Kernel  string
	Initrd  string
	Fdtdir  string
}

// Description returns a human readable name for the entry, used as the
// image description when packing FIT images.
func (e Entry) Description() string {
	if e.Release == "" {
		return "Linux kernel"
	}
	return fmt.Sprintf("Linux kernel %s", e.Release)
}

// Arch guesses the architecture of the kernel from its release name,
// e.g. "6.1.0-13-arm64" on Debian. Returns the empty Architecture when
// the release name carries no such suffix.
func (e Entry) Arch() Architecture {
	idx := strings.LastIndex(e.Release, "-")
	if idx < 0 {
		return ""
	}
	arch := Architecture(e.Release[idx+1:])
	if !arch.Known() {
		return ""
	}
	return arch
}

var kernelPrefixes = []string{"vmlinuz-", "vmlinux-", "kernel-"}

var initrdPrefixes = []string{"initrd.img-", "initramfs-", "initrd-"}

// Installed scans bootDir (usually /boot) for installed kernels and
// pairs them up with their initramfs and device-tree directories.
func Installed(bootDir string) ([]Entry, error) {
	files, err := os.ReadDir(bootDir)
	if err != nil {
		return nil, fmt.Errorf("couldn't scan %s for kernels: %w", bootDir, err)
	}

	entries := map[string]*Entry{}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		for _, prefix := range kernelPrefixes {
			if release, ok := strings.CutPrefix(f.Name(), prefix); ok {
				entries[release] = &Entry{
					Release: release,
					Kernel:  filepath.Join(bootDir, f.Name()),
				}
				break
			}
		}
	}

	for release, entry := range entries {
		for _, prefix := range initrdPrefixes {
			initrd := filepath.Join(bootDir, prefix+release)
			if _, err := os.Stat(initrd); err == nil {
				entry.Initrd = initrd
				break
			}
		}

		for _, fdtdir := range []string{
			filepath.Join("/usr/lib/linux-image-" + release),
			filepath.Join(bootDir, "dtbs", release),
			filepath.Join(bootDir, "dtb-"+release),
		} {
			if fi, err := os.Stat(fdtdir); err == nil && fi.IsDir() {
				entry.Fdtdir = fdtdir
				break
			}
		}

		log.Debugf("Found installed kernel %q at %q", release, entry.Kernel)
	}

	sorted := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		sorted = append(sorted, *entry)
	}
	SortByRelease(sorted)

	return sorted, nil
}

var releaseVersion = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*`)

// releaseSemver coerces a kernel release name like "6.1.0-13-arm64"
// into a comparable version. Releases without a leading version number
// compare as 0.0.0.
func releaseSemver(release string) semver.Version {
	v, err := semver.ParseTolerant(releaseVersion.FindString(release))
	if err != nil {
		return semver.Version{}
	}
	return v
}

// SortByRelease sorts entries in ascending kernel version order, with
// the release string as a tie-breaker so the order is deterministic.
func SortByRelease(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		vi, vj := releaseSemver(entries[i].Release), releaseSemver(entries[j].Release)
		if c := vi.Compare(vj); c != 0 {
			return c < 0
		}
		return entries[i].Release < entries[j].Release
	})
}

// Latest returns the highest-versioned entry.
func Latest(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	SortByRelease(sorted)
	return sorted[len(sorted)-1], true
}
