// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package kernel

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestInstalled(t *testing.T) {
	bootDir := t.TempDir()

	files := []string{
		"vmlinuz-6.1.0-13-arm64",
		"initrd.img-6.1.0-13-arm64",
		"vmlinuz-5.10.0-8-arm64",
		"config-6.1.0-13-arm64",
		"System.map-6.1.0-13-arm64",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(bootDir, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(bootDir, "dtbs", "6.1.0-13-arm64"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := Installed(bootDir)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 2)

	// Sorted ascending by version.
	assert.Equal(t, entries[0].Release, "5.10.0-8-arm64")
	assert.Equal(t, entries[1].Release, "6.1.0-13-arm64")

	newer := entries[1]
	assert.Equal(t, newer.Kernel, filepath.Join(bootDir, "vmlinuz-6.1.0-13-arm64"))
	assert.Equal(t, newer.Initrd, filepath.Join(bootDir, "initrd.img-6.1.0-13-arm64"))
	assert.Equal(t, newer.Fdtdir, filepath.Join(bootDir, "dtbs", "6.1.0-13-arm64"))

	older := entries[0]
	assert.Equal(t, older.Initrd, "")
	assert.Equal(t, older.Fdtdir, "")
}

func TestSortByRelease(t *testing.T) {
	entries := []Entry{
		{Release: "6.1.0-13-arm64"},
		{Release: "5.10.0-8-arm64"},
		{Release: "6.1.0-9-arm64"},
		{Release: "custom"},
		{Release: "10.0.1"},
	}
	SortByRelease(entries)

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Release)
	}
	assert.DeepEqual(t, got, []string{
		// No leading version compares lowest.
		"custom",
		"5.10.0-8-arm64",
		// Same version, release string breaks the tie.
		"6.1.0-13-arm64",
		"6.1.0-9-arm64",
		"10.0.1",
	})
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.Assert(t, !ok)

	latest, ok := Latest([]Entry{
		{Release: "5.10.0-8-arm64"},
		{Release: "6.1.0-13-arm64"},
		{Release: "4.19.0-21-arm64"},
	})
	assert.Assert(t, ok)
	assert.Equal(t, latest.Release, "6.1.0-13-arm64")
}

func TestEntryArch(t *testing.T) {
	tests := []struct {
		release string
		want    Architecture
	}{
		{release: "6.1.0-13-arm64", want: "arm64"},
		{release: "6.1.0-13-amd64", want: "amd64"},
		{release: "6.1.0-13-generic", want: ""},
		{release: "custom", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.release, func(t *testing.T) {
			assert.Equal(t, Entry{Release: tt.release}.Arch(), tt.want)
		})
	}
}

func TestEntryDescription(t *testing.T) {
	assert.Equal(t, Entry{}.Description(), "Linux kernel")
	assert.Equal(t, Entry{Release: "6.1.0-13-arm64"}.Description(), "Linux kernel 6.1.0-13-arm64")
}

func TestArchitectureMatches(t *testing.T) {
	tests := []struct {
		a, b Architecture
		want bool
	}{
		{"arm64", "aarch64", true},
		{"aarch64", "arm64", true},
		{"x86_64", "amd64", true},
		{"i386", "x86", true},
		{"arm", "arm64", false},
		{"x86_64", "i386", false},
		{"mips", "mips", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.a.Matches(tt.b), tt.want, "%s vs %s", tt.a, tt.b)
	}
}

func TestArchitectureToolNames(t *testing.T) {
	assert.Equal(t, Architecture("aarch64").Mkimage(), "arm64")
	assert.Equal(t, Architecture("amd64").Mkimage(), "x86_64")
	assert.Equal(t, Architecture("arm64").Vboot(), "aarch64")
	assert.Equal(t, Architecture("x86_64").Vboot(), "amd64")
	assert.Equal(t, Architecture("mips").Vboot(), "")
}
