// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"gotest.tools/v3/assert"
)

// fakeSysfs builds a minimal /sys + /dev layout: two disks, a
// partition each, and a dm device layered over both partitions.
func fakeSysfs(t *testing.T) (sys, dev string) {
	t.Helper()
	root := t.TempDir()
	sys = filepath.Join(root, "sys")
	dev = filepath.Join(root, "dev")

	blockClass := filepath.Join(sys, "class", "block")
	devicesDir := filepath.Join(sys, "devices")
	if err := os.MkdirAll(blockClass, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dev, "mapper"), 0o755); err != nil {
		t.Fatal(err)
	}

	addDisk := func(disk string, parts ...string) {
		diskDir := filepath.Join(devicesDir, "pci0", "block", disk)
		if err := os.MkdirAll(diskDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(diskDir, filepath.Join(blockClass, disk)); err != nil {
			t.Fatal(err)
		}
		touch(t, filepath.Join(dev, disk))

		for _, part := range parts {
			partDir := filepath.Join(diskDir, part)
			if err := os.MkdirAll(partDir, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.Symlink(partDir, filepath.Join(blockClass, part)); err != nil {
				t.Fatal(err)
			}
			touch(t, filepath.Join(dev, part))
		}
	}

	addDisk("sda", "sda1")
	addDisk("sdb", "sdb1")

	// dm-0 is backed by sda1 and sdb1 and named crypt-root.
	dmDir := filepath.Join(devicesDir, "virtual", "dm-0")
	if err := os.MkdirAll(filepath.Join(dmDir, "dm"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dmDir, "slaves", "sda1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dmDir, "slaves", "sdb1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dmDir, "dm", "name"), []byte("crypt-root\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(dmDir, filepath.Join(blockClass, "dm-0")); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dev, "dm-0"))
	touch(t, filepath.Join(dev, "mapper", "crypt-root"))

	return sys, dev
}

func TestTreeLeaves(t *testing.T) {
	sys, dev := fakeSysfs(t)

	tree, err := NewTree(sys, dev)
	assert.NilError(t, err)

	t.Run("Partition", func(t *testing.T) {
		leaves := tree.Leaves(filepath.Join(dev, "sda1"))
		assert.DeepEqual(t, leaves, []string{filepath.Join(dev, "sda")})
	})

	t.Run("DeviceMapper", func(t *testing.T) {
		leaves := tree.Leaves(filepath.Join(dev, "dm-0"))
		assert.Equal(t, len(leaves), 2)
		assert.Assert(t, lo.Contains(leaves, filepath.Join(dev, "sda")))
		assert.Assert(t, lo.Contains(leaves, filepath.Join(dev, "sdb")))
	})

	t.Run("MapperAlias", func(t *testing.T) {
		leaves := tree.Leaves(filepath.Join(dev, "mapper", "crypt-root"))
		assert.Equal(t, len(leaves), 2)
	})

	t.Run("AlreadyALeaf", func(t *testing.T) {
		leaves := tree.Leaves(filepath.Join(dev, "sda"))
		assert.DeepEqual(t, leaves, []string{filepath.Join(dev, "sda")})
	})

	t.Run("AllRoots", func(t *testing.T) {
		leaves := tree.Leaves()
		assert.Assert(t, lo.Contains(leaves, filepath.Join(dev, "sda")))
		assert.Assert(t, lo.Contains(leaves, filepath.Join(dev, "sdb")))
	})
}
