// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package disk models block devices, their GPT partitions and the
// parent/child relations between them (dm, md, partitions).
package disk

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Tree maps block devices to their parent devices, built from sysfs.
// A child has parents when it is backed by them: a partition by its
// disk, a dm or md device by its slaves.
type Tree struct {
	sys     string
	dev     string
	parents map[string][]string
}

// NewTree builds the device tree from the given sysfs and dev roots,
// usually "/sys" and "/dev".
func NewTree(sys, dev string) (*Tree, error) {
	t := &Tree{
		sys:     sys,
		dev:     dev,
		parents: map[string][]string{},
	}

	blockDir := filepath.Join(sys, "class", "block")
	sysdirs, err := os.ReadDir(blockDir)
	if err != nil {
		return nil, err
	}

	for _, sysdir := range sysdirs {
		name := sysdir.Name()
		devPath := filepath.Join(dev, name)

		// Device-mapper devices also appear under /dev/mapper.
		if dmName, err := os.ReadFile(filepath.Join(blockDir, name, "dm", "name")); err == nil {
			mapped := filepath.Join(dev, "mapper", strings.TrimSpace(string(dmName)))
			t.add(mapped, devPath)
		}

		// dm and md devices list what they're backed by as slaves.
		if slaves, err := os.ReadDir(filepath.Join(blockDir, name, "slaves")); err == nil {
			for _, slave := range slaves {
				t.add(devPath, filepath.Join(dev, slave.Name()))
			}
		}

		// Partitions resolve to a directory nested in their disk's.
		resolved, err := filepath.EvalSymlinks(filepath.Join(blockDir, name))
		if err != nil {
			continue
		}
		parent := filepath.Dir(resolved)
		if filepath.Base(filepath.Dir(parent)) == "block" {
			t.add(devPath, filepath.Join(dev, filepath.Base(parent)))
		}
	}

	return t, nil
}

func (t *Tree) add(child, parent string) {
	if child == parent {
		return
	}
	if !exists(child) || !exists(parent) {
		return
	}
	if !lo.Contains(t.parents[child], parent) {
		t.parents[child] = append(t.parents[child], parent)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Leaves walks up from the given devices and returns the physical
// disks that ultimately back them. With no arguments it returns every
// root of the tree.
func (t *Tree) Leaves(children ...string) []string {
	leaves := []string{}

	if len(children) == 0 {
		for _, parents := range t.parents {
			for _, p := range parents {
				if _, isChild := t.parents[p]; !isChild {
					leaves = append(leaves, p)
				}
			}
		}
		return lo.Uniq(leaves)
	}

	queue := make([]string, len(children))
	copy(queue, children)

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		if parents, ok := t.parents[c]; ok {
			queue = append(queue, parents...)
		} else {
			leaves = append(leaves, c)
		}
	}

	return lo.Uniq(leaves)
}
