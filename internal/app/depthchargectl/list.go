// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package depthchargectl

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/util/disk"
)

// KernelPartition is one ChromeOS kernel partition along with the boot
// flags the firmware dispatches on.
type KernelPartition struct {
	Partition  *disk.Partition
	Attributes disk.Attributes
	Size       int64
}

// List enumerates the ChromeOS kernel partitions on the given disks.
// With no disks given it inspects the physical disks backing / and
// /boot, which are the ones this machine boots from.
func List(ctx context.Context, disks ...string) ([]KernelPartition, error) {
	if len(disks) == 0 {
		bootDisks, err := bootedDisks(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}
		disks = bootDisks
	}

	parts := []KernelPartition{}
	for _, path := range disks {
		d, err := disk.NewDisk(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUsage, err)
		}

		found, err := d.Partitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}

		for _, p := range found {
			attrs, err := p.Attributes(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
			}
			size, err := p.Size(ctx)
			if err != nil {
				log.Debugf("Couldn't read size of %s: %v", p, err)
			}
			parts = append(parts, KernelPartition{
				Partition:  p,
				Attributes: attrs,
				Size:       size,
			})
		}
	}

	return parts, nil
}

// bootedDisks resolves / and /boot down to the physical disks backing
// them, through device-mapper and md layers if need be.
func bootedDisks(ctx context.Context) ([]string, error) {
	tree, err := disk.NewTree("/sys", "/dev")
	if err != nil {
		return nil, err
	}

	devices := []string{}
	for _, mnt := range []string{"/boot", "/"} {
		src, err := disk.ByMountpoint(ctx, mnt)
		if err != nil {
			log.Debugf("No device for mountpoint %q: %v", mnt, err)
			continue
		}
		devices = append(devices, src)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("couldn't find the disks this machine boots from")
	}

	return tree.Leaves(devices...), nil
}
