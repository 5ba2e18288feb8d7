// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package disk

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/util/bin"
)

// Disk is a file or block device that holds a GPT.
type Disk struct {
	Path string
}

// NewDisk validates that path is a file or block device and returns it
// as a Disk.
func NewDisk(path string) (*Disk, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("disk %q is not accessible: %w", path, err)
	}
	if !fi.Mode().IsRegular() && fi.Mode()&os.ModeDevice == 0 {
		return nil, fmt.Errorf("disk %q is not a file or block device", path)
	}
	return &Disk{Path: path}, nil
}

// Partition is a numbered partition of a Disk. Path may be empty when
// no device node exists for it (e.g. a disk image file).
type Partition struct {
	Disk   *Disk
	Path   string
	PartNo int
}

var (
	numberedDiskRe = regexp.MustCompile(`^(.*[0-9])p([0-9]+)$`)
	plainDiskRe    = regexp.MustCompile(`^(.*[^0-9])([0-9]+)$`)
)

// ParsePartition splits a partition device path like /dev/mmcblk0p3 or
// /dev/sda1 into its disk and partition number.
func ParsePartition(path string) (*Partition, error) {
	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}

	match := numberedDiskRe.FindStringSubmatch(name)
	if match == nil {
		match = plainDiskRe.FindStringSubmatch(name)
	}
	if match == nil {
		return nil, fmt.Errorf("couldn't parse %q as a partition device", path)
	}

	partNo, err := strconv.Atoi(match[2])
	if err != nil || partNo <= 0 {
		return nil, fmt.Errorf("partition number in %q must be a positive integer", path)
	}

	diskPath := path[:len(path)-len(name)] + match[1]
	disk, err := NewDisk(diskPath)
	if err != nil {
		return nil, err
	}

	return &Partition{Disk: disk, Path: path, PartNo: partNo}, nil
}

// Partition returns the partNo'th partition of the disk. The partition
// device node is recorded when one exists.
func (d *Disk) Partition(partNo int) *Partition {
	sep := ""
	if last := d.Path[len(d.Path)-1]; last >= '0' && last <= '9' {
		sep = "p"
	}
	path := fmt.Sprintf("%s%s%d", d.Path, sep, partNo)
	if !exists(path) {
		path = ""
	}
	return &Partition{Disk: d, Path: path, PartNo: partNo}
}

func cgpt(ctx context.Context, args ...string) (string, error) {
	path, err := bin.FindBin("cgpt")
	if err != nil {
		return "", err
	}

	out := new(bytes.Buffer)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = out
	errBuf := new(bytes.Buffer)
	cmd.Stderr = errBuf

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("cgpt %s failed: %w: %s", args[0], err, strings.TrimSpace(errBuf.String()))
	}
	return out.String(), nil
}

// Partitions lists the ChromeOS kernel partitions on the disk.
func (d *Disk) Partitions(ctx context.Context) ([]*Partition, error) {
	out, err := cgpt(ctx, "find", "-n", "-t", "kernel", d.Path)
	if err != nil {
		return nil, err
	}

	parts := []*Partition{}
	for _, line := range strings.Fields(out) {
		partNo, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("unexpected cgpt find output %q: %w", line, err)
		}
		parts = append(parts, d.Partition(partNo))
	}
	return parts, nil
}

// Attributes are the ChromeOS boot flags of a kernel partition.
type Attributes struct {
	Priority   int
	Tries      int
	Successful bool
}

// Attributes reads the partition's GPT attributes through cgpt.
func (p *Partition) Attributes(ctx context.Context) (Attributes, error) {
	out, err := cgpt(ctx, "show", "-A", "-i", strconv.Itoa(p.PartNo), p.Disk.Path)
	if err != nil {
		return Attributes{}, err
	}

	attr, err := strconv.ParseUint(strings.TrimSpace(out), 16, 64)
	if err != nil {
		return Attributes{}, fmt.Errorf("unexpected cgpt attribute output %q: %w", out, err)
	}

	return ParseAttributes(attr), nil
}

// ParseAttributes unpacks the raw 16-bit ChromeOS attribute field:
// priority in bits 0-3, tries in 4-7, successful in bit 8.
func ParseAttributes(attr uint64) Attributes {
	return Attributes{
		Priority:   int(attr & 0xF),
		Tries:      int((attr >> 4) & 0xF),
		Successful: (attr>>8)&0x1 == 1,
	}
}

// Size returns the partition size in bytes, by asking the kernel when
// a device node exists and cgpt otherwise.
func (p *Partition) Size(ctx context.Context) (int64, error) {
	if p.Path != "" {
		f, err := os.Open(p.Path)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil {
			return 0, err
		}
		if fi.Mode().IsRegular() {
			return fi.Size(), nil
		}

		size, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKGETSIZE64)
		if err != nil {
			return 0, fmt.Errorf("couldn't read size of %s: %w", p.Path, err)
		}
		return int64(size), nil
	}

	out, err := cgpt(ctx, "show", "-s", "-i", strconv.Itoa(p.PartNo), p.Disk.Path)
	if err != nil {
		return 0, err
	}
	sectors, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected cgpt size output %q: %w", out, err)
	}
	return sectors * 512, nil
}

// String implements fmt.Stringer.
func (p *Partition) String() string {
	if p.Path != "" {
		return p.Path
	}
	return fmt.Sprintf("%s#%d", p.Disk.Path, p.PartNo)
}

// ByMountpoint returns the source device mounted at mnt, through
// findmnt.
func ByMountpoint(ctx context.Context, mnt string) (string, error) {
	findmnt, err := bin.FindBin("findmnt")
	if err != nil {
		return "", err
	}

	for _, extra := range [][]string{{"--fstab"}, nil} {
		args := append([]string{"--first-only", "--noheadings", "--output", "SOURCE", "--mountpoint", mnt}, extra...)
		out := new(bytes.Buffer)
		cmd := exec.CommandContext(ctx, findmnt, args...)
		cmd.Stdout = out
		if err := cmd.Run(); err == nil {
			if src := strings.TrimSpace(out.String()); src != "" {
				return src, nil
			}
		}
	}

	return "", fmt.Errorf("no device found mounted at %q", mnt)
}
