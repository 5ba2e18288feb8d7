// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package depthchargectl

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/board"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/config"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/kernel"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/mkdepthcharge"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/util/bin"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/util/disk"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/vboot"
)

// BuildOpts controls which kernel gets built into an image and where
// the result lands.
type BuildOpts struct {
	Board  *board.Board
	Config *config.File

	// KernelRelease picks a specific installed kernel, the latest one
	// when empty.
	KernelRelease string

	// BootDir is scanned for installed kernels, /boot when empty.
	BootDir string

	// Compress forces a single compression type instead of trying the
	// board's supported ones in turn.
	Compress string

	// Output writes the image to a specific path instead of the
	// configured images directory.
	Output string
}

// Build packs the chosen kernel into a depthcharge image under the
// configured images directory and returns the image path. The built
// image is verified and size-checked before it replaces any previous
// image for the same kernel release.
func Build(ctx context.Context, opts BuildOpts) (string, error) {
	if opts.Board == nil {
		return "", fmt.Errorf("%w: no board to build an image for", ErrUsage)
	}
	if opts.Config == nil {
		opts.Config = &config.File{ImagesDir: "/boot/depthcharge"}
	}

	bootDir := opts.BootDir
	if bootDir == "" {
		bootDir = "/boot"
	}

	entry, err := chooseKernel(bootDir, opts.Board, opts.KernelRelease)
	if err != nil {
		return "", err
	}
	log.Infof("Building depthcharge image for kernel %q.", entry.Release)

	initramfs := entry.Initrd
	if opts.Config.IgnoreInitramfs && initramfs != "" {
		log.Warnf("Ignoring initramfs %q as configured.", initramfs)
		initramfs = ""
	}

	// An image with no initramfs at all can't be salvaged by better
	// compression either, but that's just a too-big image. When the
	// initramfs alone is over the limit the packed kernel can't
	// possibly fit alongside it, which deserves its own error.
	if initramfs != "" && opts.Board.MaxSize > 0 {
		fi, err := os.Stat(initramfs)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}
		if fi.Size() > opts.Board.MaxSize {
			return "", fmt.Errorf("%w: initramfs is %d bytes, image limit is %d",
				ErrInitramfsTooBig, fi.Size(), opts.Board.MaxSize)
		}
	}

	dtbs, err := chooseDtbs(ctx, entry, opts.Board)
	if err != nil {
		return "", err
	}

	cmdline, err := buildCmdline(ctx, opts.Config)
	if err != nil {
		return "", err
	}

	keys, err := chooseKeys(opts.Config)
	if err != nil {
		return "", err
	}

	// mkimage bakes a timestamp into FIT images. Pinning it to the
	// kernel's mtime keeps rebuilds reproducible.
	if os.Getenv("SOURCE_DATE_EPOCH") == "" {
		if fi, err := os.Stat(entry.Kernel); err == nil {
			os.Setenv("SOURCE_DATE_EPOCH", strconv.FormatInt(fi.ModTime().Unix(), 10))
		}
	}

	tmpdir, err := os.MkdirTemp("", "depthchargectl-build-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpdir)

	tempImage := filepath.Join(tmpdir, entry.Release+".img")

	candidates := compressCandidates(opts.Board)
	if opts.Compress != "" {
		candidates = []string{opts.Compress}
	}

	var lastSize int64
	for _, compress := range candidates {
		if compress != "none" {
			log.Infof("Trying with compression %q.", compress)
		}

		buildOpts := mkdepthcharge.Opts{
			Arch:        opts.Board.Arch,
			Format:      opts.Board.ImageFormat,
			Vmlinuz:     entry.Kernel,
			Initramfs:   initramfs,
			Dtbs:        dtbs,
			Name:        entry.Description(),
			Cmdline:     cmdline,
			KernGUID:    true,
			Keyblock:    keys.Keyblock,
			SignPrivate: keys.PrivateKey,
			SignPubKey:  keys.PublicKey,
			Output:      tempImage,
		}
		if opts.Board.ImageFormat == "fit" {
			buildOpts.Compress = compress
		} else {
			buildOpts.Name = ""
		}

		if err := mkdepthcharge.Build(ctx, buildOpts); err != nil {
			return "", err
		}

		fi, err := os.Stat(tempImage)
		if err != nil {
			return "", err
		}
		lastSize = fi.Size()

		if opts.Board.MaxSize <= 0 || lastSize <= opts.Board.MaxSize {
			if opts.Output != "" {
				return opts.Output, copyImage(tempImage, opts.Output)
			}
			return installImage(tempImage, opts.Config.ImagesDir, entry.Release)
		}
		log.Warnf("Image is %d bytes, over the %d byte limit.", lastSize, opts.Board.MaxSize)
	}

	return "", fmt.Errorf("%w: smallest image is %d bytes, limit is %d",
		ErrImageTooBig, lastSize, opts.Board.MaxSize)
}

func chooseKernel(bootDir string, b *board.Board, release string) (kernel.Entry, error) {
	installed, err := kernel.Installed(bootDir)
	if err != nil {
		return kernel.Entry{}, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	// Multi-arch systems can have kernels the board can't boot.
	candidates := lo.Filter(installed, func(e kernel.Entry, _ int) bool {
		arch := e.Arch()
		return arch == "" || arch.Matches(b.Arch)
	})

	if release != "" {
		for _, e := range candidates {
			if e.Release == release {
				return e, nil
			}
		}
		return kernel.Entry{}, fmt.Errorf("%w: kernel release %q is not installed", ErrUsage, release)
	}

	latest, ok := kernel.Latest(candidates)
	if !ok {
		return kernel.Entry{}, fmt.Errorf("no kernels usable on board %q found in %s", b.Codename, bootDir)
	}
	return latest, nil
}

// chooseDtbs picks the device-tree blobs the board can boot with, by
// matching each blob's compatible strings against the board's pattern.
func chooseDtbs(ctx context.Context, entry kernel.Entry, b *board.Board) ([]string, error) {
	if b.ImageFormat != "fit" || entry.Fdtdir == "" {
		return nil, nil
	}

	dtbs := []string{}
	err := filepath.WalkDir(entry.Fdtdir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".dtb") {
			return err
		}
		if b.DTCompatible != nil {
			compatible, err := dtCompatible(ctx, path)
			if err != nil {
				log.Debugf("Couldn't read compatible from %q: %v", path, err)
				return nil
			}
			if !lo.SomeBy(compatible, b.DTCompatible.MatchString) {
				return nil
			}
		}
		dtbs = append(dtbs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(dtbs) == 0 && b.DTCompatible != nil {
		return nil, fmt.Errorf("no device-tree blob compatible with board %q found in %q",
			b.Codename, entry.Fdtdir)
	}

	log.Debugf("Using device-tree blobs %q", dtbs)
	return dtbs, nil
}

func dtCompatible(ctx context.Context, dtb string) ([]string, error) {
	fdtget, err := bin.FindBin("fdtget")
	if err != nil {
		return nil, err
	}

	out := new(bytes.Buffer)
	cmd := exec.CommandContext(ctx, fdtget, "-t", "s", dtb, "/", "compatible")
	cmd.Stdout = out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return strings.Fields(out.String()), nil
}

// buildCmdline assembles the kernel command line, filling in root= from
// the running system when the configuration doesn't pin one.
func buildCmdline(ctx context.Context, c *config.File) ([]string, error) {
	cmdline := c.Cmdline()

	hasRoot := lo.SomeBy(cmdline, func(p string) bool {
		return strings.HasPrefix(p, "root=")
	})
	if !hasRoot {
		root, err := disk.ByMountpoint(ctx, "/")
		if err != nil {
			return nil, fmt.Errorf("no root= in configured cmdline and %v", err)
		}
		log.Infof("Using root as %q.", root)
		cmdline = append(cmdline, "root="+root)
	}

	if c.IgnoreInitramfs {
		cmdline = append(cmdline, "noinitrd")
	}

	return cmdline, nil
}

func chooseKeys(c *config.File) (vboot.KeySet, error) {
	keys := vboot.KeySet{
		Keyblock:   c.VbootKeyblock,
		PrivateKey: c.VbootPrivateKey,
		PublicKey:  c.VbootPublicKey,
	}
	if keys.Keyblock != "" && keys.PrivateKey != "" && keys.PublicKey != "" {
		return keys, nil
	}

	found, err := vboot.FindKeys(config.DefaultConfDir)
	if err != nil {
		return vboot.KeySet{}, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	if keys.Keyblock == "" {
		keys.Keyblock = found.Keyblock
	}
	if keys.PrivateKey == "" {
		keys.PrivateKey = found.PrivateKey
	}
	if keys.PublicKey == "" {
		keys.PublicKey = found.PublicKey
	}
	return keys, nil
}

func compressCandidates(b *board.Board) []string {
	candidates := []string{"none"}
	if b.ImageFormat != "fit" {
		return candidates
	}
	if b.BootsLZ4 {
		candidates = append(candidates, "lz4")
	}
	if b.BootsLZMA {
		candidates = append(candidates, "lzma")
	}
	return candidates
}

// installImage moves the built image into the images directory, under a
// lock so concurrent kernel hook runs don't clobber each other.
func installImage(tempImage, imagesDir, release string) (string, error) {
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return "", err
	}

	lock := flock.New(filepath.Join(imagesDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("couldn't lock images dir %q: %w", imagesDir, err)
	}
	defer lock.Unlock()

	output := filepath.Join(imagesDir, release+".img")
	if err := copyImage(tempImage, output); err != nil {
		return "", err
	}

	log.Infof("Built depthcharge image %q.", output)
	return output, nil
}

// copyImage copies rather than renames, the temp dir is usually on a
// different filesystem than the destination.
func copyImage(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}
