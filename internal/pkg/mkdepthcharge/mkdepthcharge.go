// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package mkdepthcharge assembles and signs boot images for the
// ChromeOS bootloader.
package mkdepthcharge

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/kernel"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/util/bin"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/vboot"
)

// Opts describes one image build.
type Opts struct {
	Arch      kernel.Architecture
	Format    string // "fit" or "zimage", defaults based on Arch
	Vmlinuz   string
	Initramfs string
	Dtbs      []string

	// FIT options.
	Name     string
	Compress string // "none", "lz4" or "lzma"

	// Kernel command line. KernGUID prepends kern_guid=%U, which the
	// firmware substitutes with the boot partition's PARTUUID.
	Cmdline  []string
	KernGUID bool

	// Bootloader stub. Unused by depthcharge, an empty file is packed
	// when not set.
	Bootloader string

	// Where depthcharge loads the kernel buffer, zimage only.
	KernelStart uint64

	Keyblock    string
	SignPrivate string
	SignPubKey  string

	Output string
	TmpDir string

	// Tool lets tests substitute the vbutil_kernel runner.
	Tool *vboot.Tool
}

func (o *Opts) setDefaults() error {
	if o.Vmlinuz == "" {
		return fmt.Errorf("vmlinuz argument is required")
	}
	if o.Output == "" {
		return fmt.Errorf("output argument is required")
	}
	if !o.Arch.Known() {
		return fmt.Errorf("can't build images for unknown architecture %q", o.Arch)
	}

	if o.Format == "" {
		if o.Arch.Matches("arm") || o.Arch.Matches("arm64") {
			o.Format = "fit"
		} else {
			o.Format = "zimage"
		}
		log.Infof("Assuming image format '%s'.", o.Format)
	}

	switch o.Format {
	case "fit":
		// mkimage assumes gzip unless explicitly told otherwise.
		if o.Compress == "" {
			o.Compress = "none"
		}
		// Other images get "unavailable" as their description, it
		// looks better if the kernel matches.
		if o.Name == "" {
			o.Name = "unavailable"
		}
	case "zimage":
		if o.Compress != "" && o.Compress != "none" {
			return fmt.Errorf("compress argument not supported with zimage format")
		}
		if o.Name != "" {
			return fmt.Errorf("name argument not supported with zimage format")
		}
		if len(o.Dtbs) != 0 {
			return fmt.Errorf("device tree files not supported with zimage format")
		}
	default:
		return fmt.Errorf("can't build images for unknown image format %q", o.Format)
	}

	switch o.Compress {
	case "", "none", "lz4", "lzma":
	default:
		return fmt.Errorf("compression type %q is not supported", o.Compress)
	}

	if o.KernelStart == 0 {
		o.KernelStart = DefaultKernelStart
	}
	if o.Tool == nil {
		o.Tool = &vboot.Tool{}
	}

	return nil
}

// Build packs vmlinuz, initramfs and dtbs into a signed depthcharge
// image at opts.Output, then verifies the result.
func Build(ctx context.Context, opts Opts) error {
	if err := opts.setDefaults(); err != nil {
		return err
	}

	tmpdir := opts.TmpDir
	if tmpdir == "" {
		dir, err := os.MkdirTemp("", "mkdepthcharge-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		tmpdir = dir
	} else if err := os.MkdirAll(tmpdir, 0o755); err != nil {
		return err
	}
	log.Debugf("Working in temp dir %q", tmpdir)

	// mkimage can't open files when they are read-only for some
	// reason. Work on copies in fear of modifying the originals.
	vmlinuz, err := copyToDir(opts.Vmlinuz, tmpdir)
	if err != nil {
		return err
	}
	initramfs := ""
	if opts.Initramfs != "" {
		if initramfs, err = copyToDir(opts.Initramfs, tmpdir); err != nil {
			return err
		}
	}
	dtbs := make([]string, 0, len(opts.Dtbs))
	for _, dtb := range opts.Dtbs {
		copied, err := copyToDir(dtb, tmpdir)
		if err != nil {
			return err
		}
		dtbs = append(dtbs, copied)
	}

	// Debian packs the arm64 kernel uncompressed, but the bindeb-pkg
	// kernel target packs it as gzip.
	if gz, err := IsGzip(vmlinuz); err != nil {
		return err
	} else if gz {
		log.Infof("Kernel is gzip compressed, decompressing.")
		if vmlinuz, err = gunzip(vmlinuz); err != nil {
			return err
		}
	}

	// Depthcharge on arm64 with FIT supports these two compressions.
	switch opts.Compress {
	case "lz4":
		log.Infof("Compressing kernel with lz4.")
		if vmlinuz, err = compressLZ4(ctx, vmlinuz); err != nil {
			return err
		}
	case "lzma":
		log.Infof("Compressing kernel with lzma.")
		if vmlinuz, err = compressLZMA(ctx, vmlinuz); err != nil {
			return err
		}
	}

	// vbutil_kernel --config wants the cmdline as a file.
	cmdlineFile := filepath.Join(tmpdir, "kernel.args")
	if err := os.WriteFile(cmdlineFile, []byte(buildCmdline(opts.Cmdline, opts.KernGUID)), 0o644); err != nil {
		return err
	}

	// vbutil_kernel --bootloader is mandatory, but depthcharge only
	// uses it as a multiboot ramdisk. An empty file stands in for it
	// where necessary.
	bootloader := opts.Bootloader
	if bootloader == "" {
		bootloader = filepath.Join(tmpdir, "empty.bin")
		if err := os.WriteFile(bootloader, make([]byte, 512), 0o644); err != nil {
			return err
		}
	}

	pack := vboot.PackArgs{
		Arch:        opts.Arch.Vboot(),
		ConfigFile:  cmdlineFile,
		Bootloader:  bootloader,
		Keyblock:    opts.Keyblock,
		SignPrivate: opts.SignPrivate,
		Output:      opts.Output,
	}

	switch {
	case opts.Format == "fit":
		fitImage := filepath.Join(tmpdir, "depthcharge.fit")
		log.Infof("Packing files as FIT image.")
		if err := runMkimage(ctx, opts, vmlinuz, initramfs, dtbs, fitImage); err != nil {
			return err
		}

		log.Infof("Packing files as depthcharge image.")
		pack.Vmlinuz = fitImage
		if err := opts.Tool.Pack(ctx, pack); err != nil {
			return err
		}

	case initramfs == "":
		log.Infof("Packing files as depthcharge image.")
		pack.Vmlinuz = vmlinuz
		if err := opts.Tool.Pack(ctx, pack); err != nil {
			return err
		}

	default:
		// The bzImage overwrites parts of the buffer we control while
		// decompressing itself, so the initramfs must be kept clear of
		// that range.
		if err := padVmlinuz(vmlinuz, opts.KernelStart); err != nil {
			return err
		}

		// vbutil_kernel picks apart the vmlinuz in ways not worth
		// reimplementing, so pack through it and edit the result.
		log.Infof("Packing files as temporary image.")
		tempImg := filepath.Join(tmpdir, "temp.img")
		pack.Vmlinuz = vmlinuz
		pack.Bootloader = initramfs
		pack.Output = tempImg
		if err := opts.Tool.Pack(ctx, pack); err != nil {
			return err
		}

		fi, err := os.Stat(initramfs)
		if err != nil {
			return err
		}
		if err := patchInitramfs(tempImg, fi.Size(), opts.KernelStart); err != nil {
			return err
		}

		log.Infof("Re-signing edited temporary image.")
		if err := opts.Tool.Repack(ctx, opts.Keyblock, opts.SignPrivate, tempImg, opts.Output); err != nil {
			return err
		}
	}

	log.Infof("Verifying built depthcharge image.")
	return opts.Tool.Verify(ctx, opts.SignPubKey, opts.Output)
}

// buildCmdline joins the kernel parameters into the file content
// vbutil_kernel expects. An empty cmdline makes vbutil_kernel error
// out, "--" stands in for it.
func buildCmdline(params []string, kernGUID bool) string {
	cmdline := strings.Join(params, " ")
	if cmdline == "" {
		cmdline = "--"
	}
	if kernGUID {
		cmdline = "kern_guid=%U " + cmdline
	}
	return cmdline
}

func runMkimage(ctx context.Context, opts Opts, vmlinuz, initramfs string, dtbs []string, output string) error {
	mkimage, err := bin.FindBin("mkimage")
	if err != nil {
		return err
	}

	args := []string{
		"-f", "auto",
		"-A", opts.Arch.Mkimage(),
		"-O", "linux",
		"-C", opts.Compress,
		"-n", opts.Name,
	}
	if initramfs != "" {
		args = append(args, "-i", initramfs)
	}
	for _, dtb := range dtbs {
		args = append(args, "-b", dtb)
	}
	args = append(args, "-d", vmlinuz, output)

	out := new(bytes.Buffer)
	cmd := exec.CommandContext(ctx, mkimage, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mkimage failed: %w: %s", err, strings.TrimSpace(out.String()))
	}
	log.Debugf("%s", out.String())
	return nil
}

func copyToDir(src, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return dest, out.Close()
}

func gunzip(src string) (string, error) {
	dest := strings.TrimSuffix(src, ".gz")
	if dest == src {
		dest = src + ".gunzip"
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, zr); err != nil { //nolint:gosec
		return "", err
	}
	return dest, out.Close()
}

func compressLZ4(ctx context.Context, src string) (string, error) {
	lz4, err := bin.FindBin("lz4")
	if err != nil {
		return "", err
	}
	dest := src + ".lz4"
	return dest, runCompressor(ctx, exec.CommandContext(ctx, lz4, "-z", "-9", src, dest))
}

func compressLZMA(ctx context.Context, src string) (string, error) {
	xz, err := bin.FindBin("xz")
	if err != nil {
		return "", err
	}
	dest := src + ".lzma"

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, xz, "--format=lzma", "-9", "--keep", "--stdout", src)
	cmd.Stdout = out
	if err := runCompressor(ctx, cmd); err != nil {
		return "", err
	}
	return dest, out.Close()
}

func runCompressor(_ context.Context, cmd *exec.Cmd) error {
	errBuf := new(bytes.Buffer)
	cmd.Stderr = errBuf
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", filepath.Base(cmd.Path), err, strings.TrimSpace(errBuf.String()))
	}
	return nil
}
