// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package vboot drives the vboot reference tooling (vbutil_kernel) used
// to sign and verify depthcharge images.
package vboot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/util/bin"
)

var (
	// ErrVerificationFailed means vbutil_kernel ran and rejected the image.
	ErrVerificationFailed = errors.New("depthcharge image signature verification failed")

	// ErrUnavailable means vbutil_kernel could not be found or started.
	ErrUnavailable = errors.New("vbutil_kernel unavailable")
)

// Verifier checks a packed image's signature against a trusted public
// key. It exists as an interface so command logic can be tested without
// invoking the real tool.
type Verifier interface {
	Verify(ctx context.Context, keyPath, imagePath string) error
}

// Tool runs a real vbutil_kernel binary.
type Tool struct {
	// Path to the vbutil_kernel executable. Resolved from the
	// configuration or PATH when empty.
	Path string
}

func (t *Tool) resolve() (string, error) {
	if t.Path != "" {
		return t.Path, nil
	}
	path, err := bin.FindBin("vbutil_kernel")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return path, nil
}

func (t *Tool) run(ctx context.Context, args ...string) error {
	path, err := t.resolve()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	// The tool's output is noise here, its exit status is the signal.
	cmd.Stdout = io.Discard
	errBuf := new(bytes.Buffer)
	cmd.Stderr = errBuf

	log.Debugf("Running %q %q", path, args)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("vbutil_kernel exited with status %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(errBuf.String()))
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Verify checks the signature of the image at imagePath against the
// public key at keyPath. An empty keyPath lets vbutil_kernel check the
// image against the key embedded in its own keyblock.
func (t *Tool) Verify(ctx context.Context, keyPath, imagePath string) error {
	args := []string{"--verify", imagePath}
	if keyPath != "" {
		args = append(args, "--signpubkey", keyPath)
	}

	if err := t.run(ctx, args...); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return nil
}

// PackArgs describes one vbutil_kernel --pack invocation.
type PackArgs struct {
	Arch        string
	Vmlinuz     string
	ConfigFile  string
	Bootloader  string
	Keyblock    string
	SignPrivate string
	Output      string
}

// Pack signs and packs a kernel into a depthcharge image.
func (t *Tool) Pack(ctx context.Context, args PackArgs) error {
	return t.run(ctx,
		"--version", "1",
		"--arch", args.Arch,
		"--vmlinuz", args.Vmlinuz,
		"--config", args.ConfigFile,
		"--bootloader", args.Bootloader,
		"--keyblock", args.Keyblock,
		"--signprivate", args.SignPrivate,
		"--pack", args.Output,
	)
}

// Repack re-signs an existing image blob, used after the packed image
// has been edited in place.
func (t *Tool) Repack(ctx context.Context, keyblock, signPrivate, oldImage, output string) error {
	return t.run(ctx,
		"--keyblock", keyblock,
		"--signprivate", signPrivate,
		"--oldblob", oldImage,
		"--repack", output,
	)
}
