// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package vboot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

// fakeVbutil writes a stand-in vbutil_kernel that records its arguments
// and exits with the given status.
func fakeVbutil(t *testing.T, exitCode int) (path, argsFile string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "vbutil_kernel")
	argsFile = filepath.Join(dir, "args")

	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > %s\nexit %d\n", argsFile, exitCode)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path, argsFile
}

func TestToolVerify(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path, argsFile := fakeVbutil(t, 0)
		tool := &Tool{Path: path}

		err := tool.Verify(context.Background(), "/keys/sub.vbpubk", "/images/test.img")
		assert.NilError(t, err)

		args, err := os.ReadFile(argsFile)
		assert.NilError(t, err)
		assert.Equal(t, string(args), "--verify /images/test.img --signpubkey /keys/sub.vbpubk\n")
	})

	t.Run("NoKeyOmitsSignpubkey", func(t *testing.T) {
		path, argsFile := fakeVbutil(t, 0)
		tool := &Tool{Path: path}

		err := tool.Verify(context.Background(), "", "/images/test.img")
		assert.NilError(t, err)

		args, err := os.ReadFile(argsFile)
		assert.NilError(t, err)
		assert.Equal(t, string(args), "--verify /images/test.img\n")
	})

	t.Run("Rejected", func(t *testing.T) {
		path, _ := fakeVbutil(t, 1)
		tool := &Tool{Path: path}

		err := tool.Verify(context.Background(), "", "/images/test.img")
		assert.Assert(t, errors.Is(err, ErrVerificationFailed), "got %v", err)
	})

	t.Run("ToolMissing", func(t *testing.T) {
		tool := &Tool{Path: filepath.Join(t.TempDir(), "nonexistent")}

		err := tool.Verify(context.Background(), "", "/images/test.img")
		assert.Assert(t, errors.Is(err, ErrUnavailable), "got %v", err)
	})
}

func TestToolPack(t *testing.T) {
	path, argsFile := fakeVbutil(t, 0)
	tool := &Tool{Path: path}

	err := tool.Pack(context.Background(), PackArgs{
		Arch:        "aarch64",
		Vmlinuz:     "depthcharge.fit",
		ConfigFile:  "kernel.args",
		Bootloader:  "empty.bin",
		Keyblock:    "kernel.keyblock",
		SignPrivate: "kernel_data_key.vbprivk",
		Output:      "out.img",
	})
	assert.NilError(t, err)

	args, err := os.ReadFile(argsFile)
	assert.NilError(t, err)
	assert.Equal(t, string(args),
		"--version 1 --arch aarch64 --vmlinuz depthcharge.fit --config kernel.args"+
			" --bootloader empty.bin --keyblock kernel.keyblock"+
			" --signprivate kernel_data_key.vbprivk --pack out.img\n")
}

func TestToolRepack(t *testing.T) {
	path, argsFile := fakeVbutil(t, 0)
	tool := &Tool{Path: path}

	err := tool.Repack(context.Background(),
		"kernel.keyblock", "kernel_data_key.vbprivk", "temp.img", "out.img")
	assert.NilError(t, err)

	args, err := os.ReadFile(argsFile)
	assert.NilError(t, err)
	assert.Equal(t, string(args),
		"--keyblock kernel.keyblock --signprivate kernel_data_key.vbprivk"+
			" --oldblob temp.img --repack out.img\n")
}
