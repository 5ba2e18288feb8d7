// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mkdepthcharge

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// bzImageHead builds a bzImage setup header with nothing in front of
// it, like a kernel built without the EFI stub.
func bzImageHead() []byte {
	data := make([]byte, bzMagicOffset+0x100)
	copy(data[bzMagicOffset:], bzMagic)
	return data
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want FileKind
	}{
		{
			name: "BzImage",
			data: append([]byte("MZ"), make([]byte, 100)...),
			want: KindVmlinuz,
		},
		{
			name: "ElfKernel",
			data: append([]byte("\x7fELF"), make([]byte, 100)...),
			want: KindVmlinuz,
		},
		{
			name: "GzippedElfKernel",
			data: gzipped(t, append([]byte("\x7fELF"), make([]byte, 100)...)),
			want: KindVmlinuz,
		},
		{
			name: "BzImageNoEfiStub",
			data: bzImageHead(),
			want: KindVmlinuz,
		},
		{
			name: "NewcCpio",
			data: append([]byte("070701"), make([]byte, 100)...),
			want: KindInitramfs,
		},
		{
			name: "CrcCpio",
			data: append([]byte("070702"), make([]byte, 100)...),
			want: KindInitramfs,
		},
		{
			name: "OdcCpio",
			data: append([]byte("070707"), make([]byte, 100)...),
			want: KindInitramfs,
		},
		{
			name: "GzippedCpio",
			data: gzipped(t, append([]byte("070701"), make([]byte, 100)...)),
			want: KindInitramfs,
		},
		{
			name: "DeviceTree",
			data: append([]byte{0xd0, 0x0d, 0xfe, 0xed}, make([]byte, 100)...),
			want: KindDTB,
		},
		{
			name: "Garbage",
			data: []byte("hello world"),
			want: KindUnknown,
		},
		{
			name: "Empty",
			data: nil,
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "input", tt.data)
			got, err := DetectKind(path)
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestDetectKindMissingFile(t *testing.T) {
	_, err := DetectKind("/nonexistent/input")
	assert.Assert(t, err != nil)
}

func TestIsGzip(t *testing.T) {
	gz := writeFile(t, "k.gz", gzipped(t, []byte("data")))
	got, err := IsGzip(gz)
	assert.NilError(t, err)
	assert.Assert(t, got)

	plain := writeFile(t, "k", []byte("data"))
	got, err = IsGzip(plain)
	assert.NilError(t, err)
	assert.Assert(t, !got)

	empty := writeFile(t, "empty", nil)
	got, err = IsGzip(empty)
	assert.NilError(t, err)
	assert.Assert(t, !got)
}
