// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mkdepthcharge

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
)

// FileKind classifies mkdepthcharge input files by content.
type FileKind int

const (
	KindUnknown FileKind = iota
	KindVmlinuz
	KindInitramfs
	KindDTB
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	dtbMagic  = []byte{0xd0, 0x0d, 0xfe, 0xed}

	cpioMagics = [][]byte{
		[]byte("070701"),
		[]byte("070702"),
		[]byte("070707"),
	}
)

// DetectKind sniffs the file at path and classifies it as a kernel
// executable, a cpio archive or a device-tree blob. Gzip-compressed
// files are classified by their decompressed content, which matters for
// kernels that distros ship gzipped.
func DetectKind(path string) (FileKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return KindUnknown, err
	}
	head = head[:n]

	if bytes.HasPrefix(head, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(head))
		if err == nil {
			inner := make([]byte, 4096)
			// A truncated stream is fine, the magic is at the front.
			if n, _ := zr.Read(inner); n > 0 {
				head = inner[:n]
			}
		}
	}

	return classify(head), nil
}

func classify(head []byte) FileKind {
	switch {
	case bytes.HasPrefix(head, []byte("MZ")), bytes.HasPrefix(head, []byte("\x7fELF")):
		return KindVmlinuz
	// A bzImage built without the EFI stub has no MZ header, but still
	// carries the setup header magic at a fixed offset.
	case len(head) >= bzMagicOffset+4 && bytes.Equal(head[bzMagicOffset:bzMagicOffset+4], bzMagic):
		return KindVmlinuz
	case bytes.HasPrefix(head, dtbMagic):
		return KindDTB
	}

	for _, magic := range cpioMagics {
		if bytes.HasPrefix(head, magic) {
			return KindInitramfs
		}
	}

	return KindUnknown
}

// IsGzip reports whether the file at path is gzip-compressed.
func IsGzip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 2)
	if _, err := io.ReadFull(f, head); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head, gzipMagic), nil
}
