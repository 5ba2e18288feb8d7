// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mkdepthcharge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// DefaultKernelStart is where depthcharge loads the kernel buffer on
// x86 machines.
const DefaultKernelStart = 0x100000

// The bzImage setup header, see Documentation/x86/boot.rst in the
// Linux tree for the offsets.
const (
	bzMagicOffset       = 0x202
	bzPrefAddressOffset = 0x258
	bzInitSizeOffset    = 0x260
	bzRamdiskImage      = 0x218
	bzRamdiskSize       = 0x21c
)

var (
	bzMagic       = []byte("HdrS")
	chromeosMagic = []byte("CHROMEOS")
)

// The bzImage decompresses itself at its preferred address, but the
// file is loaded 0x10000 bytes below where its code expects to start.
func addrToOffs(addr, loadAddr uint64) uint64 {
	return addr - loadAddr + 0x10000
}

func offsToAddr(offs, loadAddr uint64) uint64 {
	return offs + loadAddr - 0x10000
}

func alignUp(size, align uint64) uint64 {
	return ((size + align - 1) / align) * align
}

// padVmlinuz grows the bzImage file so that the region the kernel
// clobbers while decompressing itself stays inside the file. Anything
// placed right after an unpadded bzImage (our initramfs) would be
// overwritten during boot.
func padVmlinuz(path string, kernelStart uint64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if len(data) < bzInitSizeOffset+4 || !bytes.Equal(data[bzMagicOffset:bzMagicOffset+4], bzMagic) {
		return fmt.Errorf("vmlinuz file %q is not a Linux kernel bzImage", path)
	}

	prefAddress := binary.LittleEndian.Uint64(data[bzPrefAddressOffset : bzPrefAddressOffset+8])
	initSize := binary.LittleEndian.Uint32(data[bzInitSizeOffset : bzInitSizeOffset+4])
	padTo := alignUp(addrToOffs(prefAddress+uint64(initSize), kernelStart), 0x1000)

	if padTo <= uint64(len(data)) {
		return nil
	}

	log.Debugf("Padding vmlinuz to size %#x", padTo)
	data = append(data, make([]byte, padTo-uint64(len(data)))...)
	return os.WriteFile(path, data, 0o644)
}

// patchInitramfs edits a packed zimage in place so the kernel can find
// the initramfs that vbutil_kernel stored as the image's "bootloader".
// The ramdisk address and size fields of the boot params are filled in
// the way a bootloader would, and depthcharge passes them through
// unmodified.
func patchInitramfs(imagePath string, initramfsSize int64, kernelStart uint64) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}

	if !bytes.HasPrefix(data, chromeosMagic) {
		return fmt.Errorf("unexpected output format from vbutil_kernel, expected 'CHROMEOS' magic at start of file")
	}
	if len(data) < 0x14 {
		return fmt.Errorf("unexpected output format from vbutil_kernel, file too short for a keyblock header")
	}

	// The file starts with a keyblock, with the kernel preamble
	// immediately afterwards and padding up to 0x10000.
	keyblockSize := binary.LittleEndian.Uint32(data[0x10:0x14])
	preambleOffset := uint64(keyblockSize)
	if uint64(len(data)) < preambleOffset+0x3c {
		return fmt.Errorf("unexpected output format from vbutil_kernel, file too short for the kernel preamble")
	}

	// The preamble's bootloader address assumes a 0x100000 body load
	// address regardless of where the board actually loads it.
	bootloaderAddr := binary.LittleEndian.Uint32(data[preambleOffset+0x38 : preambleOffset+0x3c])
	bootloaderOffset := addrToOffs(uint64(bootloaderAddr), DefaultKernelStart)
	if bootloaderOffset < 0x1000 || uint64(len(data)) < bootloaderOffset {
		return fmt.Errorf("unexpected output format from vbutil_kernel, bootloader offset %#x out of range", bootloaderOffset)
	}

	initramfsOffset := bootloaderOffset
	initramfsAddr := offsToAddr(initramfsOffset, kernelStart)

	log.Debugf("Initramfs is at offset %#x, address %#x, size %#x",
		initramfsOffset, initramfsAddr, initramfsSize)

	// Boot params sit immediately before the bootloader, 0x1000 long.
	paramsOffset := bootloaderOffset - 0x1000
	magicStart := paramsOffset + bzMagicOffset
	if uint64(len(data)) < magicStart+4 || !bytes.Equal(data[magicStart:magicStart+4], bzMagic) {
		return fmt.Errorf("unexpected output format from vbutil_kernel, expected 'HdrS' magic in boot params")
	}

	binary.LittleEndian.PutUint32(data[paramsOffset+bzRamdiskImage:paramsOffset+bzRamdiskImage+4], uint32(initramfsAddr))
	binary.LittleEndian.PutUint32(data[paramsOffset+bzRamdiskSize:paramsOffset+bzRamdiskSize+4], uint32(initramfsSize))

	return os.WriteFile(imagePath, data, 0o644)
}
