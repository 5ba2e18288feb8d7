// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package docs

// Global content for help and man pages
const (

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// depthchargectl command
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	DepthchargectlUse   string = `depthchargectl [global options...]`
	DepthchargectlShort string = `Manage Chrome OS kernel images and partitions`
	DepthchargectlLong  string = `
  depthchargectl builds and validates boot images for machines that use the
  ChromeOS bootloader (depthcharge), based on a per-board configuration that
  describes what each board can boot.`
	DepthchargectlExample string = `
  $ depthchargectl build --board kevin
  $ depthchargectl check /boot/depthcharge/6.1.0-13-arm64.img
  $ depthchargectl list /dev/mmcblk0`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// check command
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	CheckUse   string = `check [options] <image>`
	CheckShort string = `Check if a depthcharge image can be booted`
	CheckLong  string = `
  The 'check' command verifies that an image file is bootable on this board.
  The image must be no larger than the board's maximum image size, and its
  vboot signature must verify against the trusted public key. The size check
  runs before the signature check so that cheap local failures are caught
  before an external verification tool is invoked.`
	CheckExample string = `
  $ depthchargectl check /boot/depthcharge/6.1.0-13-arm64.img
  $ MACHINE_MAX_SIZE=33554432 depthchargectl check vmlinux.kpart
  $ depthchargectl check --vboot-public-key /usr/share/vboot/devkeys/kernel_subkey.vbpubk new.img`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// build command
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	BuildUse   string = `build [options] [KERNEL_VERSION]`
	BuildShort string = `Build a depthcharge image for the running system`
	BuildLong  string = `
  The 'build' command builds a bootable image from an installed kernel. It
  packs the kernel, optionally an initramfs and device-tree blobs, signs the
  result with the configured vboot keys, and retries with lz4/lzma kernel
  compression when the uncompressed image exceeds the board's maximum size.`
	BuildExample string = `
  $ depthchargectl build
  $ depthchargectl build 6.1.0-13-arm64
  $ depthchargectl build --compress lzma -o /tmp/test.img`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// list command
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	ListUse   string = `list [options] [DISK ...]`
	ListShort string = `List ChromeOS kernel partitions`
	ListLong  string = `
  The 'list' command prints the ChromeOS kernel partitions of the given disks
  along with their successful/priority/tries GPT flags. With no arguments it
  lists partitions on the physical disks backing the root and boot
  filesystems.`
	ListExample string = `
  $ depthchargectl list
  $ depthchargectl list /dev/mmcblk0 /dev/sda`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// mkdepthcharge command
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	MkdepthchargeUse   string = `mkdepthcharge [options] -o FILE [--] [VMLINUZ] [INITRAMFS] [DTB ...]`
	MkdepthchargeShort string = `Build boot images for the ChromeOS bootloader`
	MkdepthchargeLong  string = `
  mkdepthcharge wraps the FIT image and vboot tooling needed to build images
  the ChromeOS bootloader can boot. Positional input files are detected by
  content: kernel executables, cpio archives and device-tree blobs may be
  given in any order.`
	MkdepthchargeExample string = `
  $ mkdepthcharge -o depthcharge.img /boot/vmlinuz-6.1.0-13-arm64
  $ mkdepthcharge -o depthcharge.img --compress lz4 vmlinuz initrd.img rk3399-gru-kevin.dtb`
)
