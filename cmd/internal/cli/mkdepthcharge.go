// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/depthcharge-tools/depthcharge-tools/docs"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/config"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/kernel"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/mkdepthcharge"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/vboot"
	"github.com/depthcharge-tools/depthcharge-tools/pkg/cmdline"
)

var (
	mkVerbose     bool
	mkArch        string
	mkFormat      string
	mkCompress    string
	mkName        string
	mkCmdline     []string
	mkNoKernGUID  bool
	mkBootloader  string
	mkKernelStart int64
	mkKeyblock    string
	mkSignPrivate string
	mkSignPubKey  string
	mkOutput      string
)

var mkdepthchargeFlags = []*cmdline.Flag{
	{
		ID:           "mkVerboseFlag",
		Value:        &mkVerbose,
		DefaultValue: false,
		Name:         "verbose",
		ShortHand:    "v",
		Usage:        "print more detailed output",
		EnvKeys:      []string{"VERBOSE"},
	},
	{
		ID:           "mkArchFlag",
		Value:        &mkArch,
		DefaultValue: "",
		Name:         "arch",
		ShortHand:    "A",
		Usage:        "architecture to build for, the running machine's when omitted",
		EnvKeys:      []string{"ARCH"},
	},
	{
		ID:           "mkFormatFlag",
		Value:        &mkFormat,
		DefaultValue: "",
		Name:         "format",
		Usage:        "kernel image format to use (fit|zimage)",
		EnvKeys:      []string{"FORMAT"},
	},
	{
		ID:           "mkCompressFlag",
		Value:        &mkCompress,
		DefaultValue: "",
		Name:         "compress",
		ShortHand:    "C",
		Usage:        "compress the kernel (none|lz4|lzma), fit only",
		EnvKeys:      []string{"COMPRESS"},
	},
	{
		ID:           "mkNameFlag",
		Value:        &mkName,
		DefaultValue: "",
		Name:         "name",
		ShortHand:    "n",
		Usage:        "description of the kernel, fit only",
	},
	{
		ID:           "mkCmdlineFlag",
		Value:        &mkCmdline,
		DefaultValue: []string{},
		Name:         "cmdline",
		ShortHand:    "c",
		Usage:        "kernel command line parameters",
		EnvKeys:      []string{"CMDLINE"},
	},
	{
		ID:           "mkNoKernGUIDFlag",
		Value:        &mkNoKernGUID,
		DefaultValue: false,
		Name:         "no-kern-guid",
		Usage:        "don't prepend kern_guid=%U to the command line",
	},
	{
		ID:           "mkBootloaderFlag",
		Value:        &mkBootloader,
		DefaultValue: "",
		Name:         "bootloader",
		Usage:        "bootloader stub to pack into the image",
	},
	{
		ID:           "mkKernelStartFlag",
		Value:        &mkKernelStart,
		DefaultValue: int64(mkdepthcharge.DefaultKernelStart),
		Name:         "kernel-start",
		Usage:        "depthcharge kernel buffer address, zimage only",
	},
	{
		ID:           "mkKeyblockFlag",
		Value:        &mkKeyblock,
		DefaultValue: "",
		Name:         "keyblock",
		Usage:        "kernel keyblock file to sign the image with",
		EnvKeys:      []string{"KEYBLOCK"},
	},
	{
		ID:           "mkSignPrivateFlag",
		Value:        &mkSignPrivate,
		DefaultValue: "",
		Name:         "signprivate",
		Usage:        "private key to sign the image with",
		EnvKeys:      []string{"SIGNPRIVATE"},
	},
	{
		ID:           "mkSignPubKeyFlag",
		Value:        &mkSignPubKey,
		DefaultValue: "",
		Name:         "signpubkey",
		Usage:        "public key to verify the built image with",
		EnvKeys:      []string{"SIGNPUBKEY"},
	},
	{
		ID:           "mkOutputFlag",
		Value:        &mkOutput,
		DefaultValue: "",
		Name:         "output",
		ShortHand:    "o",
		Usage:        "write the image to this path",
		Required:     true,
		EnvKeys:      []string{"OUTPUT"},
	},
}

// MkdepthchargeCmd is the root of the mkdepthcharge binary.
var MkdepthchargeCmd = &cobra.Command{
	DisableFlagsInUseLine: true,
	SilenceErrors:         true,
	Args:                  cobra.MinimumNArgs(1),

	PreRun: func(_ *cobra.Command, _ []string) {
		if mkVerbose {
			log.SetLevel(log.DebugLevel)
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		if err := doMkdepthchargeCmd(cmd, args); err != nil {
			log.Errorf("%s", err)
			os.Exit(1)
		}
	},

	Use:     docs.MkdepthchargeUse,
	Short:   docs.MkdepthchargeShort,
	Long:    docs.MkdepthchargeLong,
	Example: docs.MkdepthchargeExample,
}

func doMkdepthchargeCmd(cmd *cobra.Command, args []string) error {
	opts := mkdepthcharge.Opts{
		Format:      mkFormat,
		Name:        mkName,
		Compress:    mkCompress,
		Cmdline:     mkCmdline,
		KernGUID:    !mkNoKernGUID,
		Bootloader:  mkBootloader,
		KernelStart: uint64(mkKernelStart),
		Keyblock:    mkKeyblock,
		SignPrivate: mkSignPrivate,
		SignPubKey:  mkSignPubKey,
		Output:      mkOutput,
	}

	if mkArch != "" {
		opts.Arch = kernel.Architecture(mkArch)
	} else {
		goarch := runtime.GOARCH
		if goarch == "386" {
			goarch = "i386"
		}
		opts.Arch = kernel.Architecture(goarch)
		log.Infof("Assuming architecture '%s'.", opts.Arch)
	}

	// Input files can come in any order, sniff what each one is.
	for _, path := range args {
		kind, err := mkdepthcharge.DetectKind(path)
		if err != nil {
			return err
		}
		switch kind {
		case mkdepthcharge.KindVmlinuz:
			if opts.Vmlinuz != "" {
				return fmt.Errorf("multiple kernel files given: %q and %q", opts.Vmlinuz, path)
			}
			opts.Vmlinuz = path
		case mkdepthcharge.KindInitramfs:
			if opts.Initramfs != "" {
				return fmt.Errorf("multiple initramfs files given: %q and %q", opts.Initramfs, path)
			}
			opts.Initramfs = path
		case mkdepthcharge.KindDTB:
			opts.Dtbs = append(opts.Dtbs, path)
		default:
			return fmt.Errorf("couldn't detect what %q is, give a kernel, initramfs or dtb", path)
		}
	}

	if opts.Keyblock == "" || opts.SignPrivate == "" || opts.SignPubKey == "" {
		keys, err := vboot.FindKeys(config.DefaultConfDir)
		if err != nil {
			return err
		}
		if opts.Keyblock == "" {
			opts.Keyblock = keys.Keyblock
		}
		if opts.SignPrivate == "" {
			opts.SignPrivate = keys.PrivateKey
		}
		if opts.SignPubKey == "" {
			opts.SignPubKey = keys.PublicKey
		}
	}

	return mkdepthcharge.Build(cmd.Context(), opts)
}

// ExecuteMkdepthcharge runs the mkdepthcharge command and exits the
// process with its status code.
func ExecuteMkdepthcharge() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	MkdepthchargeCmd.Flags().SetInterspersed(true)

	manager := cmdline.NewCommandManager(MkdepthchargeCmd)
	for _, flag := range mkdepthchargeFlags {
		manager.RegisterFlagForCmd(flag, MkdepthchargeCmd)
	}
	if errs := manager.GetError(); len(errs) > 0 {
		for _, err := range errs {
			log.Errorf("While registering flags: %s", err)
		}
		os.Exit(1)
	}

	if err := manager.UpdateCmdFlagFromEnv(MkdepthchargeCmd, "MKDEPTHCHARGE_"); err != nil {
		log.Errorf("While reading environment: %s", err)
		os.Exit(1)
	}

	if err := MkdepthchargeCmd.Execute(); err != nil {
		log.Errorf("%s", err)
		os.Exit(2)
	}
}
