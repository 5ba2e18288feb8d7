// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/depthcharge-tools/depthcharge-tools/docs"
	"github.com/depthcharge-tools/depthcharge-tools/internal/app/depthchargectl"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/board"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/config"
	"github.com/depthcharge-tools/depthcharge-tools/pkg/cmdline"
)

var (
	buildCompress string
	buildOutput   string
	buildBootDir  string
)

// --compress
var buildCompressFlag = cmdline.Flag{
	ID:           "buildCompressFlag",
	Value:        &buildCompress,
	DefaultValue: "",
	Name:         "compress",
	Usage:        "compress the kernel with this instead of trying the board's types (none|lz4|lzma)",
	EnvKeys:      []string{"COMPRESS"},
}

// -o|--output
var buildOutputFlag = cmdline.Flag{
	ID:           "buildOutputFlag",
	Value:        &buildOutput,
	DefaultValue: "",
	Name:         "output",
	ShortHand:    "o",
	Usage:        "write the image here instead of the images directory",
	EnvKeys:      []string{"OUTPUT"},
}

// --boot-dir
var buildBootDirFlag = cmdline.Flag{
	ID:           "buildBootDirFlag",
	Value:        &buildBootDir,
	DefaultValue: "",
	Name:         "boot-dir",
	Usage:        "scan this directory for installed kernels instead of /boot",
	Hidden:       true,
	EnvKeys:      []string{"BOOT_DIR"},
}

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(BuildCmd)

		cmdManager.RegisterFlagForCmd(&buildCompressFlag, BuildCmd)
		cmdManager.RegisterFlagForCmd(&buildOutputFlag, BuildCmd)
		cmdManager.RegisterFlagForCmd(&buildBootDirFlag, BuildCmd)
	})
}

// BuildCmd depthchargectl build
var BuildCmd = &cobra.Command{
	DisableFlagsInUseLine: true,
	Args:                  cobra.MaximumNArgs(1),

	Run: func(cmd *cobra.Command, args []string) {
		release := ""
		if len(args) > 0 {
			release = args[0]
		}

		image, err := doBuildCmd(cmd, release)
		if err != nil {
			log.Errorf("%s", err)
			os.Exit(depthchargectl.ExitCode(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), image)
	},

	Use:     docs.BuildUse,
	Short:   docs.BuildShort,
	Long:    docs.BuildLong,
	Example: docs.BuildExample,
}

func doBuildCmd(cmd *cobra.Command, release string) (string, error) {
	if boardName == "" {
		return "", fmt.Errorf("%w: no board configured, use --board", depthchargectl.ErrUsage)
	}

	b, err := board.Lookup(boardName, rawConfig())
	if err != nil {
		return "", fmt.Errorf("%w: %v", depthchargectl.ErrUsage, err)
	}

	return depthchargectl.Build(cmd.Context(), depthchargectl.BuildOpts{
		Board:         b,
		Config:        config.GetCurrentConfig(),
		KernelRelease: release,
		BootDir:       buildBootDir,
		Compress:      buildCompress,
		Output:        buildOutput,
	})
}
