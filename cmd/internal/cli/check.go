// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"os"

	units "github.com/docker/go-units"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/depthcharge-tools/depthcharge-tools/docs"
	"github.com/depthcharge-tools/depthcharge-tools/internal/app/depthchargectl"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/board"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/config"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/vboot"
	"github.com/depthcharge-tools/depthcharge-tools/pkg/cmdline"
)

var (
	checkMaxSize string
	checkPubKey  string
)

// --max-size
var checkMaxSizeFlag = cmdline.Flag{
	ID:           "checkMaxSizeFlag",
	Value:        &checkMaxSize,
	DefaultValue: "",
	Name:         "max-size",
	Usage:        "check the image against this size limit instead of the board's (e.g. 32M)",
	EnvKeys:      []string{"MACHINE_MAX_SIZE"},
	// Kernel hooks export MACHINE_MAX_SIZE without our prefix.
	WithoutPrefix: true,
}

// --vboot-public-key
var checkPubKeyFlag = cmdline.Flag{
	ID:           "checkPubKeyFlag",
	Value:        &checkPubKey,
	DefaultValue: "",
	Name:         "vboot-public-key",
	Usage:        "verify the image signature against this key",
	EnvKeys:      []string{"VBOOT_PUBLIC_KEY"},
}

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(CheckCmd)

		cmdManager.RegisterFlagForCmd(&checkMaxSizeFlag, CheckCmd)
		cmdManager.RegisterFlagForCmd(&checkPubKeyFlag, CheckCmd)
	})
}

// CheckCmd depthchargectl check
var CheckCmd = &cobra.Command{
	DisableFlagsInUseLine: true,
	Args:                  cobra.ExactArgs(1),

	Run: func(cmd *cobra.Command, args []string) {
		err := depthchargectl.Check(cmd.Context(), args[0], depthchargectl.CheckOpts{
			MaxSize:    resolveMaxSize(),
			SignPubKey: resolvePubKey(),
		})
		if err != nil {
			log.Errorf("%s", err)
		}
		os.Exit(depthchargectl.ExitCode(err))
	},

	Use:     docs.CheckUse,
	Short:   docs.CheckShort,
	Long:    docs.CheckLong,
	Example: docs.CheckExample,
}

// resolveMaxSize picks the image size limit: an explicit --max-size (or
// MACHINE_MAX_SIZE) wins, then the board's database entry. Without
// either the size check is skipped.
func resolveMaxSize() int64 {
	if checkMaxSize != "" {
		size, err := units.RAMInBytes(checkMaxSize)
		if err != nil {
			log.Errorf("Invalid size limit %q: %s", checkMaxSize, err)
			os.Exit(2)
		}
		return size
	}

	if boardName == "" {
		log.Warnf("No board or size limit given, skipping size check.")
		return 0
	}

	b, err := board.Lookup(boardName, rawConfig())
	if err != nil {
		log.Errorf("%s", err)
		os.Exit(2)
	}
	return b.MaxSize
}

// resolvePubKey picks the verification key: --vboot-public-key, then
// the configuration, then the vboot devkeys when installed.
func resolvePubKey() string {
	if checkPubKey != "" {
		return checkPubKey
	}
	if conf := config.GetCurrentConfig(); conf != nil && conf.VbootPublicKey != "" {
		return conf.VbootPublicKey
	}
	if _, err := os.Stat(vboot.DevPubKey); err == nil {
		return vboot.DevPubKey
	}
	return ""
}
