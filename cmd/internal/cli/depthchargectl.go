// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package cli implements the command trees of the depthcharge-tools
// binaries.
package cli

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/ini.v1"

	"github.com/depthcharge-tools/depthcharge-tools/docs"
	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/config"
	"github.com/depthcharge-tools/depthcharge-tools/pkg/cmdline"
)

// envPrefix is prepended to flag environment keys, so e.g. the --board
// flag reads DEPTHCHARGECTL_BOARD.
const envPrefix = "DEPTHCHARGECTL_"

var (
	verbose     bool
	configFiles []string
	boardName   string
)

// cmdInits holds all the registration functions the subcommand files
// queue up from their init().
var cmdInits []func(*cmdline.CommandManager)

func addCmdInit(cmdInit func(*cmdline.CommandManager)) {
	cmdInits = append(cmdInits, cmdInit)
}

var cmdManager = cmdline.NewCommandManager(rootCmd)

// -v|--verbose
var verboseFlag = cmdline.Flag{
	ID:           "verboseFlag",
	Value:        &verbose,
	DefaultValue: false,
	Name:         "verbose",
	ShortHand:    "v",
	Usage:        "print more detailed output",
	EnvKeys:      []string{"VERBOSE"},
}

// --config
var configFlag = cmdline.Flag{
	ID:           "configFlag",
	Value:        &configFiles,
	DefaultValue: []string{},
	Name:         "config",
	Usage:        "read configuration from these files instead of the system ones",
	EnvKeys:      []string{"CONFIG"},
}

// --board
var boardFlag = cmdline.Flag{
	ID:           "boardFlag",
	Value:        &boardName,
	DefaultValue: "",
	Name:         "board",
	Usage:        "assume the machine is this board codename",
	EnvKeys:      []string{"BOARD"},
}

var rootCmd = &cobra.Command{
	TraverseChildren:      true,
	DisableFlagsInUseLine: true,
	SilenceErrors:         true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}

		conf, err := config.Parse(configFiles...)
		if err != nil {
			return err
		}
		config.SetCurrentConfig(conf)

		if boardName == "" {
			boardName = conf.Board
		}

		return nil
	},

	Use:     docs.DepthchargectlUse,
	Short:   docs.DepthchargectlShort,
	Long:    docs.DepthchargectlLong,
	Example: docs.DepthchargectlExample,
}

func init() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterFlagForCmd(&verboseFlag, rootCmd)
		cmdManager.RegisterFlagForCmd(&configFlag, rootCmd)
		cmdManager.RegisterFlagForCmd(&boardFlag, rootCmd)
	})
}

// rawConfig returns the parsed configuration tree, for the board
// database override sections.
func rawConfig() *ini.File {
	if conf := config.GetCurrentConfig(); conf != nil {
		return conf.Raw
	}
	return nil
}

// ExecuteDepthchargectl runs the depthchargectl command tree and exits
// the process with the command's status code.
func ExecuteDepthchargectl() {
	// Options may come after positional arguments, kernel hooks call
	// us that way.
	rootCmd.Flags().SetInterspersed(true)

	for _, cmdInit := range cmdInits {
		cmdInit(cmdManager)
	}
	if errs := cmdManager.GetError(); len(errs) > 0 {
		for _, err := range errs {
			log.Errorf("While registering commands: %s", err)
		}
		os.Exit(1)
	}

	if err := cmdManager.UpdateCmdFlagFromEnv(rootCmd, envPrefix); err != nil {
		log.Errorf("While reading environment: %s", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed usage, anything it reports is an
		// argument problem.
		log.Errorf("%s", err)
		os.Exit(2)
	}
}
