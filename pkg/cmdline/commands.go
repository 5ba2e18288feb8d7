// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmdline

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CommandManager holds root command or first parent
// can stores group of command. A group of command is
// basically for commands not associated to a parent command
type CommandManager struct {
	rootCmd *cobra.Command
	fm      *flagManager
	errPool []error
}

// NewCommandManager instantiates a CommandManager.
func NewCommandManager(rootCmd *cobra.Command) *CommandManager {
	if rootCmd == nil {
		panic("nil root command passed to NewCommandManager")
	}
	return &CommandManager{
		rootCmd: rootCmd,
		fm:      newFlagManager(),
	}
}

func (m *CommandManager) pushError(err error) {
	m.errPool = append(m.errPool, err)
}

// GetError returns the list of errors recorded while
// registering commands and flags.
func (m *CommandManager) GetError() []error {
	return m.errPool
}

// RegisterCmd registers a child command of the root command.
func (m *CommandManager) RegisterCmd(cmd *cobra.Command) {
	if cmd == nil {
		m.pushError(fmt.Errorf("a nil command was given"))
		return
	}
	m.rootCmd.AddCommand(cmd)
}

// RegisterSubCmd registers a child command for the parent command given.
func (m *CommandManager) RegisterSubCmd(parentCmd, childCmd *cobra.Command) {
	if parentCmd == nil {
		m.pushError(fmt.Errorf("a nil parent command was given"))
		return
	}
	if childCmd == nil {
		m.pushError(fmt.Errorf("a nil child command was given"))
		return
	}
	parentCmd.AddCommand(childCmd)
}

// GetRootCmd returns the root command.
func (m *CommandManager) GetRootCmd() *cobra.Command {
	return m.rootCmd
}

// RegisterFlagForCmd registers a flag for one or many commands.
func (m *CommandManager) RegisterFlagForCmd(flag *Flag, cmds ...*cobra.Command) {
	if err := m.fm.registerFlagForCmd(flag, cmds...); err != nil {
		m.pushError(err)
	}
}

// UpdateCmdFlagFromEnv updates flag values for cmd and its child
// commands based on environment variables prefixed with envPrefix.
func (m *CommandManager) UpdateCmdFlagFromEnv(cmd *cobra.Command, envPrefix string) error {
	if err := m.fm.updateCmdFlagFromEnv(cmd, envPrefix); err != nil {
		return err
	}
	for _, child := range cmd.Commands() {
		if err := m.UpdateCmdFlagFromEnv(child, envPrefix); err != nil {
			return err
		}
	}
	return nil
}
