// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmdline

import (
	"testing"

	"github.com/spf13/cobra"
	"gotest.tools/v3/assert"
)

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use: "test",
		Run: func(_ *cobra.Command, _ []string) {},
	}
}

func TestRegisterFlagForCmd(t *testing.T) {
	var (
		strVal  string
		boolVal bool
		intVal  int64
	)

	cmd := testCmd()
	manager := NewCommandManager(cmd)

	manager.RegisterFlagForCmd(&Flag{
		ID:           "strFlag",
		Value:        &strVal,
		DefaultValue: "default",
		Name:         "str",
		Usage:        "a string flag",
	}, cmd)
	manager.RegisterFlagForCmd(&Flag{
		ID:           "boolFlag",
		Value:        &boolVal,
		DefaultValue: false,
		Name:         "bool",
		ShortHand:    "b",
		Usage:        "a bool flag",
	}, cmd)
	manager.RegisterFlagForCmd(&Flag{
		ID:           "intFlag",
		Value:        &intVal,
		DefaultValue: int64(42),
		Name:         "int",
		Usage:        "an int64 flag",
	}, cmd)

	assert.Equal(t, len(manager.GetError()), 0)

	cmd.SetArgs([]string{"--str", "value", "-b"})
	assert.NilError(t, cmd.Execute())

	assert.Equal(t, strVal, "value")
	assert.Equal(t, boolVal, true)
	assert.Equal(t, intVal, int64(42))
}

func TestUpdateCmdFlagFromEnv(t *testing.T) {
	var (
		plain    string
		exported string
	)

	cmd := testCmd()
	manager := NewCommandManager(cmd)

	manager.RegisterFlagForCmd(&Flag{
		ID:           "plainFlag",
		Value:        &plain,
		DefaultValue: "",
		Name:         "plain",
		EnvKeys:      []string{"PLAIN"},
	}, cmd)
	manager.RegisterFlagForCmd(&Flag{
		ID:           "exportedFlag",
		Value:        &exported,
		DefaultValue: "",
		Name:         "exported",
		EnvKeys:      []string{"EXPORTED"},
		// Also read without the prefix.
		WithoutPrefix: true,
	}, cmd)
	assert.Equal(t, len(manager.GetError()), 0)

	t.Run("Prefixed", func(t *testing.T) {
		plain = ""
		t.Setenv("TESTPREFIX_PLAIN", "from-env")

		assert.NilError(t, manager.UpdateCmdFlagFromEnv(cmd, "TESTPREFIX_"))
		assert.Equal(t, plain, "from-env")
	})

	t.Run("UnprefixedIgnoredByDefault", func(t *testing.T) {
		plain = ""
		cmd.Flags().Lookup("plain").Changed = false
		t.Setenv("PLAIN", "from-env")

		assert.NilError(t, manager.UpdateCmdFlagFromEnv(cmd, "TESTPREFIX_"))
		assert.Equal(t, plain, "")
	})

	t.Run("UnprefixedWithWithoutPrefix", func(t *testing.T) {
		exported = ""
		t.Setenv("EXPORTED", "bare-env")

		assert.NilError(t, manager.UpdateCmdFlagFromEnv(cmd, "TESTPREFIX_"))
		assert.Equal(t, exported, "bare-env")
	})

	t.Run("PrefixedWinsOverUnprefixed", func(t *testing.T) {
		exported = ""
		cmd.Flags().Lookup("exported").Changed = false
		t.Setenv("EXPORTED", "bare-env")
		t.Setenv("TESTPREFIX_EXPORTED", "prefixed-env")

		assert.NilError(t, manager.UpdateCmdFlagFromEnv(cmd, "TESTPREFIX_"))
		assert.Equal(t, exported, "prefixed-env")
	})

	t.Run("ExplicitFlagWins", func(t *testing.T) {
		cmd.Flags().Lookup("plain").Changed = false
		cmd.SetArgs([]string{"--plain", "from-cli"})
		assert.NilError(t, cmd.Execute())

		t.Setenv("TESTPREFIX_PLAIN", "from-env")
		assert.NilError(t, manager.UpdateCmdFlagFromEnv(cmd, "TESTPREFIX_"))
		assert.Equal(t, plain, "from-cli")
	})
}
