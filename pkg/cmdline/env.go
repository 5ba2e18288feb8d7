// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmdline

import (
	"fmt"

	"github.com/spf13/pflag"
)

// EnvHandler defines an environment handler type to set flag's values
// from environment variables
type EnvHandler func(*pflag.Flag, string) error

// EnvSetValue sets the corresponding environment value for the
// provided flag. Flags already set on the command line keep their
// value, the environment never overrides an explicit argument.
func EnvSetValue(flag *pflag.Flag, envValue string) error {
	if flag.Changed {
		return nil
	}
	if err := flag.Value.Set(envValue); err != nil {
		return fmt.Errorf("unable to set flag %s to value %s: %w", flag.Name, envValue, err)
	}
	flag.Changed = true
	return nil
}
