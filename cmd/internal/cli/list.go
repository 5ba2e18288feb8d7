// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/depthcharge-tools/depthcharge-tools/docs"
	"github.com/depthcharge-tools/depthcharge-tools/internal/app/depthchargectl"
	"github.com/depthcharge-tools/depthcharge-tools/pkg/cmdline"
)

var listNoHeadings bool

// -n|--noheadings
var listNoHeadingsFlag = cmdline.Flag{
	ID:           "listNoHeadingsFlag",
	Value:        &listNoHeadings,
	DefaultValue: false,
	Name:         "noheadings",
	ShortHand:    "n",
	Usage:        "don't print column headings",
}

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(ListCmd)

		cmdManager.RegisterFlagForCmd(&listNoHeadingsFlag, ListCmd)
	})
}

// ListCmd depthchargectl list
var ListCmd = &cobra.Command{
	DisableFlagsInUseLine: true,
	Args:                  cobra.ArbitraryArgs,

	Run: func(cmd *cobra.Command, args []string) {
		parts, err := depthchargectl.List(cmd.Context(), args...)
		if err != nil {
			log.Errorf("%s", err)
			os.Exit(depthchargectl.ExitCode(err))
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 1, 8, 2, ' ', 0)
		if !listNoHeadings {
			fmt.Fprintln(w, "S\tP\tT\tSIZE\tPATH")
		}
		for _, p := range parts {
			successful := 0
			if p.Attributes.Successful {
				successful = 1
			}
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\n",
				successful, p.Attributes.Priority, p.Attributes.Tries, p.Size, p.Partition)
		}
		w.Flush()
	},

	Use:     docs.ListUse,
	Short:   docs.ListShort,
	Long:    docs.ListLong,
	Example: docs.ListExample,
}
