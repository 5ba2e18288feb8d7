// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"github.com/depthcharge-tools/depthcharge-tools/cmd/internal/cli"
)

func main() {
	cli.ExecuteMkdepthcharge()
}
