// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package depthchargectl implements the depthchargectl command logic.
package depthchargectl

import (
	"errors"
)

// Failure categories of depthchargectl operations. Scripts dispatch on
// the exit codes these map to, so each category stays distinct.
var (
	// ErrUsage means the arguments to an operation were invalid.
	ErrUsage = errors.New("invalid arguments")

	// ErrInitramfsTooBig means the initramfs alone exceeds what the
	// machine can boot, so no compression choice can help.
	ErrInitramfsTooBig = errors.New("initramfs is too big for this machine")

	// ErrImageTooBig means the packed image exceeds the machine's
	// image size limit.
	ErrImageTooBig = errors.New("depthcharge image is too big for this machine")

	// ErrBadSignature means the image failed vboot signature
	// verification.
	ErrBadSignature = errors.New("depthcharge image signature is invalid")

	// ErrToolUnavailable means a required external tool or file could
	// not be used, so the check could not be carried out at all.
	ErrToolUnavailable = errors.New("depthcharge image could not be checked")
)

// ExitCode maps an operation's error to the depthchargectl process exit
// status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		return 2
	case errors.Is(err, ErrInitramfsTooBig):
		return 3
	case errors.Is(err, ErrImageTooBig):
		return 4
	case errors.Is(err, ErrBadSignature):
		return 5
	case errors.Is(err, ErrToolUnavailable):
		return 6
	default:
		return 1
	}
}
