// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package depthchargectl

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "Success", err: nil, want: 0},
		{name: "Generic", err: errors.New("something broke"), want: 1},
		{name: "Usage", err: ErrUsage, want: 2},
		{name: "InitramfsTooBig", err: ErrInitramfsTooBig, want: 3},
		{name: "ImageTooBig", err: ErrImageTooBig, want: 4},
		{name: "BadSignature", err: ErrBadSignature, want: 5},
		{name: "ToolUnavailable", err: ErrToolUnavailable, want: 6},
		{name: "WrappedImageTooBig", err: fmt.Errorf("%w: 123 > 100", ErrImageTooBig), want: 4},
		{name: "WrappedBadSignature", err: fmt.Errorf("%w: details", ErrBadSignature), want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ExitCode(tt.err), tt.want)
		})
	}
}
