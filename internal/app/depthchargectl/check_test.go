// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package depthchargectl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/vboot"
)

// fakeVerifier records its call and returns a canned error.
type fakeVerifier struct {
	err     error
	called  bool
	keyPath string
	imgPath string
}

func (f *fakeVerifier) Verify(_ context.Context, keyPath, imagePath string) error {
	f.called = true
	f.keyPath = keyPath
	f.imgPath = imagePath
	return f.err
}

func writeImage(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckSizeLimit(t *testing.T) {
	tests := []struct {
		name      string
		imageSize int64
		maxSize   int64
		wantErr   error
	}{
		{
			name:      "UnderLimit",
			imageSize: 1000,
			maxSize:   32 * 1024 * 1024,
		},
		{
			name:      "ExactlyAtLimit",
			imageSize: 4096,
			maxSize:   4096,
		},
		{
			name:      "OneByteOver",
			imageSize: 4097,
			maxSize:   4096,
			wantErr:   ErrImageTooBig,
		},
		{
			name:      "NoLimit",
			imageSize: 1 << 26,
			maxSize:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := writeImage(t, tt.imageSize)
			verifier := &fakeVerifier{}

			err := Check(context.Background(), img, CheckOpts{
				MaxSize:  tt.maxSize,
				Verifier: verifier,
			})

			if tt.wantErr != nil {
				assert.Assert(t, errors.Is(err, tt.wantErr), "got %v", err)
				// An oversized image must be rejected without
				// running the verification tool.
				assert.Assert(t, !verifier.called)
				return
			}
			assert.NilError(t, err)
			assert.Assert(t, verifier.called)
		})
	}
}

// With no size limit the image file isn't even opened, so a missing
// file only surfaces through the verifier.
func TestCheckNoLimitSkipsStat(t *testing.T) {
	verifier := &fakeVerifier{}
	err := Check(context.Background(), "/nonexistent/image.img", CheckOpts{
		MaxSize:  0,
		Verifier: verifier,
	})
	assert.NilError(t, err)
	assert.Assert(t, verifier.called)
}

func TestCheckMissingImage(t *testing.T) {
	verifier := &fakeVerifier{}
	err := Check(context.Background(), "/nonexistent/image.img", CheckOpts{
		MaxSize:  4096,
		Verifier: verifier,
	})
	assert.Assert(t, errors.Is(err, ErrToolUnavailable), "got %v", err)
	assert.Assert(t, !verifier.called)
}

func TestCheckVerifierErrors(t *testing.T) {
	tests := []struct {
		name        string
		verifierErr error
		wantErr     error
	}{
		{
			name:        "BadSignature",
			verifierErr: vboot.ErrVerificationFailed,
			wantErr:     ErrBadSignature,
		},
		{
			name:        "ToolMissing",
			verifierErr: vboot.ErrUnavailable,
			wantErr:     ErrToolUnavailable,
		},
		{
			name: "Valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := writeImage(t, 1000)
			verifier := &fakeVerifier{err: tt.verifierErr}

			err := Check(context.Background(), img, CheckOpts{
				MaxSize:  4096,
				Verifier: verifier,
			})

			if tt.wantErr != nil {
				assert.Assert(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			assert.NilError(t, err)
		})
	}
}

func TestCheckPassesKeyThrough(t *testing.T) {
	img := writeImage(t, 100)
	verifier := &fakeVerifier{}

	err := Check(context.Background(), img, CheckOpts{
		SignPubKey: "/some/key.vbpubk",
		Verifier:   verifier,
	})
	assert.NilError(t, err)
	assert.Equal(t, verifier.keyPath, "/some/key.vbpubk")
	assert.Equal(t, verifier.imgPath, img)
}
