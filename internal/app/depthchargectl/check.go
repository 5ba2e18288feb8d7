// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package depthchargectl

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/depthcharge-tools/depthcharge-tools/internal/pkg/vboot"
)

// CheckOpts controls what Check validates an image against.
type CheckOpts struct {
	// MaxSize is the machine's image size limit in bytes. Zero or
	// negative means the machine imposes no limit, and the size check
	// passes without even looking at the file.
	MaxSize int64

	// SignPubKey is the public key the image signature must verify
	// against. Empty means the verifier's default key.
	SignPubKey string

	// Verifier checks the image signature, the real vbutil_kernel
	// unless overridden.
	Verifier vboot.Verifier
}

// Check validates that the image at imagePath fits the machine's size
// limit and carries a valid vboot signature. The size check runs first
// so an oversized image is reported without paying for signature
// verification.
func Check(ctx context.Context, imagePath string, opts CheckOpts) error {
	log.Infof("Checking depthcharge image %q.", imagePath)

	if opts.MaxSize > 0 {
		fi, err := os.Stat(imagePath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}
		log.Debugf("Image size is %d, machine limit is %d.", fi.Size(), opts.MaxSize)
		if fi.Size() > opts.MaxSize {
			return fmt.Errorf("%w: image is %d bytes, limit is %d",
				ErrImageTooBig, fi.Size(), opts.MaxSize)
		}
	} else {
		log.Debugf("Machine imposes no image size limit, skipping size check.")
	}

	verifier := opts.Verifier
	if verifier == nil {
		verifier = &vboot.Tool{}
	}

	if err := verifier.Verify(ctx, opts.SignPubKey, imagePath); err != nil {
		if errors.Is(err, vboot.ErrUnavailable) {
			return fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}
		if errors.Is(err, vboot.ErrVerificationFailed) {
			return fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return err
	}

	log.Infof("Image %q is usable on this machine.", imagePath)
	return nil
}
