// Copyright (c) 2021-2026, Depthcharge-Tools Authors. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package vboot

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// DevKeysDir is where the vboot reference implementation installs its
// well-known development keys.
const DevKeysDir = "/usr/share/vboot/devkeys"

// DevPubKey is the development public key images are checked against
// when nothing else is configured. It carries no trust by itself, it is
// simply the key most distro kernels are signed with.
var DevPubKey = filepath.Join(DevKeysDir, "kernel_subkey.vbpubk")

// KeySet is the trio of files vbutil_kernel needs to sign and verify a
// kernel.
type KeySet struct {
	Keyblock   string
	PrivateKey string
	PublicKey  string
}

const (
	keyblockFile = "kernel.keyblock"
	privkeyFile  = "kernel_data_key.vbprivk"
	pubkeyFile   = "kernel_subkey.vbpubk"
)

// FindKeys searches the given directories, then the devkeys directory,
// and returns the first complete key set found.
func FindKeys(dirs ...string) (KeySet, error) {
	for _, dir := range append(dirs, DevKeysDir) {
		if dir == "" {
			continue
		}

		keys := KeySet{
			Keyblock:   filepath.Join(dir, keyblockFile),
			PrivateKey: filepath.Join(dir, privkeyFile),
			PublicKey:  filepath.Join(dir, pubkeyFile),
		}

		if keys.complete() {
			log.Debugf("Using vboot keys from %q", dir)
			return keys, nil
		}
	}

	return KeySet{}, fmt.Errorf("couldn't find a usable vboot key set in %v", dirs)
}

func (k KeySet) complete() bool {
	for _, f := range []string{k.Keyblock, k.PrivateKey, k.PublicKey} {
		if fi, err := os.Stat(f); err != nil || fi.IsDir() {
			return false
		}
	}
	return true
}
