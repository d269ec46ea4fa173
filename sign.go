// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2022 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package sbprovision

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"golang.org/x/xerrors"

	"github.com/snapcore/sbprovision/internal/efitools"
	"github.com/snapcore/sbprovision/internal/paths"
)

// Signer signs boot artifacts with the key store's db key.
type Signer struct {
	store  *KeyStore
	backup *BackupSet
}

// NewSigner returns a signer backed by the supplied store. If backup is
// not nil, every artifact is snapshotted into it immediately before
// being replaced.
func NewSigner(store *KeyStore, backup *BackupSet) *Signer {
	return &Signer{store: store, backup: backup}
}

// Sign signs the EFI binary or kernel image at the supplied path with
// the db key, replacing it atomically.
//
// The current signature state is always probed, never cached: an
// artifact that already carries a valid signature from the db key is
// left completely untouched, so repeated invocations do not churn
// backups or re-sign with a non-deterministic signing tool.
//
// The signed output is produced into a temporary file in the artifact's
// own directory and renamed over the original, so a reader of the path
// observes either the fully-old or the fully-new content. On any
// failure the original artifact is untouched and the only possible
// side effect is a leftover temporary file.
func (s *Signer) Sign(path string) error {
	if !s.store.RoleExists(RoleDb) {
		return ErrStoreNotProvisioned
	}

	signed, err := efitools.VerifyImage(path, s.store.CertPath(RoleDb))
	if err != nil {
		return err
	}
	if signed {
		log.Infof("%s is already signed", path)
		return nil
	}

	if s.backup != nil {
		if _, err := s.backup.Add(path); err != nil {
			return err
		}
	}

	fi, err := os.Stat(path)
	if err != nil {
		return xerrors.Errorf("cannot stat artifact: %w", err)
	}

	// The temporary file must live on the same filesystem as the
	// target so that the final rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return xerrors.Errorf("cannot create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if err := efitools.SignImage(s.store.KeyPath(RoleDb), s.store.CertPath(RoleDb), path, tmpPath); err != nil {
		return err
	}

	if err := os.Chmod(tmpPath, fi.Mode().Perm()); err != nil {
		return xerrors.Errorf("cannot set permissions on signed artifact: %w", err)
	}
	if err := syncFile(tmpPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return xerrors.Errorf("cannot replace artifact: %w", err)
	}
	succeeded = true

	// Make the rename durable. Failure here doesn't affect the
	// completed replace.
	if err := syncFile(filepath.Dir(path)); err != nil {
		log.Warningf("cannot sync directory after replacing %s: %v", path, err)
	}

	log.Infof("signed %s", path)
	return nil
}

// SignAll discovers every boot artifact and signs each one that is not
// already signed, in a stable order. The first failure aborts the run:
// a signing failure usually indicates a systemic problem such as an
// expired key, and continuing would mask it behind partial success.
func (s *Signer) SignAll() error {
	if err := efitools.CheckToolsPresent(); err != nil {
		return err
	}
	if !s.store.ChainComplete() {
		return ErrStoreNotProvisioned
	}

	release, err := s.store.Lock()
	if err != nil {
		return err
	}
	defer release()

	artifacts, err := DiscoverArtifacts(paths.BootDir, paths.ESPDir)
	if err != nil {
		return err
	}

	for _, artifact := range artifacts {
		if err := s.Sign(artifact); err != nil {
			return xerrors.Errorf("cannot sign %s: %w", artifact, err)
		}
	}

	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("cannot open %s for sync: %w", path, err)
	}
	defer f.Close()

	if err := f.Sync(); err != nil {
		return xerrors.Errorf("cannot sync %s: %w", path, err)
	}
	return nil
}
