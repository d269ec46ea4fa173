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
	"github.com/snapcore/snapd/osutil"

	"golang.org/x/xerrors"
)

// Cleanup removes the key store directory, the installed package
// manager hook and its helper script, backing up every file it removes
// into the supplied backup set first.
//
// The store directory is only removed when it contains the platform key
// private key. That file acts as a fingerprint: an operator who points
// the tool at an unrelated directory gets a refusal instead of data
// loss. When the fingerprint is missing, nothing at all is deleted and
// ErrUnrecognizedStore is returned.
//
// Cleanup never touches firmware variables. Removing enrolled trust
// from firmware is the operator's separate, manual step.
func (s *KeyStore) Cleanup(backup *BackupSet) error {
	if !osutil.FileExists(s.KeyPath(RolePK)) {
		log.Warningf("refusing to remove %s: no platform key found, the directory was not created by this tool", s.dir)
		return ErrUnrecognizedStore
	}

	release, err := s.Lock()
	if err != nil {
		return err
	}
	defer release()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return xerrors.Errorf("cannot read key store directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if path == s.lockPath() {
			continue
		}
		if _, err := backup.Add(path); err != nil {
			return err
		}
	}

	for _, path := range []string{HookPath(), HookScriptPath()} {
		if !osutil.FileExists(path) {
			continue
		}
		if _, err := backup.Add(path); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return xerrors.Errorf("cannot remove %s: %w", path, err)
		}
		log.Infof("removed %s", path)
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return xerrors.Errorf("cannot remove key store directory: %w", err)
	}
	log.Infof("removed key store %s (backups in %s)", s.dir, backup.RunDir())

	return nil
}
