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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapcore/snapd/osutil"

	"golang.org/x/xerrors"

	"github.com/snapcore/sbprovision/internal/paths"
)

// BackupSet collects pre-mutation snapshots for one run. Snapshots land
// in a per-run subdirectory of the backup root, named after the time the
// first snapshot of the run is taken. Backups are never pruned by this
// tool.
type BackupSet struct {
	root   string
	runDir string
}

// NewBackupSet returns a backup set rooted at the supplied directory.
func NewBackupSet(root string) *BackupSet {
	return &BackupSet{root: root}
}

// DefaultBackupSet returns a backup set rooted at the system default
// location.
func DefaultBackupSet() *BackupSet {
	return NewBackupSet(paths.BackupDir)
}

// Add copies the file at the supplied path into this run's backup
// directory verbatim, preserving attributes, and returns the path of the
// copy. It must be called before the file is overwritten or removed.
func (b *BackupSet) Add(path string) (string, error) {
	if b.runDir == "" {
		runDir := filepath.Join(b.root, fmt.Sprintf("%s.%d", time.Now().Format("20060102-150405"), os.Getpid()))
		if err := os.MkdirAll(runDir, 0700); err != nil {
			return "", xerrors.Errorf("cannot create backup directory: %w", err)
		}
		b.runDir = runDir
	}

	dst := filepath.Join(b.runDir, backupName(path))
	if err := osutil.CopyFile(path, dst, osutil.CopyFlagPreserveAll|osutil.CopyFlagSync); err != nil {
		return "", xerrors.Errorf("cannot back up %s: %w", path, err)
	}
	return dst, nil
}

// RunDir returns the directory snapshots of this run were placed in, or
// an empty string if nothing was backed up yet.
func (b *BackupSet) RunDir() string {
	return b.runDir
}

// backupName flattens an absolute path into a single filename so that
// snapshots from different directories cannot collide.
func backupName(path string) string {
	return strings.ReplaceAll(strings.TrimPrefix(filepath.Clean(path), "/"), "/", "_")
}
