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

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// Lock acquires an exclusive advisory lock over the key store,
// serializing provisioning, signing and cleanup across processes.
// Package manager triggered re-signing can fire from overlapping
// transactions, so every mutating entry point takes this lock for its
// whole duration. The returned callback releases the lock and must be
// called on all exit paths.
func (s *KeyStore) Lock() (release func(), err error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(s.lockPath(), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, xerrors.Errorf("cannot open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, xerrors.Errorf("cannot acquire lock: %w", err)
	}

	return func() {
		// Closing the file descriptor drops the lock.
		f.Close()
	}, nil
}
