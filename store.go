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

// Package sbprovision provisions a UEFI secure boot trust hierarchy
// (PK, KEK and db) and keeps boot artifacts signed under it.
//
// Key material and the signature list artifacts derived from it live in
// a disk resident key store. The store owns the exists-check-before-
// create contract: a role that is already provisioned is never
// regenerated, because its public half may already be enrolled in
// firmware and silently replacing it would desynchronize trust.
package sbprovision

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	efi "github.com/canonical/go-efilib"
	"github.com/google/uuid"
	"github.com/snapcore/snapd/osutil"

	"golang.org/x/xerrors"

	"github.com/snapcore/sbprovision/internal/paths"
)

var (
	// ErrStoreNotProvisioned is returned from operations that require a
	// complete trust chain when one or more roles are missing from the
	// key store.
	ErrStoreNotProvisioned = errors.New("the key store does not contain a complete trust chain")

	// ErrUnrecognizedStore is returned from destructive operations when
	// the target directory does not carry the platform key fingerprint,
	// to avoid destroying a directory that this tool does not own.
	ErrUnrecognizedStore = errors.New("the directory does not look like a key store created by this tool")
)

// KeyStore provides access to the secure boot keys and signature list
// artifacts for one installation. The zero value is not usable - use
// NewKeyStore.
type KeyStore struct {
	dir string
}

// NewKeyStore returns a store rooted at the supplied directory. The
// directory is not created until provisioning writes to it.
func NewKeyStore(dir string) *KeyStore {
	return &KeyStore{dir: dir}
}

// DefaultKeyStore returns a store rooted at the system default location.
func DefaultKeyStore() *KeyStore {
	return NewKeyStore(paths.KeyStoreDir)
}

// Dir returns the directory that this store is rooted at.
func (s *KeyStore) Dir() string {
	return s.dir
}

// KeyPath returns the path of the private key for the supplied role.
func (s *KeyStore) KeyPath(role Role) string {
	return filepath.Join(s.dir, role.String()+".key")
}

// CertPath returns the path of the certificate for the supplied role.
func (s *KeyStore) CertPath(role Role) string {
	return filepath.Join(s.dir, role.String()+".crt")
}

// ESLPath returns the path of the signature list for the supplied role.
func (s *KeyStore) ESLPath(role Role) string {
	return filepath.Join(s.dir, role.String()+".esl")
}

// AuthPath returns the path of the authenticated update payload for the
// supplied role.
func (s *KeyStore) AuthPath(role Role) string {
	return filepath.Join(s.dir, role.String()+".auth")
}

// CombinedESLPath returns the path of the signature list that combines
// the local list for the supplied role with a vendor list.
func (s *KeyStore) CombinedESLPath(role Role) string {
	return filepath.Join(s.dir, role.String()+"_combined.esl")
}

// CombinedAuthPath returns the path of the authenticated update payload
// for the combined signature list of the supplied role.
func (s *KeyStore) CombinedAuthPath(role Role) string {
	return filepath.Join(s.dir, role.String()+"_combined.auth")
}

func (s *KeyStore) ownerGUIDPath() string {
	return filepath.Join(s.dir, "owner.guid")
}

func (s *KeyStore) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

// RoleExists indicates whether the supplied role is already provisioned.
// A role counts as provisioned when both its private key and its primary
// authenticated payload are present - the two are always created
// together.
func (s *KeyStore) RoleExists(role Role) bool {
	return osutil.FileExists(s.KeyPath(role)) && osutil.FileExists(s.AuthPath(role))
}

// ChainComplete indicates whether every role of the hierarchy is
// provisioned.
func (s *KeyStore) ChainComplete() bool {
	for _, role := range chainRoles {
		if !s.RoleExists(role) {
			return false
		}
	}
	return true
}

// ensureDir creates the store directory with owner-only permissions.
func (s *KeyStore) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return xerrors.Errorf("cannot create key store directory: %w", err)
	}
	// MkdirAll doesn't adjust the mode of a pre-existing directory.
	if err := os.Chmod(s.dir, 0700); err != nil {
		return xerrors.Errorf("cannot restrict key store directory permissions: %w", err)
	}
	return nil
}

// OwnerGUID returns the signature owner GUID for this store, generating
// and persisting one on first use. All signature list entries created by
// this store carry the same owner.
func (s *KeyStore) OwnerGUID() (efi.GUID, error) {
	data, err := os.ReadFile(s.ownerGUIDPath())
	switch {
	case os.IsNotExist(err):
		u, err := uuid.NewRandom()
		if err != nil {
			return efi.GUID{}, xerrors.Errorf("cannot generate owner GUID: %w", err)
		}
		if err := s.ensureDir(); err != nil {
			return efi.GUID{}, err
		}
		if err := osutil.AtomicWriteFile(s.ownerGUIDPath(), []byte(u.String()+"\n"), 0600, 0); err != nil {
			return efi.GUID{}, xerrors.Errorf("cannot save owner GUID: %w", err)
		}
		return guidFromUUID(u), nil
	case err != nil:
		return efi.GUID{}, xerrors.Errorf("cannot read owner GUID: %w", err)
	}

	u, err := uuid.ParseBytes(bytes.TrimSpace(data))
	if err != nil {
		return efi.GUID{}, xerrors.Errorf("cannot parse owner GUID: %w", err)
	}
	return guidFromUUID(u), nil
}

// guidFromUUID converts a RFC-4122 UUID to an EFI GUID with the same
// textual representation.
func guidFromUUID(u uuid.UUID) efi.GUID {
	var e [6]uint8
	copy(e[:], u[10:16])
	return efi.MakeGUID(
		binary.BigEndian.Uint32(u[0:4]),
		binary.BigEndian.Uint16(u[4:6]),
		binary.BigEndian.Uint16(u[6:8]),
		binary.BigEndian.Uint16(u[8:10]),
		e)
}

// ReadSignatureDatabase decodes the signature list file at the supplied
// path.
func ReadSignatureDatabase(path string) (efi.SignatureDatabase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("cannot open signature list: %w", err)
	}
	defer f.Close()

	db, err := efi.ReadSignatureDatabase(f)
	if err != nil {
		return nil, xerrors.Errorf("cannot decode signature list: %w", err)
	}
	return db, nil
}
