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

	efi "github.com/canonical/go-efilib"
	log "github.com/sirupsen/logrus"
	"github.com/snapcore/snapd/osutil"

	"golang.org/x/xerrors"

	"github.com/snapcore/sbprovision/internal/efitools"
)

// EnsureChain provisions any missing roles of the trust hierarchy, in
// the order PK, KEK, db. A role whose private key and authenticated
// payload already exist is skipped - its public half may already be
// enrolled in firmware, and regenerating it would desynchronize trust.
//
// Each role is created as a unit: the private key, certificate,
// signature list and authenticated payload are committed together, or
// not at all. Any failure aborts the whole run.
func (s *KeyStore) EnsureChain() error {
	if err := efitools.CheckToolsPresent(); err != nil {
		return err
	}

	release, err := s.Lock()
	if err != nil {
		return err
	}
	defer release()

	owner, err := s.OwnerGUID()
	if err != nil {
		return err
	}

	for _, role := range chainRoles {
		if s.RoleExists(role) {
			log.Infof("%s key already exists, not regenerating", role)
			continue
		}
		log.Infof("generating %s key and certificate", role)
		if err := s.provisionRole(role, owner); err != nil {
			return xerrors.Errorf("cannot provision %s: %w", role, err)
		}
	}

	return nil
}

// provisionRole generates and commits the artifact group for one role.
// The files land with owner-only permissions at creation. On failure
// every file written for this role is removed again, so a torn run never
// leaves a half-constructed role behind.
func (s *KeyStore) provisionRole(role Role, owner efi.GUID) error {
	parent := role.Parent()
	if role != RolePK && (!osutil.FileExists(s.KeyPath(parent)) || !osutil.FileExists(s.CertPath(parent))) {
		return xerrors.Errorf("parent role %s is not provisioned", parent)
	}

	creds, err := generateCredentials(role)
	if err != nil {
		return err
	}

	esl, err := certificateToESL(creds.certDER, owner)
	if err != nil {
		return err
	}

	succeeded := false
	defer func() {
		if succeeded {
			return
		}
		for _, path := range []string{s.KeyPath(role), s.CertPath(role), s.ESLPath(role), s.AuthPath(role)} {
			os.Remove(path)
		}
	}()

	if err := osutil.AtomicWriteFile(s.KeyPath(role), creds.keyPEM, 0600, 0); err != nil {
		return xerrors.Errorf("cannot write private key: %w", err)
	}
	if err := osutil.AtomicWriteFile(s.CertPath(role), creds.certPEM, 0600, 0); err != nil {
		return xerrors.Errorf("cannot write certificate: %w", err)
	}
	if err := osutil.AtomicWriteFile(s.ESLPath(role), esl, 0600, 0); err != nil {
		return xerrors.Errorf("cannot write signature list: %w", err)
	}

	// The platform key signs its own list, so its key material must be
	// on disk before this point.
	if err := efitools.SignSignatureList(role.AuthorityName(), s.KeyPath(parent), s.CertPath(parent), s.ESLPath(role), s.AuthPath(role)); err != nil {
		return xerrors.Errorf("cannot sign signature list: %w", err)
	}
	if err := os.Chmod(s.AuthPath(role), 0600); err != nil {
		return xerrors.Errorf("cannot restrict authenticated payload permissions: %w", err)
	}

	succeeded = true
	return nil
}
