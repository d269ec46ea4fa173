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

	log "github.com/sirupsen/logrus"
	"github.com/snapcore/snapd/osutil"

	"golang.org/x/xerrors"

	"github.com/snapcore/sbprovision/internal/efitools"
)

// MergeVendor combines the local signature list for the supplied role
// with the vendor certificate at the supplied path, producing a combined
// list and authenticated payload alongside (never in place of) the local
// only pair. The combined list is the local list with the vendor entry
// appended, re-signed with the role's parent key.
//
// Keeping both pairs lets the operator choose at enrollment time:
// append the vendor-free payload on firmware that supports append
// semantics, or replace with the combined payload otherwise. Dropping
// vendor trust later never requires regenerating local keys.
//
// Only the KEK and db tiers accept vendor certificates - the platform
// key always remains purely local.
func (s *KeyStore) MergeVendor(role Role, vendorCertPath string) error {
	if role == RolePK {
		return xerrors.Errorf("vendor certificates cannot be merged into the platform key")
	}
	if !s.RoleExists(role) {
		return ErrStoreNotProvisioned
	}

	release, err := s.Lock()
	if err != nil {
		return err
	}
	defer release()

	data, err := os.ReadFile(vendorCertPath)
	if err != nil {
		return xerrors.Errorf("cannot read vendor certificate: %w", err)
	}
	der, err := decodeCertificate(data)
	if err != nil {
		return xerrors.Errorf("cannot decode vendor certificate %s: %w", vendorCertPath, err)
	}

	local, err := os.ReadFile(s.ESLPath(role))
	if err != nil {
		return xerrors.Errorf("cannot read local signature list: %w", err)
	}

	if found, err := eslContainsCertificate(local, der); err != nil {
		return err
	} else if found {
		log.Warningf("vendor certificate %s is already present in the local %s list, the combined list will contain duplicate entries", vendorCertPath, role)
	}

	owner, err := s.OwnerGUID()
	if err != nil {
		return err
	}
	vendorESL, err := certificateToESL(der, owner)
	if err != nil {
		return err
	}

	combined := concatenateESLs(local, vendorESL)

	succeeded := false
	defer func() {
		if succeeded {
			return
		}
		os.Remove(s.CombinedESLPath(role))
		os.Remove(s.CombinedAuthPath(role))
	}()

	if err := osutil.AtomicWriteFile(s.CombinedESLPath(role), combined, 0600, 0); err != nil {
		return xerrors.Errorf("cannot write combined signature list: %w", err)
	}

	parent := role.Parent()
	if err := efitools.SignSignatureList(role.AuthorityName(), s.KeyPath(parent), s.CertPath(parent), s.CombinedESLPath(role), s.CombinedAuthPath(role)); err != nil {
		return xerrors.Errorf("cannot sign combined signature list: %w", err)
	}
	if err := os.Chmod(s.CombinedAuthPath(role), 0600); err != nil {
		return xerrors.Errorf("cannot restrict combined payload permissions: %w", err)
	}

	succeeded = true
	return nil
}

// MergeVendorCertificates locates vendor certificates for the KEK and db
// tiers and merges each one found. A missing vendor certificate is
// reported and skipped - the trust chain remains usable without vendor
// compatibility.
func (s *KeyStore) MergeVendorCertificates() error {
	if err := efitools.CheckToolsPresent(); err != nil {
		return err
	}

	for _, class := range []VendorClass{VendorKEK, VendorDb} {
		path, err := LocateVendorCertificate(class)
		if err == ErrVendorCertNotFound {
			log.Warningf("no vendor %s certificate found: binaries signed only by a vendor authority will not be trusted by firmware", class)
			continue
		}
		if err != nil {
			return err
		}

		log.Infof("merging vendor %s certificate %s", class, path)
		if err := s.MergeVendor(class.Role(), path); err != nil {
			return xerrors.Errorf("cannot merge vendor %s certificate: %w", class, err)
		}
	}

	return nil
}
