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
	"errors"
	"path/filepath"

	"github.com/snapcore/snapd/osutil"
)

// VendorClass identifies which tier of the hierarchy a vendor
// certificate is merged into. Vendors publish separate intermediate
// certificates for the KEK and db tiers.
type VendorClass int

const (
	// VendorKEK identifies a vendor key exchange certificate.
	VendorKEK VendorClass = iota

	// VendorDb identifies a vendor signature database certificate.
	VendorDb
)

func (c VendorClass) String() string {
	switch c {
	case VendorKEK:
		return "KEK"
	case VendorDb:
		return "db"
	default:
		return "invalid"
	}
}

// Role returns the hierarchy role that certificates of this class are
// merged into.
func (c VendorClass) Role() Role {
	switch c {
	case VendorKEK:
		return RoleKEK
	default:
		return RoleDb
	}
}

// ErrVendorCertNotFound is returned from LocateVendorCertificate when no
// candidate location contains a certificate of the requested class. This
// is a compatibility downgrade rather than an error condition - without
// the vendor authority in the combined lists, binaries signed only by
// the vendor (eg, another OS's bootloader) will be rejected by firmware
// once the local chain is enrolled.
var ErrVendorCertNotFound = errors.New("no vendor certificate found")

// vendorCertDirs lists the directories searched for vendor
// certificates, in priority order.
var vendorCertDirs = []string{
	"/etc/sbprovision/vendor",
	"/usr/share/secureboot/vendor",
	"/usr/share/efitools/keys",
}

// Well known names the Microsoft certificates are shipped under by
// distributions, plus generic names an operator can drop a certificate
// at.
var (
	vendorKEKNames = []string{
		"vendor_KEK.crt",
		"MicCorKEKCA2011_2011-06-24.crt",
		"microsoft_corporation_kek_ca_2011.crt",
		"KEK.crt",
	}

	vendorDbNames = []string{
		"vendor_db.crt",
		"MicCorUEFCA2011_2011-06-24.crt",
		"microsoft_corporation_uefi_ca_2011.crt",
		"db.crt",
	}
)

// LocateVendorCertificate searches the candidate directories for a
// vendor certificate of the supplied class, returning the path of the
// first match. Directories are scanned in order, and within each
// directory the known filenames are tried in order. If nothing matches,
// ErrVendorCertNotFound is returned.
func LocateVendorCertificate(class VendorClass) (string, error) {
	names := vendorDbNames
	if class == VendorKEK {
		names = vendorKEKNames
	}

	for _, dir := range vendorCertDirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if osutil.FileExists(path) {
				return path, nil
			}
		}
	}

	return "", ErrVendorCertNotFound
}
