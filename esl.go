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
	"bytes"

	efi "github.com/canonical/go-efilib"

	"golang.org/x/xerrors"
)

// certificateToESL converts a DER encoded X.509 certificate to a
// serialized signature list containing a single entry with the supplied
// owner.
func certificateToESL(der []byte, owner efi.GUID) ([]byte, error) {
	db := efi.SignatureDatabase{
		&efi.SignatureList{
			Type: efi.CertX509Guid,
			Signatures: []*efi.SignatureData{
				{
					Owner: owner,
					Data:  der,
				},
			},
		},
	}

	buf := new(bytes.Buffer)
	if err := db.Write(buf); err != nil {
		return nil, xerrors.Errorf("cannot serialize signature list: %w", err)
	}
	return buf.Bytes(), nil
}

// concatenateESLs combines two serialized signature lists. The result is
// a plain concatenation with the local entries first - no entries are
// deduplicated, so merging the same vendor list twice yields duplicate
// entries. Firmware behaviour with duplicates is not defined by the UEFI
// specification, so callers should avoid repeating a merge.
func concatenateESLs(local, vendor []byte) []byte {
	out := make([]byte, 0, len(local)+len(vendor))
	out = append(out, local...)
	out = append(out, vendor...)
	return out
}

// eslContainsCertificate indicates whether the serialized signature list
// contains an X.509 entry with the supplied DER encoding.
func eslContainsCertificate(esl, der []byte) (bool, error) {
	db, err := efi.ReadSignatureDatabase(bytes.NewReader(esl))
	if err != nil {
		return false, xerrors.Errorf("cannot decode signature list: %w", err)
	}
	for _, l := range db {
		if l.Type != efi.CertX509Guid {
			continue
		}
		for _, s := range l.Signatures {
			if bytes.Equal(s.Data, der) {
				return true, nil
			}
		}
	}
	return false, nil
}
