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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"time"

	"golang.org/x/xerrors"
)

// certValidity is the validity window of generated certificates.
// Firmware compares against the certificate, not the window, so a long
// fixed window keeps enrolled keys usable for the life of the
// installation.
const certValidity = 10 * 365 * 24 * time.Hour

// rsaKeyBits is reduced in tests to keep key generation fast.
var rsaKeyBits = 4096

// secureBootOrg is the organization recorded in generated certificate
// subjects. Overridable for branding via the configuration file.
var secureBootOrg = "sbprovision"

// generatedCredentials holds freshly created key material for one role
// before it is committed to the key store.
type generatedCredentials struct {
	keyPEM  []byte
	certPEM []byte
	certDER []byte
}

// generateCredentials creates a new RSA-4096 key pair and self-signed
// SHA-256 X.509 certificate for the supplied role.
func generateCredentials(role Role) (*generatedCredentials, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, xerrors.Errorf("cannot generate RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, xerrors.Errorf("cannot generate certificate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{secureBootOrg},
			CommonName:   role.commonName(),
		},
		NotBefore:             now,
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, xerrors.Errorf("cannot create certificate: %w", err)
	}

	return &generatedCredentials{
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		certDER: der,
	}, nil
}

// decodeCertificate parses a certificate supplied as either PEM or raw
// DER, returning the DER encoding. Vendor certificates are published in
// both forms.
func decodeCertificate(data []byte) ([]byte, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, xerrors.Errorf("unexpected PEM block type %q", block.Type)
		}
		data = block.Bytes
	}
	if _, err := x509.ParseCertificate(data); err != nil {
		return nil, xerrors.Errorf("cannot parse certificate: %w", err)
	}
	return data, nil
}
