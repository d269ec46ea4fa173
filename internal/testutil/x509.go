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

package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"time"

	. "gopkg.in/check.v1"
)

// ParseCertificatePEM parses a PEM encoded certificate.
func ParseCertificatePEM(c *C, data []byte) *x509.Certificate {
	block, _ := pem.Decode(data)
	c.Assert(block, NotNil)
	c.Assert(block.Type, Equals, "CERTIFICATE")
	cert, err := x509.ParseCertificate(block.Bytes)
	c.Assert(err, IsNil)
	return cert
}

// ParsePKCS1PrivateKeyPEM parses a PEM encoded RSA private key.
func ParsePKCS1PrivateKeyPEM(c *C, data []byte) *rsa.PrivateKey {
	block, _ := pem.Decode(data)
	c.Assert(block, NotNil)
	c.Assert(block.Type, Equals, "RSA PRIVATE KEY")
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	c.Assert(err, IsNil)
	return key
}

// MakeSelfSignedCert creates a small self-signed certificate for use as
// a mock vendor certificate, returning the DER and PEM encodings. A
// 1024-bit key keeps test runs fast - nothing verifies the strength.
func MakeSelfSignedCert(c *C, commonName string) (der, pemData []byte) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	c.Assert(err, IsNil)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err = x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	c.Assert(err, IsNil)

	pemData = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return der, pemData
}
