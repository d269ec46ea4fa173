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

package sbprovision_test

import (
	"bytes"
	"os"
	"strings"

	efi "github.com/canonical/go-efilib"
	snapd_testutil "github.com/snapcore/snapd/testutil"

	. "github.com/snapcore/sbprovision"
	"github.com/snapcore/sbprovision/internal/testutil"

	. "gopkg.in/check.v1"
)

type chainSuite struct {
	baseSuite
}

var _ = Suite(&chainSuite{})

func lastLine(c *C, path string) string {
	data, err := os.ReadFile(path)
	c.Assert(err, IsNil)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return lines[len(lines)-1]
}

func (s *chainSuite) TestEnsureChainCreatesHierarchy(c *C) {
	c.Assert(s.store.EnsureChain(), IsNil)

	fi, err := os.Stat(s.store.Dir())
	c.Assert(err, IsNil)
	c.Check(fi.Mode().Perm(), Equals, os.FileMode(0700))

	for _, role := range []Role{RolePK, RoleKEK, RoleDb} {
		for _, path := range []string{s.store.KeyPath(role), s.store.CertPath(role), s.store.ESLPath(role), s.store.AuthPath(role)} {
			fi, err := os.Stat(path)
			c.Assert(err, IsNil, Commentf("missing %s", path))
			c.Check(fi.Mode().Perm(), Equals, os.FileMode(0600), Commentf("wrong mode on %s", path))
		}
	}

	c.Check(s.mockSignESL.Calls(), DeepEquals, [][]string{
		{"sign-efi-sig-list", "-k", s.store.KeyPath(RolePK), "-c", s.store.CertPath(RolePK), "PK", s.store.ESLPath(RolePK), s.store.AuthPath(RolePK)},
		{"sign-efi-sig-list", "-k", s.store.KeyPath(RolePK), "-c", s.store.CertPath(RolePK), "KEK", s.store.ESLPath(RoleKEK), s.store.AuthPath(RoleKEK)},
		{"sign-efi-sig-list", "-k", s.store.KeyPath(RoleKEK), "-c", s.store.CertPath(RoleKEK), "db", s.store.ESLPath(RoleDb), s.store.AuthPath(RoleDb)},
	})
}

func (s *chainSuite) TestEnsureChainHierarchyValidity(c *C) {
	c.Assert(s.store.EnsureChain(), IsNil)

	// The PK payload is self-signed, the KEK payload is signed by PK
	// and the db payload is signed by KEK.
	c.Check(lastLine(c, s.store.AuthPath(RolePK)), Equals, "auth:PK:PK.key")
	c.Check(lastLine(c, s.store.AuthPath(RoleKEK)), Equals, "auth:KEK:PK.key")
	c.Check(lastLine(c, s.store.AuthPath(RoleDb)), Equals, "auth:db:KEK.key")

	// Each certificate's public key matches its private key.
	for _, role := range []Role{RolePK, RoleKEK, RoleDb} {
		keyPEM, err := os.ReadFile(s.store.KeyPath(role))
		c.Assert(err, IsNil)
		certPEM, err := os.ReadFile(s.store.CertPath(role))
		c.Assert(err, IsNil)

		key := testutil.ParsePKCS1PrivateKeyPEM(c, keyPEM)
		cert := testutil.ParseCertificatePEM(c, certPEM)
		c.Check(key.PublicKey.Equal(cert.PublicKey), testutil.IsTrue)
		c.Check(cert.CheckSignatureFrom(cert), IsNil)
	}
}

func (s *chainSuite) TestEnsureChainESLContents(c *C) {
	c.Assert(s.store.EnsureChain(), IsNil)

	owner, err := s.store.OwnerGUID()
	c.Assert(err, IsNil)

	for _, role := range []Role{RolePK, RoleKEK, RoleDb} {
		db, err := ReadSignatureDatabase(s.store.ESLPath(role))
		c.Assert(err, IsNil)
		c.Assert(db, HasLen, 1)
		c.Check(db[0].Type, Equals, efi.CertX509Guid)
		c.Assert(db[0].Signatures, HasLen, 1)
		c.Check(db[0].Signatures[0].Owner, Equals, owner)

		certPEM, err := os.ReadFile(s.store.CertPath(role))
		c.Assert(err, IsNil)
		cert := testutil.ParseCertificatePEM(c, certPEM)
		c.Check(bytes.Equal(db[0].Signatures[0].Data, cert.Raw), testutil.IsTrue)
	}
}

func (s *chainSuite) TestEnsureChainIdempotent(c *C) {
	c.Assert(s.store.EnsureChain(), IsNil)

	before := make(map[string][]byte)
	for _, role := range []Role{RolePK, RoleKEK, RoleDb} {
		for _, path := range []string{s.store.KeyPath(role), s.store.CertPath(role), s.store.ESLPath(role), s.store.AuthPath(role)} {
			data, err := os.ReadFile(path)
			c.Assert(err, IsNil)
			before[path] = data
		}
	}
	s.mockSignESL.ForgetCalls()

	c.Assert(s.store.EnsureChain(), IsNil)

	c.Check(s.mockSignESL.Calls(), HasLen, 0)
	for path, data := range before {
		after, err := os.ReadFile(path)
		c.Assert(err, IsNil)
		c.Check(bytes.Equal(after, data), testutil.IsTrue, Commentf("%s changed on second run", path))
	}
}

func (s *chainSuite) TestEnsureChainPartialRoleRebuilt(c *C) {
	c.Assert(s.store.EnsureChain(), IsNil)

	// A role missing its auth payload doesn't count as provisioned and
	// is rebuilt on the next run.
	c.Assert(os.Remove(s.store.AuthPath(RoleDb)), IsNil)
	c.Check(s.store.RoleExists(RoleDb), testutil.IsFalse)

	s.mockSignESL.ForgetCalls()
	c.Assert(s.store.EnsureChain(), IsNil)
	c.Check(s.mockSignESL.Calls(), HasLen, 1)
	c.Check(s.store.RoleExists(RoleDb), testutil.IsTrue)
}

func (s *chainSuite) TestEnsureChainFailureLeavesNoPartialRole(c *C) {
	broken := snapd_testutil.MockCommand(c, "sign-efi-sig-list", "exit 1")
	defer broken.Restore()

	c.Check(s.store.EnsureChain(), ErrorMatches, `cannot provision PK: cannot sign signature list: sign-efi-sig-list failed with: exit status 1`)

	for _, path := range []string{s.store.KeyPath(RolePK), s.store.CertPath(RolePK), s.store.ESLPath(RolePK), s.store.AuthPath(RolePK)} {
		_, err := os.Stat(path)
		c.Check(os.IsNotExist(err), testutil.IsTrue, Commentf("%s left behind", path))
	}
	c.Check(s.store.ChainComplete(), testutil.IsFalse)

	// The aborted run is recoverable by re-running the builder.
	broken.Restore()
	c.Assert(s.store.EnsureChain(), IsNil)
	c.Check(s.store.ChainComplete(), testutil.IsTrue)
}

func (s *chainSuite) TestChainComplete(c *C) {
	c.Check(s.store.ChainComplete(), testutil.IsFalse)
	c.Assert(s.store.EnsureChain(), IsNil)
	c.Check(s.store.ChainComplete(), testutil.IsTrue)
}
