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
	"os"
	"path/filepath"

	snapd_testutil "github.com/snapcore/snapd/testutil"

	. "github.com/snapcore/sbprovision"
	"github.com/snapcore/sbprovision/internal/paths"
	"github.com/snapcore/sbprovision/internal/testutil"

	. "gopkg.in/check.v1"
)

type configSuite struct {
	snapd_testutil.BaseTest
}

var _ = Suite(&configSuite{})

func (s *configSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)

	// Apply mutates process-wide defaults - restore them afterwards.
	s.AddCleanup(testutil.MockKeyStoreDir(paths.KeyStoreDir))
	s.AddCleanup(testutil.MockBackupDir(paths.BackupDir))
	s.AddCleanup(testutil.MockBootDir(paths.BootDir))
	s.AddCleanup(testutil.MockESPDir(paths.ESPDir))
	s.AddCleanup(MockVendorCertDirs(nil))
	s.AddCleanup(MockKernelPattern("vmlinuz*"))
	s.AddCleanup(MockSecureBootOrg("sbprovision"))
}

func (s *configSuite) TestReadConfigMissingFileYieldsDefaults(c *C) {
	config, err := ReadConfig(filepath.Join(c.MkDir(), "missing.yaml"))
	c.Assert(err, IsNil)
	c.Check(config.BackupEnabled(), testutil.IsTrue)
	c.Check(config.KeyStoreDir, Equals, "")
}

func (s *configSuite) TestReadConfigAndApply(c *C) {
	path := filepath.Join(c.MkDir(), "sbprovision.yaml")
	c.Assert(os.WriteFile(path, []byte(`
key-store-dir: /custom/keys
esp-dir: /efi
backup: false
organization: Example Corp
vendor-cert-dirs:
  - /custom/vendor
kernel-pattern: "kernel-*"
`), 0644), IsNil)

	config, err := ReadConfig(path)
	c.Assert(err, IsNil)
	c.Check(config.BackupEnabled(), testutil.IsFalse)

	config.Apply()
	c.Check(paths.KeyStoreDir, Equals, "/custom/keys")
	c.Check(paths.ESPDir, Equals, "/efi")
}

func (s *configSuite) TestReadConfigRejectsUnknownFields(c *C) {
	path := filepath.Join(c.MkDir(), "sbprovision.yaml")
	c.Assert(os.WriteFile(path, []byte("no-such-option: true\n"), 0644), IsNil)

	_, err := ReadConfig(path)
	c.Check(err, ErrorMatches, `cannot parse configuration file .*`)
}
