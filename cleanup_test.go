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

	. "github.com/snapcore/sbprovision"
	"github.com/snapcore/sbprovision/internal/testutil"

	. "gopkg.in/check.v1"
)

type cleanupSuite struct {
	baseSuite

	backupDir string
	backup    *BackupSet
}

var _ = Suite(&cleanupSuite{})

func (s *cleanupSuite) SetUpTest(c *C) {
	s.baseSuite.SetUpTest(c)

	s.backupDir = c.MkDir()
	s.backup = NewBackupSet(s.backupDir)

	s.AddCleanup(testutil.MockHookDir(filepath.Join(c.MkDir(), "hooks")))
	s.AddCleanup(testutil.MockHookScriptDir(filepath.Join(c.MkDir(), "scripts")))
}

func (s *cleanupSuite) TestCleanupRefusesUnrecognizedDirectory(c *C) {
	// A directory without a platform key was not created by this tool,
	// however plausible its other contents look.
	dir := c.MkDir()
	store := NewKeyStore(dir)
	bystander := filepath.Join(dir, "db.key")
	c.Assert(os.WriteFile(bystander, []byte("unrelated"), 0600), IsNil)

	c.Check(store.Cleanup(s.backup), Equals, ErrUnrecognizedStore)

	// Zero deletions, zero backups.
	data, err := os.ReadFile(bystander)
	c.Assert(err, IsNil)
	c.Check(string(data), Equals, "unrelated")
	c.Check(s.backup.RunDir(), Equals, "")
}

func (s *cleanupSuite) TestCleanupRemovesStoreAndHook(c *C) {
	s.provisionChain(c)
	c.Assert(InstallHook(), IsNil)

	pk, err := os.ReadFile(s.store.KeyPath(RolePK))
	c.Assert(err, IsNil)

	c.Assert(s.store.Cleanup(s.backup), IsNil)

	_, err = os.Stat(s.store.Dir())
	c.Check(os.IsNotExist(err), testutil.IsTrue)
	_, err = os.Stat(HookPath())
	c.Check(os.IsNotExist(err), testutil.IsTrue)
	_, err = os.Stat(HookScriptPath())
	c.Check(os.IsNotExist(err), testutil.IsTrue)

	// Every removed file was backed up first, verbatim.
	c.Assert(s.backup.RunDir(), Not(Equals), "")
	backedPK, err := os.ReadFile(filepath.Join(s.backup.RunDir(), BackupName(s.store.KeyPath(RolePK))))
	c.Assert(err, IsNil)
	c.Check(string(backedPK), Equals, string(pk))
	_, err = os.Stat(filepath.Join(s.backup.RunDir(), BackupName(HookPath())))
	c.Check(err, IsNil)
	_, err = os.Stat(filepath.Join(s.backup.RunDir(), BackupName(HookScriptPath())))
	c.Check(err, IsNil)
}

func (s *cleanupSuite) TestCleanupWithoutHook(c *C) {
	s.provisionChain(c)

	c.Assert(s.store.Cleanup(s.backup), IsNil)

	_, err := os.Stat(s.store.Dir())
	c.Check(os.IsNotExist(err), testutil.IsTrue)
}
