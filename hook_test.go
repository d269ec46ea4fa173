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
	"strings"

	snapd_testutil "github.com/snapcore/snapd/testutil"

	. "github.com/snapcore/sbprovision"
	"github.com/snapcore/sbprovision/internal/testutil"

	. "gopkg.in/check.v1"
)

type hookSuite struct {
	snapd_testutil.BaseTest
}

var _ = Suite(&hookSuite{})

func (s *hookSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)
	s.AddCleanup(testutil.MockHookDir(filepath.Join(c.MkDir(), "hooks")))
	s.AddCleanup(testutil.MockHookScriptDir(filepath.Join(c.MkDir(), "scripts")))
}

func (s *hookSuite) TestInstallHook(c *C) {
	c.Assert(InstallHook(), IsNil)

	hook, err := os.ReadFile(HookPath())
	c.Assert(err, IsNil)
	content := string(hook)

	// Trigger on install and upgrade, by path and by package name, and
	// run after the transaction completes.
	c.Check(strings.Contains(content, "Operation = Install"), testutil.IsTrue)
	c.Check(strings.Contains(content, "Operation = Upgrade"), testutil.IsTrue)
	c.Check(strings.Contains(content, "Type = Path"), testutil.IsTrue)
	c.Check(strings.Contains(content, "Type = Package"), testutil.IsTrue)
	c.Check(strings.Contains(content, "When = PostTransaction"), testutil.IsTrue)
	c.Check(strings.Contains(content, "Exec = "+HookScriptPath()), testutil.IsTrue)

	fi, err := os.Stat(HookScriptPath())
	c.Assert(err, IsNil)
	c.Check(fi.Mode().Perm(), Equals, os.FileMode(0755))

	script, err := os.ReadFile(HookScriptPath())
	c.Assert(err, IsNil)
	c.Check(strings.Contains(string(script), "sbprovision resign"), testutil.IsTrue)
}

func (s *hookSuite) TestInstallHookTwice(c *C) {
	c.Assert(InstallHook(), IsNil)
	first, err := os.ReadFile(HookPath())
	c.Assert(err, IsNil)

	// Re-installing is an update, not an error.
	c.Assert(InstallHook(), IsNil)
	second, err := os.ReadFile(HookPath())
	c.Assert(err, IsNil)
	c.Check(string(second), Equals, string(first))
}
