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
	"github.com/snapcore/sbprovision/internal/paths"
)

func MockKeyStoreDir(path string) (restore func()) {
	orig := paths.KeyStoreDir
	paths.KeyStoreDir = path
	return func() {
		paths.KeyStoreDir = orig
	}
}

func MockBackupDir(path string) (restore func()) {
	orig := paths.BackupDir
	paths.BackupDir = path
	return func() {
		paths.BackupDir = orig
	}
}

func MockBootDir(path string) (restore func()) {
	orig := paths.BootDir
	paths.BootDir = path
	return func() {
		paths.BootDir = orig
	}
}

func MockESPDir(path string) (restore func()) {
	orig := paths.ESPDir
	paths.ESPDir = path
	return func() {
		paths.ESPDir = orig
	}
}

func MockHookDir(path string) (restore func()) {
	orig := paths.HookDir
	paths.HookDir = path
	return func() {
		paths.HookDir = orig
	}
}

func MockHookScriptDir(path string) (restore func()) {
	orig := paths.HookScriptDir
	paths.HookScriptDir = path
	return func() {
		paths.HookScriptDir = orig
	}
}
