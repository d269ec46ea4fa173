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
	"fmt"
	"os"
	"path/filepath"

	"github.com/snapcore/snapd/osutil"

	"golang.org/x/xerrors"

	"github.com/snapcore/sbprovision/internal/paths"
)

const (
	// The zz- prefix sorts the hook after the transaction's other
	// hooks, so freshly installed kernels are on disk before signing.
	hookFileName   = "zz-sbprovision.hook"
	hookScriptName = "sbprovision-resign"
)

// hookTemplate is the declarative package manager trigger: re-sign after
// any transaction that installs or upgrades a kernel or bootloader,
// matched by path or by package name. The single %s is the path of the
// helper script.
const hookTemplate = `[Trigger]
Operation = Install
Operation = Upgrade
Type = Path
Target = boot/vmlinuz*
Target = usr/lib/modules/*/vmlinuz
Target = boot/efi/EFI/*/*.efi
Target = usr/lib/systemd/boot/efi/*.efi

[Trigger]
Operation = Install
Operation = Upgrade
Type = Package
Target = linux
Target = linux-lts
Target = grub
Target = systemd

[Action]
Description = Signing boot artifacts for Secure Boot
When = PostTransaction
Exec = %s
`

const hookScript = `#!/bin/sh
exec sbprovision resign
`

// HookPath returns the path the package manager hook is installed at.
func HookPath() string {
	return filepath.Join(paths.HookDir, hookFileName)
}

// HookScriptPath returns the path of the hook's helper script.
func HookScriptPath() string {
	return filepath.Join(paths.HookScriptDir, hookScriptName)
}

// InstallHook installs the package manager hook and its helper script,
// so that future kernel and bootloader updates trigger re-signing
// automatically. Installing over an existing hook is an update, not an
// error.
func InstallHook() error {
	for _, dir := range []string{paths.HookDir, paths.HookScriptDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return xerrors.Errorf("cannot create hook directory: %w", err)
		}
	}

	if err := osutil.AtomicWriteFile(HookScriptPath(), []byte(hookScript), 0755, 0); err != nil {
		return xerrors.Errorf("cannot install hook script: %w", err)
	}

	content := fmt.Sprintf(hookTemplate, HookScriptPath())
	if err := osutil.AtomicWriteFile(HookPath(), []byte(content), 0644, 0); err != nil {
		return xerrors.Errorf("cannot install hook: %w", err)
	}

	return nil
}
