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

package paths

var (
	// KeyStoreDir is the default location of the secure boot key store.
	KeyStoreDir = "/var/lib/sbprovision/keys"

	// BackupDir is the default location for pre-mutation backups.
	BackupDir = "/var/lib/sbprovision/backup"

	// BootDir is the directory scanned for kernel images.
	BootDir = "/boot"

	// ESPDir is the mount point of the EFI system partition.
	ESPDir = "/boot/efi"

	// ConfigFile is the default tool configuration file.
	ConfigFile = "/etc/sbprovision/sbprovision.yaml"

	// HookDir is the directory that the package manager hook is
	// installed to.
	HookDir = "/usr/share/libalpm/hooks"

	// HookScriptDir is the directory that the hook's helper script is
	// installed to.
	HookScriptDir = "/usr/share/libalpm/scripts"
)
