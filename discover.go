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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"
)

// kernelPattern matches kernel images in the boot directory.
var kernelPattern = "vmlinuz*"

// foreignLoaderNames lists EFI binaries that are never signed because
// they belong to another operating system. Re-signing a foreign OS's
// primary loader would break its own update verification and with it the
// machine's dual-boot setup. Comparison is case-insensitive - the ESP is
// a FAT filesystem.
var foreignLoaderNames = []string{
	"bootmgfw.efi",
}

// foreignLoaderSubtrees lists ESP subtrees that are skipped entirely,
// relative to the ESP root.
var foreignLoaderSubtrees = []string{
	"EFI/Microsoft",
}

// DiscoverArtifacts returns the boot artifacts subject to signing:
// kernel images matching the kernel naming convention in bootDir, and
// EFI executables under espDir, minus the foreign loader exclusions.
// The result is sorted. A missing EFI system partition is an error - it
// indicates the system does not boot via UEFI and signing would be
// meaningless.
func DiscoverArtifacts(bootDir, espDir string) ([]string, error) {
	if fi, err := os.Stat(espDir); err != nil || !fi.IsDir() {
		return nil, xerrors.Errorf("cannot find EFI system partition at %s", espDir)
	}

	kernels, err := filepath.Glob(filepath.Join(bootDir, kernelPattern))
	if err != nil {
		return nil, xerrors.Errorf("cannot scan boot directory: %w", err)
	}

	var artifacts []string
	for _, k := range kernels {
		if fi, err := os.Stat(k); err == nil && fi.Mode().IsRegular() {
			artifacts = append(artifacts, k)
		}
	}

	err = filepath.Walk(espDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(espDir, path)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			for _, subtree := range foreignLoaderSubtrees {
				if strings.EqualFold(filepath.ToSlash(rel), subtree) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !fi.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(path), ".efi") {
			return nil
		}
		for _, name := range foreignLoaderNames {
			if strings.EqualFold(filepath.Base(path), name) {
				return nil
			}
		}
		artifacts = append(artifacts, path)
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("cannot scan EFI system partition: %w", err)
	}

	sort.Strings(artifacts)
	return artifacts, nil
}
