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

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/snapcore/sbprovision/internal/paths"
)

// Config carries the optional tool configuration. Every field defaults
// to the built-in value when omitted.
type Config struct {
	KeyStoreDir string `yaml:"key-store-dir"`
	BackupDir   string `yaml:"backup-dir"`
	BootDir     string `yaml:"boot-dir"`
	ESPDir      string `yaml:"esp-dir"`

	// Backup controls whether artifacts are snapshotted before being
	// replaced. Enabled unless explicitly disabled.
	Backup *bool `yaml:"backup"`

	// Organization is recorded in generated certificate subjects.
	Organization string `yaml:"organization"`

	VendorCertDirs []string `yaml:"vendor-cert-dirs"`
	VendorKEKNames []string `yaml:"vendor-kek-names"`
	VendorDbNames  []string `yaml:"vendor-db-names"`

	KernelPattern   string   `yaml:"kernel-pattern"`
	ExcludedLoaders []string `yaml:"excluded-loaders"`
}

// ReadConfig loads the configuration file at the supplied path. A
// missing file is not an error and yields the defaults.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return &Config{}, nil
	case err != nil:
		return nil, xerrors.Errorf("cannot read configuration file: %w", err)
	}

	var config Config
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, xerrors.Errorf("cannot parse configuration file %s: %w", path, err)
	}
	return &config, nil
}

// BackupEnabled indicates whether pre-mutation backups are active.
func (c *Config) BackupEnabled() bool {
	return c.Backup == nil || *c.Backup
}

// Apply installs the configured overrides as process-wide defaults.
func (c *Config) Apply() {
	if c.KeyStoreDir != "" {
		paths.KeyStoreDir = c.KeyStoreDir
	}
	if c.BackupDir != "" {
		paths.BackupDir = c.BackupDir
	}
	if c.BootDir != "" {
		paths.BootDir = c.BootDir
	}
	if c.ESPDir != "" {
		paths.ESPDir = c.ESPDir
	}
	if c.Organization != "" {
		secureBootOrg = c.Organization
	}
	if len(c.VendorCertDirs) > 0 {
		vendorCertDirs = c.VendorCertDirs
	}
	if len(c.VendorKEKNames) > 0 {
		vendorKEKNames = c.VendorKEKNames
	}
	if len(c.VendorDbNames) > 0 {
		vendorDbNames = c.VendorDbNames
	}
	if c.KernelPattern != "" {
		kernelPattern = c.KernelPattern
	}
	if len(c.ExcludedLoaders) > 0 {
		foreignLoaderNames = append(foreignLoaderNames, c.ExcludedLoaders...)
	}
}
