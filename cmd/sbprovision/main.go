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

package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/snapcore/sbprovision"
	"github.com/snapcore/sbprovision/internal/paths"
)

type options struct {
	Config   string `long:"config" description:"Path of the configuration file" default:""`
	KeyStore string `long:"key-store" description:"Override the key store directory"`
	Verbose  bool   `short:"v" long:"verbose" description:"Enable debug logging"`
}

var opts options
var parser = flags.NewParser(&opts, flags.Default)

// setup applies the configuration and returns the key store and the
// backup set (nil when backups are disabled).
func setup() (*sbprovision.KeyStore, *sbprovision.BackupSet, error) {
	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	configFile := opts.Config
	if configFile == "" {
		configFile = paths.ConfigFile
	}
	config, err := sbprovision.ReadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	config.Apply()

	if opts.KeyStore != "" {
		paths.KeyStoreDir = opts.KeyStore
	}

	var backup *sbprovision.BackupSet
	if config.BackupEnabled() {
		backup = sbprovision.DefaultBackupSet()
	}
	return sbprovision.DefaultKeyStore(), backup, nil
}

type cmdSetup struct {
	NoVendor bool `long:"no-vendor" description:"Skip merging vendor certificates"`
	NoHook   bool `long:"no-hook" description:"Skip installing the package manager hook"`
	NoSign   bool `long:"no-sign" description:"Skip the initial signing pass"`
}

func (cmd *cmdSetup) Execute(args []string) error {
	store, backup, err := setup()
	if err != nil {
		return err
	}

	if err := store.EnsureChain(); err != nil {
		return err
	}
	if !cmd.NoVendor {
		if err := store.MergeVendorCertificates(); err != nil {
			return err
		}
	}
	if !cmd.NoHook {
		if err := sbprovision.InstallHook(); err != nil {
			return err
		}
	}
	if !cmd.NoSign {
		if err := sbprovision.NewSigner(store, backup).SignAll(); err != nil {
			return err
		}
	}

	log.Infof("setup complete - enroll %s (replace) and then the KEK and db payloads (append) from %s via firmware key management", "PK.auth", store.Dir())
	return nil
}

type cmdSign struct {
	Positional struct {
		Artifacts []string `positional-arg-name:"artifact paths (all discovered artifacts when omitted)"`
	} `positional-args:"true"`
}

func (cmd *cmdSign) Execute(args []string) error {
	store, backup, err := setup()
	if err != nil {
		return err
	}
	signer := sbprovision.NewSigner(store, backup)

	if len(cmd.Positional.Artifacts) == 0 {
		return signer.SignAll()
	}
	for _, artifact := range cmd.Positional.Artifacts {
		if err := signer.Sign(artifact); err != nil {
			return err
		}
	}
	return nil
}

// cmdResign is the package manager hook entry point. It is a plain
// re-invocation of the signing engine: already-signed artifacts are
// no-ops, so running it after every transaction is safe.
type cmdResign struct{}

func (cmd *cmdResign) Execute(args []string) error {
	store, backup, err := setup()
	if err != nil {
		return err
	}
	return sbprovision.NewSigner(store, backup).SignAll()
}

type cmdInstallHook struct{}

func (cmd *cmdInstallHook) Execute(args []string) error {
	if _, _, err := setup(); err != nil {
		return err
	}
	return sbprovision.InstallHook()
}

type cmdStatus struct{}

func (cmd *cmdStatus) Execute(args []string) error {
	store, _, err := setup()
	if err != nil {
		return err
	}

	status, err := store.Status()
	if err != nil {
		return err
	}

	for _, role := range status.Roles {
		state := "missing"
		if role.Provisioned {
			state = "provisioned"
		}
		combined := ""
		if role.Combined {
			combined = " (vendor combined)"
		}
		fmt.Printf("%-4s %s%s\n", role.Role, state, combined)
	}
	for _, artifact := range status.Artifacts {
		state := "unsigned"
		if artifact.Signed {
			state = "signed"
		}
		fmt.Printf("%-8s %s\n", state, artifact.Path)
	}
	return nil
}

type cmdCleanup struct{}

func (cmd *cmdCleanup) Execute(args []string) error {
	store, _, err := setup()
	if err != nil {
		return err
	}
	return store.Cleanup(sbprovision.DefaultBackupSet())
}

func init() {
	parser.AddCommand("setup", "Provision the trust chain and sign all boot artifacts",
		"Generate any missing PK, KEK and db keys, merge vendor certificates, install the re-signing hook and sign all discovered boot artifacts", &cmdSetup{})
	parser.AddCommand("sign", "Sign boot artifacts",
		"Sign the supplied artifacts, or every discovered artifact when none are supplied", &cmdSign{})
	parser.AddCommand("resign", "Re-sign boot artifacts after a package transaction",
		"Sign every discovered artifact that is not already signed. Intended to be invoked from the package manager hook", &cmdResign{})
	parser.AddCommand("install-hook", "Install the package manager hook",
		"Install the hook that re-signs boot artifacts after kernel and bootloader updates", &cmdInstallHook{})
	parser.AddCommand("status", "Show provisioning and signing state",
		"Show the provisioning state of each role and the signature state of each discovered artifact", &cmdStatus{})
	parser.AddCommand("cleanup", "Remove generated keys and hooks",
		"Remove the key store, hook and hook script, backing everything up first. Refuses to touch a directory without a platform key", &cmdCleanup{})
}

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if _, err := parser.Parse(); err != nil {
		switch e := err.(type) {
		case *flags.Error:
			if e.Type == flags.ErrHelp {
				os.Exit(0)
			}
			// go-flags already printed the parse error
		default:
			log.Error(err)
		}
		os.Exit(1)
	}
}
