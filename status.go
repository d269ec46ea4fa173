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
	"github.com/snapcore/snapd/osutil"

	"github.com/snapcore/sbprovision/internal/efitools"
	"github.com/snapcore/sbprovision/internal/paths"
)

// RoleStatus describes the provisioning state of one hierarchy role.
type RoleStatus struct {
	Role        Role
	Provisioned bool
	// Combined indicates that a vendor-merged signature list and
	// payload exist for this role.
	Combined bool
}

// ArtifactStatus describes the signature state of one discovered boot
// artifact. The state is probed at call time, never cached.
type ArtifactStatus struct {
	Path   string
	Signed bool
}

// Status describes the overall provisioning and signing state.
type Status struct {
	Roles     []RoleStatus
	Artifacts []ArtifactStatus
}

// Status reports the provisioning state of the hierarchy and the
// signature state of every discoverable boot artifact. It is strictly
// read-only. Artifact probing requires a provisioned db role and is
// skipped without one.
func (s *KeyStore) Status() (*Status, error) {
	status := new(Status)

	for _, role := range chainRoles {
		status.Roles = append(status.Roles, RoleStatus{
			Role:        role,
			Provisioned: s.RoleExists(role),
			Combined:    osutil.FileExists(s.CombinedESLPath(role)) && osutil.FileExists(s.CombinedAuthPath(role)),
		})
	}

	if !s.RoleExists(RoleDb) {
		return status, nil
	}

	artifacts, err := DiscoverArtifacts(paths.BootDir, paths.ESPDir)
	if err != nil {
		return nil, err
	}
	for _, artifact := range artifacts {
		signed, err := efitools.VerifyImage(artifact, s.CertPath(RoleDb))
		if err != nil {
			return nil, err
		}
		status.Artifacts = append(status.Artifacts, ArtifactStatus{Path: artifact, Signed: signed})
	}

	return status, nil
}
