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

// Role identifies one of the keys in the secure boot trust hierarchy.
type Role int

const (
	// RolePK is the platform key, the root of the hierarchy. It is the
	// only key permitted to replace itself.
	RolePK Role = iota

	// RoleKEK is the key exchange key, signed by the platform key and
	// authorized to update the signature database.
	RoleKEK

	// RoleDb is the signature database key, signed by the key exchange
	// key. Binaries signed by it are accepted by firmware on boot.
	RoleDb
)

// chainRoles lists the hierarchy in provisioning order. The order
// matters: each role's authenticated payload is produced with the key of
// the role that precedes it in the hierarchy.
var chainRoles = []Role{RolePK, RoleKEK, RoleDb}

func (r Role) String() string {
	switch r {
	case RolePK:
		return "PK"
	case RoleKEK:
		return "KEK"
	case RoleDb:
		return "db"
	default:
		return "invalid"
	}
}

// Parent returns the role whose key signs this role's signature list.
// The platform key signs its own list.
func (r Role) Parent() Role {
	switch r {
	case RoleKEK:
		return RolePK
	case RoleDb:
		return RoleKEK
	default:
		return RolePK
	}
}

// AuthorityName returns the variable authority label that this role's
// authenticated payloads are signed under.
func (r Role) AuthorityName() string {
	return r.String()
}

func (r Role) commonName() string {
	switch r {
	case RolePK:
		return "Secure Boot Platform Key"
	case RoleKEK:
		return "Secure Boot Key Exchange Key"
	case RoleDb:
		return "Secure Boot Signature Database Key"
	default:
		return "invalid"
	}
}
