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

// Package efitools wraps the external secure boot signing primitives.
//
// The binary signing and signature list signing operations are performed
// by the system's sbsign, sbverify and sign-efi-sig-list binaries. This
// package treats them as trusted collaborators with a narrow contract -
// it never interprets the payloads they produce.
package efitools

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/snapcore/snapd/osutil"
)

var (
	// SbsignPath is the path of the sbsign binary. Overridable for
	// testing.
	SbsignPath = "sbsign"

	// SbverifyPath is the path of the sbverify binary. Overridable for
	// testing.
	SbverifyPath = "sbverify"

	// SignEFISigListPath is the path of the sign-efi-sig-list binary.
	// Overridable for testing.
	SignEFISigListPath = "sign-efi-sig-list"
)

// ErrMissingTool is returned wrapped from CheckToolsPresent if one of the
// required external binaries cannot be found.
type ErrMissingTool struct {
	Tools []string
}

func (e *ErrMissingTool) Error() string {
	return fmt.Sprintf("cannot find required external tools: %s", strings.Join(e.Tools, ", "))
}

// CheckToolsPresent verifies that all of the external binaries that this
// package depends on are available.
func CheckToolsPresent() error {
	var missing []string
	for _, tool := range []string{SbsignPath, SbverifyPath, SignEFISigListPath} {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return &ErrMissingTool{Tools: missing}
	}
	return nil
}

// toolCmd is a helper for running one of the wrapped binaries.
func toolCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed with: %v", name, osutil.OutputErr(output, err))
	}
	return nil
}

// SignImage signs the EFI binary at src with the supplied PEM key and
// certificate, writing the signed binary to dst. The original binary is
// not modified.
func SignImage(key, cert, src, dst string) error {
	return toolCmd(SbsignPath, "--key", key, "--cert", cert, "--output", dst, src)
}

// VerifyImage indicates whether the EFI binary at the supplied path
// carries a valid signature that chains to the supplied PEM certificate.
// A binary that is unsigned or signed by another authority is not an
// error - it is reported as unverified.
func VerifyImage(image, cert string) (bool, error) {
	cmd := exec.Command(SbverifyPath, "--cert", cert, image)
	if _, err := cmd.CombinedOutput(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, fmt.Errorf("cannot execute %s: %v", SbverifyPath, err)
	}
	return true, nil
}

// SignSignatureList signs the signature list at esl with the supplied PEM
// key and certificate under the named variable authority (eg, "PK", "KEK"
// or "db"), writing an authenticated update payload suitable for firmware
// enrollment to out.
func SignSignatureList(authority, key, cert, esl, out string) error {
	return toolCmd(SignEFISigListPath, "-k", key, "-c", cert, authority, esl, out)
}
