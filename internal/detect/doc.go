// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect probes the host platform for reconrig.
//
// It answers the questions every provisioning step asks up front: which
// OS and CPU architecture is this, which package manager is available,
// can the process reach root, and is there disk to spare. Results are
// cached because the answers are stable for the life of a run.
//
// # Key Types
//
//   - Platform: OS, architecture, package manager, privilege mode
//   - PkgManager: apt or brew
//   - Privilege: root, sudo, or none
//
// # Usage
//
//	platform := detect.Detect()
//	if !platform.Supported() {
//		return fmt.Errorf("unsupported OS: %s", platform.OS)
//	}
//	arch, err := detect.GoTarballArch(platform.Arch)
package detect
