// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package detect

import (
	"golang.org/x/sys/unix"
)

// DiskFree returns the free disk space in bytes for the filesystem
// containing path. Bavail counts blocks available to unprivileged
// users, which is what matters for installs under $HOME.
func DiskFree(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
