// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package detect

import (
	"errors"
)

// DiskFree is unsupported on Windows; reconrig provisions Linux and
// macOS workstations only.
func DiskFree(path string) (uint64, error) {
	return 0, errors.New("disk space detection not supported on windows")
}
