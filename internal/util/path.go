// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading "~" or "$HOME" in path to the current
// user's home directory. Paths that do not start with either marker are
// returned unchanged. Config values like tools_dir accept both forms.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	var rest string
	switch {
	case path == "~" || path == "$HOME":
		rest = ""
	case strings.HasPrefix(path, "~/"):
		rest = path[2:]
	case strings.HasPrefix(path, "$HOME/"):
		rest = path[len("$HOME/"):]
	default:
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, rest), nil
}

// EnsureDir creates dir (and any missing parents) with the given
// permissions. Existing directories are left untouched.
func EnsureDir(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DirWritable reports whether the current user can create files in dir.
// It probes by creating and removing a temp file, which is the only
// reliable check across filesystems and permission models.
func DirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".probe-")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
