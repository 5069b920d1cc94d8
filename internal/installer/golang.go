// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package installer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/reconrig/internal/detect"
)

// =============================================================================
// DOWNLOADER
// =============================================================================

// Downloader fetches a URL into a local file. The engine talks to the
// network only through this interface so tests can stay offline.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// HTTPDownloader is the real Downloader.
type HTTPDownloader struct {
	Client *http.Client
}

// NewHTTPDownloader returns a Downloader backed by a plain HTTP client.
// Timeouts come from the caller's context; a toolchain tarball on a
// slow link can legitimately take minutes.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{Client: &http.Client{}}
}

// Download fetches url into dest, creating or truncating it.
func (d *HTTPDownloader) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: HTTP %d", url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to save download: %w", err)
	}
	return out.Close()
}

// =============================================================================
// GO TOOLCHAIN INSTALL
// =============================================================================

// installGoToolchain downloads the pinned Go release from go.dev and
// unpacks it: under /usr/local when the process can escalate, otherwise
// under the tools directory. The architecture check runs before any
// network traffic.
func (e *Engine) installGoToolchain(ctx context.Context) error {
	version := e.cfg.Toolchain.GoVersion

	tarArch, err := detect.GoTarballArch(e.platform.Arch)
	if err != nil {
		return err
	}
	url := detect.GoTarballURL(version, e.platform.OS, tarArch)

	tmpDir, err := os.MkdirTemp("", "reconrig-go-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	tarball := filepath.Join(tmpDir, filepath.Base(url))

	fmt.Fprintf(e.out, "  downloading %s\n", url)
	if err := e.downloader.Download(ctx, url, tarball); err != nil {
		return err
	}

	key := e.platform.OS + "-" + tarArch
	if want, ok := e.cfg.Toolchain.GoChecksums[key]; ok {
		if err := verifyChecksum(tarball, want); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(e.out, "  no checksum pinned for %s, skipping verification\n", key)
	}

	goBin, err := e.unpackGoToolchain(ctx, tarball)
	if err != nil {
		return err
	}

	// Make the fresh toolchain resolvable for the rest of this run.
	if !isOnProcessPath(goBin) {
		os.Setenv("PATH", os.Getenv("PATH")+string(os.PathListSeparator)+goBin)
	}

	fmt.Fprintf(e.out, "  go %s installed to %s\n", version, filepath.Dir(goBin))
	return nil
}

// unpackGoToolchain places the tarball's go/ tree and returns the bin
// directory inside it. The escalated path replaces /usr/local/go the
// way the upstream install instructions do; without root the tree
// lands in the tools directory instead.
func (e *Engine) unpackGoToolchain(ctx context.Context, tarball string) (string, error) {
	if e.platform.CanEscalate() {
		rm, err := e.sudoWrap("rm", "-rf", "/usr/local/go")
		if err != nil {
			return "", err
		}
		if err := e.runCommand(ctx, rm); err != nil {
			return "", fmt.Errorf("failed to remove old /usr/local/go: %w", err)
		}

		untar, err := e.sudoWrap("tar", "-C", "/usr/local", "-xzf", tarball)
		if err != nil {
			return "", err
		}
		if err := e.runCommand(ctx, untar); err != nil {
			return "", fmt.Errorf("failed to extract Go tarball: %w", err)
		}
		return "/usr/local/go/bin", nil
	}

	toolsDir, err := e.cfg.ResolvedToolsDir()
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(filepath.Join(toolsDir, "go")); err != nil {
		return "", fmt.Errorf("failed to remove old %s/go: %w", toolsDir, err)
	}
	if err := extractTarGz(tarball, toolsDir); err != nil {
		return "", fmt.Errorf("failed to extract Go tarball: %w", err)
	}
	return filepath.Join(toolsDir, "go", "bin"), nil
}

// verifyChecksum compares the SHA-256 of path against the expected hex
// digest.
func verifyChecksum(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("checksum mismatch for %s: got %s, want %s", filepath.Base(path), got, want)
	}
	return nil
}

// extractTarGz extracts a tar.gz file to the destination directory.
func extractTarGz(src, dest string) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	cleanDest := filepath.Clean(dest)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		// Join cleans the result; an entry that still escapes the
		// destination is hostile input.
		target := filepath.Join(cleanDest, header.Name)
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("tar entry %q escapes destination", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			outFile, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, header.FileInfo().Mode().Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return err
			}
			outFile.Close()

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		}
	}

	return nil
}
