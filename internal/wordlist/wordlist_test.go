// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wordlist

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/installer"
	"github.com/jeranaias/reconrig/internal/report"
)

func gitRunner() *installer.RecordingRunner {
	rr := installer.NewRecordingRunner()
	rr.SetBinary("git", "/usr/bin/git")
	return rr
}

func TestSyncClonesFreshRepo(t *testing.T) {
	rr := gitRunner()
	dir := filepath.Join(t.TempDir(), "OneListForAll")
	repo := Repo{
		Name: "OneListForAll",
		URLs: []string{"https://github.com/six2dez/OneListForAll.git"},
		Dir:  dir,
	}

	f := NewFetcher([]Repo{repo}, rr, &bytes.Buffer{}, false)
	res := f.Sync(context.Background(), repo)

	if res.Status != report.StatusInstalled {
		t.Fatalf("status = %s (err %q), want installed", res.Status, res.Err)
	}
	if res.Path != dir {
		t.Errorf("path = %q, want %q", res.Path, dir)
	}

	want := "git clone --depth 1 https://github.com/six2dez/OneListForAll.git " + dir
	if !rr.Ran(want) {
		t.Errorf("commands = %v, want %q", rr.CommandStrings(), want)
	}
}

func TestSyncFallsBackToMirror(t *testing.T) {
	rr := gitRunner()
	dir := filepath.Join(t.TempDir(), "OneListForAll")
	repo := Repo{
		Name: "OneListForAll",
		URLs: []string{
			"https://github.com/six2dez/OneListForAll.git",
			"https://gitlab.com/six2dez/OneListForAll.git",
		},
		Dir: dir,
	}

	rr.Fail["git clone --depth 1 https://github.com"] = errors.New("could not resolve host")

	f := NewFetcher([]Repo{repo}, rr, &bytes.Buffer{}, false)
	res := f.Sync(context.Background(), repo)

	if res.Status != report.StatusInstalled {
		t.Fatalf("status = %s (err %q), want installed via mirror", res.Status, res.Err)
	}
	if !strings.Contains(res.Detail, "gitlab.com") {
		t.Errorf("detail = %q, want the fallback URL noted", res.Detail)
	}
	if !rr.Ran("git clone --depth 1 https://gitlab.com") {
		t.Errorf("commands = %v, mirror was never tried", rr.CommandStrings())
	}
}

func TestSyncFailsWhenAllURLsFail(t *testing.T) {
	rr := gitRunner()
	repo := Repo{
		Name: "OneListForAll",
		URLs: []string{
			"https://github.com/six2dez/OneListForAll.git",
			"https://gitlab.com/six2dez/OneListForAll.git",
		},
		Dir: filepath.Join(t.TempDir(), "OneListForAll"),
	}

	rr.Fail["git clone"] = errors.New("network is unreachable")

	f := NewFetcher([]Repo{repo}, rr, &bytes.Buffer{}, false)
	res := f.Sync(context.Background(), repo)

	if res.Status != report.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Err, "gitlab.com") || !strings.Contains(res.Err, "unreachable") {
		t.Errorf("err = %q, want the last URL and cause", res.Err)
	}
}

func TestSyncUpdatesExistingCheckout(t *testing.T) {
	rr := gitRunner()
	dir := filepath.Join(t.TempDir(), "OneListForAll")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	repo := Repo{Name: "OneListForAll", URLs: []string{"https://example.com/x.git"}, Dir: dir}
	f := NewFetcher([]Repo{repo}, rr, &bytes.Buffer{}, false)
	res := f.Sync(context.Background(), repo)

	if res.Status != report.StatusPresent {
		t.Fatalf("status = %s, want present for an updated checkout", res.Status)
	}
	if !rr.Ran("git -C " + dir + " pull --ff-only") {
		t.Errorf("commands = %v, want a fast-forward pull", rr.CommandStrings())
	}
	if rr.Ran("git clone") {
		t.Errorf("existing checkout was cloned again: %v", rr.CommandStrings())
	}
}

func TestSyncDryRun(t *testing.T) {
	rr := gitRunner()
	repo := Repo{
		Name: "OneListForAll",
		URLs: []string{"https://github.com/six2dez/OneListForAll.git"},
		Dir:  filepath.Join(t.TempDir(), "OneListForAll"),
	}

	f := NewFetcher([]Repo{repo}, rr, &bytes.Buffer{}, true)
	res := f.Sync(context.Background(), repo)

	if res.Status != report.StatusSkipped {
		t.Fatalf("status = %s, want skipped", res.Status)
	}
	if !strings.Contains(res.Detail, repo.URLs[0]) {
		t.Errorf("detail = %q, want the would-be URL", res.Detail)
	}
	if len(rr.Commands) != 0 {
		t.Errorf("dry run executed commands: %v", rr.CommandStrings())
	}
}

func TestSyncWithoutGit(t *testing.T) {
	rr := installer.NewRecordingRunner()
	repo := Repo{Name: "OneListForAll", URLs: []string{"https://example.com/x.git"}, Dir: t.TempDir()}

	f := NewFetcher([]Repo{repo}, rr, &bytes.Buffer{}, false)
	res := f.Sync(context.Background(), repo)

	if res.Status != report.StatusFailed {
		t.Fatalf("status = %s, want failed without git", res.Status)
	}
	if !strings.Contains(res.Err, "git") {
		t.Errorf("err = %q", res.Err)
	}
	if len(rr.Commands) != 0 {
		t.Errorf("commands ran without git: %v", rr.CommandStrings())
	}
}

func TestSyncAllReturnsOneResultPerRepo(t *testing.T) {
	rr := gitRunner()
	base := t.TempDir()
	repos := []Repo{
		{Name: "first", URLs: []string{"https://example.com/first.git"}, Dir: filepath.Join(base, "first")},
		{Name: "second", URLs: []string{"https://example.com/second.git"}, Dir: filepath.Join(base, "second")},
	}

	f := NewFetcher(repos, rr, &bytes.Buffer{}, false)
	results := f.SyncAll(context.Background())

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Tool != "first" || results[1].Tool != "second" {
		t.Errorf("results out of order: %+v", results)
	}
}

func TestReposFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Install.ToolsDir = t.TempDir()

	repos, err := ReposFromConfig(cfg)
	if err != nil {
		t.Fatalf("ReposFromConfig() error = %v", err)
	}
	if len(repos) != 1 {
		t.Fatalf("got %d repos, want the default OneListForAll", len(repos))
	}

	srcDir, err := cfg.SrcDir()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(srcDir, "OneListForAll")
	if repos[0].Dir != want {
		t.Errorf("dir = %q, want %q", repos[0].Dir, want)
	}
	if len(repos[0].URLs) != 2 {
		t.Errorf("urls = %v, want primary plus mirror", repos[0].URLs)
	}
}

func TestReposFromConfigHonorsWordlistDir(t *testing.T) {
	custom := t.TempDir()
	cfg := config.Default()
	cfg.Install.ToolsDir = t.TempDir()
	cfg.Wordlists.Dir = custom

	repos, err := ReposFromConfig(cfg)
	if err != nil {
		t.Fatalf("ReposFromConfig() error = %v", err)
	}
	if repos[0].Dir != filepath.Join(custom, "OneListForAll") {
		t.Errorf("dir = %q, want it under the override %q", repos[0].Dir, custom)
	}
}
