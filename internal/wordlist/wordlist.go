// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wordlist

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/installer"
	"github.com/jeranaias/reconrig/internal/report"
	"github.com/jeranaias/reconrig/internal/util"
)

// =============================================================================
// REPOS
// =============================================================================

// Repo is one wordlist repository to keep cloned locally.
type Repo struct {
	Name string   // display name, also the checkout directory name
	URLs []string // clone URLs, tried in order
	Dir  string   // absolute checkout path
}

// ReposFromConfig resolves the configured wordlist repos to absolute
// checkout paths under the wordlist directory.
func ReposFromConfig(cfg *config.Config) ([]Repo, error) {
	baseDir, err := cfg.WordlistDir()
	if err != nil {
		return nil, err
	}

	repos := make([]Repo, 0, len(cfg.Wordlists.Repos))
	for _, rc := range cfg.Wordlists.Repos {
		repos = append(repos, Repo{
			Name: rc.Name,
			URLs: append([]string(nil), rc.URLs...),
			Dir:  filepath.Join(baseDir, rc.Name),
		})
	}
	return repos, nil
}

// =============================================================================
// FETCHER
// =============================================================================

// Fetcher clones or updates wordlist repos through git. It satisfies
// the install engine's WordlistSyncer.
type Fetcher struct {
	repos  []Repo
	runner installer.Runner
	out    io.Writer
	dryRun bool
}

// NewFetcher builds a Fetcher. A nil runner executes real commands; a
// nil out writes to stdout.
func NewFetcher(repos []Repo, runner installer.Runner, out io.Writer, dryRun bool) *Fetcher {
	if runner == nil {
		runner = installer.NewExecRunner()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Fetcher{repos: repos, runner: runner, out: out, dryRun: dryRun}
}

// Repos returns the fetcher's repo list.
func (f *Fetcher) Repos() []Repo {
	return f.repos
}

// SyncAll syncs every repo and returns one result each. Failures are
// results, not errors: wordlists are the best-effort tier.
func (f *Fetcher) SyncAll(ctx context.Context) []report.Result {
	results := make([]report.Result, 0, len(f.repos))
	for _, repo := range f.repos {
		results = append(results, f.Sync(ctx, repo))
	}
	return results
}

// Sync clones the repo when absent and fast-forwards it when already
// checked out.
func (f *Fetcher) Sync(ctx context.Context, repo Repo) report.Result {
	start := time.Now()
	res := report.Result{Tool: repo.Name, Kind: "git", Path: repo.Dir}

	if _, ok := f.runner.LookPath("git"); !ok {
		res.Status = report.StatusFailed
		res.Err = "git is not available"
		res.Duration = time.Since(start)
		return res
	}

	if util.DirExists(filepath.Join(repo.Dir, ".git")) {
		res = f.update(ctx, repo, res)
	} else {
		res = f.clone(ctx, repo, res)
	}
	res.Duration = time.Since(start)
	return res
}

// update fast-forwards an existing checkout. Local edits make the pull
// fail rather than being overwritten.
func (f *Fetcher) update(ctx context.Context, repo Repo, res report.Result) report.Result {
	if f.dryRun {
		res.Status = report.StatusSkipped
		res.Detail = "dry run: would update " + repo.Dir
		return res
	}

	cmd := installer.Cmd("git", "-C", repo.Dir, "pull", "--ff-only")
	fmt.Fprintf(f.out, "  $ %s\n", cmd)

	if err := f.runner.Run(ctx, cmd); err != nil {
		res.Status = report.StatusFailed
		res.Err = fmt.Sprintf("pull failed: %v", err)
		return res
	}
	res.Status = report.StatusPresent
	res.Detail = "updated"
	return res
}

// clone makes a shallow checkout, trying each URL until one works.
// Wordlist repos are large; history is dead weight here.
func (f *Fetcher) clone(ctx context.Context, repo Repo, res report.Result) report.Result {
	if len(repo.URLs) == 0 {
		res.Status = report.StatusFailed
		res.Err = "no clone URLs configured"
		return res
	}

	if f.dryRun {
		res.Status = report.StatusSkipped
		res.Detail = "dry run: would clone " + repo.URLs[0]
		return res
	}

	var lastErr error
	for i, url := range repo.URLs {
		cmd := installer.Cmd("git", "clone", "--depth", "1", url, repo.Dir)
		fmt.Fprintf(f.out, "  $ %s\n", cmd)

		if err := f.runner.Run(ctx, cmd); err != nil {
			lastErr = fmt.Errorf("%s: %w", url, err)
			continue
		}

		res.Status = report.StatusInstalled
		if i > 0 {
			res.Detail = "via fallback " + url
		}
		return res
	}

	res.Status = report.StatusFailed
	res.Err = lastErr.Error()
	return res
}
