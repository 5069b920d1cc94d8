// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/reconrig/internal/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, started time.Time) *report.Run {
	run := &report.Run{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Platform:   "linux/amd64 (apt, sudo)",
	}
	run.Add(report.Result{Tool: "ffuf", Kind: "go", Status: report.StatusInstalled, Path: "/tools/bin/ffuf", Duration: 1500 * time.Millisecond})
	run.Add(report.Result{Tool: "amass", Kind: "snap", Status: report.StatusFailed, Err: "snap install failed"})
	run.Add(report.Result{Tool: "httpx", Kind: "go", Status: report.StatusPresent, Detail: "already installed"})
	return run
}

func TestRecordAndGetRun(t *testing.T) {
	store := openTestStore(t)
	started := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	run := sampleRun("11111111-2222-3333-4444-555555555555", started)

	require.NoError(t, store.RecordRun(run, 0))

	got, exitCode, err := store.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, 0, exitCode)
	require.Equal(t, run.ID, got.ID)
	require.Equal(t, run.Platform, got.Platform)
	require.True(t, got.StartedAt.Equal(started), "started_at round trip")

	require.Len(t, got.Results, 3)
	require.Equal(t, "ffuf", got.Results[0].Tool)
	require.Equal(t, report.StatusInstalled, got.Results[0].Status)
	require.Equal(t, "/tools/bin/ffuf", got.Results[0].Path)
	require.Equal(t, 1500*time.Millisecond, got.Results[0].Duration)
	require.Equal(t, report.StatusFailed, got.Results[1].Status)
	require.Equal(t, "snap install failed", got.Results[1].Err)
	require.Equal(t, "already installed", got.Results[2].Detail)
}

func TestGetRunByPrefix(t *testing.T) {
	store := openTestStore(t)
	started := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordRun(sampleRun("aaa10000-0000-0000-0000-000000000000", started), 0))
	require.NoError(t, store.RecordRun(sampleRun("aaa20000-0000-0000-0000-000000000000", started.Add(time.Hour)), 1))
	require.NoError(t, store.RecordRun(sampleRun("bbb00000-0000-0000-0000-000000000000", started.Add(2*time.Hour)), 0))

	got, exitCode, err := store.GetRun("bbb")
	require.NoError(t, err)
	require.Equal(t, "bbb00000-0000-0000-0000-000000000000", got.ID)
	require.Equal(t, 0, exitCode)

	_, _, err = store.GetRun("aaa")
	require.ErrorIs(t, err, ErrAmbiguous)

	_, _, err = store.GetRun("zzz")
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = store.GetRun("")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	started := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordRun(sampleRun("aaa10000-0000-0000-0000-000000000000", started), 0))
	require.NoError(t, store.RecordRun(sampleRun("aaa20000-0000-0000-0000-000000000000", started.Add(time.Hour)), 1))
	require.NoError(t, store.RecordRun(sampleRun("aaa30000-0000-0000-0000-000000000000", started.Add(2*time.Hour)), 0))

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "aaa30000-0000-0000-0000-000000000000", runs[0].ID)
	require.Equal(t, "aaa20000-0000-0000-0000-000000000000", runs[1].ID)
	require.Equal(t, 1, runs[1].ExitCode)

	require.Equal(t, 1, runs[0].Counts.Installed)
	require.Equal(t, 1, runs[0].Counts.Failed)
	require.Equal(t, 1, runs[0].Counts.Present)
}

func TestRecordFatalRun(t *testing.T) {
	store := openTestStore(t)

	run := &report.Run{
		ID:         "fatal000-0000-0000-0000-000000000000",
		StartedAt:  time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 14, 10, 0, 5, 0, time.UTC),
		Platform:   "linux/riscv64 (none, none)",
		Fatal:      "no supported package manager found (need apt-get or brew)",
	}
	require.NoError(t, store.RecordRun(run, 1))

	got, exitCode, err := store.GetRun("fatal")
	require.NoError(t, err)
	require.Equal(t, 1, exitCode)
	require.Equal(t, run.Fatal, got.Fatal)
	require.Empty(t, got.Results)
}

func TestRecordDryRunFlag(t *testing.T) {
	store := openTestStore(t)
	run := sampleRun("d0000000-0000-0000-0000-000000000000", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	run.DryRun = true

	require.NoError(t, store.RecordRun(run, 0))

	got, _, err := store.GetRun(run.ID)
	require.NoError(t, err)
	require.True(t, got.DryRun)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.True(t, runs[0].DryRun)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	run := sampleRun("11111111-0000-0000-0000-000000000000", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, store.RecordRun(run, 0))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run.ID, runs[0].ID)
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store := openTestStore(t)
	run := sampleRun("11111111-0000-0000-0000-000000000000", time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))

	require.NoError(t, store.RecordRun(run, 0))
	err := store.RecordRun(run, 0)
	require.Error(t, err, "run ids are primary keys")

	// The failed insert must not leave partial results behind.
	got, _, getErr := store.GetRun(run.ID)
	require.NoError(t, getErr)
	require.Len(t, got.Results, len(run.Results))
}
