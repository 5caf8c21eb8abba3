package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbruxvoort/file-renamer/internal/activity"
	"github.com/kbruxvoort/file-renamer/internal/config"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/scanner"
	"github.com/kbruxvoort/file-renamer/internal/service"
	"github.com/kbruxvoort/file-renamer/internal/ui"
	"github.com/kbruxvoort/file-renamer/internal/undo"
	"github.com/kbruxvoort/file-renamer/internal/watcher"
)

// setupHome points the app directory and destination root at temp dirs.
func setupHome(t *testing.T) (home, dest string) {
	t.Helper()
	home = t.TempDir()
	dest = filepath.Join(t.TempDir(), "library")
	t.Setenv("RENAMER_HOME", home)
	t.Setenv("DEST_DIR", dest)
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("SOURCE_DIR", "")
	return home, dest
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "renamer "+service.Version)
}

func TestConfigCommands(t *testing.T) {
	home, _ := setupHome(t)
	path := filepath.Join(home, "config.toml")

	out, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	_, err = run(t, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = run(t, "config", "init")
	assert.Error(t, err)
	_, err = run(t, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = run(t, "config", "set", "scan.concurrency", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated scan.concurrency = 8")

	out, err = run(t, "config", "set", "TMDB_API_KEY", "abcdefgh1234")
	require.NoError(t, err)
	assert.Contains(t, out, "********1234")
	assert.NotContains(t, out, "abcdefgh1234")

	_, err = run(t, "config", "set", "no.such.key", "1")
	assert.ErrorIs(t, err, config.ErrUnknownKey)

	out, err = run(t, "config", "show", "--json")
	require.NoError(t, err)
	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, 8, shown.Scan.Concurrency)
	assert.Equal(t, "********1234", shown.Providers.TMDB.APIKey)

	out, err = run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "concurrency = 8")
}

func TestExplicitConfigFlag(t *testing.T) {
	setupHome(t)
	path := filepath.Join(t.TempDir(), "custom.toml")

	_, err := run(t, "--config", path, "config", "set", "MIN_VIDEO_SIZE_MB", "10")
	require.NoError(t, err)

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Scan.MinVideoSizeMB)
}

func TestScanExecuteUndoFlow(t *testing.T) {
	_, dest := setupHome(t)
	in := t.TempDir()
	src := filepath.Join(in, "Heat.1995.mkv")
	require.NoError(t, os.WriteFile(src, []byte("movie"), 0644))

	out, err := run(t, "scan", in, "--min-size", "0", "--json")
	require.NoError(t, err)
	var plan []plannedMove
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Len(t, plan, 1)
	want := filepath.Join(dest, "Movies", "Heat (1995)", "Heat (1995).mkv")
	assert.Equal(t, want, plan[0].Proposed)
	assert.Equal(t, media.TypeMovie, plan[0].Type)
	assert.FileExists(t, src)

	out, err = run(t, "scan", in, "--min-size", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "DRY RUN")
	assert.Contains(t, out, "Heat.1995.mkv")

	out, err = run(t, "scan", in, "--min-size", "0", "--execute", "--auto", "--json")
	require.NoError(t, err)
	var report service.ExecuteReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Moved, 1)
	assert.Equal(t, want, report.Moved[0].Dest)
	assert.FileExists(t, want)
	assert.NoFileExists(t, src)
	assert.DirExists(t, in)

	out, err = run(t, "history", "--json")
	require.NoError(t, err)
	var batches []undo.Batch
	require.NoError(t, json.Unmarshal([]byte(out), &batches))
	require.Len(t, batches, 1)
	assert.Equal(t, report.BatchID, batches[0].ID)

	out, err = run(t, "history", "--activity", "5", "--json")
	require.NoError(t, err)
	var entries []activity.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, activity.ActionMove, entries[0].Action)

	out, err = run(t, "undo", "--json")
	require.NoError(t, err)
	var undone undo.Report
	require.NoError(t, json.Unmarshal([]byte(out), &undone))
	assert.True(t, undone.Success)
	assert.Equal(t, 1, undone.RestoredCount)
	assert.FileExists(t, src)

	out, err = run(t, "undo")
	require.NoError(t, err)
	assert.Contains(t, out, "No history found.")
}

func TestScanEmptyDirectory(t *testing.T) {
	setupHome(t)

	out, err := run(t, "scan", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No media files found.")
}

func TestScanMissingPath(t *testing.T) {
	setupHome(t)

	_, err := run(t, "scan", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, service.ErrPathNotFound)
}

func TestSearchRejectsUnknownType(t *testing.T) {
	setupHome(t)

	_, err := run(t, "search", "heat", "--type", "podcast")
	assert.Error(t, err)
}

func TestHealthCommand(t *testing.T) {
	setupHome(t)

	out, err := run(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "providers.tmdb.api_key")
}

func newPlanService(t *testing.T) *service.Service {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Destinations.Root = filepath.Join(t.TempDir(), "library")
	cfg.Undo.HistoryFile = filepath.Join(t.TempDir(), "history.json")
	cfg.Activity.Enabled = false
	svc, err := service.New(cfg)
	require.NoError(t, err)
	return svc
}

func ambiguousResult() scanner.Result {
	y1999, y2003 := 1999, 2003
	return scanner.Result{
		Path:         "/in/The.Matrix.mkv",
		Root:         "/in",
		Identity:     media.Identity{Type: media.TypeMovie, Title: "The Matrix"},
		ProposedPath: "/lib/Movies/The Matrix (1999)/The Matrix (1999).mkv",
		Candidates: []media.Candidate{
			{Title: "The Matrix", Year: &y1999, Type: media.TypeMovie},
			{Title: "The Matrix Reloaded", Year: &y2003, Type: media.TypeMovie},
		},
	}
}

func TestBuildPlanPicksCandidate(t *testing.T) {
	svc := newPlanService(t)

	var asked []ui.PickOption
	pick := func(header string, options []ui.PickOption) (ui.PickResult, error) {
		asked = options
		return ui.PickResult{Index: 1}, nil
	}

	plan, err := buildPlan(svc, []scanner.Result{ambiguousResult()}, true, pick)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Len(t, asked, 2)
	assert.Equal(t, "The Matrix (1999)", asked[0].Label)
	require.NotNil(t, plan[0].Candidate)
	assert.Equal(t, "The Matrix Reloaded", plan[0].Candidate.Title)
	assert.Equal(t, filepath.Join(svc.Config().Destinations.For(media.TypeMovie), "The Matrix Reloaded (2003)", "The Matrix Reloaded (2003).mkv"), plan[0].Proposed)
	assert.Equal(t, "/in", plan[0].item().Root)
}

func TestBuildPlanSkipQuitAndAuto(t *testing.T) {
	svc := newPlanService(t)
	results := []scanner.Result{ambiguousResult()}

	skip := func(string, []ui.PickOption) (ui.PickResult, error) {
		return ui.PickResult{Index: -1, Skipped: true}, nil
	}
	plan, err := buildPlan(svc, results, true, skip)
	require.NoError(t, err)
	assert.True(t, plan[0].Skipped)
	assert.Nil(t, plan[0].Candidate)

	quit := func(string, []ui.PickOption) (ui.PickResult, error) {
		return ui.PickResult{Index: -1, Quit: true}, nil
	}
	_, err = buildPlan(svc, results, true, quit)
	assert.ErrorIs(t, err, errAborted)

	never := func(string, []ui.PickOption) (ui.PickResult, error) {
		t.Fatal("picker must not be called")
		return ui.PickResult{}, nil
	}
	plan, err = buildPlan(svc, results, false, never)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", plan[0].Candidate.Title)
	assert.Equal(t, results[0].ProposedPath, plan[0].Proposed)

	noCandidates := ambiguousResult()
	noCandidates.Candidates = nil
	plan, err = buildPlan(svc, []scanner.Result{noCandidates}, true, never)
	require.NoError(t, err)
	assert.Nil(t, plan[0].Candidate)
	assert.False(t, plan[0].Skipped)
}

func TestFormatterHelpers(t *testing.T) {
	y := 1999
	assert.Equal(t, "The Matrix (1999)", candidateLabel(media.Candidate{Title: "The Matrix", Year: &y}))
	assert.Equal(t, "Dune by Frank Herbert", candidateLabel(media.Candidate{Title: "Dune", Author: "Frank Herbert"}))
	assert.Equal(t, "Show (1999) - Pilot", candidateLabel(media.Candidate{Title: "Show", Year: &y, EpisodeTitle: "Pilot"}))

	assert.Equal(t, "12345678", shortID("12345678-aaaa-bbbb"))
	assert.Equal(t, "abc", shortID("abc"))

	root := filepath.Join(string(filepath.Separator), "lib")
	assert.Equal(t, filepath.Join("Movies", "x.mkv"), relativeTo(root, filepath.Join(root, "Movies", "x.mkv")))
	outside := filepath.Join(string(filepath.Separator), "other", "x.mkv")
	assert.Equal(t, outside, relativeTo(root, outside))
	assert.Equal(t, "", yearString(nil))
}

func TestWatchHandler(t *testing.T) {
	svc := newPlanService(t)
	svc.Config().Scan.MinVideoSizeMB = 0

	in := t.TempDir()
	src := filepath.Join(in, "Heat.1995.mkv")
	require.NoError(t, os.WriteFile(src, []byte("movie"), 0644))
	want := filepath.Join(svc.Config().Destinations.For(media.TypeMovie), "Heat (1995)", "Heat (1995).mkv")
	ev := watcher.Event{Path: src, Root: in}

	var out bytes.Buffer
	watchHandler(&out, svc, true)(context.Background(), ev)
	assert.Contains(t, out.String(), "Would move:")
	assert.FileExists(t, src)

	out.Reset()
	watchHandler(&out, svc, false)(context.Background(), ev)
	assert.Contains(t, out.String(), "Moved:")
	assert.FileExists(t, want)
	assert.NoFileExists(t, src)

	history, err := svc.History()
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestWatchRequiresSource(t *testing.T) {
	setupHome(t)

	_, err := run(t, "watch")
	assert.ErrorIs(t, err, service.ErrNoSource)
}
