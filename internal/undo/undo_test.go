package undo

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbruxvoort/file-renamer/internal/organizer"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRecordBatchKeepsNewestFirstAndBounded(t *testing.T) {
	ledger := New(filepath.Join(t.TempDir(), "history.json"), WithMaxBatches(3))

	for i := 0; i < 5; i++ {
		_, err := ledger.RecordBatch([]organizer.MoveRecord{{Src: "/a" + strconv.Itoa(i), Dest: "/b"}})
		require.NoError(t, err)
	}

	history, err := ledger.History()
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "/a4", history[0].Moves[0].Src)
	assert.Equal(t, "/a2", history[2].Moves[0].Src)
	assert.NotEmpty(t, history[0].ID)
}

func TestRecordEmptyBatchIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	ledger := New(path)

	batch, err := ledger.RecordBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, batch.ID)
	assert.NoFileExists(t, path)
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.json")
	_, err := New(path).RecordBatch([]organizer.MoveRecord{{Src: "/x", Dest: "/y"}})
	require.NoError(t, err)

	history, err := New(path).History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "/y", history[0].Moves[0].Dest)
}

func TestUndoRestoresFilesAndPrunesToFloor(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "inbox", "Show")
	moviesDir := filepath.Join(root, "library", "Movies")

	src := filepath.Join(srcDir, "The.Matrix.1999.mkv")
	srcSub := filepath.Join(srcDir, "The.Matrix.1999.en.srt")
	dest := filepath.Join(moviesDir, "The Matrix (1999)", "The Matrix (1999).mkv")
	destSub := filepath.Join(moviesDir, "The Matrix (1999)", "The Matrix (1999).en.srt")
	write(t, dest, "video")
	write(t, destSub, "subs")

	ledger := New(filepath.Join(root, "history.json"), WithFloors(moviesDir))
	_, err := ledger.RecordBatch([]organizer.MoveRecord{
		{Src: src, Dest: dest},
		{Src: srcSub, Dest: destSub, Associated: true},
	})
	require.NoError(t, err)

	report, err := ledger.UndoLastBatch(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 2, report.RestoredCount)
	assert.Equal(t, 0, report.FailureCount)
	assert.Equal(t, "video", read(t, src))
	assert.Equal(t, "subs", read(t, srcSub))
	assert.NoDirExists(t, filepath.Join(moviesDir, "The Matrix (1999)"))
	assert.DirExists(t, moviesDir)

	history, err := ledger.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUndoReversesInOrder(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.mkv")
	b := filepath.Join(root, "b.mkv")
	c := filepath.Join(root, "c.mkv")
	write(t, c, "data")

	ledger := New(filepath.Join(root, "h.json"), WithFloors(root))
	_, err := ledger.RecordBatch([]organizer.MoveRecord{{Src: a, Dest: b}, {Src: b, Dest: c}})
	require.NoError(t, err)

	report, err := ledger.UndoLastBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.RestoredCount)
	assert.Equal(t, "data", read(t, a))
	assert.NoFileExists(t, c)
}

func TestUndoReportsConflictsAndStillDropsBatch(t *testing.T) {
	root := t.TempDir()
	occupiedSrc := filepath.Join(root, "src", "occupied.mkv")
	occupiedDest := filepath.Join(root, "dest", "occupied.mkv")
	write(t, occupiedSrc, "new file")
	write(t, occupiedDest, "moved")

	missingSrc := filepath.Join(root, "src", "gone.mkv")
	missingDest := filepath.Join(root, "dest", "gone.mkv")

	ledger := New(filepath.Join(root, "h.json"), WithFloors(root))
	_, err := ledger.RecordBatch([]organizer.MoveRecord{{Src: "/older", Dest: "/older"}})
	require.NoError(t, err)
	_, err = ledger.RecordBatch([]organizer.MoveRecord{
		{Src: occupiedSrc, Dest: occupiedDest},
		{Src: missingSrc, Dest: missingDest},
	})
	require.NoError(t, err)

	report, err := ledger.UndoLastBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.RestoredCount)
	assert.Equal(t, 2, report.FailureCount)
	assert.Contains(t, report.Failures[0].Error, "file missing")
	assert.Contains(t, report.Failures[1].Error, "occupied")
	assert.Equal(t, "new file", read(t, occupiedSrc))
	assert.Equal(t, "moved", read(t, occupiedDest))

	history, err := ledger.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "/older", history[0].Moves[0].Src)
}

func TestUndoEmptyHistory(t *testing.T) {
	ledger := New(filepath.Join(t.TempDir(), "h.json"))

	report, err := ledger.UndoLastBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, "No history found.", report.Message)
}

func TestCorruptLedgerIsMovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h.json")
	write(t, path, "{not json")

	ledger := New(path)
	history, err := ledger.History()
	require.NoError(t, err)
	assert.Empty(t, history)

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = ledger.RecordBatch([]organizer.MoveRecord{{Src: "/a", Dest: "/b"}})
	require.NoError(t, err)
}

func TestUndoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(filepath.Join(t.TempDir(), "h.json")).UndoLastBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
