package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSized(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestWalkFilters(t *testing.T) {
	root := t.TempDir()
	big := bytesPerMB + 1

	writeSized(t, filepath.Join(root, "Movie.2001.mkv"), big)
	writeSized(t, filepath.Join(root, "tiny.mkv"), 10)
	writeSized(t, filepath.Join(root, "Movie.2001.sample.mkv"), big)
	writeSized(t, filepath.Join(root, "notes.txt"), 10)
	writeSized(t, filepath.Join(root, "book.epub"), 10)
	writeSized(t, filepath.Join(root, "audio", "chapter.m4b"), 10)
	writeSized(t, filepath.Join(root, ".hidden", "Other.2002.mkv"), big)
	writeSized(t, filepath.Join(root, ".dotfile.mkv"), big)

	files, err := NewWalker(true, nil).Walk(context.Background(), root, 1)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"Movie.2001.mkv", "book.epub", "audio/chapter.m4b"}, names)
}

func TestWalkKeepsSamplesWhenAllowed(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "clip.sample.mkv"), 10)

	files, err := NewWalker(false, nil).Walk(context.Background(), root, 0)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestExpandPassesKnownFilesThrough(t *testing.T) {
	root := t.TempDir()
	small := filepath.Join(root, "tiny.mkv")
	text := filepath.Join(root, "readme.txt")
	writeSized(t, small, 10)
	writeSized(t, text, 10)

	files, err := NewWalker(true, nil).Expand(context.Background(),
		[]string{small, text, small, filepath.Join(root, "missing.mkv")}, 50)
	require.NoError(t, err)

	assert.Equal(t, []Found{{Path: small, Root: root}}, files, "explicit files skip the size filter and are deduplicated")
}

func TestExpandWalksDirectories(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a", "x.epub"), 1)
	writeSized(t, filepath.Join(root, "b", "y.epub"), 1)

	files, err := NewWalker(true, nil).Expand(context.Background(), []string{root}, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, root, files[0].Root)
}

func TestAcceptMatchesWalkFilters(t *testing.T) {
	root := t.TempDir()
	big := filepath.Join(root, "Movie.2001.mkv")
	tiny := filepath.Join(root, "tiny.mkv")
	sample := filepath.Join(root, "Movie.2001.sample.mkv")
	book := filepath.Join(root, "book.epub")
	writeSized(t, big, bytesPerMB+1)
	writeSized(t, tiny, 10)
	writeSized(t, sample, bytesPerMB+1)
	writeSized(t, book, 10)

	w := NewWalker(true, nil)
	assert.True(t, w.Accept(big, 1))
	assert.False(t, w.Accept(tiny, 1))
	assert.True(t, w.Accept(tiny, 0))
	assert.False(t, w.Accept(sample, 1))
	assert.True(t, w.Accept(book, 1))
	assert.False(t, w.Accept(filepath.Join(root, "notes.txt"), 0))
	assert.False(t, w.Accept(filepath.Join(root, "missing.mkv"), 1))
}
