// Package fileutil holds filesystem helpers shared by the mover and the undo
// ledger.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const maxUniqueAttempts = 10000

// UniquePath returns path when it is free, otherwise the first free
// "<stem> (n)<ext>" for n = 1, 2, 3...
func UniquePath(path string) (string, error) {
	free, err := isFree(path)
	if err != nil || free {
		return path, err
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	for n := 1; n <= maxUniqueAttempts; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		free, err := isFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("exhausted unique filename slots for %s", path)
}

func isFree(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	return false, err
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CleanResult lists the directories removed by CleanEmptyDirs, deepest first.
type CleanResult struct {
	Removed []string
	// StoppedAt is the directory where the ascent ended.
	StoppedAt string
}

// CleanEmptyDirs removes start if it is empty, then its parent, and so on.
// The ascent stops at the first non-empty directory, at any of floors (which
// are never removed), at the filesystem root, or at the first OS error.
func CleanEmptyDirs(start string, floors ...string) CleanResult {
	var result CleanResult

	dir := filepath.Clean(start)
	floorSet := make(map[string]bool, len(floors))
	for _, f := range floors {
		if f != "" {
			floorSet[filepath.Clean(f)] = true
		}
	}

	for {
		result.StoppedAt = dir
		if floorSet[dir] || isRoot(dir) {
			return result
		}

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return result
		}
		if err := os.Remove(dir); err != nil {
			return result
		}
		result.Removed = append(result.Removed, dir)

		dir = filepath.Dir(dir)
	}
}

func isRoot(dir string) bool {
	return filepath.Dir(dir) == dir || dir == "."
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory followed by a rename, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	syncDir(dir)
	return nil
}

func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	if f, err := os.Open(dir); err == nil {
		f.Sync()
		f.Close()
	}
}
