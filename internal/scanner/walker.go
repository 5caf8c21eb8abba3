package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
)

const bytesPerMB = 1024 * 1024

// Walker finds media files under a set of paths.
type Walker struct {
	ignoreSamples bool
	skipPatterns  []string
	logger        *logging.Logger
}

// NewWalker creates a walker. With ignoreSamples set, files whose name
// contains "sample" are skipped.
func NewWalker(ignoreSamples bool, logger *logging.Logger) *Walker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Walker{
		ignoreSamples: ignoreSamples,
		skipPatterns:  []string{"sample"},
		logger:        logger,
	}
}

// Found is a media file and the input path it was reached from.
type Found struct {
	Path string
	Root string
}

// Expand turns input paths into media files. Files are kept when their
// extension is known and use their own directory as root; directories are
// walked recursively.
func (w *Walker) Expand(ctx context.Context, paths []string, minVideoSizeMB float64) ([]Found, error) {
	var out []Found
	seen := make(map[string]bool)

	add := func(p, root string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, Found{Path: p, Root: root})
		}
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		info, err := os.Stat(abs)
		if err != nil {
			w.logger.Warn("scanner", "Skipping unreadable path", logging.F("path", p), logging.F("error", err))
			continue
		}

		if !info.IsDir() {
			if media.IsKnown(abs) {
				add(abs, filepath.Dir(abs))
			}
			continue
		}

		files, err := w.Walk(ctx, abs, minVideoSizeMB)
		if err != nil {
			return out, err
		}
		for _, f := range files {
			add(f, abs)
		}
	}
	return out, nil
}

// Walk returns every accepted media file under root.
func (w *Walker) Walk(ctx context.Context, root string, minVideoSizeMB float64) ([]string, error) {
	minBytes := int64(minVideoSizeMB * bytesPerMB)
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			w.logger.Warn("scanner", "Walk error", logging.F("path", path), logging.F("error", err))
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		kind := media.ClassifyPath(path)
		if kind == media.KindOther {
			return nil
		}
		if w.isExtraContent(d.Name()) {
			return nil
		}
		if kind == media.KindVideo && minBytes > 0 {
			info, err := d.Info()
			if err != nil || info.Size() < minBytes {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func (w *Walker) isExtraContent(name string) bool {
	if !w.ignoreSamples {
		return false
	}
	lower := strings.ToLower(name)
	for _, pattern := range w.skipPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Accept reports whether a single file passes the filters Walk applies.
func (w *Walker) Accept(path string, minVideoSizeMB float64) bool {
	kind := media.ClassifyPath(path)
	if kind == media.KindOther || w.isExtraContent(filepath.Base(path)) {
		return false
	}
	if kind == media.KindVideo && minVideoSizeMB > 0 {
		info, err := os.Stat(path)
		if err != nil || info.Size() < int64(minVideoSizeMB*bytesPerMB) {
			return false
		}
	}
	return true
}
