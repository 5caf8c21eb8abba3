// Package organizer moves a media file and its sidecar files to a new
// location under one stem and prunes the directories left empty behind it.
package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/fileutil"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/transfer"
)

// MoveRecord is one file moved from Src to Dest.
type MoveRecord struct {
	Src        string `json:"src"`
	Dest       string `json:"dest"`
	Associated bool   `json:"associated"`
}

// MoveResult describes the outcome of moving one main file with its
// associated files.
type MoveResult struct {
	SourcePath string
	TargetPath string
	Records    []MoveRecord
	// AssociatedErrors holds failures for sidecars; the main move still
	// counts as done.
	AssociatedErrors []error
	Cleaned          []string
	DryRun           bool
}

// ProgressFunc receives the bytes copied so far while file is copied across
// filesystems. Same-filesystem renames do not report progress.
type ProgressFunc func(file string, copied, total int64)

type Organizer struct {
	dryRun     bool
	floors     []string
	transferer transfer.Transferer
	progress   ProgressFunc
	logger     *logging.Logger
}

// NewOrganizer creates an organizer. By default it moves for real, has no
// cleanup floor and uses the native transferer.
func NewOrganizer(options ...func(*Organizer)) *Organizer {
	org := &Organizer{
		transferer: transfer.New(),
		logger:     logging.Nop(),
	}
	for _, opt := range options {
		opt(org)
	}
	return org
}

// WithDryRun sets dry run mode
func WithDryRun(dryRun bool) func(*Organizer) {
	return func(o *Organizer) {
		o.dryRun = dryRun
	}
}

// WithSourceRoot adds a directory the post-move cleanup never removes.
func WithSourceRoot(root string) func(*Organizer) {
	return WithCleanupFloors(root)
}

// WithCleanupFloors adds directories the post-move cleanup never removes.
func WithCleanupFloors(floors ...string) func(*Organizer) {
	return func(o *Organizer) {
		for _, f := range floors {
			if f != "" {
				o.floors = append(o.floors, filepath.Clean(f))
			}
		}
	}
}

// WithTransferer replaces the transfer backend.
func WithTransferer(t transfer.Transferer) func(*Organizer) {
	return func(o *Organizer) {
		if t != nil {
			o.transferer = t
		}
	}
}

// WithProgress reports cross-device copy progress to fn.
func WithProgress(fn ProgressFunc) func(*Organizer) {
	return func(o *Organizer) {
		o.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) func(*Organizer) {
	return func(o *Organizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// FindAssociated lists the files next to mainPath whose name is the main
// stem followed by '.', '-', '_' or a space. The main file is excluded.
func FindAssociated(mainPath string) ([]string, error) {
	dir := filepath.Dir(mainPath)
	mainName := filepath.Base(mainPath)
	stem := strings.TrimSuffix(mainName, filepath.Ext(mainName))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var associated []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == mainName || len(name) <= len(stem) {
			continue
		}
		if !strings.HasPrefix(name, stem) {
			continue
		}
		if strings.IndexByte(".-_ ", name[len(stem)]) < 0 {
			continue
		}
		associated = append(associated, filepath.Join(dir, name))
	}

	sort.Strings(associated)
	return associated, nil
}

// Move moves src to dest, or to the first free "dest (n)" variant when dest
// is taken, and returns the path actually used.
func (o *Organizer) Move(src, dest string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", transfer.ErrSourceNotFound, src)
		}
		return "", err
	}

	// The unique name can be claimed between the check and the move; retry
	// with the next free name.
	for attempt := 0; attempt < 3; attempt++ {
		target, err := fileutil.UniquePath(dest)
		if err != nil {
			return "", err
		}
		if o.dryRun {
			return target, nil
		}

		res, err := o.transferer.Move(src, target, o.transferOptions(src))
		if err == nil {
			if res != nil && !res.Renamed {
				o.logger.Info("organizer", "Copied across filesystems",
					logging.F("file", src),
					logging.F("bytes", res.BytesCopied),
					logging.F("duration", res.Duration))
			}
			return target, nil
		}
		if !errors.Is(err, transfer.ErrDestinationExists) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", transfer.ErrDestinationExists, dest)
}

func (o *Organizer) transferOptions(src string) transfer.TransferOptions {
	if o.progress == nil {
		return transfer.TransferOptions{}
	}
	return transfer.TransferOptions{
		Progress: func(current, total int64) { o.progress(src, current, total) },
	}
}

// MoveWithAssociates moves src to dest (collision-safe), renames and moves
// every associated file under the new stem, then prunes the source directory
// upward. The returned error is non-nil only when the main file could not be
// moved.
func (o *Organizer) MoveWithAssociates(src, dest string) (*MoveResult, error) {
	result := &MoveResult{SourcePath: src, DryRun: o.dryRun}

	associated, err := FindAssociated(src)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Warn("organizer", "Could not list associated files", logging.F("file", src), logging.F("error", err))
	}

	finalDest, err := o.Move(src, dest)
	if err != nil {
		return result, err
	}
	result.TargetPath = finalDest
	result.Records = append(result.Records, MoveRecord{Src: src, Dest: finalDest})
	o.logger.Info("organizer", "Moved file", logging.F("from", src), logging.F("to", finalDest), logging.F("dry_run", o.dryRun))

	oldStem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	newStem := strings.TrimSuffix(filepath.Base(finalDest), filepath.Ext(finalDest))
	destDir := filepath.Dir(finalDest)

	for _, assoc := range associated {
		name := filepath.Base(assoc)
		target := filepath.Join(destDir, newStem+name[len(oldStem):])

		moved, err := o.Move(assoc, target)
		if err != nil {
			o.logger.Error("organizer", "Failed to move associated file", err, logging.F("file", assoc))
			result.AssociatedErrors = append(result.AssociatedErrors, fmt.Errorf("%s: %w", assoc, err))
			continue
		}
		result.Records = append(result.Records, MoveRecord{Src: assoc, Dest: moved, Associated: true})
	}

	if !o.dryRun {
		cleaned := fileutil.CleanEmptyDirs(filepath.Dir(src), o.floors...)
		result.Cleaned = cleaned.Removed
		for _, dir := range cleaned.Removed {
			o.logger.Debug("organizer", "Removed empty directory", logging.F("dir", dir))
		}
	}

	return result, nil
}
