// Package undo keeps a durable ledger of move batches and reverses the most
// recent one on request.
package undo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/kbruxvoort/file-renamer/internal/fileutil"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/organizer"
	"github.com/kbruxvoort/file-renamer/internal/transfer"
)

// DefaultMaxBatches is how many batches the ledger retains.
const DefaultMaxBatches = 50

var (
	// ErrConflict marks an undo step blocked by the filesystem: the moved
	// file is gone or its original location is occupied.
	ErrConflict = errors.New("undo conflict")
)

// Batch is one execute run.
type Batch struct {
	ID        string                 `json:"batch_id"`
	Timestamp time.Time              `json:"timestamp"`
	Moves     []organizer.MoveRecord `json:"operations"`
}

// Failure is a move that could not be reversed.
type Failure struct {
	Src   string `json:"src"`
	Dest  string `json:"dest"`
	Error string `json:"error"`
}

// Report summarizes an undo.
type Report struct {
	Success       bool      `json:"success"`
	RestoredCount int       `json:"restored_count"`
	FailureCount  int       `json:"failure_count"`
	Failures      []Failure `json:"failures,omitempty"`
	BatchID       string    `json:"batch_id,omitempty"`
	Message       string    `json:"message"`

	// Restored lists the moves that were reversed, in undo order.
	Restored []organizer.MoveRecord `json:"restored,omitempty"`
}

// Ledger stores batches newest first in a JSON file. Every load-modify-save
// cycle holds an advisory lock on a sibling .lock file.
type Ledger struct {
	path       string
	maxBatches int
	floors     []string
	transferer transfer.Transferer
	logger     *logging.Logger
	now        func() time.Time

	mu sync.Mutex
}

type Option func(*Ledger)

func WithMaxBatches(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxBatches = n
		}
	}
}

// WithFloors sets the directories the post-undo prune never removes.
func WithFloors(floors ...string) Option {
	return func(l *Ledger) { l.floors = floors }
}

func WithTransferer(t transfer.Transferer) Option {
	return func(l *Ledger) {
		if t != nil {
			l.transferer = t
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(path string, opts ...Option) *Ledger {
	l := &Ledger{
		path:       path,
		maxBatches: DefaultMaxBatches,
		transferer: transfer.New(),
		logger:     logging.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// RecordBatch prepends a new batch. An empty move list records nothing.
func (l *Ledger) RecordBatch(moves []organizer.MoveRecord) (Batch, error) {
	if len(moves) == 0 {
		return Batch{}, nil
	}

	batch := Batch{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Moves:     append([]organizer.MoveRecord(nil), moves...),
	}

	err := l.withLock(func() error {
		batches, err := l.load()
		if err != nil {
			return err
		}
		batches = append([]Batch{batch}, batches...)
		if len(batches) > l.maxBatches {
			batches = batches[:l.maxBatches]
		}
		return l.save(batches)
	})
	if err != nil {
		return Batch{}, err
	}

	l.logger.Info("undo", "Recorded batch", logging.F("batch", batch.ID), logging.F("moves", len(moves)))
	return batch, nil
}

// History returns all batches, newest first.
func (l *Ledger) History() ([]Batch, error) {
	var batches []Batch
	err := l.withLock(func() error {
		var err error
		batches, err = l.load()
		return err
	})
	if batches == nil {
		batches = []Batch{}
	}
	return batches, err
}

// UndoLastBatch reverses the newest batch, last move first. A move is
// skipped with a failure when its destination is missing or its source
// location is occupied. The batch leaves the ledger either way.
func (l *Ledger) UndoLastBatch(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var report *Report
	err := l.withLock(func() error {
		batches, err := l.load()
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			report = &Report{Success: false, Message: "No history found."}
			return nil
		}

		batch := batches[0]
		report = l.reverse(batch)
		return l.save(batches[1:])
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (l *Ledger) reverse(batch Batch) *Report {
	report := &Report{Success: true, BatchID: batch.ID}

	for i := len(batch.Moves) - 1; i >= 0; i-- {
		m := batch.Moves[i]
		if err := l.restore(m); err != nil {
			report.Failures = append(report.Failures, Failure{Src: m.Src, Dest: m.Dest, Error: err.Error()})
			l.logger.Warn("undo", "Could not restore file", logging.F("from", m.Dest), logging.F("to", m.Src), logging.F("error", err))
			continue
		}
		report.Restored = append(report.Restored, m)
		report.RestoredCount++
	}

	report.FailureCount = len(report.Failures)
	report.Message = fmt.Sprintf("Restored %d of %d files", report.RestoredCount, len(batch.Moves))
	l.logger.Info("undo", "Batch reversed", logging.F("batch", batch.ID),
		logging.F("restored", report.RestoredCount), logging.F("failed", report.FailureCount))
	return report
}

func (l *Ledger) restore(m organizer.MoveRecord) error {
	if !fileutil.Exists(m.Dest) {
		return fmt.Errorf("%w: file missing at %s", ErrConflict, m.Dest)
	}
	if fileutil.Exists(m.Src) {
		return fmt.Errorf("%w: original location occupied: %s", ErrConflict, m.Src)
	}
	if err := os.MkdirAll(filepath.Dir(m.Src), 0755); err != nil {
		return fmt.Errorf("recreate %s: %w", filepath.Dir(m.Src), err)
	}
	if _, err := l.transferer.Move(m.Dest, m.Src, transfer.TransferOptions{}); err != nil {
		return fmt.Errorf("move %s -> %s: %w", m.Dest, m.Src, err)
	}

	cleaned := fileutil.CleanEmptyDirs(filepath.Dir(m.Dest), l.floors...)
	if len(cleaned.Removed) > 0 {
		l.logger.Debug("undo", "Removed empty directories", logging.F("dirs", cleaned.Removed))
	}
	return nil
}

func (l *Ledger) withLock(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	fl := flock.New(l.path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer fl.Unlock()

	return fn()
}

// load reads the ledger. A file that does not parse is moved aside so a
// fresh ledger can start.
func (l *Ledger) load() ([]Batch, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var batches []Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", l.path, l.now().Unix())
		if renameErr := os.Rename(l.path, aside); renameErr != nil {
			return nil, fmt.Errorf("ledger is corrupt and could not be moved aside: %w", err)
		}
		l.logger.Warn("undo", "Ledger was corrupt, starting fresh", logging.F("moved_to", aside), logging.F("error", err))
		return nil, nil
	}
	return batches, nil
}

func (l *Ledger) save(batches []Batch) error {
	if batches == nil {
		batches = []Batch{}
	}
	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := fileutil.WriteFileAtomic(l.path, data, 0600); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
