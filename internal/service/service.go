// Package service wires configuration, providers, scanning, moving, undo
// and the activity journal into the operations the CLI and HTTP API expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbruxvoort/file-renamer/internal/activity"
	"github.com/kbruxvoort/file-renamer/internal/audiotag"
	"github.com/kbruxvoort/file-renamer/internal/config"
	"github.com/kbruxvoort/file-renamer/internal/googlebooks"
	"github.com/kbruxvoort/file-renamer/internal/httpx"
	"github.com/kbruxvoort/file-renamer/internal/itunes"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/naming"
	"github.com/kbruxvoort/file-renamer/internal/organizer"
	"github.com/kbruxvoort/file-renamer/internal/paths"
	"github.com/kbruxvoort/file-renamer/internal/resolver"
	"github.com/kbruxvoort/file-renamer/internal/scanner"
	"github.com/kbruxvoort/file-renamer/internal/tmdb"
	"github.com/kbruxvoort/file-renamer/internal/transfer"
	"github.com/kbruxvoort/file-renamer/internal/undo"
)

// Version is reported by the health endpoint and the version command.
var Version = "1.0.0"

var (
	ErrNoSource     = errors.New("no scan path given and scan.source_root is not set")
	ErrPathNotFound = errors.New("path not found")
	ErrEmptyQuery   = errors.New("query must not be empty")
	ErrUnknownType  = errors.New("unknown media type")
)

// ExecuteItem is one file the user confirmed for moving. A nil Candidate
// moves the file under its parsed identity.
type ExecuteItem struct {
	Path      string           `json:"original_path"`
	Candidate *media.Candidate `json:"selected_candidate,omitempty"`

	// Root is the scan root the file was found under. It stops the empty
	// directory prune after the move.
	Root string `json:"root,omitempty"`
}

type ItemError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ExecuteReport lists every file moved in one batch and every file that
// could not be.
type ExecuteReport struct {
	BatchID string                 `json:"batch_id,omitempty"`
	Moved   []organizer.MoveRecord `json:"moved"`
	Errors  []ItemError            `json:"errors"`
}

type Service struct {
	cfg        *config.Config
	logger     *logging.Logger
	parser     *naming.Parser
	renderer   *naming.Renderer
	resolver   *resolver.Resolver
	walker     *scanner.Walker
	transferer transfer.Transferer
	ledger     *undo.Ledger
	journal    *activity.Journal
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResolver replaces the provider-backed resolver built from config.
func WithResolver(r *resolver.Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

func WithJournal(j *activity.Journal) Option {
	return func(s *Service) { s.journal = j }
}

func WithTransferer(t transfer.Transferer) Option {
	return func(s *Service) {
		if t != nil {
			s.transferer = t
		}
	}
}

// New builds a service from cfg. Providers without credentials are left
// out and their lookups return no candidates.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Service{
		cfg:        cfg,
		logger:     logging.Nop(),
		parser:     naming.NewParser(naming.DefaultStrategies()...),
		transferer: transfer.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.renderer = naming.NewRenderer(cfg.Templates.ByType(), s.logger)
	s.walker = scanner.NewWalker(cfg.Scan.IgnoreSamples, s.logger)
	if s.resolver == nil {
		s.resolver = newResolver(cfg, s.logger)
	}

	historyPath, err := cfg.Undo.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	s.ledger = undo.New(historyPath,
		undo.WithMaxBatches(cfg.Undo.MaxBatches),
		undo.WithFloors(cfg.Undo.Floors(cfg.Destinations)...),
		undo.WithTransferer(s.transferer),
		undo.WithLogger(s.logger),
	)

	if s.journal == nil && cfg.Activity.Enabled {
		s.journal = openJournal(cfg.Activity, s.logger)
	}
	return s, nil
}

func openJournal(cfg config.ActivityConfig, logger *logging.Logger) *activity.Journal {
	dir, err := cfg.ActivityDir()
	if err != nil {
		logger.Warn("service", "Activity journal disabled", logging.F("error", err))
		return nil
	}
	journal, err := activity.NewJournal(dir)
	if err != nil {
		logger.Warn("service", "Activity journal disabled", logging.F("error", err))
		return nil
	}
	if cfg.RetentionDays > 0 {
		if removed, err := journal.Prune(cfg.RetentionDays); err != nil {
			logger.Warn("service", "Failed to prune activity journal", logging.F("error", err))
		} else if removed > 0 {
			logger.Debug("service", "Pruned activity journal", logging.F("files", removed))
		}
	}
	return journal
}

func newResolver(cfg *config.Config, logger *logging.Logger) *resolver.Resolver {
	p := cfg.Providers
	client := httpx.NewClient(httpx.Options{
		Timeout:           time.Duration(p.TimeoutSeconds) * time.Second,
		RetryMax:          p.RetryAttempts,
		RequestsPerSecond: p.RequestsPerSecond,
		UserAgent:         "renamer/" + Version,
	})

	opts := []resolver.Option{
		resolver.WithLogger(logger),
		resolver.WithImageBaseURL(p.TMDB.ImageBaseURL),
		resolver.WithBookSearcher(googlebooks.New(p.GoogleBooks.APIKey, p.GoogleBooks.BaseURL, googlebooks.WithHTTPClient(client))),
		resolver.WithAudiobookSearcher(itunes.New(p.ITunes.BaseURL, p.ITunes.Country, itunes.WithHTTPClient(client))),
	}

	if p.TMDB.APIKey == "" {
		logger.Warn("service", "TMDB API key not set, movie and TV lookups disabled",
			logging.F("hint", "renamer config set TMDB_API_KEY <key>"))
	} else if video, err := tmdb.New(p.TMDB.APIKey, p.TMDB.BaseURL, p.TMDB.Language, tmdb.WithHTTPClient(client)); err != nil {
		logger.Error("service", "TMDB client unavailable", err)
	} else {
		opts = append(opts, resolver.WithVideoProvider(video))
	}
	return resolver.New(opts...)
}

func (s *Service) Config() *config.Config { return s.cfg }

func (s *Service) Ledger() *undo.Ledger { return s.ledger }

func (s *Service) Logger() *logging.Logger { return s.logger }

func (s *Service) Close() error {
	return s.journal.Close()
}

// Scan identifies every media file under roots. An empty roots list scans
// scan.source_root; a negative minSizeMB uses scan.min_video_size_mb.
func (s *Service) Scan(ctx context.Context, roots []string, minSizeMB float64) ([]scanner.Result, error) {
	return s.ScanWithProgress(ctx, roots, minSizeMB, nil)
}

func (s *Service) ScanWithProgress(ctx context.Context, roots []string, minSizeMB float64, progress func(scanner.Progress)) ([]scanner.Result, error) {
	if len(roots) == 0 {
		if s.cfg.Scan.SourceRoot == "" {
			return nil, ErrNoSource
		}
		roots = []string{s.cfg.Scan.SourceRoot}
	}
	for _, p := range roots {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
		}
	}
	if minSizeMB < 0 {
		minSizeMB = float64(s.cfg.Scan.MinVideoSizeMB)
	}

	sched := scanner.NewScheduler(s.walker, s.parser, s.resolver, s.renderer, s.cfg.Destinations,
		scanner.WithConcurrency(s.cfg.Scan.Concurrency),
		scanner.WithAudioTags(s.cfg.Scan.ReadAudioTags),
		scanner.WithProgress(progress),
		scanner.WithLogger(s.logger),
	)

	start := s.now()
	results, err := sched.Scan(ctx, roots, minSizeMB)
	s.logger.Info("service", "Scan finished",
		logging.F("paths", strings.Join(roots, ",")),
		logging.F("files", len(results)),
		logging.F("duration", s.now().Sub(start).Round(time.Millisecond)))
	return results, err
}

// identify parses path and overlays the chosen candidate.
func (s *Service) identify(path string, c *media.Candidate) media.Identity {
	id := s.parser.Parse(path)
	if s.cfg.Scan.ReadAudioTags && id.Type == media.TypeAudiobook {
		if enriched, err := audiotag.EnrichFile(path, id); err == nil {
			id = enriched
		}
	}
	if c != nil {
		id = id.Apply(*c)
	}
	return id
}

func (s *Service) destination(path string, id media.Identity) string {
	return filepath.Join(s.cfg.Destinations.For(id.Type), s.renderer.Render(path, id))
}

// Preview returns the absolute path path would be moved to with candidate
// applied.
func (s *Service) Preview(path string, c *media.Candidate) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathNotFound)
	}
	return s.destination(path, s.identify(path, c)), nil
}

// Search queries the provider for t directly. year is ignored when zero.
func (s *Service) Search(ctx context.Context, query string, t media.Type, year int) ([]media.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if !t.Known() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return s.resolver.Search(ctx, query, t, year), nil
}

// Execute moves each item with its associated files and records every
// completed move as one undo batch. Per-file failures are reported in the
// result; the error is non-nil only when the batch could not be recorded.
func (s *Service) Execute(ctx context.Context, items []ExecuteItem) (*ExecuteReport, error) {
	return s.ExecuteWithProgress(ctx, items, nil)
}

// ExecuteWithProgress is Execute with progress reported for files copied
// across filesystems.
func (s *Service) ExecuteWithProgress(ctx context.Context, items []ExecuteItem, progress organizer.ProgressFunc) (*ExecuteReport, error) {
	report := &ExecuteReport{
		Moved:  []organizer.MoveRecord{},
		Errors: []ItemError{},
	}
	var entries []activity.Entry

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, ItemError{File: item.Path, Error: err.Error()})
			continue
		}

		id := s.identify(item.Path, item.Candidate)
		dest := s.destination(item.Path, id)
		org := organizer.NewOrganizer(
			organizer.WithTransferer(s.transferer),
			organizer.WithLogger(s.logger),
			organizer.WithCleanupFloors(s.cleanupFloors(item.Root)...),
			organizer.WithProgress(progress),
		)

		result, err := org.MoveWithAssociates(item.Path, dest)
		if err != nil {
			s.logger.Error("service", "Move failed", err, logging.F("file", item.Path))
			report.Errors = append(report.Errors, ItemError{File: item.Path, Error: err.Error()})
			entries = append(entries, s.entry(activity.ActionMoveFailed, organizer.MoveRecord{Src: item.Path, Dest: dest}, id, err))
			continue
		}

		report.Moved = append(report.Moved, result.Records...)
		for _, rec := range result.Records {
			entries = append(entries, s.entry(activity.ActionMove, rec, id, nil))
		}
		for _, aerr := range result.AssociatedErrors {
			report.Errors = append(report.Errors, ItemError{File: item.Path, Error: aerr.Error()})
		}
	}

	if len(report.Moved) > 0 {
		batch, err := s.ledger.RecordBatch(report.Moved)
		if err != nil {
			s.record(entries)
			return report, fmt.Errorf("record undo batch: %w", err)
		}
		report.BatchID = batch.ID
		for i := range entries {
			if entries[i].Success {
				entries[i].BatchID = batch.ID
			}
		}
	}
	s.record(entries)

	s.logger.Info("service", "Batch executed",
		logging.F("batch_id", report.BatchID),
		logging.F("moved", len(report.Moved)),
		logging.F("errors", len(report.Errors)))
	return report, nil
}

// cleanupFloors are the directories a post-move prune must stop at.
func (s *Service) cleanupFloors(root string) []string {
	floors := []string{root}
	if s.cfg.Scan.SourceRoot != "" {
		if abs, err := filepath.Abs(s.cfg.Scan.SourceRoot); err == nil {
			floors = append(floors, abs)
		}
	}
	if home, err := paths.UserHomeDir(); err == nil {
		floors = append(floors, home)
	}
	return append(floors, s.cfg.Destinations.All()...)
}

// Organize identifies one file and moves it to its top candidate's
// location. Files the scan filters would skip yield an empty report.
// root bounds the directory cleanup; empty means the file's directory.
func (s *Service) Organize(ctx context.Context, path, root string) (*ExecuteReport, error) {
	if !s.walker.Accept(path, float64(s.cfg.Scan.MinVideoSizeMB)) {
		s.logger.Debug("service", "Skipping filtered file", logging.F("file", path))
		return &ExecuteReport{Moved: []organizer.MoveRecord{}, Errors: []ItemError{}}, nil
	}

	results, err := s.Scan(ctx, []string{path}, 0)
	if err != nil {
		return nil, err
	}

	items := make([]ExecuteItem, 0, len(results))
	for _, r := range results {
		item := ExecuteItem{Path: r.Path, Root: root}
		if item.Root == "" {
			item.Root = r.Root
		}
		if len(r.Candidates) > 0 {
			c := r.Candidates[0]
			item.Candidate = &c
		}
		items = append(items, item)
	}
	return s.Execute(ctx, items)
}

// Undo reverses the most recent batch.
func (s *Service) Undo(ctx context.Context) (*undo.Report, error) {
	report, err := s.ledger.UndoLastBatch(ctx)
	if err != nil {
		return nil, err
	}

	var entries []activity.Entry
	for _, m := range report.Restored {
		entries = append(entries, s.entry(activity.ActionUndo, organizer.MoveRecord{Src: m.Dest, Dest: m.Src, Associated: m.Associated}, media.Identity{}, nil))
	}
	for _, f := range report.Failures {
		entries = append(entries, s.entry(activity.ActionUndoFailed, organizer.MoveRecord{Src: f.Dest, Dest: f.Src}, media.Identity{}, errors.New(f.Error)))
	}
	for i := range entries {
		entries[i].BatchID = report.BatchID
	}
	s.record(entries)
	return report, nil
}

// History returns the recorded batches, newest first.
func (s *Service) History() ([]undo.Batch, error) {
	return s.ledger.History()
}

// Activity returns up to limit journal entries, newest first.
func (s *Service) Activity(limit int) ([]activity.Entry, error) {
	return s.journal.Recent(limit)
}

func (s *Service) entry(action activity.Action, rec organizer.MoveRecord, id media.Identity, err error) activity.Entry {
	e := activity.Entry{
		Timestamp:  s.now(),
		Action:     action,
		Source:     rec.Src,
		Target:     rec.Dest,
		Title:      id.Title,
		Year:       id.Year,
		Associated: rec.Associated,
		Success:    err == nil,
	}
	if id.Type != "" {
		e.MediaType = id.Type.String()
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (s *Service) record(entries []activity.Entry) {
	if len(entries) == 0 {
		return
	}
	if err := s.journal.Record(entries...); err != nil {
		s.logger.Warn("service", "Failed to write activity journal", logging.F("error", err))
	}
}
