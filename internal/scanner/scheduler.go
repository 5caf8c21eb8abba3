// Package scanner finds media files and identifies them in directory groups
// with bounded concurrency.
package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kbruxvoort/file-renamer/internal/audiotag"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/naming"
	"github.com/kbruxvoort/file-renamer/internal/quality"
	"github.com/kbruxvoort/file-renamer/internal/resolver"
)

// DefaultConcurrency is the number of lookups in flight when no option
// sets it.
const DefaultConcurrency = 5

// Resolver looks up candidates for one parsed file.
type Resolver interface {
	Resolve(ctx context.Context, cache *resolver.ContextCache, path string, id media.Identity) resolver.Resolution
}

// Destinations maps a media type to its destination directory.
type Destinations interface {
	For(t media.Type) string
}

// Result is the identification of a single file.
type Result struct {
	Path         string            `json:"path"`
	Root         string            `json:"root"`
	Identity     media.Identity    `json:"identity"`
	Candidates   []media.Candidate `json:"candidates"`
	ProposedPath string            `json:"proposed_path"`
	Quality      quality.Tags      `json:"quality"`
}

// Progress is reported after every processed file.
type Progress struct {
	Done  int
	Total int
	Path  string
}

// Scheduler runs a scan. Within one directory, files are identified one at a
// time until the directory has a folder context, after which the rest run
// concurrently. A single semaphore bounds in-flight lookups across all
// directories.
type Scheduler struct {
	walker        *Walker
	parser        *naming.Parser
	resolver      Resolver
	renderer      *naming.Renderer
	destinations  Destinations
	concurrency   int
	readAudioTags bool
	onProgress    func(Progress)
	logger        *logging.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency bounds in-flight lookups. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithAudioTags enables embedded tag enrichment for audiobooks.
func WithAudioTags(enabled bool) Option {
	return func(s *Scheduler) { s.readAudioTags = enabled }
}

// WithProgress registers a callback. It may be called from several
// goroutines at once.
func WithProgress(fn func(Progress)) Option {
	return func(s *Scheduler) { s.onProgress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler wires the scan pipeline: walker finds files, parser reads
// names, res looks up candidates and renderer with dest proposes paths.
func NewScheduler(walker *Walker, parser *naming.Parser, res Resolver, renderer *naming.Renderer, dest Destinations, opts ...Option) *Scheduler {
	s := &Scheduler{
		walker:       walker,
		parser:       parser,
		resolver:     res,
		renderer:     renderer,
		destinations: dest,
		concurrency:  DefaultConcurrency,
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type group struct {
	dir   string
	files []string
}

// groupByDir groups files by parent directory in first-seen order and sorts
// each group by filename.
func groupByDir(files []string) []group {
	var groups []group
	index := make(map[string]int)
	for _, f := range files {
		dir := filepath.Dir(f)
		i, ok := index[dir]
		if !ok {
			i = len(groups)
			index[dir] = i
			groups = append(groups, group{dir: dir})
		}
		groups[i].files = append(groups[i].files, f)
	}
	for i := range groups {
		sort.Slice(groups[i].files, func(a, b int) bool {
			return filepath.Base(groups[i].files[a]) < filepath.Base(groups[i].files[b])
		})
	}
	return groups
}

// Scan identifies every media file reachable from paths. Files that fail
// are logged and left out. Results are ordered by directory group, then
// filename. A cancelled context stops new work and returns what finished.
func (s *Scheduler) Scan(ctx context.Context, paths []string, minVideoSizeMB float64) ([]Result, error) {
	found, err := s.walker.Expand(ctx, paths, minVideoSizeMB)
	if err != nil {
		return nil, err
	}

	files := make([]string, len(found))
	roots := make(map[string]string, len(found))
	for i, f := range found {
		files[i] = f.Path
		roots[f.Path] = f.Root
	}

	groups := groupByDir(files)
	cache := resolver.NewContextCache()
	sem := make(chan struct{}, s.concurrency)
	slots := make([]*Result, len(files))

	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)
	report := func(path string) {
		n := done.Add(1)
		if s.onProgress != nil {
			s.onProgress(Progress{Done: int(n), Total: len(files), Path: path})
		}
	}

	s.logger.Info("scanner", "Scan started", logging.F("files", len(files)), logging.F("groups", len(groups)))

	offset := 0
	for _, g := range groups {
		i := 0
		for ; i < len(g.files) && ctx.Err() == nil && !cache.HasFolder(g.dir); i++ {
			slots[offset+i] = s.processSlot(ctx, sem, cache, g.files[i])
			report(g.files[i])
		}
		for ; i < len(g.files) && ctx.Err() == nil; i++ {
			wg.Add(1)
			go func(slot int, path string) {
				defer wg.Done()
				slots[slot] = s.processSlot(ctx, sem, cache, path)
				report(path)
			}(offset+i, g.files[i])
		}
		offset += len(g.files)
	}
	wg.Wait()

	results := make([]Result, 0, len(files))
	for _, r := range slots {
		if r != nil {
			r.Root = roots[r.Path]
			results = append(results, *r)
		}
	}

	s.logger.Info("scanner", "Scan finished", logging.F("identified", len(results)), logging.F("files", len(files)))
	return results, ctx.Err()
}

func (s *Scheduler) processSlot(ctx context.Context, sem chan struct{}, cache *resolver.ContextCache, path string) (result *Result) {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	defer func() { <-sem }()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scanner", "File processing panicked", fmt.Errorf("%v", r), logging.F("file", path))
			result = nil
		}
	}()

	return s.process(ctx, cache, path)
}

func (s *Scheduler) process(ctx context.Context, cache *resolver.ContextCache, path string) *Result {
	id := s.parser.Parse(path)

	if s.readAudioTags && id.Type == media.TypeAudiobook {
		enriched, err := audiotag.EnrichFile(path, id)
		if err != nil {
			s.logger.Debug("scanner", "No usable audio tags", logging.F("file", path), logging.F("error", err))
		} else {
			id = enriched
		}
	}

	res := s.resolver.Resolve(ctx, cache, path, id)

	merged := res.Identity
	if top, ok := res.Top(); ok {
		merged = merged.Apply(top)
	}
	proposed := filepath.Join(s.destinations.For(merged.Type), s.renderer.Render(path, merged))

	return &Result{
		Path:         path,
		Identity:     res.Identity,
		Candidates:   res.Candidates,
		ProposedPath: proposed,
		Quality:      quality.Parse(path),
	}
}
