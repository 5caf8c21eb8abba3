package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/text/cases"

	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/tmdb"
)

var fold = cases.Fold()

// Directory names that hold unrelated files and never get a folder context.
var mixedDirs = map[string]bool{
	"downloads": true,
	"desktop":   true,
	"documents": true,
	"unsorted":  true,
	"incoming":  true,
}

// IsMixedDir reports whether dir's base name is on the mixed-directory list.
func IsMixedDir(dir string) bool {
	return mixedDirs[fold.String(filepath.Base(dir))]
}

// FolderContext is the show identity shared by every episode in a directory.
type FolderContext struct {
	Type          media.Type
	Title         string
	ExternalID    string
	Primary       media.Candidate
	AllCandidates []media.Candidate
}

func (fc FolderContext) clone() FolderContext {
	out := fc
	out.Primary = fc.Primary.Clone()
	out.AllCandidates = cloneCandidates(fc.AllCandidates)
	return out
}

type rosterKey struct {
	externalID string
	season     int
}

type rosterEntry struct {
	ready  chan struct{}
	season *tmdb.SeasonDetails
	err    error
}

// ContextCache holds folder contexts and season rosters for one scan run.
// All map access goes through mu.
type ContextCache struct {
	mu      sync.Mutex
	folders map[string]FolderContext
	rosters map[rosterKey]*rosterEntry
}

// NewContextCache returns an empty cache for one scan run.
func NewContextCache() *ContextCache {
	return &ContextCache{
		folders: make(map[string]FolderContext),
		rosters: make(map[rosterKey]*rosterEntry),
	}
}

// Folder returns a copy of the context registered for dir.
func (c *ContextCache) Folder(dir string) (FolderContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc, ok := c.folders[dir]
	if !ok {
		return FolderContext{}, false
	}
	return fc.clone(), true
}

// HasFolder reports whether dir has a context.
func (c *ContextCache) HasFolder(dir string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.folders[dir]
	return ok
}

// Register stores fc for dir. An absent context is created, a context with
// no external id is replaced by one that has it, and a context with the same
// external id gets its candidate list refreshed. Anything else is ignored.
// Mixed directories are never registered.
func (c *ContextCache) Register(dir string, fc FolderContext) bool {
	if IsMixedDir(dir) {
		return false
	}
	fc = fc.clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.folders[dir]
	switch {
	case !ok:
		c.folders[dir] = fc
	case existing.ExternalID == "" && fc.ExternalID != "":
		c.folders[dir] = fc
	case existing.ExternalID != "" && existing.ExternalID == fc.ExternalID:
		existing.AllCandidates = fc.AllCandidates
		c.folders[dir] = existing
	default:
		return false
	}
	return true
}

// Roster returns the season roster for (externalID, season), calling fetch
// at most once per key. Concurrent callers wait for the first fetch, and a
// failed fetch is remembered.
func (c *ContextCache) Roster(ctx context.Context, externalID string, season int, fetch func(context.Context) (*tmdb.SeasonDetails, error)) (*tmdb.SeasonDetails, error) {
	key := rosterKey{externalID: externalID, season: season}

	c.mu.Lock()
	entry, ok := c.rosters[key]
	if !ok {
		entry = &rosterEntry{ready: make(chan struct{})}
		c.rosters[key] = entry
	}
	c.mu.Unlock()

	if !ok {
		entry.season, entry.err = safeFetch(ctx, fetch)
		close(entry.ready)
		return entry.season, entry.err
	}

	select {
	case <-entry.ready:
		return entry.season, entry.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func safeFetch(ctx context.Context, fetch func(context.Context) (*tmdb.SeasonDetails, error)) (season *tmdb.SeasonDetails, err error) {
	defer func() {
		if r := recover(); r != nil {
			season, err = nil, fmt.Errorf("season fetch panicked: %v", r)
		}
	}()
	return fetch(ctx)
}

func cloneCandidates(in []media.Candidate) []media.Candidate {
	if in == nil {
		return nil
	}
	out := make([]media.Candidate, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
