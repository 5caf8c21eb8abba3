// Package resolver turns parsed identities into ranked metadata candidates,
// sharing show identity between sibling episodes through a ContextCache.
package resolver

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/googlebooks"
	"github.com/kbruxvoort/file-renamer/internal/itunes"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/tmdb"
)

// MovieSearcher finds movies by title, optionally narrowed by year.
type MovieSearcher interface {
	SearchMovie(ctx context.Context, query string, year int) ([]tmdb.Result, error)
}

// TVSearcher finds shows by title.
type TVSearcher interface {
	SearchTV(ctx context.Context, query string) ([]tmdb.Result, error)
}

// EpisodeFetcher returns nil, nil for an episode the provider does not know.
type EpisodeFetcher interface {
	GetEpisode(ctx context.Context, showID string, season, episode int) (*tmdb.Episode, error)
}

// SeasonFetcher returns the episode list of one season.
type SeasonFetcher interface {
	GetSeason(ctx context.Context, showID string, season int) (*tmdb.SeasonDetails, error)
}

// VideoProvider covers movie and TV lookups.
type VideoProvider interface {
	MovieSearcher
	TVSearcher
	EpisodeFetcher
	SeasonFetcher
}

// BookSearcher finds ebooks.
type BookSearcher interface {
	SearchBooks(ctx context.Context, query string) ([]googlebooks.Volume, error)
}

// AudiobookSearcher finds audiobooks.
type AudiobookSearcher interface {
	SearchAudiobooks(ctx context.Context, query string) ([]itunes.Item, error)
}

// Resolution is the outcome of resolving one file.
type Resolution struct {
	Identity   media.Identity    `json:"identity"`
	Candidates []media.Candidate `json:"candidates"`
}

// Top returns the first candidate, if any.
func (r Resolution) Top() (media.Candidate, bool) {
	if len(r.Candidates) == 0 {
		return media.Candidate{}, false
	}
	return r.Candidates[0], true
}

// Resolver queries the metadata providers. A nil provider yields no
// candidates for its media types.
type Resolver struct {
	video        VideoProvider
	books        BookSearcher
	audiobooks   AudiobookSearcher
	imageBaseURL string
	logger       *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithVideoProvider sets the movie and TV provider.
func WithVideoProvider(p VideoProvider) Option {
	return func(r *Resolver) { r.video = p }
}

// WithBookSearcher sets the ebook provider.
func WithBookSearcher(s BookSearcher) Option {
	return func(r *Resolver) { r.books = s }
}

// WithAudiobookSearcher sets the audiobook provider.
func WithAudiobookSearcher(s AudiobookSearcher) Option {
	return func(r *Resolver) { r.audiobooks = s }
}

// WithImageBaseURL overrides the prefix for poster paths. Empty keeps
// DefaultImageBaseURL.
func WithImageBaseURL(base string) Option {
	return func(r *Resolver) {
		if base != "" {
			r.imageBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a resolver with no providers unless options add them.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		imageBaseURL: DefaultImageBaseURL,
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up candidates for id, which was parsed from path. cache may
// be nil, in which case no folder or season state is read or written.
func (r *Resolver) Resolve(ctx context.Context, cache *ContextCache, path string, id media.Identity) Resolution {
	switch id.Type {
	case media.TypeTV:
		return r.resolveTV(ctx, cache, path, id)
	case media.TypeMovie:
		return Resolution{Identity: id, Candidates: r.searchMovies(ctx, id.Title, media.IntValue(id.Year))}
	case media.TypeBook:
		return Resolution{Identity: id, Candidates: r.searchBooks(ctx, bookQuery(id))}
	case media.TypeAudiobook:
		return Resolution{Identity: id, Candidates: r.searchAudiobooks(ctx, bookQuery(id))}
	default:
		return Resolution{Identity: id}
	}
}

// Search runs a manual lookup outside of any scan.
func (r *Resolver) Search(ctx context.Context, query string, t media.Type, year int) []media.Candidate {
	switch t {
	case media.TypeTV:
		return r.searchShows(ctx, query)
	case media.TypeBook:
		return r.searchBooks(ctx, query)
	case media.TypeAudiobook:
		return r.searchAudiobooks(ctx, query)
	case media.TypeMovie:
		return r.searchMovies(ctx, query, year)
	default:
		return nil
	}
}

func (r *Resolver) resolveTV(ctx context.Context, cache *ContextCache, path string, id media.Identity) Resolution {
	dir := filepath.Dir(path)
	mixed := IsMixedDir(dir)

	if cache != nil && !mixed {
		if fc, ok := cache.Folder(dir); ok {
			if Applicable(id.Title, fc.Title) {
				return r.fromFolder(ctx, cache, id, fc)
			}
			r.logger.Debug("resolver", "Folder context does not apply",
				logging.F("file", filepath.Base(path)), logging.F("parsed", id.Title), logging.F("cached", fc.Title))
		}
	}

	shows := r.searchShows(ctx, id.Title)
	if len(shows) == 0 {
		return Resolution{Identity: id}
	}

	candidates := cloneCandidates(shows)
	top := &candidates[0]
	top.EpisodeTitle = id.EpisodeTitle
	if id.HasEpisode() && top.ExternalID != "" {
		r.overlayEpisode(ctx, cache, top, *id.Season, *id.Episode)
	}

	if cache != nil && !mixed {
		cache.Register(dir, FolderContext{
			Type:          media.TypeTV,
			Title:         shows[0].Title,
			ExternalID:    shows[0].ExternalID,
			Primary:       shows[0],
			AllCandidates: shows,
		})
	}

	return Resolution{Identity: id, Candidates: candidates}
}

func (r *Resolver) fromFolder(ctx context.Context, cache *ContextCache, id media.Identity, fc FolderContext) Resolution {
	seeded := id
	seeded.Title = fc.Title
	if fc.ExternalID != "" {
		seeded.ExternalID = fc.ExternalID
	}

	top := fc.Primary.Clone()
	top.EpisodeTitle = id.EpisodeTitle
	if id.HasEpisode() && fc.ExternalID != "" {
		top.ExternalID = fc.ExternalID
		r.overlayEpisode(ctx, cache, &top, *id.Season, *id.Episode)
	}

	candidates := []media.Candidate{top}
	if len(fc.AllCandidates) > 1 {
		candidates = append(candidates, fc.AllCandidates[1:]...)
	}
	if len(candidates) > media.MaxCandidates {
		candidates = candidates[:media.MaxCandidates]
	}
	return Resolution{Identity: seeded, Candidates: candidates}
}

// overlayEpisode sets the episode title and air year on c, consulting the
// season roster before a single episode fetch.
func (r *Resolver) overlayEpisode(ctx context.Context, cache *ContextCache, c *media.Candidate, season, episode int) {
	ep := r.findEpisode(ctx, cache, c.ExternalID, season, episode)
	if ep == nil {
		return
	}
	if ep.Name != "" {
		c.EpisodeTitle = ep.Name
	}
	if y, ok := tmdb.YearOf(ep.AirDate); ok {
		c.Year = media.IntPtr(y)
	}
}

func (r *Resolver) findEpisode(ctx context.Context, cache *ContextCache, showID string, season, episode int) *tmdb.Episode {
	if r.video == nil {
		return nil
	}

	if cache != nil {
		roster, err := cache.Roster(ctx, showID, season, func(ctx context.Context) (*tmdb.SeasonDetails, error) {
			return r.video.GetSeason(ctx, showID, season)
		})
		if err != nil {
			r.logger.Warn("resolver", "Season roster unavailable",
				logging.F("show_id", showID), logging.F("season", season), logging.F("error", err))
		} else if ep := roster.Episode(episode); ep != nil {
			return ep
		}
	}

	ep, err := r.video.GetEpisode(ctx, showID, season, episode)
	if err != nil {
		r.logger.Warn("resolver", "Episode lookup failed",
			logging.F("show_id", showID), logging.F("season", season), logging.F("episode", episode), logging.F("error", err))
		return nil
	}
	return ep
}

func (r *Resolver) searchShows(ctx context.Context, title string) []media.Candidate {
	if r.video == nil {
		r.logger.Debug("resolver", "No TV provider configured", logging.F("title", title))
		return nil
	}
	results, err := r.video.SearchTV(ctx, title)
	if err != nil {
		r.logger.Warn("resolver", "TV search failed", logging.F("title", title), logging.F("error", err))
		return nil
	}
	return r.tmdbCandidates(results, media.TypeTV)
}

func (r *Resolver) searchMovies(ctx context.Context, title string, year int) []media.Candidate {
	if r.video == nil {
		r.logger.Debug("resolver", "No movie provider configured", logging.F("title", title))
		return nil
	}
	results, err := r.video.SearchMovie(ctx, title, year)
	if err != nil {
		r.logger.Warn("resolver", "Movie search failed", logging.F("title", title), logging.F("error", err))
		return nil
	}
	return r.tmdbCandidates(results, media.TypeMovie)
}

func (r *Resolver) searchBooks(ctx context.Context, query string) []media.Candidate {
	if r.books == nil {
		return nil
	}
	vols, err := r.books.SearchBooks(ctx, query)
	if err != nil {
		r.logger.Warn("resolver", "Book search failed", logging.F("query", query), logging.F("error", err))
		return nil
	}
	return bookCandidates(vols)
}

func (r *Resolver) searchAudiobooks(ctx context.Context, query string) []media.Candidate {
	if r.audiobooks == nil {
		return nil
	}
	items, err := r.audiobooks.SearchAudiobooks(ctx, query)
	if err != nil {
		r.logger.Warn("resolver", "Audiobook search failed", logging.F("query", query), logging.F("error", err))
		return nil
	}
	return audiobookCandidates(items)
}

func bookQuery(id media.Identity) string {
	if id.Author == "" {
		return id.Title
	}
	return id.Title + " " + id.Author
}

// Applicable reports whether a cached show title can stand in for a freshly
// parsed one.
func Applicable(parsed, cached string) bool {
	p := normalizeTitle(parsed)
	if len([]rune(p)) <= 2 {
		return true
	}
	c := normalizeTitle(cached)
	return strings.Contains(p, c) || strings.Contains(c, p)
}

func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
