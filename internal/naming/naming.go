// Package naming infers media identity from file paths and renders
// destination paths from identity records.
package naming

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/media"
)

// Input is the name-only view of a path that strategies work on.
type Input struct {
	Path        string
	Filename    string
	Stem        string
	Ext         string
	Parent      string
	Grandparent string
}

// NewInput splits path into the pieces strategies inspect. The filesystem is
// never touched.
func NewInput(path string) Input {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	parentDir := filepath.Dir(path)

	return Input{
		Path:        path,
		Filename:    filename,
		Stem:        strings.TrimSuffix(filename, ext),
		Ext:         ext,
		Parent:      dirName(parentDir),
		Grandparent: dirName(filepath.Dir(parentDir)),
	}
}

func dirName(dir string) string {
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) || base == "/" {
		return ""
	}
	return base
}

// Strategy recognizes one naming convention. Match reports false when the
// convention does not apply.
type Strategy struct {
	Name  string
	Match func(in Input) (media.Identity, bool)
}

// Parser runs strategies in order and returns the first match.
type Parser struct {
	strategies []Strategy
}

// NewParser builds a parser over the given strategies. With none it uses
// DefaultStrategies.
func NewParser(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

// DefaultStrategies returns the built-in cascade, most specific first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "extension", Match: matchExtension},
		{Name: "tv-sxxexx", Match: matchStandardTV},
		{Name: "tv-nxnn", Match: matchAlternateTV},
		{Name: "tv-season-folder", Match: matchSeasonFolder},
		{Name: "absolute-episode", Match: matchAbsoluteEpisode},
		{Name: "movie-year", Match: matchMovieYear},
	}
}

// Parse returns the identity guessed for path. It never fails: when nothing
// matches the result is TypeUnknown titled with the stem.
func (p *Parser) Parse(path string) media.Identity {
	in := NewInput(path)
	for _, s := range p.strategies {
		if id, ok := safeMatch(s, in); ok {
			return id
		}
	}
	return media.Identity{Type: media.TypeUnknown, Title: in.Stem}
}

func safeMatch(s Strategy, in Input) (id media.Identity, ok bool) {
	defer func() {
		if recover() != nil {
			id, ok = media.Identity{}, false
		}
	}()
	return s.Match(in)
}

var defaultParser = NewParser()

// Parse parses path with the default strategy cascade.
func Parse(path string) media.Identity {
	return defaultParser.Parse(path)
}

var (
	separatorRun = regexp.MustCompile(`[._]+`)
	spaceRun     = regexp.MustCompile(`\s+`)
	trailingYear = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)
)

// CleanTitle turns dot and underscore runs into single spaces and trims
// separators from both ends. Interior hyphens are kept.
func CleanTitle(s string) string {
	s = separatorRun.ReplaceAllString(s, " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, " -._")
}

// splitTrailingYear removes a "(YYYY)" suffix from a title.
func splitTrailingYear(title string) (string, *int) {
	m := trailingYear.FindStringSubmatch(title)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return title, nil
	}
	year := atoi(m[2])
	return strings.TrimSpace(m[1]), &year
}
