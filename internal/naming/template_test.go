package naming

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
)

var testTemplates = map[media.Type]string{
	media.TypeMovie:     "{title} ({year})/{title} ({year}){ext}",
	media.TypeTV:        "{title}/Season {season}/{title} - s{season}e{episode}{ext}",
	media.TypeBook:      "{author}/{title}/{title}{ext}",
	media.TypeAudiobook: "{author}/{title}/{title}{ext}",
}

func TestRender(t *testing.T) {
	r := NewRenderer(testTemplates, nil)

	tests := []struct {
		name string
		path string
		id   media.Identity
		want string
	}{
		{
			name: "movie",
			path: "/in/the.matrix.1999.mkv",
			id:   media.Identity{Type: media.TypeMovie, Title: "The Matrix", Year: intp(1999)},
			want: "The Matrix (1999)/The Matrix (1999).mkv",
		},
		{
			name: "movie without year",
			path: "/in/movie.mkv",
			id:   media.Identity{Type: media.TypeMovie, Title: "Heat"},
			want: "Heat/Heat.mkv",
		},
		{
			name: "tv zero padded",
			path: "/in/bb.mkv",
			id:   media.Identity{Type: media.TypeTV, Title: "Breaking Bad", Season: intp(5), Episode: intp(4)},
			want: "Breaking Bad/Season 05/Breaking Bad - s05e04.mkv",
		},
		{
			name: "tv without numbers",
			path: "/in/x.mkv",
			id:   media.Identity{Type: media.TypeTV, Title: "Show"},
			want: "Show/Season 00/Show - s00e00.mkv",
		},
		{
			name: "colon replaced",
			path: "/in/x.mkv",
			id:   media.Identity{Type: media.TypeMovie, Title: "Star Wars: A New Hope", Year: intp(1977)},
			want: "Star Wars - A New Hope (1977)/Star Wars - A New Hope (1977).mkv",
		},
		{
			name: "book defaults author",
			path: "/in/hobbit.epub",
			id:   media.Identity{Type: media.TypeBook, Title: "The Hobbit"},
			want: "Unknown Author/The Hobbit/The Hobbit.epub",
		},
		{
			name: "missing title",
			path: "/in/a.m4b",
			id:   media.Identity{Type: media.TypeAudiobook, Author: "Andy Weir"},
			want: "Andy Weir/Unknown/Unknown.m4b",
		},
		{
			name: "slash in title does not nest",
			path: "/in/x.mkv",
			id:   media.Identity{Type: media.TypeMovie, Title: "Face/Off", Year: intp(1997)},
			want: "Face-Off (1997)/Face-Off (1997).mkv",
		},
		{
			name: "unknown type keeps filename",
			path: "/in/holiday.mkv",
			id:   media.Identity{Type: media.TypeUnknown, Title: "holiday"},
			want: "holiday.mkv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Render(filepath.FromSlash(tt.path), tt.id)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	r := NewRenderer(testTemplates, nil)
	id := media.Identity{Type: media.TypeTV, Title: "Firefly", Season: intp(1), Episode: intp(3), EpisodeTitle: "Bushwhacked"}

	first := r.Render("/in/ep.mkv", id)
	second := r.Render("/in/ep.mkv", id)

	assert.Equal(t, first, second)
	assert.Equal(t, Sanitize(filepath.ToSlash(first)), filepath.ToSlash(first))
}

func TestRenderEpisodeTitleDefault(t *testing.T) {
	r := NewRenderer(map[media.Type]string{media.TypeTV: "{title} - {episode_title}{ext}"}, nil)

	got := r.Render("/in/x.mkv", media.Identity{Type: media.TypeTV, Title: "Show", Season: intp(1), Episode: intp(7)})

	assert.Equal(t, "Show - Episode 07.mkv", got)
}

func TestRenderUnknownKeyFallsBack(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(map[media.Type]string{media.TypeMovie: "{title} [{imdb}]{ext}"}, logging.NewWriter(&buf, logging.LevelDebug))

	got := r.Render("/in/Original Name.mkv", media.Identity{Type: media.TypeMovie, Title: "Heat"})

	assert.Equal(t, "Original Name.mkv", got)
	assert.Contains(t, buf.String(), "Template expansion failed")
}

func TestRenderReleaseTags(t *testing.T) {
	r := NewRenderer(map[media.Type]string{media.TypeMovie: "{title} ({year}) [{resolution}]{ext}"}, nil)

	got := r.Render("/in/Heat.1995.1080p.BluRay.x264-GRP.mkv", media.Identity{Type: media.TypeMovie, Title: "Heat", Year: intp(1995)})

	assert.Equal(t, "Heat (1995) [1080p].mkv", got)
}

func TestExpand(t *testing.T) {
	out, err := Expand("{{literal}} {a}", map[string]string{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "{literal} x", out)

	_, err = Expand("{missing}", map[string]string{})
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = Expand("{open", map[string]string{})
	assert.ErrorIs(t, err, ErrMalformedTemplate)
}
