// Package audiotag reads embedded audio metadata to sharpen audiobook
// identities parsed from filenames.
package audiotag

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/kbruxvoort/file-renamer/internal/media"
)

// Tags holds the fields used for audiobook identification.
type Tags struct {
	Title       string
	Album       string
	Artist      string
	AlbumArtist string
	Year        int
}

// Read extracts tags from the file at path.
func Read(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, fmt.Errorf("failed to read tags: %w", err)
	}

	return Tags{
		Title:       strings.TrimSpace(m.Title()),
		Album:       strings.TrimSpace(m.Album()),
		Artist:      strings.TrimSpace(m.Artist()),
		AlbumArtist: strings.TrimSpace(m.AlbumArtist()),
		Year:        m.Year(),
	}, nil
}

// Enrich fills an audiobook identity from tags. The album names the book
// and the album artist (or artist) names the author.
func Enrich(id media.Identity, t Tags) media.Identity {
	if id.Type != media.TypeAudiobook {
		return id
	}
	out := id
	switch {
	case t.Album != "":
		out.Title = t.Album
	case t.Title != "":
		out.Title = t.Title
	}
	switch {
	case t.AlbumArtist != "":
		out.Author = t.AlbumArtist
	case t.Artist != "":
		out.Author = t.Artist
	}
	if out.Year == nil && t.Year > 0 {
		out.Year = media.IntPtr(t.Year)
	}
	return out
}

// EnrichFile reads tags from path and applies them. Unreadable tags leave
// the identity unchanged.
func EnrichFile(path string, id media.Identity) (media.Identity, error) {
	if id.Type != media.TypeAudiobook {
		return id, nil
	}
	t, err := Read(path)
	if err != nil {
		return id, err
	}
	return Enrich(id, t), nil
}
