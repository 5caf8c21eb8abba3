package resolver

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/kbruxvoort/file-renamer/internal/googlebooks"
	"github.com/kbruxvoort/file-renamer/internal/itunes"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/tmdb"
)

const (
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w200"
	overviewLimit       = 100
)

func (r *Resolver) tmdbCandidates(results []tmdb.Result, t media.Type) []media.Candidate {
	out := make([]media.Candidate, 0, min(len(results), media.MaxCandidates))
	for _, res := range results {
		if len(out) == media.MaxCandidates {
			break
		}
		c := media.Candidate{
			Title:    res.DisplayTitle(),
			Overview: truncate(res.Overview),
			Type:     t,
			Score:    res.VoteAverage,
		}
		if res.ID != 0 {
			c.ExternalID = strconv.FormatInt(res.ID, 10)
		}
		if y, ok := res.Year(); ok {
			c.Year = media.IntPtr(y)
		}
		if res.PosterPath != "" {
			c.PosterRef = r.imageBaseURL + res.PosterPath
		}
		out = append(out, c)
	}
	return out
}

func bookCandidates(vols []googlebooks.Volume) []media.Candidate {
	out := make([]media.Candidate, 0, min(len(vols), media.MaxCandidates))
	for _, v := range vols {
		if len(out) == media.MaxCandidates {
			break
		}
		info := v.VolumeInfo
		c := media.Candidate{
			Title:      info.Title,
			Author:     info.Author(),
			PosterRef:  info.Cover(),
			ExternalID: v.ID,
			Type:       media.TypeBook,
			Score:      info.AverageRating,
		}
		if c.Title == "" {
			c.Title = "Unknown"
		}
		if y, ok := tmdb.YearOf(info.PublishedDate); ok {
			c.Year = media.IntPtr(y)
		}
		c.Overview = truncate(stripHTML(info.Description))
		if c.Overview == "" && c.Author != "" {
			c.Overview = "By " + c.Author
		}
		out = append(out, c)
	}
	return out
}

func audiobookCandidates(items []itunes.Item) []media.Candidate {
	out := make([]media.Candidate, 0, min(len(items), media.MaxCandidates))
	for _, it := range items {
		if len(out) == media.MaxCandidates {
			break
		}
		c := media.Candidate{
			Title:     it.CollectionName,
			Author:    it.ArtistName,
			PosterRef: it.Artwork(),
			Type:      media.TypeAudiobook,
		}
		if c.Title == "" {
			c.Title = "Unknown"
		}
		if it.CollectionID != 0 {
			c.ExternalID = strconv.FormatInt(it.CollectionID, 10)
		}
		if y, ok := it.Year(); ok {
			c.Year = media.IntPtr(y)
		}
		c.Overview = truncate(stripHTML(it.Description))
		if c.Overview == "" && c.Author != "" {
			c.Overview = "Narrated by " + c.Author
		}
		out = append(out, c)
	}
	return out
}

// stripHTML returns the visible text of an HTML fragment with whitespace
// collapsed.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= overviewLimit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:overviewLimit])) + "..."
}
