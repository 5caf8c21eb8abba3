package naming

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/quality"
)

var (
	standardTVRegex  = regexp.MustCompile(`^(.+?)[ ._-]+[sS](\d{1,2})[eE](\d{1,2})(?:$|([^0-9].*)$)`)
	alternateTVRegex = regexp.MustCompile(`^(.+?)[ ._-]+(\d{1,2})[xX](\d{1,2})(?:$|([^0-9].*)$)`)

	// Extra episode markers straight after the first: E02, -E03, x02.
	multiEpisodeTail    = regexp.MustCompile(`^(?:[-_. ]?[eE]\d{1,3})+`)
	multiEpisodeTailAlt = regexp.MustCompile(`^(?:[-_. ]?[eExX]\d{1,3})+`)

	seasonFolderRegex = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:season|series|s)[ ._-]*(\d{1,3})(?:$|[^0-9])`)
	episodeMarked     = regexp.MustCompile(`(?i)(?:^|[^a-z])e(?:p|pisode)?[ ._-]*(\d{1,2})(?:$|[^0-9])`)
	episodeLeading    = regexp.MustCompile(`^(\d{1,2})(?:$|[^0-9])`)
	episodeAnywhere   = regexp.MustCompile(`(?:^|[^0-9])(\d{1,2})(?:$|[^0-9])`)

	absoluteEpisodeRegex = regexp.MustCompile(`^(?:\[[^\]]*\]\s*)?(.+?)\s*-\s*(\d{2,4})(?:$|[\s.\[(_v])`)

	digitRun = regexp.MustCompile(`\d+`)
)

func matchExtension(in Input) (media.Identity, bool) {
	t := media.ClassifyPath(in.Filename).MediaType()
	if t != media.TypeBook && t != media.TypeAudiobook {
		return media.Identity{}, false
	}
	title := CleanTitle(in.Stem)
	if title == "" {
		title = in.Stem
	}
	return media.Identity{Type: t, Title: title}, true
}

func matchStandardTV(in Input) (media.Identity, bool) {
	return matchEpisodePattern(standardTVRegex, multiEpisodeTail, in.Stem)
}

func matchAlternateTV(in Input) (media.Identity, bool) {
	return matchEpisodePattern(alternateTVRegex, multiEpisodeTailAlt, in.Stem)
}

func matchEpisodePattern(re, extraEpisodes *regexp.Regexp, stem string) (media.Identity, bool) {
	m := re.FindStringSubmatch(stem)
	if m == nil {
		return media.Identity{}, false
	}

	title, year := splitTrailingYear(CleanTitle(m[1]))
	if title == "" {
		return media.Identity{}, false
	}

	return media.Identity{
		Type:         media.TypeTV,
		Title:        title,
		Year:         year,
		Season:       media.IntPtr(atoi(m[2])),
		Episode:      media.IntPtr(atoi(m[3])),
		EpisodeTitle: episodeTitle(m[4], extraEpisodes),
	}, true
}

// episodeTitle cleans whatever follows the episode marker, dropping extra
// episode numbers and everything from the first release tag on.
func episodeTitle(rest string, extraEpisodes *regexp.Regexp) string {
	rest = extraEpisodes.ReplaceAllString(rest, "")
	rest = strings.TrimLeft(rest, " ._-")
	if idx := quality.MarkerIndex(rest); idx >= 0 {
		rest = rest[:idx]
	}
	return CleanTitle(rest)
}

func matchSeasonFolder(in Input) (media.Identity, bool) {
	if in.Parent == "" || in.Grandparent == "" {
		return media.Identity{}, false
	}
	m := seasonFolderRegex.FindStringSubmatch(in.Parent)
	if m == nil {
		return media.Identity{}, false
	}

	title, year := splitTrailingYear(CleanTitle(in.Grandparent))
	if title == "" {
		return media.Identity{}, false
	}

	return media.Identity{
		Type:    media.TypeTV,
		Title:   title,
		Year:    year,
		Season:  media.IntPtr(atoi(m[1])),
		Episode: media.IntPtr(episodeFromStem(in.Stem)),
	}, true
}

// episodeFromStem prefers an E-prefixed number, then a leading number, then
// any standalone 1-2 digit number. Defaults to 1.
func episodeFromStem(stem string) int {
	for _, re := range []*regexp.Regexp{episodeMarked, episodeLeading, episodeAnywhere} {
		if m := re.FindStringSubmatch(stem); m != nil {
			return atoi(m[1])
		}
	}
	return 1
}

func matchAbsoluteEpisode(in Input) (media.Identity, bool) {
	m := absoluteEpisodeRegex.FindStringSubmatch(in.Stem)
	if m == nil {
		return media.Identity{}, false
	}

	n := atoi(m[2])
	if n > 1900 && n < 2030 {
		return media.Identity{}, false
	}

	title := CleanTitle(m[1])
	if title == "" {
		return media.Identity{}, false
	}

	return media.Identity{
		Type:    media.TypeTV,
		Title:   title,
		Season:  media.IntPtr(1),
		Episode: media.IntPtr(n),
	}, true
}

func matchMovieYear(in Input) (media.Identity, bool) {
	stem := in.Stem
	runs := digitRun.FindAllStringIndex(stem, -1)

	for i := len(runs) - 1; i >= 0; i-- {
		start, end := runs[i][0], runs[i][1]
		if end-start != 4 || !yearBoundary(stem, start-1) || !yearBoundary(stem, end) {
			continue
		}
		year := atoi(stem[start:end])
		if year <= 1880 || year >= 2030 {
			continue
		}
		title := CleanTitle(strings.TrimRight(stem[:start], " ()[]-._"))
		if title == "" {
			continue
		}
		return media.Identity{Type: media.TypeMovie, Title: title, Year: media.IntPtr(year)}, true
	}

	return media.Identity{}, false
}

func yearBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	return strings.IndexByte(" ._-()[]", s[i]) >= 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
