// Package quality extracts release tags (resolution, source, codec, group)
// from media filenames.
package quality

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Tags holds the release information found in a filename. Empty fields mean
// the tag was not present.
type Tags struct {
	Resolution string `json:"resolution,omitempty"`
	Source     string `json:"source,omitempty"`
	Codec      string `json:"codec,omitempty"`
	Group      string `json:"group,omitempty"`
	Proper     bool   `json:"proper,omitempty"`
}

type labeled struct {
	label string
	re    *regexp.Regexp
}

var (
	// Order matters: first match wins.
	resolutions = []labeled{
		{"4320p", regexp.MustCompile(`(?i)\b(4320[pi]|8K)\b`)},
		{"2160p", regexp.MustCompile(`(?i)\b(2160[pi]|4K|UHD)\b`)},
		{"1080p", regexp.MustCompile(`(?i)\b1080[pi]\b`)},
		{"720p", regexp.MustCompile(`(?i)\b720[pi]\b`)},
		{"576p", regexp.MustCompile(`(?i)\b576[pi]\b`)},
		{"480p", regexp.MustCompile(`(?i)\b480[pi]\b`)},
	}

	sources = []labeled{
		{"REMUX", regexp.MustCompile(`(?i)\bREMUX\b`)},
		{"BluRay", regexp.MustCompile(`(?i)\b(BluRay|Blu-Ray|BDRip|BRRip)\b`)},
		{"WEB-DL", regexp.MustCompile(`(?i)\b(WEB-DL|WEBDL|WEB\.DL)\b`)},
		{"WEBRip", regexp.MustCompile(`(?i)\b(WEBRip|WEB-Rip|WEB)\b`)},
		{"HDTV", regexp.MustCompile(`(?i)\b(HDTV|PDTV)\b`)},
		{"DVDRip", regexp.MustCompile(`(?i)\b(DVDRip|DVD-Rip|DVD)\b`)},
	}

	codecs = []labeled{
		{"AV1", regexp.MustCompile(`(?i)\bAV1\b`)},
		{"x265", regexp.MustCompile(`(?i)\b(x265|HEVC|H\.?265)\b`)},
		{"x264", regexp.MustCompile(`(?i)\b(x264|AVC|H\.?264)\b`)},
		{"XviD", regexp.MustCompile(`(?i)\bXviD\b`)},
	}

	properPattern = regexp.MustCompile(`(?i)\b(PROPER|REPACK|RERIP)\b`)
	groupPattern  = regexp.MustCompile(`-([A-Za-z0-9]+)$`)

	// Anything matching one of these marks the start of release noise.
	releaseMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{3,4}[pi]\b`),
		regexp.MustCompile(`(?i)\b(4K|UHD|8K)\b`),
		regexp.MustCompile(`(?i)\b(HDR10\+?|HDR|DoVi)\b`),
		regexp.MustCompile(`(?i)\b(DTS-HD|DTS-X|DTS|TrueHD|Atmos|AAC|AC3|DDP\d?)\b`),
		regexp.MustCompile(`(?i)\b(BluRay|Blu-ray|BDRip|BRRip|REMUX|WEB-DL|WEBDL|WEBRip|WEB)\b`),
		regexp.MustCompile(`(?i)\b(HDTV|PDTV|DVDRip)\b`),
		regexp.MustCompile(`\b(AMZN|NF|ATVP|HULU|DSNP|HMAX)\b`),
		regexp.MustCompile(`(?i)\b(x264|x265|HEVC|AV1|H\.?264|H\.?265|XviD)\b`),
		regexp.MustCompile(`(?i)\b(PROPER|REPACK|RERIP|iNTERNAL)\b`),
		regexp.MustCompile(`(?i)\b(8bit|10bit|12bit)\b`),
		regexp.MustCompile(`\[[^\]]*\]`),
	}
)

// Parse extracts release tags from the base name of path.
func Parse(path string) Tags {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	tags := Tags{
		Resolution: firstLabel(resolutions, stem),
		Source:     firstLabel(sources, stem),
		Codec:      firstLabel(codecs, stem),
		Proper:     properPattern.MatchString(stem),
	}

	// A trailing -WORD is only a group when the name carries release noise,
	// otherwise "Spider-Man" would report group "Man".
	if MarkerIndex(stem) >= 0 {
		if m := groupPattern.FindStringSubmatch(stem); m != nil && !isMarker(m[1]) {
			tags.Group = m[1]
		}
	}

	return tags
}

// MarkerIndex returns the byte offset of the first release marker in s, or
// -1 when s carries none.
func MarkerIndex(s string) int {
	idx := -1
	for _, re := range releaseMarkers {
		loc := re.FindStringIndex(s)
		if loc != nil && (idx < 0 || loc[0] < idx) {
			idx = loc[0]
		}
	}
	return idx
}

// String renders the non-empty tags separated by spaces.
func (t Tags) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{t.Resolution, t.Source, t.Codec} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if t.Proper {
		parts = append(parts, "PROPER")
	}
	return strings.Join(parts, " ")
}

func firstLabel(set []labeled, s string) string {
	for _, l := range set {
		if l.re.MatchString(s) {
			return l.label
		}
	}
	return ""
}

func isMarker(word string) bool {
	for _, re := range releaseMarkers {
		if re.MatchString(word) {
			return true
		}
	}
	return false
}
