package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/quality"
)

var (
	// ErrUnknownKey is returned when a template references a key that has no
	// value in the substitution context.
	ErrUnknownKey = errors.New("unknown template key")
	// ErrMalformedTemplate is returned for an unterminated placeholder.
	ErrMalformedTemplate = errors.New("malformed template")
)

// Expand substitutes {key} placeholders in tmpl with vars. "{{" and "}}"
// produce literal braces.
func Expand(tmpl string, vars map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated placeholder at offset %d", ErrMalformedTemplate, i)
			}
			key := tmpl[i+1 : i+1+end]
			val, ok := vars[key]
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
			}
			sb.WriteString(val)
			i += end + 1
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String(), nil
}

var valueReplacer = strings.NewReplacer("/", "-", "\\", "-")

// Variables builds the substitution context for rendering mainPath as id.
func Variables(mainPath string, id media.Identity) map[string]string {
	season := pad2(id.Season)
	episode := pad2(id.Episode)

	title := id.Title
	if title == "" {
		title = "Unknown"
	}
	episodeTitle := id.EpisodeTitle
	if episodeTitle == "" {
		episodeTitle = "Episode " + episode
	}
	author := id.Author
	if author == "" {
		author = "Unknown Author"
	}
	year := ""
	if id.Year != nil {
		year = strconv.Itoa(*id.Year)
	}

	tags := quality.Parse(mainPath)

	vars := map[string]string{
		"title":         title,
		"year":          year,
		"season":        season,
		"episode":       episode,
		"episode_title": episodeTitle,
		"author":        author,
		"ext":           filepath.Ext(mainPath),
		"resolution":    tags.Resolution,
		"source":        tags.Source,
		"codec":         tags.Codec,
		"group":         tags.Group,
	}
	for k, v := range vars {
		vars[k] = valueReplacer.Replace(v)
	}
	return vars
}

func pad2(p *int) string {
	if p == nil {
		return "00"
	}
	return fmt.Sprintf("%02d", *p)
}

// Sanitize cleans a rendered slash-separated path: empty "()" pairs left by a
// missing year are removed, space runs collapse, ":" becomes " -" and each
// segment is trimmed, including the space before the extension.
func Sanitize(p string) string {
	p = strings.ReplaceAll(p, "()", "")
	p = strings.ReplaceAll(p, ":", " -")
	p = spaceRun.ReplaceAllString(p, " ")

	segments := strings.Split(p, "/")
	out := segments[:0]
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			out = append(out, seg)
		}
	}
	if len(out) > 0 {
		last := out[len(out)-1]
		ext := filepath.Ext(last)
		out[len(out)-1] = strings.TrimSpace(strings.TrimSuffix(last, ext)) + ext
	}

	return strings.Join(out, "/")
}

// Renderer turns identities into destination-relative paths using one
// template per media type.
type Renderer struct {
	templates map[media.Type]string
	logger    *logging.Logger
}

// NewRenderer creates a Renderer. A nil logger discards output.
func NewRenderer(templates map[media.Type]string, logger *logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Renderer{templates: templates, logger: logger}
}

// Render returns the relative destination for mainPath. Unknown types, types
// without a template and failed expansions return the original filename.
func (r *Renderer) Render(mainPath string, id media.Identity) string {
	filename := filepath.Base(mainPath)

	tmpl := r.templates[id.Type]
	if !id.Type.Known() || tmpl == "" {
		return filename
	}

	out, err := Expand(tmpl, Variables(mainPath, id))
	if err != nil {
		r.logger.Warn("naming", "Template expansion failed, keeping original filename",
			logging.F("type", id.Type),
			logging.F("template", tmpl),
			logging.F("error", err))
		return filename
	}

	out = Sanitize(out)
	if out == "" {
		return filename
	}
	return filepath.FromSlash(out)
}
