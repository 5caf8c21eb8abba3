package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kbruxvoort/file-renamer/internal/media"
)

// palette holds every style used for output. Without color all of them
// are the zero style, which renders text unchanged.
type palette struct {
	success lipgloss.Style
	err     lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
	path    lipgloss.Style
	types   map[media.Type]lipgloss.Style
}

var styles palette

func init() {
	styles = newPalette(IsTerminal())
}

func newPalette(color bool) palette {
	if !color {
		return palette{types: map[media.Type]lipgloss.Style{}}
	}
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return palette{
		success: fg("10").Bold(true),
		err:     fg("9").Bold(true),
		warning: fg("11"),
		info:    fg("12"),
		dim:     fg("8"),
		bold:    lipgloss.NewStyle().Bold(true),
		path:    fg("15"),
		types: map[media.Type]lipgloss.Style{
			media.TypeMovie:     fg("4"),
			media.TypeTV:        fg("5"),
			media.TypeBook:      fg("6"),
			media.TypeAudiobook: fg("3"),
		},
	}
}

func Success(text string) string { return styles.success.Render(text) }
func Error(text string) string   { return styles.err.Render(text) }
func Warning(text string) string { return styles.warning.Render(text) }
func Info(text string) string    { return styles.info.Render(text) }
func Dim(text string) string     { return styles.dim.Render(text) }
func Bold(text string) string    { return styles.bold.Render(text) }
func Path(text string) string    { return styles.path.Render(text) }

// Type renders a media type label in its own color.
func Type(t media.Type) string {
	if style, ok := styles.types[t]; ok {
		return style.Render(t.String())
	}
	return styles.dim.Render(t.String())
}
