package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbruxvoort/file-renamer/internal/media"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, keys ...string) pickerModel {
	t.Helper()
	for _, k := range keys {
		m, _ = m.Update(key(k))
	}
	pm, ok := m.(pickerModel)
	require.True(t, ok)
	return pm
}

func options() []PickOption {
	return []PickOption{
		{Label: "The Matrix (1999)", Detail: "A hacker learns the truth."},
		{Label: "The Matrix Reloaded (2003)"},
		{Label: "The Matrix Revolutions (2003)"},
	}
}

func TestPickerMovesAndSelects(t *testing.T) {
	m := press(t, newPicker("The.Matrix.mkv", options()), "down", "down", "down", "up", "enter")
	assert.True(t, m.done)
	assert.Equal(t, 1, m.result.Index)
	assert.False(t, m.result.Skipped)
}

func TestPickerVimKeysAndDigits(t *testing.T) {
	m := press(t, newPicker("x", options()), "j", "k")
	assert.Equal(t, 0, m.cursor)
	assert.False(t, m.done)

	m = press(t, newPicker("x", options()), "3")
	assert.True(t, m.done)
	assert.Equal(t, 2, m.result.Index)

	m = press(t, newPicker("x", options()), "9")
	assert.False(t, m.done)
	assert.Equal(t, -1, m.result.Index)
}

func TestPickerSkipAndQuit(t *testing.T) {
	m := press(t, newPicker("x", options()), "s")
	assert.True(t, m.result.Skipped)
	assert.Equal(t, -1, m.result.Index)

	m = press(t, newPicker("x", options()), "esc")
	assert.True(t, m.result.Quit)

	m = press(t, newPicker("x", nil), "enter")
	assert.False(t, m.done)
}

func TestPickerView(t *testing.T) {
	view := newPicker("The.Matrix.mkv", options()).View()
	assert.Contains(t, view, "The.Matrix.mkv")
	assert.Contains(t, view, "1. The Matrix (1999)")
	assert.Contains(t, view, "A hacker learns the truth.")
	assert.Contains(t, view, "s skip")

	m := press(t, newPicker("x", options()), "s")
	assert.Empty(t, m.View())
}

func TestSpinnerModel(t *testing.T) {
	var m tea.Model = newSpinnerModel("Scanning")
	m, _ = m.Update(statusMsg("3/10"))
	assert.Contains(t, m.View(), "Scanning")
	assert.Contains(t, m.View(), "3/10")

	m, cmd := m.Update(doneMsg{})
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())

	m, _ = newSpinnerModel("x").Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.(spinnerModel).interrupted)
}

func TestTableRender(t *testing.T) {
	tbl := NewTable("File", "Title", "Year").AlignRight(2)
	tbl.AddRow("a.mkv", "Heat", "1995")
	tbl.AddRow("b.mkv", "Ronin")
	assert.Equal(t, 2, tbl.Len())

	out := tbl.Render()
	assert.Contains(t, out, "File")
	assert.Contains(t, out, "Heat")
	assert.Contains(t, out, "Ronin")
	assert.Contains(t, out, "1995")

	var buf bytes.Buffer
	require.NoError(t, tbl.Print(&buf))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	assert.Empty(t, NewTable().Render())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "élan...", truncate("élan vital", 7))
}

func TestConfirmFrom(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, ConfirmFrom(strings.NewReader("y\n"), &out, "Move?"))
	assert.True(t, ConfirmFrom(strings.NewReader(" YES \n"), &out, "Move?"))
	assert.False(t, ConfirmFrom(strings.NewReader("\n"), &out, "Move?"))
	assert.False(t, ConfirmFrom(strings.NewReader(""), &out, "Move?"))
	assert.Contains(t, out.String(), "Move? (y/N): ")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
}

func TestPlainPaletteLeavesTextUnchanged(t *testing.T) {
	DisableColors()
	assert.False(t, IsTerminal())
	assert.Equal(t, "ok", Success("ok"))
	assert.Equal(t, "movie", Type(media.TypeMovie))
	assert.Equal(t, "unknown", Type(media.TypeUnknown))
}
