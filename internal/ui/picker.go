package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrNotInteractive is returned by Pick when stdin or stdout is not a
// terminal.
var ErrNotInteractive = errors.New("interactive selection requires a terminal")

type PickOption struct {
	Label  string
	Detail string
}

// PickResult is the user's answer. Index is -1 unless an option was chosen.
type PickResult struct {
	Index   int
	Skipped bool
	Quit    bool
}

type pickerModel struct {
	header  string
	options []PickOption
	cursor  int
	result  PickResult
	done    bool
}

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
)

func newPicker(header string, options []PickOption) pickerModel {
	return pickerModel{header: header, options: options, result: PickResult{Index: -1}}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch s := key.String(); s {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.options) > 0 {
			m.result.Index = m.cursor
			return m.finish()
		}
	case "s":
		m.result.Skipped = true
		return m.finish()
	case "q", "esc", "ctrl+c":
		m.result.Quit = true
		return m.finish()
	default:
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if n := int(s[0] - '1'); n < len(m.options) {
				m.cursor = n
				m.result.Index = n
				return m.finish()
			}
		}
	}
	return m, nil
}

func (m pickerModel) finish() (tea.Model, tea.Cmd) {
	m.done = true
	return m, tea.Quit
}

func (m pickerModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(Bold(m.header) + "\n\n")
	for i, opt := range m.options {
		prefix := "  "
		label := fmt.Sprintf("%d. %s", i+1, opt.Label)
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
			label = selectedStyle.Render(label)
		}
		b.WriteString(prefix + label + "\n")
		if opt.Detail != "" {
			b.WriteString("     " + Dim(truncate(opt.Detail, 90)) + "\n")
		}
	}
	b.WriteString("\n" + Dim("↑/↓ move • enter select • 1-9 pick • s skip • q quit") + "\n")
	return b.String()
}

// Pick shows options and waits for a choice.
func Pick(header string, options []PickOption) (PickResult, error) {
	if !IsInteractive() {
		return PickResult{Index: -1}, ErrNotInteractive
	}

	final, err := tea.NewProgram(newPicker(header, options)).Run()
	if err != nil {
		return PickResult{Index: -1}, err
	}
	m, ok := final.(pickerModel)
	if !ok {
		return PickResult{Index: -1}, fmt.Errorf("unexpected picker model %T", final)
	}
	return m.result, nil
}
