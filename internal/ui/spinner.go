package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type statusMsg string

type doneMsg struct{}

type spinnerModel struct {
	spinner     spinner.Model
	label       string
	status      string
	done        bool
	interrupted bool
}

func newSpinnerModel(label string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return spinnerModel{spinner: s, label: label}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	line := m.spinner.View() + " " + m.label
	if m.status != "" {
		line += " " + Dim(m.status)
	}
	return line + "\n"
}

// RunWithSpinner runs fn while a spinner with label is shown on stderr. fn
// may report progress through status. Ctrl+C calls cancel and RunWithSpinner
// still waits for fn to return. Without a terminal the label is printed
// once and fn runs directly.
func RunWithSpinner(label string, cancel context.CancelFunc, fn func(status func(string)) error) error {
	if !IsInteractive() {
		fmt.Fprintf(os.Stderr, "%s...\n", label)
		return fn(func(string) {})
	}

	p := tea.NewProgram(newSpinnerModel(label), tea.WithOutput(os.Stderr))

	errCh := make(chan error, 1)
	go func() {
		err := fn(func(s string) { p.Send(statusMsg(s)) })
		errCh <- err
		p.Send(doneMsg{})
	}()

	final, runErr := p.Run()
	if m, ok := final.(spinnerModel); ok && m.interrupted && cancel != nil {
		cancel()
	}
	err := <-errCh
	if err == nil && runErr != nil {
		return fmt.Errorf("spinner: %w", runErr)
	}
	return err
}
