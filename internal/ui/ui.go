// Package ui renders terminal output: styled messages, tables, a spinner
// and an interactive candidate picker. Styling is dropped when stdout is
// not a terminal or NO_COLOR is set.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

var (
	stdoutTTY    = isTTY(os.Stdout)
	colorEnabled = os.Getenv("NO_COLOR") == ""
)

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DisableColors turns styling off for the rest of the process.
func DisableColors() {
	colorEnabled = false
	styles = newPalette(false)
}

// IsTerminal reports whether styled output should be written.
func IsTerminal() bool {
	return stdoutTTY && colorEnabled
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return stdoutTTY && isTTY(os.Stdin)
}

// FormatTime renders t relative to now, e.g. "3 hours ago".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}

// Confirm asks a y/N question on the terminal. Non-interactive sessions
// answer no.
func Confirm(prompt string) bool {
	if !IsInteractive() {
		return false
	}
	return ConfirmFrom(os.Stdin, os.Stdout, prompt)
}

// ConfirmFrom reads a y/N answer from in.
func ConfirmFrom(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s (y/N): ", prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
