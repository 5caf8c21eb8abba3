package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/activity"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/service"
	"github.com/kbruxvoort/file-renamer/internal/ui"
	"github.com/kbruxvoort/file-renamer/internal/undo"
)

//go:embed assets/header.txt
var asciiHeader string

// printHeader displays the ASCII header with version info
func printHeader(w io.Writer) {
	fmt.Fprintln(w, asciiHeader)
	fmt.Fprintf(w, "Version: %s\n\n", service.Version)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yearString(y *int) string {
	if y == nil {
		return ""
	}
	return strconv.Itoa(*y)
}

// candidateLabel renders "Title (Year)" with the author for books.
func candidateLabel(c media.Candidate) string {
	label := c.Title
	if c.Year != nil {
		label += fmt.Sprintf(" (%d)", *c.Year)
	}
	if c.EpisodeTitle != "" {
		label += " - " + c.EpisodeTitle
	}
	if c.Author != "" {
		label += " by " + c.Author
	}
	return label
}

// plannedMove is one row of a scan plan.
type plannedMove struct {
	Path      string           `json:"original_path"`
	Root      string           `json:"root,omitempty"`
	Type      media.Type       `json:"type"`
	Candidate *media.Candidate `json:"selected_candidate,omitempty"`
	Proposed  string           `json:"proposed_path"`
	Skipped   bool             `json:"skipped,omitempty"`
}

func (p plannedMove) item() service.ExecuteItem {
	return service.ExecuteItem{Path: p.Path, Candidate: p.Candidate, Root: p.Root}
}

func planTable(plan []plannedMove, destRoot string) *ui.Table {
	tbl := ui.NewTable("Original", "Type", "Match", "Proposed")
	for _, p := range plan {
		match := ui.Dim("parsed")
		if p.Candidate != nil {
			match = candidateLabel(*p.Candidate)
		}
		proposed := relativeTo(destRoot, p.Proposed)
		if p.Skipped {
			match = ui.Warning("skipped")
			proposed = "-"
		}
		tbl.AddRow(filepath.Base(p.Path), ui.Type(p.Type), match, proposed)
	}
	return tbl
}

func candidatesTable(candidates []media.Candidate) *ui.Table {
	tbl := ui.NewTable("#", "Title", "Year", "Author", "ID", "Overview").AlignRight(0)
	for i, c := range candidates {
		tbl.AddRow(strconv.Itoa(i+1), c.Title, yearString(c.Year), c.Author, c.ExternalID, c.Overview)
	}
	return tbl
}

func historyTable(batches []undo.Batch) *ui.Table {
	tbl := ui.NewTable("Batch", "When", "Files", "First file").AlignRight(2)
	for _, b := range batches {
		first := ""
		if len(b.Moves) > 0 {
			first = filepath.Base(b.Moves[0].Dest)
		}
		tbl.AddRow(shortID(b.ID), ui.FormatTime(b.Timestamp), strconv.Itoa(len(b.Moves)), first)
	}
	return tbl
}

func activityTable(entries []activity.Entry) *ui.Table {
	tbl := ui.NewTable("When", "Action", "Source", "Target", "Error")
	for _, e := range entries {
		action := string(e.Action)
		if !e.Success {
			action = ui.Error(action)
		}
		tbl.AddRow(ui.FormatTime(e.Timestamp), action, e.Source, e.Target, e.Error)
	}
	return tbl
}

func healthTable(issues []service.HealthIssue) *ui.Table {
	tbl := ui.NewTable("Severity", "Setting", "Current", "Expected", "Fix")
	for _, issue := range issues {
		severity := ui.Warning(issue.Severity)
		if issue.Severity == service.SeverityCritical {
			severity = ui.Error(issue.Severity)
		}
		tbl.AddRow(severity, issue.Setting, issue.Current, issue.Expected, issue.FixCmd)
	}
	return tbl
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// relativeTo shortens path to be relative to root when it lies inside it.
func relativeTo(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
