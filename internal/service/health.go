package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/naming"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// HealthIssue represents a detected configuration issue.
type HealthIssue struct {
	Component string `json:"component"` // "providers", "destinations", "undo", ...
	Setting   string `json:"setting"`
	Current   string `json:"current,omitempty"`
	Expected  string `json:"expected,omitempty"`
	Severity  string `json:"severity"` // "critical", "warning"
	FixCmd    string `json:"fix,omitempty"`
}

// HealthReport contains all detected health issues.
type HealthReport struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Healthy bool          `json:"healthy"`
	Issues  []HealthIssue `json:"issues"`
}

// Health checks the configuration and the directories the service writes
// to. Status is "ok" unless a critical issue was found.
func (s *Service) Health() HealthReport {
	var issues []HealthIssue
	issues = append(issues, s.checkProviders()...)
	issues = append(issues, s.checkTemplates()...)
	issues = append(issues, s.checkDirectories()...)

	report := HealthReport{Status: "ok", Version: Version, Healthy: true, Issues: issues}
	if report.Issues == nil {
		report.Issues = []HealthIssue{}
	}
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			report.Status = "degraded"
			report.Healthy = false
		}
	}
	return report
}

func (s *Service) checkProviders() []HealthIssue {
	if s.cfg.Providers.TMDB.APIKey != "" {
		return nil
	}
	return []HealthIssue{{
		Component: "providers",
		Setting:   "providers.tmdb.api_key",
		Current:   "unset",
		Expected:  "a TMDB API key",
		Severity:  SeverityWarning,
		FixCmd:    "renamer config set TMDB_API_KEY <key>",
	}}
}

func (s *Service) checkTemplates() []HealthIssue {
	var issues []HealthIssue
	probe := naming.Variables("probe.mkv", media.Identity{})
	for t, tmpl := range s.cfg.Templates.ByType() {
		if _, err := naming.Expand(tmpl, probe); err != nil {
			issues = append(issues, HealthIssue{
				Component: "templates",
				Setting:   "templates." + t.String(),
				Current:   tmpl,
				Expected:  err.Error(),
				Severity:  SeverityCritical,
				FixCmd:    fmt.Sprintf("renamer config set templates.%s <template>", t),
			})
		}
	}
	return issues
}

func (s *Service) checkDirectories() []HealthIssue {
	var issues []HealthIssue

	for _, t := range []media.Type{media.TypeMovie, media.TypeTV, media.TypeBook, media.TypeAudiobook} {
		dir := s.cfg.Destinations.For(t)
		if err := checkWritable(dir); err != nil {
			issues = append(issues, HealthIssue{
				Component: "destinations",
				Setting:   "destinations." + t.String(),
				Current:   dir,
				Expected:  "a writable directory",
				Severity:  SeverityCritical,
				FixCmd:    err.Error(),
			})
		}
	}

	if root := s.cfg.Scan.SourceRoot; root != "" {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			issues = append(issues, HealthIssue{
				Component: "scan",
				Setting:   "scan.source_root",
				Current:   root,
				Expected:  "an existing directory",
				Severity:  SeverityWarning,
				FixCmd:    "renamer config set SOURCE_DIR <dir>",
			})
		}
	}

	if err := checkWritable(filepath.Dir(s.ledger.Path())); err != nil {
		issues = append(issues, HealthIssue{
			Component: "undo",
			Setting:   "undo.history_file",
			Current:   s.ledger.Path(),
			Expected:  "a writable location",
			Severity:  SeverityCritical,
			FixCmd:    err.Error(),
		})
	}
	return issues
}

// checkWritable reports whether files can be created in dir, or in its
// nearest existing ancestor when dir does not exist yet.
func checkWritable(dir string) error {
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("no existing ancestor for %s", dir)
		}
		dir = parent
	}

	f, err := os.CreateTemp(dir, ".renamer-health-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
