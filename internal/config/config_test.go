package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbruxvoort/file-renamer/internal/media"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Scan.MinVideoSizeMB != 50 {
		t.Errorf("expected min video size 50, got %d", cfg.Scan.MinVideoSizeMB)
	}
	if cfg.Scan.Concurrency != 5 {
		t.Errorf("expected concurrency 5, got %d", cfg.Scan.Concurrency)
	}
	if cfg.Undo.MaxBatches != 50 {
		t.Errorf("expected 50 undo batches, got %d", cfg.Undo.MaxBatches)
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Templates.TV != DefaultConfig().Templates.TV {
		t.Errorf("unexpected TV template %q", cfg.Templates.TV)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[destinations]
root = "/srv/media"

[scan]
min_video_size_mb = 10
concurrency = 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TMDB_API_KEY", "secret-key")
	t.Setenv("IGNORE_SAMPLES", "false")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Destinations.Root != "/srv/media" {
		t.Errorf("root = %q", cfg.Destinations.Root)
	}
	if cfg.Scan.MinVideoSizeMB != 10 || cfg.Scan.Concurrency != 3 {
		t.Errorf("scan = %+v", cfg.Scan)
	}
	if cfg.Providers.TMDB.APIKey != "secret-key" {
		t.Errorf("env override not applied: %q", cfg.Providers.TMDB.APIKey)
	}
	if cfg.Scan.IgnoreSamples {
		t.Errorf("expected IGNORE_SAMPLES=false to disable sample filtering")
	}
	if cfg.Providers.TMDB.BaseURL == "" {
		t.Errorf("defaults lost for keys absent from file")
	}
}

func TestValidateRejectsBadTemplate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Templates.Movie = "{title} {rating}{ext}"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "templates.movie") {
		t.Fatalf("expected template error, got %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Destinations.Root = "/data/library"
	cfg.Undo.CleanupFloors = []string{"/data"}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Destinations.Root != "/data/library" {
		t.Errorf("root = %q", loaded.Destinations.Root)
	}
	if len(loaded.Undo.CleanupFloors) != 1 || loaded.Undo.CleanupFloors[0] != "/data" {
		t.Errorf("floors = %v", loaded.Undo.CleanupFloors)
	}
}

func TestSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Set(path, "MIN_VIDEO_SIZE_MB", "120")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Scan.MinVideoSizeMB != 120 {
		t.Errorf("min size = %d", cfg.Scan.MinVideoSizeMB)
	}

	if _, err := Set(path, "templates.tv", "{title} {season}x{episode}{ext}"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Scan.MinVideoSizeMB != 120 {
		t.Errorf("first update lost: %d", loaded.Scan.MinVideoSizeMB)
	}
	if loaded.Templates.TV != "{title} {season}x{episode}{ext}" {
		t.Errorf("tv template = %q", loaded.Templates.TV)
	}
}

func TestSetRejectsUnknownKey(t *testing.T) {
	_, err := Set(filepath.Join(t.TempDir(), "config.toml"), "scan.bogus", "1")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestKnownKey(t *testing.T) {
	cases := map[string]bool{
		"scan.concurrency":         true,
		"providers.tmdb.api_key":   true,
		"providers.tmdb":           false,
		"destinations.nonexistent": false,
	}
	for key, want := range cases {
		if got := KnownKey(key); got != want {
			t.Errorf("KnownKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestDestinationsFor(t *testing.T) {
	d := DestinationsConfig{Root: "/media", TV: "/tv"}

	if got := d.For(media.TypeMovie); got != filepath.Join("/media", "Movies") {
		t.Errorf("movies = %q", got)
	}
	if got := d.For(media.TypeTV); got != "/tv" {
		t.Errorf("tv = %q", got)
	}
	if got := d.For(media.TypeUnknown); got != "/media" {
		t.Errorf("unknown = %q", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.TMDB.APIKey = "abcdef123456"

	red := cfg.Redacted()

	if red.Providers.TMDB.APIKey != "********3456" {
		t.Errorf("masked = %q", red.Providers.TMDB.APIKey)
	}
	if cfg.Providers.TMDB.APIKey != "abcdef123456" {
		t.Errorf("original modified")
	}
}
