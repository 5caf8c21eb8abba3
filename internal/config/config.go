package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/naming"
	"github.com/kbruxvoort/file-renamer/internal/paths"
)

// ErrUnknownKey is returned by Set for keys the configuration does not have.
var ErrUnknownKey = errors.New("unknown config key")

type Config struct {
	Destinations DestinationsConfig `mapstructure:"destinations" toml:"destinations"`
	Templates    TemplatesConfig    `mapstructure:"templates" toml:"templates"`
	Scan         ScanConfig         `mapstructure:"scan" toml:"scan"`
	Undo         UndoConfig         `mapstructure:"undo" toml:"undo"`
	Activity     ActivityConfig     `mapstructure:"activity" toml:"activity"`
	Watch        WatchConfig        `mapstructure:"watch" toml:"watch"`
	Providers    ProvidersConfig    `mapstructure:"providers" toml:"providers"`
	API          APIConfig          `mapstructure:"api" toml:"api"`
	Logging      logging.Config     `mapstructure:"logging" toml:"logging"`
}

// DestinationsConfig holds where organized files land. Empty per-type
// entries resolve to a fixed subdirectory of Root.
type DestinationsConfig struct {
	Root       string `mapstructure:"root" toml:"root"`
	Movies     string `mapstructure:"movies" toml:"movies"`
	TV         string `mapstructure:"tv" toml:"tv"`
	Books      string `mapstructure:"books" toml:"books"`
	Audiobooks string `mapstructure:"audiobooks" toml:"audiobooks"`
}

// TemplatesConfig holds one path template per media type.
type TemplatesConfig struct {
	Movie     string `mapstructure:"movie" toml:"movie"`
	TV        string `mapstructure:"tv" toml:"tv"`
	Book      string `mapstructure:"book" toml:"book"`
	Audiobook string `mapstructure:"audiobook" toml:"audiobook"`
}

type ScanConfig struct {
	MinVideoSizeMB int    `mapstructure:"min_video_size_mb" toml:"min_video_size_mb"`
	IgnoreSamples  bool   `mapstructure:"ignore_samples" toml:"ignore_samples"`
	Concurrency    int    `mapstructure:"concurrency" toml:"concurrency"`
	SourceRoot     string `mapstructure:"source_root" toml:"source_root"`
	ReadAudioTags  bool   `mapstructure:"read_audio_tags" toml:"read_audio_tags"`
}

type UndoConfig struct {
	HistoryFile string `mapstructure:"history_file" toml:"history_file"`
	MaxBatches  int    `mapstructure:"max_batches" toml:"max_batches"`
	// CleanupFloors stop the upward directory prune after an undo. Empty
	// means every destination directory.
	CleanupFloors []string `mapstructure:"cleanup_floors" toml:"cleanup_floors"`
}

type ActivityConfig struct {
	Enabled       bool   `mapstructure:"enabled" toml:"enabled"`
	Dir           string `mapstructure:"dir" toml:"dir"`
	RetentionDays int    `mapstructure:"retention_days" toml:"retention_days"`
}

// WatchConfig controls 'renamer watch'. A file is organized once it has
// seen no writes for SettleSeconds.
type WatchConfig struct {
	SettleSeconds int  `mapstructure:"settle_seconds" toml:"settle_seconds"`
	Recursive     bool `mapstructure:"recursive" toml:"recursive"`
}

type ProvidersConfig struct {
	TimeoutSeconds    int               `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	RetryAttempts     int               `mapstructure:"retry_attempts" toml:"retry_attempts"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second" toml:"requests_per_second"`
	TMDB              TMDBConfig        `mapstructure:"tmdb" toml:"tmdb"`
	GoogleBooks       GoogleBooksConfig `mapstructure:"google_books" toml:"google_books"`
	ITunes            ITunesConfig      `mapstructure:"itunes" toml:"itunes"`
}

type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key" toml:"api_key"`
	BaseURL      string `mapstructure:"base_url" toml:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url" toml:"image_base_url"`
	Language     string `mapstructure:"language" toml:"language"`
}

type GoogleBooksConfig struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key"`
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
}

type ITunesConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
	Country string `mapstructure:"country" toml:"country"`
}

type APIConfig struct {
	Addr           string   `mapstructure:"addr" toml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Destinations: DestinationsConfig{
			Root: "./organized",
		},
		Templates: TemplatesConfig{
			Movie:     "{title} ({year})/{title} ({year}){ext}",
			TV:        "{title}/Season {season}/{title} - s{season}e{episode}{ext}",
			Book:      "{author}/{title}/{title}{ext}",
			Audiobook: "{author}/{title}/{title}{ext}",
		},
		Scan: ScanConfig{
			MinVideoSizeMB: 50,
			IgnoreSamples:  true,
			Concurrency:    5,
			ReadAudioTags:  true,
		},
		Undo: UndoConfig{
			MaxBatches: 50,
		},
		Activity: ActivityConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Watch: WatchConfig{
			SettleSeconds: 30,
			Recursive:     true,
		},
		Providers: ProvidersConfig{
			TimeoutSeconds:    15,
			RetryAttempts:     3,
			RequestsPerSecond: 4,
			TMDB: TMDBConfig{
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p/w200",
				Language:     "en-US",
			},
			GoogleBooks: GoogleBooksConfig{
				BaseURL: "https://www.googleapis.com/books/v1",
			},
			ITunes: ITunesConfig{
				BaseURL: "https://itunes.apple.com",
				Country: "US",
			},
		},
		API: APIConfig{
			Addr:           "127.0.0.1:8000",
			AllowedOrigins: []string{"*"},
		},
		Logging: logging.DefaultConfig(),
	}
}

// envBindings maps flat environment variable names onto config keys.
var envBindings = map[string]string{
	"TMDB_API_KEY":         "providers.tmdb.api_key",
	"GOOGLE_BOOKS_API_KEY": "providers.google_books.api_key",
	"DEST_DIR":             "destinations.root",
	"SOURCE_DIR":           "scan.source_root",
	"MIN_VIDEO_SIZE_MB":    "scan.min_video_size_mb",
	"IGNORE_SAMPLES":       "scan.ignore_samples",
	"MOVIE_TEMPLATE":       "templates.movie",
	"TV_TEMPLATE":          "templates.tv",
	"BOOK_TEMPLATE":        "templates.book",
	"AUDIOBOOK_TEMPLATE":   "templates.audiobook",
	"RENAMER_LOG_LEVEL":    "logging.level",
}

// Load loads configuration from the default path or returns defaults
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom reads path when it exists, applies environment overrides and
// validates the result.
func LoadFrom(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	for env, key := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return v, nil
}

// Validate checks values that would otherwise fail deep inside a scan.
func (c *Config) Validate() error {
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be at least 1, got %d", c.Scan.Concurrency)
	}
	if c.Scan.MinVideoSizeMB < 0 {
		return fmt.Errorf("scan.min_video_size_mb must not be negative")
	}
	if c.Undo.MaxBatches < 1 {
		return fmt.Errorf("undo.max_batches must be at least 1, got %d", c.Undo.MaxBatches)
	}
	if c.Watch.SettleSeconds < 0 {
		return fmt.Errorf("watch.settle_seconds must not be negative")
	}
	if strings.TrimSpace(c.Destinations.Root) == "" {
		return fmt.Errorf("destinations.root must be set")
	}

	probe := naming.Variables("probe.mkv", media.Identity{})
	for t, tmpl := range c.Templates.ByType() {
		if _, err := naming.Expand(tmpl, probe); err != nil {
			return fmt.Errorf("templates.%s: %w", t, err)
		}
	}
	return nil
}

// ByType returns the templates keyed by media type.
func (t TemplatesConfig) ByType() map[media.Type]string {
	return map[media.Type]string{
		media.TypeMovie:     t.Movie,
		media.TypeTV:        t.TV,
		media.TypeBook:      t.Book,
		media.TypeAudiobook: t.Audiobook,
	}
}

// For returns the absolute destination directory for a media type. Unknown
// types land directly in Root.
func (d DestinationsConfig) For(t media.Type) string {
	var dir string
	switch t {
	case media.TypeMovie:
		dir = orDefault(d.Movies, filepath.Join(d.Root, "Movies"))
	case media.TypeTV:
		dir = orDefault(d.TV, filepath.Join(d.Root, "TV Shows"))
	case media.TypeBook:
		dir = orDefault(d.Books, filepath.Join(d.Root, "Books"))
	case media.TypeAudiobook:
		dir = orDefault(d.Audiobooks, filepath.Join(d.Root, "Audiobooks"))
	default:
		dir = d.Root
	}
	return absPath(dir)
}

// All returns the root followed by every per-type destination.
func (d DestinationsConfig) All() []string {
	return []string{
		d.For(media.TypeUnknown),
		d.For(media.TypeMovie),
		d.For(media.TypeTV),
		d.For(media.TypeBook),
		d.For(media.TypeAudiobook),
	}
}

// Floors returns the directories an undo prune must never remove.
func (u UndoConfig) Floors(d DestinationsConfig) []string {
	if len(u.CleanupFloors) == 0 {
		return d.All()
	}
	floors := make([]string, 0, len(u.CleanupFloors))
	for _, f := range u.CleanupFloors {
		floors = append(floors, absPath(f))
	}
	return floors
}

// HistoryPath resolves the undo ledger location.
func (u UndoConfig) HistoryPath() (string, error) {
	if u.HistoryFile != "" {
		return absPath(u.HistoryFile), nil
	}
	return paths.HistoryPath()
}

// ActivityDir resolves the journal directory.
func (a ActivityConfig) ActivityDir() (string, error) {
	if a.Dir != "" {
		return absPath(a.Dir), nil
	}
	return paths.ActivityDir()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func absPath(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := paths.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Save writes the configuration to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration as TOML. The file may carry API keys so it
// is created owner-only.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	body, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	content := append([]byte("# renamer configuration\n# Edit by hand or with: renamer config set <key> <value>\n\n"), body...)
	return os.WriteFile(path, content, 0600)
}

// Set updates one key in the file at path and saves it. Keys use dotted
// notation (scan.min_video_size_mb) or the environment variable names
// (MIN_VIDEO_SIZE_MB).
func Set(path, key, value string) (*Config, error) {
	if mapped, ok := envBindings[strings.ToUpper(key)]; ok {
		key = mapped
	}
	key = strings.ToLower(key)
	if !KnownKey(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	v.Set(key, value)

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to apply %s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.SaveTo(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KnownKey reports whether key names a leaf setting.
func KnownKey(key string) bool {
	body, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return false
	}
	var tree map[string]interface{}
	if err := toml.Unmarshal(body, &tree); err != nil {
		return false
	}

	var node interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return false
		}
		if node, ok = m[part]; !ok {
			return false
		}
	}
	_, isTable := node.(map[string]interface{})
	return !isTable
}

func ConfigPath() (string, error) {
	return paths.ConfigPath()
}

func ConfigExists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
