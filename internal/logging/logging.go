// Package logging provides leveled component logging to the console and an
// optional size-rotated file, as text lines or JSON objects.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	levelOff
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l >= LevelDebug && l <= LevelError {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel maps a config string to a Level; anything unrecognized is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// Field is a key-value pair attached to an entry.
type Field struct {
	Key   string
	Value interface{}
}

func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config is the [logging] config section. Format is "text" or "json".
// Quiet drops console output; the file still receives everything.
type Config struct {
	Level      string `mapstructure:"level" toml:"level"`
	Format     string `mapstructure:"format" toml:"format"`
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
	Quiet      bool   `mapstructure:"quiet" toml:"quiet"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}

// Logger fans each entry out to its writers. A nil *Logger is valid and
// discards everything.
type Logger struct {
	mu      sync.Mutex
	level   Level
	json    bool
	writers []io.Writer
	file    *rotatingFile
	now     func() time.Time
}

func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level: ParseLevel(cfg.Level),
		json:  strings.EqualFold(cfg.Format, "json"),
		now:   time.Now,
	}
	if !cfg.Quiet {
		l.writers = append(l.writers, os.Stderr)
	}
	if cfg.File == "" {
		return l, nil
	}

	path, err := expandHome(cfg.File)
	if err != nil {
		return nil, err
	}
	maxSize := int64(cfg.MaxSizeMB) << 20
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = 5
	}

	f, err := openRotating(path, maxSize, backups)
	if err != nil {
		return nil, err
	}
	l.file = f
	l.writers = append(l.writers, f)
	return l, nil
}

// NewWriter returns a text logger writing to w only.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{level: level, writers: []io.Writer{w}, now: time.Now}
}

// Nop returns a logger that discards all output.
func Nop() *Logger {
	return &Logger{level: levelOff, now: time.Now}
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get home dir: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func (l *Logger) Debug(component, msg string, fields ...Field) {
	l.log(LevelDebug, component, msg, nil, fields)
}

func (l *Logger) Info(component, msg string, fields ...Field) {
	l.log(LevelInfo, component, msg, nil, fields)
}

func (l *Logger) Warn(component, msg string, fields ...Field) {
	l.log(LevelWarn, component, msg, nil, fields)
}

// Error logs msg with err attached as the "error" field.
func (l *Logger) Error(component, msg string, err error, fields ...Field) {
	l.log(LevelError, component, msg, err, fields)
}

func (l *Logger) log(level Level, component, msg string, err error, fields []Field) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || len(l.writers) == 0 {
		return
	}
	if err != nil {
		fields = append([]Field{F("error", err.Error())}, fields...)
	}

	var line []byte
	if l.json {
		line = encodeJSON(l.now(), level, component, msg, fields)
	} else {
		line = encodeText(l.now(), level, component, msg, fields)
	}
	for _, w := range l.writers {
		if _, werr := w.Write(line); werr != nil && w != io.Writer(os.Stderr) {
			fmt.Fprintf(os.Stderr, "log write error: %v\n", werr)
		}
	}
}

// encodeText renders "TIME [LEVEL] [component] msg | k=v | k=v".
func encodeText(ts time.Time, level Level, component, msg string, fields []Field) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s", ts.Format(time.RFC3339), level, component, msg)
	for _, f := range fields {
		fmt.Fprintf(&sb, " | %s=%v", f.Key, f.Value)
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

func encodeJSON(ts time.Time, level Level, component, msg string, fields []Field) []byte {
	obj := make(map[string]interface{}, len(fields)+4)
	for _, f := range fields {
		obj[f.Key] = jsonValue(f.Value)
	}
	obj["time"] = ts.Format(time.RFC3339)
	obj["level"] = level.String()
	obj["component"] = component
	obj["msg"] = msg

	b, err := json.Marshal(obj)
	if err != nil {
		return encodeText(ts, level, component, msg, append(fields, F("encode_error", err)))
	}
	return append(b, '\n')
}

// jsonValue keeps values encoding/json handles natively and stringifies the
// rest (errors, durations, arbitrary structs with unexported fields).
func jsonValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil, string, bool, int, int64, float64, []string:
		return x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	kept := l.writers[:0]
	for _, w := range l.writers {
		if w != io.Writer(l.file) {
			kept = append(kept, w)
		}
	}
	l.writers = kept

	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// FilePath returns the log file path, or "" when logging to the console only.
func (l *Logger) FilePath() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.path
}
