// Package activity keeps a daily JSONL journal of every file the tool moved
// or restored.
package activity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

type Action string

const (
	ActionMove       Action = "move"
	ActionMoveFailed Action = "move_failed"
	ActionUndo       Action = "undo"
	ActionUndoFailed Action = "undo_failed"
)

const (
	filePrefix = "activity-"
	fileSuffix = ".jsonl"
	dateLayout = "2006-01-02"
)

type Entry struct {
	Timestamp  time.Time `json:"ts"`
	Action     Action    `json:"action"`
	BatchID    string    `json:"batch_id,omitempty"`
	Source     string    `json:"source"`
	Target     string    `json:"target,omitempty"`
	MediaType  string    `json:"media_type,omitempty"`
	Title      string    `json:"title,omitempty"`
	Year       *int      `json:"year,omitempty"`
	Associated bool      `json:"associated,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// Journal appends entries to activity-YYYY-MM-DD.jsonl files in one
// directory. A zero Journal pointer discards everything.
type Journal struct {
	mu          sync.Mutex
	dir         string
	currentFile *os.File
	currentDate string
	now         func() time.Time
}

func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create activity dir: %w", err)
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

// Record stamps and appends entries, switching files at midnight.
func (j *Journal) Record(entries ...Entry) error {
	if j == nil || len(entries) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	today := now.Format(dateLayout)
	if j.currentDate != today || j.currentFile == nil {
		if err := j.rotate(today); err != nil {
			return err
		}
	}

	var buf []byte
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode activity entry: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	_, err := j.currentFile.Write(buf)
	return err
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.currentFile == nil {
		return nil
	}
	err := j.currentFile.Close()
	j.currentFile = nil
	return err
}

func (j *Journal) Dir() string {
	if j == nil {
		return ""
	}
	return j.dir
}

// Prune deletes journal files older than retentionDays. Zero keeps all.
func (j *Journal) Prune(retentionDays int) (int, error) {
	if j == nil || retentionDays <= 0 {
		return 0, nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)

	files, err := j.files()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range files {
		date, err := time.ParseInLocation(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), time.Local)
		if err != nil || !date.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	files, err := j.files()
	if err != nil {
		return nil, err
	}
	slices.Reverse(files)

	var results []Entry
	for _, name := range files {
		entries, err := readEntries(filepath.Join(j.dir, name))
		if err != nil {
			continue
		}
		slices.Reverse(entries)
		for _, e := range entries {
			results = append(results, e)
			if len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}

// files lists journal file names in date order.
func (j *Journal) files() ([]string, error) {
	dirEntries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range dirEntries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (j *Journal) rotate(date string) error {
	if j.currentFile != nil {
		j.currentFile.Close()
		j.currentFile = nil
	}

	path := filepath.Join(j.dir, filePrefix+date+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open activity file: %w", err)
	}
	j.currentFile = f
	j.currentDate = date
	return nil
}

func readEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeEntries(f)
}

// decodeEntries reads JSONL, skipping lines that do not parse.
func decodeEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
