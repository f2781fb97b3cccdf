// Package history keeps the Patient Corner conversation log: a JSONL file for
// machines and a plain-text mirror for people reading it on disk.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"mentalytics/internal/store"
)

const (
	jsonlFile = "conversations.jsonl"
	textFile  = "conversations.txt"

	// TimeLayout is UTC with a literal Z suffix.
	TimeLayout = "2006-01-02T15:04:05Z"
)

// Entry is one question and answer.
type Entry struct {
	TS        string `json:"ts"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	LatencyMS *int64 `json:"latency_ms"`
}

type Log struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func New(dir string, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{dir: dir, logger: logger, now: time.Now}
}

func (l *Log) jsonlPath() string { return filepath.Join(l.dir, jsonlFile) }
func (l *Log) textPath() string  { return filepath.Join(l.dir, textFile) }

// Save appends one entry to both files. A negative latency is stored as null.
func (l *Log) Save(prompt, response string, latency time.Duration) (Entry, error) {
	e := Entry{
		TS:       l.now().UTC().Format(TimeLayout),
		Prompt:   prompt,
		Response: response,
	}
	if latency >= 0 {
		ms := latency.Milliseconds()
		e.LatencyMS = &ms
	}

	line, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("create history dir: %w", err)
	}
	if err := appendFile(l.jsonlPath(), append(line, '\n')); err != nil {
		return Entry{}, err
	}

	latencyText := "None"
	if e.LatencyMS != nil {
		latencyText = fmt.Sprintf("%d", *e.LatencyMS)
	}
	text := fmt.Sprintf("[%s] Q: %s\nA: %s\nLatency: %s ms\n---\n", e.TS, prompt, response, latencyText)
	if err := appendFile(l.textPath(), []byte(text)); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Last returns the n most recent entries in write order. n <= 0 returns all.
func (l *Log) Last(n int) ([]Entry, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// All returns every well-formed entry. Corrupt lines are ignored.
func (l *Log) All() ([]Entry, error) {
	data, err := l.Export()
	if err != nil {
		return nil, err
	}
	entries := []Entry{}
	err = store.ReadLines(bytes.NewReader(data), func(line []byte) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return
		}
		entries = append(entries, e)
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}

// Clear removes both files. Failures are logged and otherwise ignored.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range []string{l.jsonlPath(), l.textPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("clear history", zap.String("path", p), zap.Error(err))
		}
	}
}

// Export returns the raw JSONL content, or an empty slice when no history exists.
func (l *Log) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.jsonlPath())
	if errors.Is(err, os.ErrNotExist) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return data, nil
}
