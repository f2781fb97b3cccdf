package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileStore keeps one directory per device under root, with one
// <name>.json or <name>.jsonl file per record type.
type FileStore struct {
	root   string
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func NewFileStore(root string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		root:   root,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.RWMutex),
	}
}

// deviceLock serialises access to one device directory.
func (s *FileStore) deviceLock(deviceID string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[deviceID]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[deviceID] = l
	}
	return l
}

func (s *FileStore) path(deviceID, name, ext string) string {
	return filepath.Join(s.root, deviceID, name+ext)
}

func (s *FileStore) SaveJSON(ctx context.Context, deviceID, name string, doc Document) error {
	if err := checkKey(deviceID, name); err != nil {
		return err
	}
	l := s.deviceLock(deviceID)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(filepath.Join(s.root, deviceID), 0o755); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := s.path(deviceID, name, ".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) LoadJSON(ctx context.Context, deviceID, name string) (Document, error) {
	if err := checkKey(deviceID, name); err != nil {
		return nil, err
	}
	l := s.deviceLock(deviceID)
	l.RLock()
	defer l.RUnlock()

	data, err := os.ReadFile(s.path(deviceID, name, ".json"))
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func (s *FileStore) AppendJSONL(ctx context.Context, deviceID, name string, doc Document) (Document, error) {
	if err := checkKey(deviceID, name); err != nil {
		return nil, err
	}
	stamped := Stamp(doc, s.now())
	line, err := json.Marshal(stamped)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	line = append(line, '\n')

	l := s.deviceLock(deviceID)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(filepath.Join(s.root, deviceID), 0o755); err != nil {
		return nil, fmt.Errorf("create device dir: %w", err)
	}
	f, err := os.OpenFile(s.path(deviceID, name, ".jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s log: %w", name, err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return nil, fmt.Errorf("append %s: %w", name, err)
	}
	return stamped, nil
}

func (s *FileStore) LoadLatestJSONL(ctx context.Context, deviceID, name string) (Document, error) {
	all, err := s.LoadAllJSONL(ctx, deviceID, name)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return Document{}, nil
	}
	return all[len(all)-1], nil
}

func (s *FileStore) LoadAllJSONL(ctx context.Context, deviceID, name string) ([]Document, error) {
	data, err := s.ExportJSONL(ctx, deviceID, name)
	if err != nil {
		return nil, err
	}

	docs := []Document{}
	skipped := 0
	err = ReadLines(bytes.NewReader(data), func(line []byte) {
		doc, ok := parseLine(line)
		if !ok {
			skipped++
			return
		}
		docs = append(docs, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("read %s log: %w", name, err)
	}
	if skipped > 0 {
		s.logger.Debug("skipped malformed log lines",
			zap.String("device_id", deviceID),
			zap.String("name", name),
			zap.Int("skipped", skipped))
	}
	return docs, nil
}

func (s *FileStore) ExportJSONL(ctx context.Context, deviceID, name string) ([]byte, error) {
	if err := checkKey(deviceID, name); err != nil {
		return nil, err
	}
	l := s.deviceLock(deviceID)
	l.RLock()
	defer l.RUnlock()

	data, err := os.ReadFile(s.path(deviceID, name, ".jsonl"))
	if os.IsNotExist(err) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s log: %w", name, err)
	}
	return data, nil
}
