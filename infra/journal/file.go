package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileStore appends entries to a JSONL file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates path if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := mkdirFor(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(e)
}

func (s *FileStore) Query(_ context.Context, q Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := readFiles([]string{s.path})
	if err != nil {
		return nil, err
	}
	return q.apply(entries), nil
}

func (s *FileStore) Close() error { return nil }

// RotatingStore appends entries to a JSONL file rotated by size and age.
// Backups are kept next to the file as name-<timestamp>.ext.
type RotatingStore struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	path   string
}

// NewRotatingStore creates a store with rotation limits in megabytes and days.
func NewRotatingStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingStore, error) {
	if err := mkdirFor(path); err != nil {
		return nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return &RotatingStore{logger: lj, path: path}, nil
}

func (s *RotatingStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.logger).Encode(e)
}

// Rotate closes the current file and starts a new one.
func (s *RotatingStore) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger.Rotate()
}

// Query reads the backups in timestamp order followed by the current file.
func (s *RotatingStore) Query(_ context.Context, q Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext := filepath.Ext(s.path)
	backups, err := filepath.Glob(strings.TrimSuffix(s.path, ext) + "-*" + ext)
	if err != nil {
		return nil, err
	}
	entries, err := readFiles(append(backups, s.path))
	if err != nil {
		return nil, err
	}
	return q.apply(entries), nil
}

func (s *RotatingStore) Close() error { return s.logger.Close() }

func mkdirFor(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// readFiles decodes every entry of files in order. Missing files and
// malformed lines are skipped.
func readFiles(files []string) ([]Entry, error) {
	var out []Entry
	for _, name := range files {
		f, err := os.Open(name)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out, err = decode(f, out)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decode(r io.Reader, out []Entry) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
