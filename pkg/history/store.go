package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/switchtrace/switchtrace/pkg/util"
)

// Store persists trace records.
type Store interface {
	Append(ctx context.Context, r *Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, f Filter) ([]*Record, error)

	Close() error
}

// FileStore keeps records in a JSON-lines file
type FileStore struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// RotationConfig configures history file rotation
type RotationConfig struct {
	MaxSize    int64 // Max file size in bytes before rotation
	MaxBackups int   // Max number of old files to retain
}

// NewFileStore opens (or creates) the history file at path
func NewFileStore(path string, rotation RotationConfig) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}

	return &FileStore{
		path:     path,
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
	}, nil
}

// Append writes a record to the history file
func (s *FileStore) Append(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotation.MaxSize > 0 {
		if info, err := s.file.Stat(); err == nil {
			if info.Size() >= s.rotation.MaxSize {
				if err := s.rotate(); err != nil {
					return fmt.Errorf("rotating history file: %w", err)
				}
			}
		}
	}

	return s.encoder.Encode(r)
}

// Query reads the current history file. Rotated files are not searched.
func (s *FileStore) Query(ctx context.Context, f Filter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Record{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []*Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			util.Warnf("history: skipping malformed entry at line %d: %v", lineNum, err)
			continue
		}
		if f.Match(&r) {
			records = append(records, &r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sortNewestFirst(records)
	return f.page(records), nil
}

// Close closes the history file
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func (s *FileStore) rotate() error {
	if err := s.file.Close(); err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102-150405.000")
	rotatedPath := s.path + "." + timestamp

	if err := os.Rename(s.path, rotatedPath); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	s.file = file
	s.encoder = json.NewEncoder(file)

	if s.rotation.MaxBackups > 0 {
		s.cleanupOldFiles()
	}

	return nil
}

func (s *FileStore) cleanupOldFiles() {
	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)

	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path, info.ModTime()})
	}

	if len(files) > s.rotation.MaxBackups {
		sort.Slice(files, func(i, j int) bool {
			if files[i].modTime.Equal(files[j].modTime) {
				return files[i].path < files[j].path
			}
			return files[i].modTime.Before(files[j].modTime)
		})

		toRemove := len(files) - s.rotation.MaxBackups
		for i := 0; i < toRemove; i++ {
			os.Remove(files[i].path)
		}
	}
}

// sortNewestFirst orders records by timestamp, newest first. Records are
// appended oldest first, so ties keep reverse append order.
func sortNewestFirst(records []*Record) {
	slices.Reverse(records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, *Record) error { return nil }

func (NopStore) Query(context.Context, Filter) ([]*Record, error) { return []*Record{}, nil }

func (NopStore) Close() error { return nil }
