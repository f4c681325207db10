package journal

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Store persists records to a single JSON file. Records never change
// once appended; the file is rewritten in full on each append.
type Store struct {
	filePath string
	logger   *log.Logger

	mu      sync.Mutex
	records []Record // append order, oldest first
}

// NewStore opens the journal at filePath, loading any existing records.
func NewStore(filePath string, logger *log.Logger) *Store {
	if filePath == "" {
		panic("Journal: filePath cannot be empty")
	}
	if logger == nil {
		panic("Journal: logger cannot be nil")
	}
	s := &Store{
		filePath: filePath,
		logger:   logger,
	}
	s.load()
	return s
}

// Append adds a record and writes the journal to disk.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if err := s.save(); err != nil {
		return fmt.Errorf("failed to save journal: %w", err)
	}
	s.logger.Printf("Journal: recorded %s (%s, %d entries total)", rec.Exercise, rec.Completion, len(s.records))
	return nil
}

// List returns all records, newest first.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		out = append(out, s.records[i])
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		s.logger.Printf("Journal: load %s (no existing file)", s.filePath)
		return
	}
	if err := json.Unmarshal(raw, &s.records); err != nil {
		// Keep the unreadable file out of the way instead of
		// overwriting it on the next append.
		aside := s.filePath + ".corrupt"
		if renameErr := os.Rename(s.filePath, aside); renameErr != nil {
			s.logger.Printf("Journal: load %s failed to parse (%v), and could not move aside: %v", s.filePath, err, renameErr)
		} else {
			s.logger.Printf("Journal: load %s failed to parse (%v), moved aside to %s", s.filePath, err, aside)
		}
		s.records = nil
		return
	}
	s.logger.Printf("Journal: loaded %d entries from %s", len(s.records), s.filePath)
}

// save writes the journal file. Caller must hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, raw, 0644)
}
