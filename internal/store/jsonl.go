// Package store persists session snapshots as JSON Lines: one self-contained
// object per line, appended without rewriting prior lines.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store appends records to a JSONL file. Appends are mutex-guarded and
// written as a single O_APPEND write so concurrent sessions cannot interleave
// inside one record.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append marshals the record and writes it as one line.
func (s *Store) Append(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}

	return nil
}
