// Package store persists agent psyches. The file backend is the default for
// local runs; the postgres backend is used when a DSN is configured. Both
// key by the lower-cased agent name and hold one JSON document per agent.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nworb999/stable-genius/internal/psyche"
)

// ErrNotFound is returned when no psyche exists for the requested agent.
var ErrNotFound = errors.New("psyche not found")

// PsycheStore is the persistence port for agent psyches.
type PsycheStore interface {
	Load(ctx context.Context, name string) (*psyche.Psyche, error)
	Save(ctx context.Context, p *psyche.Psyche) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// FileStore keeps one JSON file per agent under a data directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, psyche.Key(name)+".json")
}

func (s *FileStore) Load(_ context.Context, name string) (*psyche.Psyche, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read psyche %s: %w", name, err)
	}
	var p psyche.Psyche
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode psyche %s: %w", name, err)
	}
	p.Normalize()
	return &p, nil
}

func (s *FileStore) Save(_ context.Context, p *psyche.Psyche) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode psyche %s: %w", p.Name, err)
	}
	tmp := s.path(p.Name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write psyche %s: %w", p.Name, err)
	}
	return os.Rename(tmp, s.path(p.Name))
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete psyche %s: %w", name, err)
	}
	return nil
}
