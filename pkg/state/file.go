package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON file per key under <base>/memory.
type FileStore struct {
	root string
}

func NewFileStore(base string) *FileStore {
	return &FileStore{root: filepath.Join(base, "memory")}
}

// Path returns memory/<chain>/providers/<short>.json, memory/<chain>/countries/<code>.json
// or memory/<chain>/<chain>.json.
func (s *FileStore) Path(key Key) string {
	switch key.Kind {
	case KindProvider:
		return filepath.Join(s.root, key.Chain, "providers", key.Name+".json")
	case KindCountry:
		return filepath.Join(s.root, key.Chain, "countries", key.Name+".json")
	default:
		return filepath.Join(s.root, key.Chain, key.Chain+".json")
	}
}

func (s *FileStore) Get(_ context.Context, key Key, out any) error {
	bz, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bz, out); err != nil {
		return fmt.Errorf("decode %s: %w", s.Path(key), err)
	}
	return nil
}

// Put writes through a temp file and rename so a crash never leaves half a document.
func (s *FileStore) Put(_ context.Context, key Key, v any) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(bz); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
