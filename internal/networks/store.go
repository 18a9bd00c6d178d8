package networks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and writes whole files.
type Store interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
}

// LoadError wraps any failure to obtain a usable document.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load network config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads and parses the document at path. Every failure is a *LoadError.
func Load(store Store, path string) (*Document, error) {
	data, err := store.Read(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return doc, nil
}

// IsNotExist reports whether a load failed because the file is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// FileStore is a Store on the local filesystem. Writes go to a temporary
// file that is renamed over the target.
type FileStore struct {
	mu sync.Mutex
}

// NewFileStore returns a filesystem store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Read returns the file contents.
func (s *FileStore) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the file with data.
func (s *FileStore) Write(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
