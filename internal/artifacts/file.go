package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fyrsmithlabs/autodev/internal/project"
)

// FileStore writes artifacts into a directory.
type FileStore struct {
	dir        string
	codeFile   string
	schemaFile string

	mu *sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir, codeFile, schemaFile string) *FileStore {
	if codeFile == "" {
		codeFile = "main.rs"
	}
	if schemaFile == "" {
		schemaFile = "api_schema.json"
	}
	return &FileStore{dir: dir, codeFile: codeFile, schemaFile: schemaFile, mu: &sync.Mutex{}}
}

// ForRun implements Store.
func (s *FileStore) ForRun(runID string) Store {
	return &FileStore{
		dir:        filepath.Join(s.dir, filepath.Base(runID)),
		codeFile:   s.codeFile,
		schemaFile: s.schemaFile,
		mu:         &sync.Mutex{},
	}
}

// Location implements Store.
func (s *FileStore) Location() string {
	return s.dir
}

// CodePath returns the path of the code file.
func (s *FileStore) CodePath() string {
	return filepath.Join(s.dir, s.codeFile)
}

// SchemaPath returns the path of the schema file.
func (s *FileStore) SchemaPath() string {
	return filepath.Join(s.dir, s.schemaFile)
}

// SaveCode implements CodeStore.
func (s *FileStore) SaveCode(_ context.Context, code string) error {
	return s.write(s.CodePath(), []byte(code))
}

// LoadCode implements CodeStore.
func (s *FileStore) LoadCode(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.CodePath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, s.CodePath())
	}
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	return string(b), nil
}

// SaveSchema implements SchemaSink.
func (s *FileStore) SaveSchema(_ context.Context, routes []project.RouteDescriptor) error {
	if routes == nil {
		routes = []project.RouteDescriptor{}
	}
	b, err := json.MarshalIndent(routes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	return s.write(s.SchemaPath(), b)
}

// write replaces path atomically via a temp file and rename.
func (s *FileStore) write(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".autodev-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
