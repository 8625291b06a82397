// Package artifacts reads the code template and persists the generated code
// and route schema, either on the local filesystem or in S3-compatible
// object storage.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/autodev/internal/config"
	"github.com/fyrsmithlabs/autodev/internal/project"
)

// ErrNotFound is returned by LoadCode when no code has been saved.
var ErrNotFound = errors.New("artifact not found")

// TemplateSource supplies the starting code template.
type TemplateSource interface {
	Template(ctx context.Context) (string, error)
}

// CodeStore persists the latest generated code.
type CodeStore interface {
	SaveCode(ctx context.Context, code string) error
	LoadCode(ctx context.Context) (string, error)
}

// SchemaSink persists the extracted route schema.
type SchemaSink interface {
	SaveSchema(ctx context.Context, routes []project.RouteDescriptor) error
}

// Store is a CodeStore and SchemaSink that can be scoped to a single run.
type Store interface {
	CodeStore
	SchemaSink

	// ForRun returns a Store whose artifacts live under runID.
	ForRun(runID string) Store

	// Location describes where artifacts are written.
	Location() string
}

// FileTemplate reads the template from a file on every call.
type FileTemplate struct {
	Path string
}

// Template implements TemplateSource.
func (f FileTemplate) Template(_ context.Context) (string, error) {
	if f.Path == "" {
		return "", fmt.Errorf("code template path is not configured")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("reading code template: %w", err)
	}
	return string(b), nil
}

// New builds the Store selected by cfg.Backend.
func New(cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir, cfg.CodeFile, cfg.SchemaFile), nil
	case "s3":
		return NewObjectStore(cfg.S3, cfg.CodeFile, cfg.SchemaFile)
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", cfg.Backend)
	}
}
