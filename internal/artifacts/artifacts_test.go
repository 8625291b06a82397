package artifacts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyrsmithlabs/autodev/internal/config"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.rs")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {}"), 0o644))

	got, err := FileTemplate{Path: path}.Template(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}", got)

	_, err = FileTemplate{Path: filepath.Join(t.TempDir(), "missing.rs")}.Template(context.Background())
	assert.Error(t, err)

	_, err = FileTemplate{}.Template(context.Background())
	assert.Error(t, err)
}

func TestFileStore_CodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), "", "")

	_, err := store.LoadCode(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveCode(ctx, "first"))
	require.NoError(t, store.SaveCode(ctx, "second"))

	got, err := store.LoadCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.Equal(t, "main.rs", filepath.Base(store.CodePath()))
}

func TestFileStore_SaveSchema(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), "main.rs", "schema.json")

	routes := []project.RouteDescriptor{
		{IsRouteDynamic: true, Method: "get", Route: "/item/{id}", Response: map[string]any{"id": "number"}},
	}
	require.NoError(t, store.SaveSchema(ctx, routes))

	b, err := os.ReadFile(store.SchemaPath())
	require.NoError(t, err)

	var decoded []project.RouteDescriptor
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "/item/{id}", decoded[0].Route)
	assert.True(t, bool(decoded[0].IsRouteDynamic))
}

func TestFileStore_SaveSchemaNilWritesEmptyArray(t *testing.T) {
	store := NewFileStore(t.TempDir(), "", "")
	require.NoError(t, store.SaveSchema(context.Background(), nil))

	b, err := os.ReadFile(store.SchemaPath())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))
}

func TestFileStore_ForRunIsolatesRuns(t *testing.T) {
	ctx := context.Background()
	root := NewFileStore(t.TempDir(), "", "")

	a := root.ForRun("run-a")
	b := root.ForRun("run-b")
	require.NoError(t, a.SaveCode(ctx, "a"))
	require.NoError(t, b.SaveCode(ctx, "b"))

	got, err := a.LoadCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got)
	assert.Equal(t, filepath.Join(root.Location(), "run-a"), a.Location())
}

func TestFileStore_ForRunStripsTraversal(t *testing.T) {
	root := NewFileStore(t.TempDir(), "", "")
	run := root.ForRun("../../etc")
	assert.Equal(t, filepath.Join(root.Location(), "etc"), run.Location())
}

func TestNew(t *testing.T) {
	store, err := New(config.ArtifactsConfig{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = New(config.ArtifactsConfig{Backend: "ftp"})
	assert.Error(t, err)

	_, err = New(config.ArtifactsConfig{Backend: "s3"})
	assert.Error(t, err)
}

func TestNewObjectStore_Validation(t *testing.T) {
	valid := config.S3Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
		Bucket:    "autodev",
		Prefix:    "/runs/",
	}

	tests := []struct {
		name    string
		mutate  func(*config.S3Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*config.S3Config) {}},
		{name: "missing endpoint", mutate: func(c *config.S3Config) { c.Endpoint = "" }, wantErr: true},
		{name: "endpoint with scheme", mutate: func(c *config.S3Config) { c.Endpoint = "http://localhost:9000" }, wantErr: true},
		{name: "missing bucket", mutate: func(c *config.S3Config) { c.Bucket = " " }, wantErr: true},
		{name: "missing secret", mutate: func(c *config.S3Config) { c.SecretKey = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			store, err := NewObjectStore(cfg, "", "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s3://autodev/runs", store.Location())
		})
	}
}

func TestObjectStore_ForRunKeys(t *testing.T) {
	store, err := NewObjectStore(config.S3Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "autodev",
		Prefix:    "runs",
	}, "main.rs", "api_schema.json")
	require.NoError(t, err)

	run := store.ForRun("abc").(*ObjectStore)
	assert.Equal(t, "runs/abc/main.rs", run.key(run.codeFile))
	assert.Equal(t, "runs/abc/api_schema.json", run.key(run.schemaFile))
	assert.Equal(t, "runs/main.rs", store.key(store.codeFile))
}
