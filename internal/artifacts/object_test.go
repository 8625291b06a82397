package artifacts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/config"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory, path-style S3 endpoint covering the calls
// ObjectStore makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3(t *testing.T, buckets ...string) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{
		buckets: make(map[string]bool),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			_, _ = io.Copy(io.Discard, r.Body)
			f.buckets[bucket] = true
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/xml")
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></LocationConstraint>`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	name := bucket + "/" + key
	switch r.Method {
	case http.MethodPut:
		body, err := readPayload(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[name] = body
		f.types[name] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := f.objects[name]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key><BucketName>%s</BucketName><RequestId>test</RequestId></Error>`, key, bucket)
			}
			return
		}
		w.Header().Set("Content-Type", f.types[name])
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[name]
	return b, ok
}

func (f *fakeS3) hasBucket(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[name]
}

// readPayload returns the object bytes, decoding aws-chunked bodies sent
// with streaming signatures over plain HTTP.
func readPayload(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return io.ReadAll(r.Body)
	}

	var out bytes.Buffer
	br := bufio.NewReader(r.Body)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			return nil, err
		}
		if _, err := br.Discard(2); err != nil {
			return nil, err
		}
	}
}

func newTestObjectStore(t *testing.T, srv *httptest.Server, bucket string) *ObjectStore {
	t.Helper()
	store, err := NewObjectStore(config.S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
		Bucket:    bucket,
		Prefix:    "runs",
	}, "main.rs", "api_schema.json")
	require.NoError(t, err)
	return store
}

func TestObjectStore_CodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeS3(t, "autodev")
	store := newTestObjectStore(t, srv, "autodev").ForRun("r1")

	require.NoError(t, store.SaveCode(ctx, "fn main() { println!(\"hi\"); }"))

	raw, ok := fake.object("autodev/runs/r1/main.rs")
	require.True(t, ok)
	assert.Equal(t, "fn main() { println!(\"hi\"); }", string(raw))

	got, err := store.LoadCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fn main() { println!(\"hi\"); }", got)

	require.NoError(t, store.SaveCode(ctx, "fn main() {}"))
	got, err = store.LoadCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}", got)
}

func TestObjectStore_LoadCodeMissingKey(t *testing.T) {
	_, srv := newFakeS3(t, "autodev")
	store := newTestObjectStore(t, srv, "autodev").ForRun("r1")

	_, err := store.LoadCode(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "runs/r1/main.rs")
}

func TestObjectStore_SaveSchema(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeS3(t, "autodev")
	store := newTestObjectStore(t, srv, "autodev").ForRun("r1")

	routes := []project.RouteDescriptor{
		{IsRouteDynamic: true, Method: "get", Route: "/todos/{id}", Response: map[string]any{"id": float64(1)}},
	}
	require.NoError(t, store.SaveSchema(ctx, routes))

	raw, ok := fake.object("autodev/runs/r1/api_schema.json")
	require.True(t, ok)

	var decoded []project.RouteDescriptor
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, routes, decoded)

	require.NoError(t, store.SaveSchema(ctx, nil))
	raw, _ = fake.object("autodev/runs/r1/api_schema.json")
	assert.JSONEq(t, `[]`, string(raw))
}

func TestObjectStore_EnsureBucket(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeS3(t)
	store := newTestObjectStore(t, srv, "generated")

	require.False(t, fake.hasBucket("generated"))
	require.NoError(t, store.EnsureBucket(ctx))
	assert.True(t, fake.hasBucket("generated"))

	// Existing bucket is left alone.
	require.NoError(t, store.EnsureBucket(ctx))
}
