package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/fyrsmithlabs/autodev/internal/config"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore writes artifacts to an S3-compatible bucket (MinIO, AWS S3).
type ObjectStore struct {
	client     *minio.Client
	bucket     string
	region     string
	prefix     string
	codeFile   string
	schemaFile string
}

// NewObjectStore creates an ObjectStore. It does not contact the server;
// call EnsureBucket before first use.
func NewObjectStore(cfg config.S3Config, codeFile, schemaFile string) (*ObjectStore, error) {
	if err := validateS3(cfg); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey.Value(), cfg.SecretKey.Value(), ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	if codeFile == "" {
		codeFile = "main.rs"
	}
	if schemaFile == "" {
		schemaFile = "api_schema.json"
	}
	return &ObjectStore{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		codeFile:   codeFile,
		schemaFile: schemaFile,
	}, nil
}

func validateS3(cfg config.S3Config) error {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return errors.New("s3 endpoint is required")
	}
	if strings.Contains(cfg.Endpoint, "://") {
		return fmt.Errorf("s3 endpoint must not include scheme: %q", cfg.Endpoint)
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return errors.New("s3 bucket is required")
	}
	if !cfg.AccessKey.IsSet() || !cfg.SecretKey.IsSet() {
		return errors.New("s3 access key and secret key are required")
	}
	return nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// ForRun implements Store.
func (s *ObjectStore) ForRun(runID string) Store {
	clone := *s
	clone.prefix = path.Join(s.prefix, runID)
	return &clone
}

// Location implements Store.
func (s *ObjectStore) Location() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func (s *ObjectStore) key(name string) string {
	return path.Join(s.prefix, name)
}

// SaveCode implements CodeStore.
func (s *ObjectStore) SaveCode(ctx context.Context, code string) error {
	return s.put(ctx, s.key(s.codeFile), []byte(code), "text/plain; charset=utf-8")
}

// LoadCode implements CodeStore.
func (s *ObjectStore) LoadCode(ctx context.Context) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(s.codeFile), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("getting code object: %w", err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", fmt.Errorf("%w: %s", ErrNotFound, s.key(s.codeFile))
		}
		return "", fmt.Errorf("reading code object: %w", err)
	}
	return string(b), nil
}

// SaveSchema implements SchemaSink.
func (s *ObjectStore) SaveSchema(ctx context.Context, routes []project.RouteDescriptor) error {
	if routes == nil {
		routes = []project.RouteDescriptor{}
	}
	b, err := json.MarshalIndent(routes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	return s.put(ctx, s.key(s.schemaFile), b, "application/json")
}

func (s *ObjectStore) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
