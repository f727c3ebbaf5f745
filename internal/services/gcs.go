package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AnshRaj112/talkback-backend/internal/logger"
)

type GCSOptions struct {
	Bucket          string
	CredentialsFile string
	// PublicBaseURL replaces https://storage.googleapis.com when set (CDN or emulator).
	PublicBaseURL string
}

// GCSStore writes code images to one Cloud Storage bucket. Writes through
// NewWriter replace the object, which gives upsert semantics.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	log           *logger.Logger
}

func NewGCSStore(ctx context.Context, opts GCSOptions, log *logger.Logger) (*GCSStore, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("missing GCS bucket name")
	}
	if log == nil {
		log = logger.Nop()
	}

	clientOpts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	log.Info("Object storage initialized", "backend", StorageGCS, "bucket", opts.Bucket, "public_base_url", opts.PublicBaseURL)
	return &GCSStore{
		client:        client,
		bucket:        opts.Bucket,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		log:           log.With("service", "GCSStore"),
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(cleanKey(key)).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *GCSStore) PublicURL(key string) (string, error) {
	return gcsPublicURL(s.publicBaseURL, s.bucket, key), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func gcsPublicURL(base, bucket, key string) string {
	key = cleanKey(key)
	if base != "" {
		return fmt.Sprintf("%s/%s/%s", base, bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}
