package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/AnshRaj112/talkback-backend/internal/codeimage"
	"github.com/AnshRaj112/talkback-backend/internal/config"
	"github.com/AnshRaj112/talkback-backend/internal/logger"
)

const (
	StorageCloudinary = "cloudinary"
	StorageGCS        = "gcs"
)

// NewObjectStore builds the configured code image storage backend.
func NewObjectStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (codeimage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case StorageCloudinary:
		return NewCloudinaryStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.StorageBucket)
	case StorageGCS:
		bucket := cfg.GCSBucketName
		if bucket == "" {
			bucket = cfg.StorageBucket
		}
		return NewGCSStore(ctx, GCSOptions{
			Bucket:          bucket,
			CredentialsFile: cfg.GCSCredentialsFile,
			PublicBaseURL:   cfg.StoragePublicBase,
		}, log)
	}
	return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
}

// cleanKey strips leading slashes and whitespace from an object key.
func cleanKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}

// publicIDForKey drops the extension; Cloudinary tracks format separately.
func publicIDForKey(key string) string {
	key = cleanKey(key)
	return strings.TrimSuffix(key, path.Ext(key))
}
