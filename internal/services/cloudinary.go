package services

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps code images under <folder>/<owner>/<item>.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

// Upload overwrites any existing asset with the same public id.
func (s *CloudinaryStore) Upload(ctx context.Context, key, _ string, body io.Reader) error {
	res, err := s.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     publicIDForKey(key),
		Folder:       s.folder,
		Overwrite:    api.Bool(true),
		Invalidate:   api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary rejected upload: %s", res.Error.Message)
	}
	return nil
}

func (s *CloudinaryStore) PublicURL(key string) (string, error) {
	publicID := publicIDForKey(key)
	if s.folder != "" {
		publicID = s.folder + "/" + publicID
	}
	img, err := s.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("cloudinary image %q: %w", publicID, err)
	}
	url, err := img.String()
	if err != nil {
		return "", fmt.Errorf("cloudinary url %q: %w", publicID, err)
	}
	return url, nil
}
