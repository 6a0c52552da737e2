package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/model"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageUploader defines the interface for image upload operations
type ImageUploader interface {
	UploadImage(ctx context.Context, userID string, kind model.ImageKind, contentType string, file io.Reader, size int64) (*model.UploadImageResponse, error)
	DeleteImage(ctx context.Context, userID, key string) error
}

// UploadService stores product photos and logos
type UploadService struct {
	storage   client.StorageClient
	signedTTL time.Duration
}

func NewUploadService(storage client.StorageClient, signedTTL time.Duration) *UploadService {
	if signedTTL <= 0 {
		signedTTL = defaultSignedURLTTL
	}
	return &UploadService{storage: storage, signedTTL: signedTTL}
}

// IsSupportedImage reports whether the content type can be uploaded
func IsSupportedImage(contentType string) bool {
	_, ok := imageExtensions[contentType]
	return ok
}

// UploadImage stores an image under the caller's prefix and returns its key.
func (s *UploadService) UploadImage(ctx context.Context, userID string, kind model.ImageKind, contentType string, file io.Reader, size int64) (*model.UploadImageResponse, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, model.JobErrorf(model.KindInvalidInput, "unsupported content type %q", contentType)
	}
	if !kind.Valid() {
		return nil, model.JobErrorf(model.KindInvalidInput, "unknown image kind %q", kind)
	}

	key := fmt.Sprintf("images/%s/%s/%s%s", userID, kind, uuid.New().String(), ext)
	if _, err := s.storage.Upload(ctx, key, file, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	url, err := s.storage.GetSignedURL(ctx, key, s.signedTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign image url: %w", err)
	}

	return &model.UploadImageResponse{
		Key:       key,
		Kind:      kind,
		URL:       url,
		Size:      size,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DeleteImage removes one of the caller's images
func (s *UploadService) DeleteImage(ctx context.Context, userID, key string) error {
	if !ownsKey(userID, key) {
		return model.JobErrorf(model.KindNotFound, "image not found")
	}
	return s.storage.Delete(ctx, key)
}

func ownsKey(userID, key string) bool {
	return strings.HasPrefix(key, "images/"+userID+"/")
}
