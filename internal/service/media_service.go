package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/session"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed image MIME types.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaService validates question images and forwards them to the backend.
type MediaService struct {
	cfg *config.Config
	api *backend.Client
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config, api *backend.Client) *MediaService {
	return &MediaService{cfg: cfg, api: api}
}

// Validate checks the MIME type and size of an upload and returns the
// extension the stored file should carry.
func (s *MediaService) Validate(header *multipart.FileHeader) (string, error) {
	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(), ", "))
	}
	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}
	return ext, nil
}

// Upload validates and forwards an image, returning the backend image key.
func (s *MediaService) Upload(ctx context.Context, sess *session.Session, header *multipart.FileHeader) (string, error) {
	ext, err := s.Validate(header)
	if err != nil {
		return "", err
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)) + ext
	uploaded, err := s.api.UploadImage(ctx, sess.Token, name, header.Header.Get("Content-Type"), file)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return uploaded.ImageKey, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
