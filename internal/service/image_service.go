package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxImageBytes caps uploads when no limit is configured
const DefaultMaxImageBytes = 8 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
}

// ImageService stores image metadata in the database and bytes in a blob store
type ImageService struct {
	images   domain.ImageRepository
	blobs    domain.BlobStore
	maxBytes int64
	logger   *slog.Logger
}

// NewImageService creates an image service
func NewImageService(images domain.ImageRepository, blobs domain.BlobStore, maxBytes int64, logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageService{images: images, blobs: blobs, maxBytes: maxBytes, logger: logger}
}

// BlobKey is the file name of an image's bytes
func BlobKey(img *domain.Image) string {
	return fmt.Sprintf("%d.%s", img.ID, imageExtensions[img.MimeType])
}

// readImage reads at most maxBytes and sniffs the content type
func (s *ImageService) readImage(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, "", apperror.NewValidation("image", "failed to read upload")
	}
	if len(data) == 0 {
		return nil, "", apperror.NewValidation("image", "is required")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", apperror.NewValidation("image", fmt.Sprintf("must not exceed %d bytes", s.maxBytes))
	}

	mt := mimetype.Detect(data)
	for allowed := range imageExtensions {
		if mt.Is(allowed) {
			return data, allowed, nil
		}
	}
	return nil, "", apperror.NewValidation("image", fmt.Sprintf("unsupported type %s, only png and jpeg are accepted", mt.String()))
}

// Upload stores a new image
func (s *ImageService) Upload(ctx context.Context, r io.Reader) (*domain.Image, error) {
	data, mimeType, err := s.readImage(r)
	if err != nil {
		return nil, err
	}

	img := &domain.Image{MimeType: mimeType, SizeBytes: int64(len(data))}
	if err := s.images.Create(ctx, img); err != nil {
		return nil, apperror.NewInternal("failed to create image", err)
	}

	if _, err := s.blobs.Put(ctx, BlobKey(img), bytes.NewReader(data)); err != nil {
		if delErr := s.images.Delete(ctx, img.ID); delErr != nil {
			s.logger.Error("failed to roll back image metadata",
				slog.Int64("image_id", img.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, apperror.NewInternal("failed to store image", err)
	}

	s.logger.Info("image uploaded",
		slog.Int64("image_id", img.ID),
		slog.String("mimetype", img.MimeType),
		slog.Int64("size_bytes", img.SizeBytes),
	)
	return img, nil
}

// Replace swaps the bytes of an existing image
func (s *ImageService) Replace(ctx context.Context, id int64, r io.Reader) (*domain.Image, error) {
	img, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldKey := BlobKey(img)

	data, mimeType, err := s.readImage(r)
	if err != nil {
		return nil, err
	}

	img.MimeType = mimeType
	img.SizeBytes = int64(len(data))
	newKey := BlobKey(img)

	// New bytes stay staged until the metadata update commits.
	staged := newKey + ".staged-" + uuid.NewString()
	if _, err := s.blobs.Put(ctx, staged, bytes.NewReader(data)); err != nil {
		return nil, apperror.NewInternal("failed to store image", err)
	}
	if err := s.images.Update(ctx, img); err != nil {
		if derr := s.blobs.Delete(ctx, staged); derr != nil {
			s.logger.Warn("failed to discard staged image file",
				slog.String("key", staged),
				slog.String("error", derr.Error()),
			)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("image %d does not exist", id))
		}
		return nil, apperror.NewInternal("failed to update image", err)
	}
	if err := s.blobs.Move(ctx, staged, newKey); err != nil {
		return nil, apperror.NewInternal("failed to store image", err)
	}

	if oldKey != newKey {
		if err := s.blobs.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("failed to delete replaced image file",
				slog.String("key", oldKey),
				slog.String("error", err.Error()),
			)
		}
	}
	return img, nil
}

// Get returns image metadata
func (s *ImageService) Get(ctx context.Context, id int64) (*domain.Image, error) {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("image %d does not exist", id))
		}
		return nil, apperror.NewInternal("failed to get image", err)
	}
	return img, nil
}

// Open returns image metadata and a reader over its bytes; the caller closes it
func (s *ImageService) Open(ctx context.Context, id int64) (*domain.Image, io.ReadCloser, error) {
	img, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, BlobKey(img))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, apperror.NewNotFound(fmt.Sprintf("image %d has no stored file", id))
		}
		return nil, nil, apperror.NewInternal("failed to open image", err)
	}
	return img, rc, nil
}

// List returns all image metadata
func (s *ImageService) List(ctx context.Context) ([]*domain.Image, error) {
	images, err := s.images.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to list images", err)
	}
	return images, nil
}

// Delete removes the metadata and then the file
func (s *ImageService) Delete(ctx context.Context, id int64) error {
	img, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.images.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("image %d does not exist", id))
		}
		return apperror.NewInternal("failed to delete image", err)
	}
	if err := s.blobs.Delete(ctx, BlobKey(img)); err != nil {
		s.logger.Warn("failed to delete image file",
			slog.Int64("image_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Info("image deleted", slog.Int64("image_id", id))
	return nil
}
