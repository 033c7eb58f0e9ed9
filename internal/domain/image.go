package domain

import (
	"context"
	"io"
	"time"
)

// Image is the metadata of an uploaded picture; the bytes live in a BlobStore
type Image struct {
	ID        int64
	MimeType  string // image/png or image/jpeg
	SizeBytes int64
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ImageRepository defines data access for image metadata
type ImageRepository interface {
	Create(ctx context.Context, image *Image) error
	GetByID(ctx context.Context, id int64) (*Image, error)
	Update(ctx context.Context, image *Image) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Image, error)
}

// BlobStore persists raw image bytes under a key
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Move renames from to to, replacing any existing blob at to.
	Move(ctx context.Context, from, to string) error
}
