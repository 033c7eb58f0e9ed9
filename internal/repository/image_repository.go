package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/aryan0dhankhar/memedata/internal/domain"
)

// ImageRepository implements domain.ImageRepository
type ImageRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

type imageRow struct {
	ID        int64          `db:"image_id"`
	MimeType  string         `db:"mimetype"`
	SizeBytes int64          `db:"size_bytes"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt sql.NullString `db:"updated_at"`
}

func (r imageRow) toDomain() (*domain.Image, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseNullTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.Image{
		ID:        r.ID,
		MimeType:  r.MimeType,
		SizeBytes: r.SizeBytes,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *sqlx.DB, logger *slog.Logger) *ImageRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageRepository{db: db, logger: logger}
}

// Create inserts image metadata and fills in ID and CreatedAt
func (r *ImageRepository) Create(ctx context.Context, image *domain.Image) error {
	createdAt := now()
	query := r.db.Rebind(`
		INSERT INTO images (mimetype, size_bytes, created_at)
		VALUES (?, ?, ?)
		RETURNING image_id
	`)
	if err := r.db.QueryRowxContext(ctx, query, image.MimeType, image.SizeBytes, formatTime(createdAt)).Scan(&image.ID); err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	image.CreatedAt = createdAt
	return nil
}

// GetByID retrieves image metadata
func (r *ImageRepository) GetByID(ctx context.Context, id int64) (*domain.Image, error) {
	var row imageRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT image_id, mimetype, size_bytes, created_at, updated_at FROM images WHERE image_id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return row.toDomain()
}

// Update stores new mimetype and size and stamps UpdatedAt
func (r *ImageRepository) Update(ctx context.Context, image *domain.Image) error {
	updatedAt := now()
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE images SET mimetype = ?, size_bytes = ?, updated_at = ? WHERE image_id = ?`),
		image.MimeType, image.SizeBytes, formatTime(updatedAt), image.ID)
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	image.UpdatedAt = &updatedAt
	return nil
}

// Delete removes image metadata
func (r *ImageRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM images WHERE image_id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all images, newest first
func (r *ImageRepository) List(ctx context.Context) ([]*domain.Image, error) {
	var rows []imageRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT image_id, mimetype, size_bytes, created_at, updated_at FROM images ORDER BY created_at DESC, image_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images := make([]*domain.Image, 0, len(rows))
	for _, row := range rows {
		img, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
