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

// TagRepository implements domain.TagRepository
type TagRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

type tagRow struct {
	ID        int64  `db:"tag_id"`
	Content   string `db:"content"`
	CreatedAt string `db:"created_at"`
}

func (r tagRow) toDomain() (domain.Tag, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.Tag{}, err
	}
	return domain.Tag{ID: r.ID, Content: r.Content, CreatedAt: created}, nil
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *sqlx.DB, logger *slog.Logger) *TagRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagRepository{db: db, logger: logger}
}

// FindOrCreate inserts the tag unless the unique index already holds it, then reads it back.
// The boolean reports whether this call created the row.
func (r *TagRepository) FindOrCreate(ctx context.Context, content string) (*domain.Tag, bool, error) {
	insert := r.db.Rebind(`
		INSERT INTO tags (content, created_at)
		VALUES (?, ?)
		ON CONFLICT (content) DO NOTHING
	`)
	res, err := r.db.ExecContext(ctx, insert, content, formatTime(now()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert tag: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, false, err
	}

	var row tagRow
	err = r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT tag_id, content, created_at FROM tags WHERE content = ?`), content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("tag %q vanished after insert: %w", content, domain.ErrNotFound)
		}
		return nil, false, fmt.Errorf("failed to get tag: %w", err)
	}

	tag, err := row.toDomain()
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		r.logger.Debug("tag created", slog.String("content", content), slog.Int64("tag_id", tag.ID))
	}
	return &tag, n > 0, nil
}

// FindByContents returns the existing tags among contents
func (r *TagRepository) FindByContents(ctx context.Context, contents []string) ([]domain.Tag, error) {
	if len(contents) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT tag_id, content, created_at FROM tags WHERE content IN (?)`, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to build tag query: %w", err)
	}

	var rows []tagRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find tags: %w", err)
	}

	tags := make([]domain.Tag, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}
