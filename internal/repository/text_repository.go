package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/aryan0dhankhar/memedata/internal/domain"
)

// TextRepository implements domain.TextRepository
type TextRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

type textRow struct {
	ID        int64          `db:"text_id"`
	Content   string         `db:"content"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt sql.NullString `db:"updated_at"`
}

func (r textRow) toDomain() (*domain.Text, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseNullTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.Text{
		ID:        r.ID,
		Content:   r.Content,
		CreatedAt: created,
		UpdatedAt: updated,
		Tags:      []domain.Tag{},
	}, nil
}

type textTagRow struct {
	TextID    int64  `db:"text_id"`
	TagID     int64  `db:"tag_id"`
	Content   string `db:"content"`
	CreatedAt string `db:"created_at"`
}

// NewTextRepository creates a new text repository
func NewTextRepository(db *sqlx.DB, logger *slog.Logger) *TextRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextRepository{db: db, logger: logger}
}

// Create inserts the text and its tag links in one transaction.
// A zero CreatedAt is stamped with the current time.
func (r *TextRepository) Create(ctx context.Context, text *domain.Text, tagIDs []int64) error {
	createdAt := text.CreatedAt.UTC()
	if text.CreatedAt.IsZero() {
		createdAt = now()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := tx.Rebind(`
		INSERT INTO texts (content, created_at, updated_at)
		VALUES (?, ?, NULL)
		RETURNING text_id
	`)
	if err := tx.QueryRowxContext(ctx, insert, text.Content, formatTime(createdAt)).Scan(&text.ID); err != nil {
		return fmt.Errorf("failed to create text: %w", err)
	}

	if err := linkTags(ctx, tx, text.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit text: %w", err)
	}

	text.CreatedAt = createdAt
	text.UpdatedAt = nil
	return nil
}

// GetByID retrieves a text with its tags
func (r *TextRepository) GetByID(ctx context.Context, id int64) (*domain.Text, error) {
	var row textRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT text_id, content, created_at, updated_at FROM texts WHERE text_id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get text: %w", err)
	}

	text, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	if err := r.attachTags(ctx, []*domain.Text{text}); err != nil {
		return nil, err
	}
	return text, nil
}

// Update applies a partial update and returns the stored result
func (r *TextRepository) Update(ctx context.Context, id int64, upd domain.TextUpdate) (*domain.Text, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if upd.Content != nil {
		res, err = tx.ExecContext(ctx,
			tx.Rebind(`UPDATE texts SET content = ?, updated_at = ? WHERE text_id = ?`),
			*upd.Content, formatTime(upd.UpdatedAt), id)
	} else {
		res, err = tx.ExecContext(ctx,
			tx.Rebind(`UPDATE texts SET updated_at = ? WHERE text_id = ?`),
			formatTime(upd.UpdatedAt), id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update text: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}

	if upd.SetTags {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM text_tags WHERE text_id = ?`), id); err != nil {
			return nil, fmt.Errorf("failed to clear text tags: %w", err)
		}
		if err := linkTags(ctx, tx, id, upd.TagIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit text update: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes a text and its tag links
func (r *TextRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM text_tags WHERE text_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete text tags: %w", err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM texts WHERE text_id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete text: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

// List returns texts matching filter, newest first, at most filter.Limit+1 rows
func (r *TextRepository) List(ctx context.Context, filter domain.TextFilter) ([]*domain.Text, error) {
	var (
		where []string
		args  []any
	)

	if filter.DateFrom != nil {
		where = append(where, "t.created_at >= ?")
		args = append(args, formatTime(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "t.created_at < ?")
		args = append(args, formatTime(*filter.DateTo))
	}

	switch {
	case len(filter.AllTags) > 0:
		where = append(where, `t.text_id IN (
			SELECT tt.text_id FROM text_tags tt
			JOIN tags g ON g.tag_id = tt.tag_id
			WHERE g.content IN (?)
			GROUP BY tt.text_id
			HAVING COUNT(DISTINCT g.tag_id) = ?)`)
		args = append(args, filter.AllTags, len(filter.AllTags))
	case len(filter.AnyTags) > 0:
		where = append(where, `EXISTS (
			SELECT 1 FROM text_tags tt
			JOIN tags g ON g.tag_id = tt.tag_id
			WHERE tt.text_id = t.text_id AND g.content IN (?))`)
		args = append(args, filter.AnyTags)
	}

	if len(filter.NoTags) > 0 {
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM text_tags tt
			JOIN tags g ON g.tag_id = tt.tag_id
			WHERE tt.text_id = t.text_id AND g.content IN (?))`)
		args = append(args, filter.NoTags)
	}

	var b strings.Builder
	b.WriteString(`SELECT t.text_id, t.content, t.created_at, t.updated_at FROM texts t`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY t.created_at DESC, t.text_id DESC LIMIT ? OFFSET ?")
	args = append(args, int64(filter.Limit)+1, filter.Offset)

	query, args, err := sqlx.In(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build text query: %w", err)
	}

	var rows []textRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("failed to list texts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list texts: %w", err)
	}

	texts := make([]*domain.Text, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}

	if err := r.attachTags(ctx, texts); err != nil {
		return nil, err
	}
	return texts, nil
}

// attachTags loads the tag sets of texts with a single query
func (r *TextRepository) attachTags(ctx context.Context, texts []*domain.Text) error {
	if len(texts) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Text, len(texts))
	ids := make([]int64, 0, len(texts))
	for _, t := range texts {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	query, args, err := sqlx.In(`
		SELECT tt.text_id, g.tag_id, g.content, g.created_at
		FROM text_tags tt
		JOIN tags g ON g.tag_id = tt.tag_id
		WHERE tt.text_id IN (?)
		ORDER BY g.content`, ids)
	if err != nil {
		return fmt.Errorf("failed to build tag query: %w", err)
	}

	var rows []textTagRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load text tags: %w", err)
	}

	for _, row := range rows {
		tag, err := tagRow{ID: row.TagID, Content: row.Content, CreatedAt: row.CreatedAt}.toDomain()
		if err != nil {
			return err
		}
		if t, ok := byID[row.TextID]; ok {
			t.Tags = append(t.Tags, tag)
		}
	}
	return nil
}

func linkTags(ctx context.Context, tx *sqlx.Tx, textID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	stmt := tx.Rebind(`INSERT INTO text_tags (text_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, stmt, textID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %d: %w", tagID, err)
		}
	}
	return nil
}
