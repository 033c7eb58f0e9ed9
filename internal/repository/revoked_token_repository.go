package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevokedTokenRepository is the durable revoked-token registry
type RevokedTokenRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRevokedTokenRepository creates a new revoked-token repository
func NewRevokedTokenRepository(db *sqlx.DB, logger *slog.Logger) *RevokedTokenRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevokedTokenRepository{db: db, logger: logger}
}

// Revoke records jti; a jti that is already present is left untouched
func (r *RevokedTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	query := r.db.Rebind(`
		INSERT INTO revoked_tokens (jti, revoked_at, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (jti) DO NOTHING
	`)

	res, err := r.db.ExecContext(ctx, query, jti, formatTime(now()), formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	if n, err := rowsAffected(res); err == nil && n == 0 {
		r.logger.Debug("token already revoked", slog.String("jti", jti))
	}
	return nil
}

// IsRevoked reports whether jti has been revoked
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`), jti)
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return count > 0, nil
}
