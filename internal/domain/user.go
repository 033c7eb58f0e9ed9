package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by repositories on a uniqueness violation.
	ErrConflict = errors.New("conflict")
)

// User represents a registered account
type User struct {
	ID           int64     // Assigned by the store
	Username     string    // Unique, non-empty
	PasswordHash string    // Bcrypt hash (never returned in API)
	CreatedAt    time.Time // Set once on registration
}

// RevokedToken records a token identifier that must never validate again
type RevokedToken struct {
	ID        int64
	JTI       string    // Unique token identifier
	RevokedAt time.Time
	ExpiresAt time.Time // Natural expiry of the revoked token
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*User, error)
}

// RevocationStore is the revoked-token registry consulted on every token validation
type RevocationStore interface {
	// Revoke records jti. Recording an already revoked jti succeeds.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
