package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/aryan0dhankhar/memedata/internal/observability/metrics"
	"github.com/aryan0dhankhar/memedata/internal/security/auth"
)

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// TokenPair is the result of a successful login
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService issues, validates, refreshes and revokes tokens
type AuthService struct {
	users       domain.UserRepository
	revocations domain.RevocationStore
	tokens      *auth.TokenManager
	hasher      PasswordHasher
	dummyHash   string
	logger      *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	revocations domain.RevocationStore,
	tokens *auth.TokenManager,
	hasher PasswordHasher,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	// Unknown usernames are checked against this hash so both failure
	// paths cost one bcrypt comparison.
	dummyHash, err := hasher.Hash("memedata-timing-equalizer")
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
	}

	return &AuthService{
		users:       users,
		revocations: revocations,
		tokens:      tokens,
		hasher:      hasher,
		dummyHash:   dummyHash,
		logger:      logger,
	}
}

// Authenticate checks username and password and issues a token pair.
// Unknown users and wrong passwords fail with the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NewInternal("failed to load user", err)
		}
		if s.dummyHash != "" {
			_ = s.hasher.Verify(s.dummyHash, password)
		}
		metrics.ObserveAuthFailure("unknown_user")
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		return nil, apperror.NewInvalidCredentials()
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.NewInternal("failed to verify password", err)
		}
		metrics.ObserveAuthFailure("bad_password")
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, apperror.NewInvalidCredentials()
	}

	access, err := s.IssueAccess(user.Username)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefresh(user.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints a short-lived access token
func (s *AuthService) IssueAccess(identity string) (string, error) {
	return s.issue(identity, auth.TokenAccess)
}

// IssueRefresh mints a long-lived refresh token
func (s *AuthService) IssueRefresh(identity string) (string, error) {
	return s.issue(identity, auth.TokenRefresh)
}

func (s *AuthService) issue(identity string, typ auth.TokenType) (string, error) {
	token, _, err := s.tokens.Issue(identity, typ)
	if err != nil {
		return "", apperror.NewInternal("failed to generate token", err)
	}
	metrics.ObserveTokenIssued(string(typ))
	return token, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token stays valid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Validate(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", err
	}
	return s.IssueAccess(claims.Identity())
}

// Revoke invalidates a valid token of the expected type for good
func (s *AuthService) Revoke(ctx context.Context, token string, expected auth.TokenType) (*auth.Claims, error) {
	claims, err := s.Validate(ctx, token, expected)
	if err != nil {
		return nil, err
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		return nil, apperror.NewInternal("failed to revoke token", err)
	}
	metrics.ObserveRevocation(string(expected))

	s.logger.Info("token revoked",
		slog.String("identity", claims.Identity()),
		slog.String("type", string(expected)),
		slog.String("jti", claims.ID),
	)
	return claims, nil
}

// Validate parses token and checks its type and revocation status
func (s *AuthService) Validate(ctx context.Context, token string, expected auth.TokenType) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			metrics.ObserveAuthFailure("expired")
			return nil, apperror.NewUnauthenticated("token has expired", err)
		case errors.Is(err, auth.ErrMissingToken):
			metrics.ObserveAuthFailure("missing")
			return nil, apperror.NewUnauthenticated("missing authorization token", err)
		default:
			metrics.ObserveAuthFailure("invalid")
			return nil, apperror.NewUnauthenticated("invalid token", err)
		}
	}

	if claims.Type != expected {
		metrics.ObserveAuthFailure("wrong_type")
		return nil, apperror.NewUnauthenticated("only "+string(expected)+" tokens are allowed", auth.ErrWrongType)
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperror.NewInternal("failed to check token revocation", err)
	}
	if revoked {
		metrics.ObserveAuthFailure("revoked")
		return nil, apperror.NewUnauthenticated("token has been revoked", nil)
	}

	return claims, nil
}
