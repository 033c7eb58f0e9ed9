package service

import (
	"context"
	"testing"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/aryan0dhankhar/memedata/internal/security/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	users       *memUserRepo
	revocations *memRevocations
	hasher      *auth.BcryptHasher
	tokens      *auth.TokenManager
	svc         *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:       newMemUserRepo(),
		revocations: newMemRevocations(),
		hasher:      auth.NewBcryptHasher(bcrypt.MinCost),
		tokens:      auth.NewTokenManager("test-secret", "memedata", time.Minute, time.Hour),
	}
	f.svc = NewAuthService(f.users, f.revocations, f.tokens, f.hasher, nil)

	hash, err := f.hasher.Hash("password123")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), &domain.User{Username: "alice", PasswordHash: hash}))
	return f
}

func TestAuthenticateIssuesDistinctTokens(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.Authenticate(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := f.svc.Validate(context.Background(), pair.AccessToken, auth.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identity())
}

func TestAuthenticateSameErrorForUnknownUserAndBadPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, errUnknown := f.svc.Authenticate(context.Background(), "nobody", "password123")
	_, errWrong := f.svc.Authenticate(context.Background(), "alice", "wrong-password")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.True(t, apperror.Is(errUnknown, apperror.InvalidCredentials))
	assert.True(t, apperror.Is(errWrong, apperror.InvalidCredentials))
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestRevokedAccessTokenStaysInvalid(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	pair, err := f.svc.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)

	_, err = f.svc.Revoke(ctx, pair.AccessToken, auth.TokenAccess)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.Validate(ctx, pair.AccessToken, auth.TokenAccess)
		assert.True(t, apperror.Is(err, apperror.Unauthenticated))
	}

	_, err = f.svc.Revoke(ctx, pair.AccessToken, auth.TokenAccess)
	assert.True(t, apperror.Is(err, apperror.Unauthenticated), "second revocation must fail")

	_, err = f.svc.Validate(ctx, pair.RefreshToken, auth.TokenRefresh)
	assert.NoError(t, err, "revoking the access token leaves the refresh token alone")
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	pair, err := f.svc.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.True(t, apperror.Is(err, apperror.Unauthenticated), "access token cannot refresh")

	access, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := f.svc.Validate(ctx, access, auth.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identity())

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err, "refresh tokens are not rotated")

	_, err = f.svc.Revoke(ctx, pair.RefreshToken, auth.TokenRefresh)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.Unauthenticated))
}

func TestValidateRejectsWrongTypeAndGarbage(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	refresh, err := f.svc.IssueRefresh("alice")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, refresh, auth.TokenAccess)
	assert.True(t, apperror.Is(err, apperror.Unauthenticated))

	_, err = f.svc.Validate(ctx, "", auth.TokenAccess)
	assert.True(t, apperror.Is(err, apperror.Unauthenticated))

	_, err = f.svc.Validate(ctx, "a.b.c", auth.TokenAccess)
	assert.True(t, apperror.Is(err, apperror.Unauthenticated))
}

func TestValidateExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	old := f.tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	token, _, err := old.Issue("alice", auth.TokenAccess)
	require.NoError(t, err)

	_, err = f.svc.Validate(context.Background(), token, auth.TokenAccess)
	assert.True(t, apperror.Is(err, apperror.Unauthenticated))
}

func TestValidateRevocationLookupFailureIsInternal(t *testing.T) {
	f := newAuthFixture(t)
	access, err := f.svc.IssueAccess("alice")
	require.NoError(t, err)

	f.revocations.err = errBoom
	_, err = f.svc.Validate(context.Background(), access, auth.TokenAccess)
	assert.True(t, apperror.Is(err, apperror.Internal))
}
