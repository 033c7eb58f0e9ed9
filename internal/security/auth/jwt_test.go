package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndParse(t *testing.T) {
	tm := NewTokenManager("secret", "memedata", time.Minute, time.Hour)

	access, ac, err := tm.Issue("alice", TokenAccess)
	require.NoError(t, err)
	refresh, rc, err := tm.Issue("alice", TokenRefresh)
	require.NoError(t, err)

	assert.NotEqual(t, access, refresh)
	assert.NotEqual(t, ac.ID, rc.ID)

	parsed, err := tm.Parse(refresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.Identity())
	assert.Equal(t, TokenRefresh, parsed.Type)
	assert.Equal(t, rc.ID, parsed.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), parsed.Expiry(), 2*time.Second)
}

func TestParseRejectsExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := NewTokenManager("secret", "", time.Minute, time.Hour).WithClock(func() time.Time { return past })
	token, _, err := issuer.Issue("alice", TokenAccess)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "", time.Minute, time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	token, _, err := NewTokenManager("other", "", 0, 0).Issue("alice", TokenAccess)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "", 0, 0).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{Type: TokenAccess, RegisteredClaims: jwt.RegisteredClaims{
		ID: "x", Subject: "alice", Issuer: "memedata",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "", 0, 0).Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseGarbage(t *testing.T) {
	tm := NewTokenManager("secret", "", 0, 0)
	_, err := tm.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = tm.Parse("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractToken(t *testing.T) {
	tok, err := ExtractToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = ExtractToken("bearer  abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ExtractToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = ExtractToken("Basic abc")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NoError(t, h.Verify(hash, "s3cret-pass"))
	assert.ErrorIs(t, h.Verify(hash, "wrong"), ErrPasswordMismatch)
}
