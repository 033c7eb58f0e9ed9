package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, []string{"su"}, cfg.Superusers)
	assert.Equal(t, 8, cfg.MinPasswordLength)
	assert.Equal(t, 16, cfg.MaxTags)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)
}

func TestOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SUPERUSERS", "root, admin ,")
	t.Setenv("TAG_BLACKLIST", "nsfw,spam")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DEBUG", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "admin"}, cfg.Superusers)
	assert.Equal(t, []string{"nsfw", "spam"}, cfg.TagBlacklist)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Debug)
}

func TestInvalidValuesAreReportedTogether(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("MAX_TAGS", "many")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SERVER_PORT")
	assert.Contains(t, err.Error(), "invalid MAX_TAGS")
}

func TestSecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "JWT_SECRET is required")
}

func TestInvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "invalid DB_DRIVER")
}
