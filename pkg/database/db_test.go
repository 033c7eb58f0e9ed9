package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	sqlite := &Config{Driver: DriverSQLite, Path: "/tmp/x.db"}
	dsn, err := sqlite.DSN()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/x.db?"))
	assert.Contains(t, dsn, "foreign_keys")

	pg := &Config{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", Database: "memedata", SSLMode: "disable"}
	dsn, err = pg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=memedata sslmode=disable", dsn)

	_, err = (&Config{Driver: DriverSQLite}).DSN()
	assert.Error(t, err)
	_, err = (&Config{Driver: "mysql"}).DSN()
	assert.Error(t, err)
}

func TestMigrationURL(t *testing.T) {
	u, err := (&Config{Driver: DriverSQLite, Path: "/data/m.db"}).migrationURL()
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///data/m.db", u)

	u, err = (&Config{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p w", Database: "memedata", SSLMode: "disable"}).migrationURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p%20w@db:5432/memedata?sslmode=disable", u)
}

func TestSQLiteMigrateAndConnect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")

	require.NoError(t, Migrate(cfg, nil))
	require.NoError(t, Migrate(cfg, nil), "migrating twice is a no-op")

	pool, err := NewConnectionPool(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, DriverSQLite, pool.Driver())
	require.NoError(t, pool.Health(context.Background()))

	var tables []string
	require.NoError(t, pool.DB().Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_migrations' ORDER BY name`))
	assert.Equal(t, []string{"images", "revoked_tokens", "tags", "text_tags", "texts", "users"}, tables)
}
