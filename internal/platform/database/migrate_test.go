package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeropass/migrations"
)

func TestUpMigrationsOrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("select 2")},
		"000001_a.up.sql":   {Data: []byte("select 1")},
		"000001_a.down.sql": {Data: []byte("drop")},
		"embed.go":          {Data: []byte("package migrations")},
	}

	files, err := upMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, files)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := upMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_credentials.up.sql",
		"000002_proofs.up.sql",
		"000003_outbox.up.sql",
	}, files)
}

func TestNewWithoutURLDisablesDatabase(t *testing.T) {
	pool, err := New(t.Context(), DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Error(t, pool.Check(t.Context()))
	assert.NoError(t, pool.Close())
}
