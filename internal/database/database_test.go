package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOpenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{"documents", "play_events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		require.Equal(t, table, name)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
