package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	for name, fsys := range map[string]fs.FS{"sqlite": SQLite(), "postgres": Postgres()} {
		t.Run(name, func(t *testing.T) {
			matches, err := fs.Glob(fsys, "*.sql")
			require.NoError(t, err)
			require.NotEmpty(t, matches)

			body, err := fs.ReadFile(fsys, "00001_create_users.sql")
			require.NoError(t, err)
			assert.Contains(t, string(body), "-- +goose Up")
			assert.Contains(t, string(body), "UNIQUE INDEX")
		})
	}
}
