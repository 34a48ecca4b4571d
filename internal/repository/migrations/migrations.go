// Package migrations embeds the versioned goose migrations for each store.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// SQLite returns the migrations for the modernc SQLite store.
func SQLite() fs.FS {
	return mustSub("sqlite")
}

// Postgres returns the migrations for the Postgres store.
func Postgres() fs.FS {
	return mustSub("postgres")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		// Only reachable if the embed pattern above is changed.
		panic(err)
	}
	return sub
}
