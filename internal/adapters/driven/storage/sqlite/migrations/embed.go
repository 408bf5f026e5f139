// Package migrations embeds SQL migration files for the SQLite stores.
//
// shard/ holds the schema of a per-source index shard; state/ holds the
// schema of the shared state database used by the scheduler.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed shard/*.sql state/*.sql
var files embed.FS

// Shard returns the migrations for an index shard.
func Shard() fs.FS {
	return sub("shard")
}

// State returns the migrations for the state database.
func State() fs.FS {
	return sub("state")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return fsys
}
