package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/bunker-search/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
)

const (
	// stateFile is the shared state database inside the index directory.
	stateFile = "state.db"

	writeDSN = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	readDSN  = "?_pragma=busy_timeout(5000)&_pragma=query_only(1)"
)

// StateStore holds state shared by all sources, currently the scheduler's
// task bookkeeping.
type StateStore struct {
	db   *sql.DB
	path string
}

// NewStateStore opens or creates state.db in indexDir.
func NewStateStore(indexDir string) (*StateStore, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(indexDir, stateFile)
	db, err := openDB(dbPath, false)
	if err != nil {
		return nil, err
	}

	if err := migrate(context.Background(), db, migrations.State()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &StateStore{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *StateStore) Path() string {
	return s.path
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *StateStore) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// openDB opens a SQLite database. Writers put the file in WAL mode so
// readers in other processes see the last committed state while a pass runs.
func openDB(path string, readOnly bool) (*sql.DB, error) {
	dsn := path + writeDSN
	if readOnly {
		dsn = path + readDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// migrate runs all pending migrations and records each applied version.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	currentVersion, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}

	upFiles, err := upMigrations(fsys)
	if err != nil {
		return err
	}

	for _, name := range upFiles {
		// e.g. "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// schemaVersion returns the highest applied migration version.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("getting current version: %w", err)
	}
	return version, nil
}

// latestVersion returns the highest migration version available in fsys.
func latestVersion(fsys fs.FS) int {
	upFiles, err := upMigrations(fsys)
	if err != nil {
		return 0
	}
	latest := 0
	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err == nil && version > latest {
			latest = version
		}
	}
	return latest
}

func upMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)
	return upFiles, nil
}
