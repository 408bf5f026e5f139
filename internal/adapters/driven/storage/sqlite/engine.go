package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/bunker-search/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/bunker-search/internal/analysis"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

// Engine is the local inverted index. Each source lives in its own shard,
// index_dir/<source>.db, so a damaged shard only affects its own source.
type Engine struct {
	dir      string
	analyzer *analysis.Analyzer

	mu      sync.Mutex
	readers map[string]*sql.DB
	writers map[string]struct{}
}

var _ driven.IndexEngine = (*Engine)(nil)

// NewEngine creates an engine rooted at dir, creating the directory if needed.
func NewEngine(dir string, analyzer *analysis.Analyzer) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	if analyzer == nil {
		analyzer = analysis.New()
	}
	return &Engine{
		dir:      dir,
		analyzer: analyzer,
		readers:  make(map[string]*sql.DB),
		writers:  make(map[string]struct{}),
	}, nil
}

// ShardPath returns the database file of a source.
func (e *Engine) ShardPath(source string) string {
	return filepath.Join(e.dir, source+".db")
}

func (e *Engine) lockPath(source string) string {
	return filepath.Join(e.dir, source+".lock")
}

// OpenWriter acquires the writer lock for a source and opens its shard,
// creating it on first use.
func (e *Engine) OpenWriter(ctx context.Context, source string) (driven.IndexWriter, error) {
	e.mu.Lock()
	if _, busy := e.writers[source]; busy {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: source %s", domain.ErrIndexLocked, source)
	}
	e.writers[source] = struct{}{}
	e.mu.Unlock()

	lock, err := acquireLock(e.lockPath(source))
	if err != nil {
		e.releaseWriter(source)
		return nil, err
	}

	db, err := e.openShard(ctx, source)
	if err != nil {
		_ = lock.Release()
		e.releaseWriter(source)
		return nil, err
	}

	return &shardWriter{engine: e, source: source, db: db, lock: lock}, nil
}

func (e *Engine) releaseWriter(source string) {
	e.mu.Lock()
	delete(e.writers, source)
	e.mu.Unlock()
}

// openShard opens a shard for writing. An unreadable shard is moved aside
// to <name>.db.corrupt-<unix> and recreated empty, so the pass rebuilds it.
func (e *Engine) openShard(ctx context.Context, source string) (*sql.DB, error) {
	path := e.ShardPath(source)

	db, err := openMigrated(ctx, path)
	if err == nil {
		return db, nil
	}

	quarantine := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	logger.Warn("shard %s is unreadable (%v); moving it to %s", path, err, quarantine)

	e.dropReader(source)
	if rerr := os.Rename(path, quarantine); rerr != nil {
		return nil, fmt.Errorf("%w: quarantining %s: %v", domain.ErrIndexCorrupt, path, rerr)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}

	db, err = openMigrated(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: recreating %s: %v", domain.ErrIndexCorrupt, path, err)
	}
	return db, nil
}

func openMigrated(ctx context.Context, path string) (*sql.DB, error) {
	db, err := openDB(path, false)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db, migrations.Shard()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// reader returns a cached read-only handle for a source's shard.
// Returns nil and no error when the shard has not been built yet.
func (e *Engine) reader(ctx context.Context, source string) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.readers[source]; ok {
		return db, nil
	}

	path := e.ShardPath(source)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}

	db, err := openDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}

	version, err := schemaVersion(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	if version < latestVersion(migrations.Shard()) {
		db.Close()
		return nil, fmt.Errorf("%w: schema version %d is out of date, reindex %s", domain.ErrIndexCorrupt, version, source)
	}

	e.readers[source] = db
	return db, nil
}

// dropReader closes and forgets a cached read handle.
func (e *Engine) dropReader(source string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.readers[source]; ok {
		db.Close()
		delete(e.readers, source)
	}
}

// Close closes all cached read handles.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for source, db := range e.readers {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing shard %s: %w", source, err))
		}
		delete(e.readers, source)
	}
	return errors.Join(errs...)
}
