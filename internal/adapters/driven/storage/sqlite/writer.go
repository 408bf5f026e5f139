package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
)

// shardWriter buffers changes to one shard in a transaction that is
// committed on Commit. Readers keep seeing the previous commit meanwhile.
//
// Adapters consult the manifest from their own goroutine while the pass
// writes, so every method holds mu.
type shardWriter struct {
	engine *Engine
	source string
	db     *sql.DB
	lock   *fileLock

	mu     sync.Mutex
	tx     *sql.Tx
	closed bool
}

var _ driven.IndexWriter = (*shardWriter)(nil)

// begin returns the open transaction, starting one if needed. The
// transaction is detached from ctx so only Commit or Close end it.
// Callers hold mu.
func (w *shardWriter) begin(ctx context.Context) (*sql.Tx, error) {
	if w.closed {
		return nil, domain.ErrAdapterClosed
	}
	if w.tx != nil {
		return w.tx, nil
	}
	tx, err := w.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	w.tx = tx
	return tx, nil
}

// Manifest returns the manifest bound to this writer's transaction.
func (w *shardWriter) Manifest() driven.ManifestStore {
	return &manifestStore{writer: w}
}

// IndexDocument replaces any previous version of the document.
func (w *shardWriter) IndexDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.DocID == "" {
		return domain.ErrInvalidInput
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.begin(ctx)
	if err != nil {
		return err
	}

	postings, length := buildPostings(w.engine.analyzer, doc.Title, doc.Body)

	docKey, found, err := lookupDocKey(ctx, tx, doc.DocID)
	if err != nil {
		return err
	}

	if found {
		if _, err := tx.ExecContext(ctx, "DELETE FROM postings WHERE doc_key = ?", docKey); err != nil {
			return fmt.Errorf("deleting postings of %s: %w", doc.DocID, err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET title = ?, preview = ?, location = ?, url = ?, length = ?
			WHERE doc_key = ?
		`, doc.Title, doc.Preview, doc.Location, doc.URL, length, docKey)
		if err != nil {
			return fmt.Errorf("updating document %s: %w", doc.DocID, err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (doc_id, title, preview, location, url, length)
			VALUES (?, ?, ?, ?, ?, ?)
		`, doc.DocID, doc.Title, doc.Preview, doc.Location, doc.URL, length)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.DocID, err)
		}
		if docKey, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.DocID, err)
		}
	}

	if len(postings) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO postings (term, doc_key, title_tf, body_tf, positions)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing postings insert: %w", err)
	}
	defer stmt.Close()

	for _, term := range sortedTerms(postings) {
		p := postings[term]
		if _, err := stmt.ExecContext(ctx, term, docKey, p.titleTF, p.bodyTF, encodePositions(p.positions)); err != nil {
			return fmt.Errorf("inserting posting %q of %s: %w", term, doc.DocID, err)
		}
	}
	return nil
}

// RemoveDocument deletes a document. Removing an unknown document is a no-op.
func (w *shardWriter) RemoveDocument(ctx context.Context, docID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.begin(ctx)
	if err != nil {
		return err
	}

	docKey, found, err := lookupDocKey(ctx, tx, docID)
	if err != nil || !found {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM postings WHERE doc_key = ?", docKey); err != nil {
		return fmt.Errorf("deleting postings of %s: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE doc_key = ?", docKey); err != nil {
		return fmt.Errorf("deleting document %s: %w", docID, err)
	}
	return nil
}

// Reset empties the shard.
func (w *shardWriter) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.begin(ctx)
	if err != nil {
		return err
	}
	for _, table := range []string{"postings", "documents", "manifest"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("resetting %s: %w", table, err)
		}
	}
	return nil
}

// Commit makes buffered changes visible to readers.
func (w *shardWriter) Commit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return domain.ErrAdapterClosed
	}
	if w.tx == nil {
		return nil
	}
	_, err := w.tx.ExecContext(ctx, `
		INSERT INTO index_meta (key, value) VALUES ('committed_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording commit time: %w", err)
	}
	tx := w.tx
	w.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing shard %s: %w", w.source, err)
	}
	return nil
}

// Close rolls back uncommitted changes and releases the writer lock.
func (w *shardWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("rolling back: %w", err))
		}
		w.tx = nil
	}
	if err := w.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing shard: %w", err))
	}
	if err := w.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	w.engine.releaseWriter(w.source)
	return errors.Join(errs...)
}

func lookupDocKey(ctx context.Context, tx *sql.Tx, docID string) (int64, bool, error) {
	var docKey int64
	err := tx.QueryRowContext(ctx, "SELECT doc_key FROM documents WHERE doc_id = ?", docID).Scan(&docKey)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("looking up document %s: %w", docID, err)
	}
	return docKey, true, nil
}

// manifestStore implements driven.ManifestStore inside a writer's transaction.
type manifestStore struct {
	writer *shardWriter
}

var _ driven.ManifestStore = (*manifestStore)(nil)

// Lookup returns the recorded fingerprint for a document.
func (m *manifestStore) Lookup(ctx context.Context, source, docID string) (string, bool, error) {
	m.writer.mu.Lock()
	defer m.writer.mu.Unlock()

	tx, err := m.writer.begin(ctx)
	if err != nil {
		return "", false, err
	}
	var fingerprint string
	err = tx.QueryRowContext(ctx,
		"SELECT fingerprint FROM manifest WHERE source = ? AND doc_id = ?", source, docID).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up manifest entry: %w", err)
	}
	return fingerprint, true, nil
}

// Record creates or updates an entry.
func (m *manifestStore) Record(ctx context.Context, entry domain.ManifestEntry) error {
	m.writer.mu.Lock()
	defer m.writer.mu.Unlock()

	tx, err := m.writer.begin(ctx)
	if err != nil {
		return err
	}
	indexedAt := entry.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO manifest (source, doc_id, fingerprint, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source, doc_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			indexed_at = excluded.indexed_at
	`, entry.Source, entry.DocID, entry.Fingerprint, indexedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording manifest entry: %w", err)
	}
	return nil
}

// Prune deletes entries whose doc ID was not seen.
func (m *manifestStore) Prune(ctx context.Context, source string, seen map[string]struct{}) ([]string, error) {
	m.writer.mu.Lock()
	defer m.writer.mu.Unlock()

	tx, err := m.writer.begin(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, "SELECT doc_id FROM manifest WHERE source = ?", source)
	if err != nil {
		return nil, fmt.Errorf("listing manifest: %w", err)
	}
	var removed []string
	for rows.Next() {
		var docID string
		if err := rows.Scan(&docID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning manifest: %w", err)
		}
		if _, ok := seen[docID]; !ok {
			removed = append(removed, docID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manifest: %w", err)
	}

	sort.Strings(removed)
	for _, docID := range removed {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM manifest WHERE source = ? AND doc_id = ?", source, docID); err != nil {
			return nil, fmt.Errorf("pruning manifest entry %s: %w", docID, err)
		}
	}
	return removed, nil
}

// Count returns the number of entries for a source.
func (m *manifestStore) Count(ctx context.Context, source string) (int, error) {
	m.writer.mu.Lock()
	defer m.writer.mu.Unlock()

	tx, err := m.writer.begin(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM manifest WHERE source = ?", source).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting manifest: %w", err)
	}
	return n, nil
}
