// Package pgstore implements the persisted cache store on PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS trove_entries (
  path TEXT PRIMARY KEY,
  timestamp_ns BIGINT NOT NULL DEFAULT 0,
  type_name TEXT NOT NULL DEFAULT '',
  object_id TEXT NOT NULL DEFAULT '',
  digest TEXT NOT NULL DEFAULT '',
  cached_at_ns BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trove_objects (
  id TEXT PRIMARY KEY,
  type_name TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  entry_path TEXT NOT NULL REFERENCES trove_entries (path)
    ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
  attributes JSONB
);
CREATE INDEX IF NOT EXISTS idx_trove_objects_type_name ON trove_objects (type_name);
`

// Store implements ports.Store over a database/sql pool using the pgx driver.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreConnectFailed.Error())
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, zerr.Wrap(err, domain.ErrStoreConnectFailed.Error())
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreQueryFailed.Error()), "statement", "schema")
	}
	return &Store{db: db}, nil
}

// Update runs fn in a read-write transaction and commits when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx ports.Tx) error) error {
	return s.run(ctx, false, fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx ports.Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, readOnly bool, fn func(tx ports.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreQueryFailed.Error())
	}

	if err := fn(&tx{ctx: ctx, tx: sqlTx, readOnly: readOnly}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreQueryFailed.Error())
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func queryError(err error, statement string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrStoreQueryFailed.Error()), "statement", statement)
}

func (t *tx) write() error {
	if t.readOnly {
		return domain.ErrReadOnlyTransaction
	}
	return nil
}

const entryColumns = `path, timestamp_ns, type_name, object_id, digest, cached_at_ns`

func scanEntry(row rowScanner) (domain.CacheEntry, error) {
	var (
		entry              domain.CacheEntry
		timestamp, cached int64
	)
	err := row.Scan(&entry.Path, &timestamp, &entry.TypeName, &entry.ObjectID, &entry.Digest, &cached)
	entry.Timestamp = fromNanos(timestamp)
	entry.CachedAt = fromNanos(cached)
	return entry, err
}

func (t *tx) Entry(path string) (*domain.CacheEntry, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+entryColumns+` FROM trove_entries WHERE path = $1`, path)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryError(err, "entry")
	}
	return &entry, nil
}

func (t *tx) Entries() ([]domain.CacheEntry, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT `+entryColumns+` FROM trove_entries ORDER BY path COLLATE "C"`)
	if err != nil {
		return nil, queryError(err, "entries")
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, queryError(err, "entries")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "entries")
	}
	return entries, nil
}

func (t *tx) PutEntry(entry domain.CacheEntry) error {
	if err := t.write(); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx, `
INSERT INTO trove_entries (`+entryColumns+`)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (path)
DO UPDATE SET timestamp_ns=EXCLUDED.timestamp_ns,
  type_name=EXCLUDED.type_name,
  object_id=EXCLUDED.object_id,
  digest=EXCLUDED.digest,
  cached_at_ns=EXCLUDED.cached_at_ns`,
		entry.Path, toNanos(entry.Timestamp), entry.TypeName, entry.ObjectID, entry.Digest, toNanos(entry.CachedAt))
	if err != nil {
		return queryError(err, "put entry")
	}
	return nil
}

func (t *tx) DeleteEntry(path string) error {
	if err := t.write(); err != nil {
		return err
	}
	// objects owned through object_id but recorded under another path go too
	if _, err := t.tx.ExecContext(t.ctx, `
DELETE FROM trove_objects WHERE id IN (SELECT object_id FROM trove_entries WHERE path = $1)`, path); err != nil {
		return queryError(err, "delete entry")
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM trove_entries WHERE path = $1`, path); err != nil {
		return queryError(err, "delete entry")
	}
	return nil
}

const objectColumns = `id, type_name, name, entry_path, attributes`

func scanObject(row rowScanner) (domain.ObjectRecord, error) {
	var (
		object     domain.ObjectRecord
		attributes []byte
	)
	err := row.Scan(&object.ID, &object.TypeName, &object.Name, &object.EntryPath, &attributes)
	if len(attributes) > 0 {
		object.Attributes = attributes
	}
	return object, err
}

func (t *tx) Object(id string) (*domain.ObjectRecord, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+objectColumns+` FROM trove_objects WHERE id = $1`, id)
	object, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryError(err, "object")
	}
	return &object, nil
}

func (t *tx) Objects(typeName string) ([]domain.ObjectRecord, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
SELECT `+objectColumns+` FROM trove_objects
WHERE $1 = '' OR type_name = $1
ORDER BY id COLLATE "C"`, typeName)
	if err != nil {
		return nil, queryError(err, "objects")
	}
	defer func() { _ = rows.Close() }()

	var objects []domain.ObjectRecord
	for rows.Next() {
		object, err := scanObject(rows)
		if err != nil {
			return nil, queryError(err, "objects")
		}
		objects = append(objects, object)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "objects")
	}
	return objects, nil
}

func (t *tx) PutObject(object domain.ObjectRecord) error {
	if err := t.write(); err != nil {
		return err
	}
	var attributes any
	if len(object.Attributes) > 0 {
		attributes = string(object.Attributes)
	}
	_, err := t.tx.ExecContext(t.ctx, `
INSERT INTO trove_objects (`+objectColumns+`)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id)
DO UPDATE SET type_name=EXCLUDED.type_name,
  name=EXCLUDED.name,
  entry_path=EXCLUDED.entry_path,
  attributes=EXCLUDED.attributes`,
		object.ID, object.TypeName, object.Name, object.EntryPath, attributes)
	if err != nil {
		return queryError(err, "put object")
	}
	return nil
}

func (t *tx) DeleteObject(id string) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM trove_objects WHERE id = $1`, id); err != nil {
		return queryError(err, "delete object")
	}
	return nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
