package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	crdb "github.com/cockroachdb/errors"

	"github.com/hpungsan/sift/internal/store"
)

// Dialect selects the SQL flavour a Backend speaks.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// TimeLayout is the fixed-width UTC form used for created_at, so that
// lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

var _ store.Backend = (*Backend)(nil)

// Backend stores records in the strings table. Every method borrows a
// pooled connection for the duration of one statement only.
type Backend struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect) *Backend {
	return &Backend{db: db, dialect: dialect}
}

// Put inserts rec. The primary key makes insert-if-absent atomic: a
// conflicting row is left alone and reported as store.ErrDuplicateID.
func (b *Backend) Put(ctx context.Context, rec *store.Record) error {
	return b.insert(ctx, b.db, rec)
}

// PutAll inserts recs in one transaction. The first conflicting ID rolls
// the whole batch back.
func (b *Backend) PutAll(ctx context.Context, recs []*store.Record) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return crdb.Wrap(err, "begin batch insert")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, rec := range recs {
		if err = b.insert(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return crdb.Wrap(err, "commit batch insert")
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (b *Backend) insert(ctx context.Context, ex execer, rec *store.Record) error {
	props, err := json.Marshal(rec.Properties)
	if err != nil {
		return crdb.Wrap(err, "marshal properties")
	}

	query := `
		INSERT INTO strings (id, value, properties, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := ex.ExecContext(ctx, b.rebind(query),
		rec.ID, rec.Value, string(props), rec.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return crdb.Wrapf(err, "insert string %s", rec.ID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return crdb.Wrap(err, "rows affected")
	}
	if rowsAffected == 0 {
		return &store.DuplicateIDError{ID: rec.ID}
	}
	return nil
}

// Get retrieves a record by ID, returning (nil, nil) when absent.
func (b *Backend) Get(ctx context.Context, id string) (*store.Record, error) {
	query := `
		SELECT id, value, properties, created_at
		FROM strings
		WHERE id = ?
	`
	rec, err := scanRecord(b.db.QueryRowContext(ctx, b.rebind(query), id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, crdb.Wrapf(err, "get string %s", id)
	}
	return rec, nil
}

// Delete removes a record by ID and reports whether a row was removed.
func (b *Backend) Delete(ctx context.Context, id string) (bool, error) {
	result, err := b.db.ExecContext(ctx, b.rebind(`DELETE FROM strings WHERE id = ?`), id)
	if err != nil {
		return false, crdb.Wrapf(err, "delete string %s", id)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, crdb.Wrap(err, "rows affected")
	}
	return rowsAffected > 0, nil
}

// Scan returns all records in insertion order.
func (b *Backend) Scan(ctx context.Context) ([]*store.Record, error) {
	query := `
		SELECT id, value, properties, created_at
		FROM strings
		ORDER BY ` + b.insertionOrder()

	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, crdb.Wrap(err, "scan strings")
	}
	defer rows.Close()

	var recs []*store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, crdb.Wrap(err, "scan row")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, crdb.Wrap(err, "iterate strings")
	}
	return recs, nil
}

// Close closes the database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}

// insertionOrder is rowid for SQLite; Postgres has no rowid, so creation
// time with id as a tiebreaker stands in.
func (b *Backend) insertionOrder() string {
	if b.dialect == Postgres {
		return "created_at, id"
	}
	return "rowid"
}

// rebind converts ? placeholders to $n for Postgres.
func (b *Backend) rebind(query string) string {
	if b.dialect != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a single row into a Record.
func scanRecord(row rowScanner) (*store.Record, error) {
	var (
		rec       store.Record
		propsJSON string
		createdAt string
	)

	if err := row.Scan(&rec.ID, &rec.Value, &propsJSON, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(propsJSON), &rec.Properties); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = t.UTC()

	return &rec, nil
}
