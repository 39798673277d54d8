// ABOUTME: SQLite snapshot backend using WAL mode and a single connection
// ABOUTME: Save rewrites every table inside one transaction
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/harperreed/funnel/models"
)

// OpenDatabase opens (creating if needed) the SQLite file at path and
// initializes the schema.
func OpenDatabase(path string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		if isCorrupt(err) {
			return nil, corrupt(path, err)
		}
		return nil, err
	}

	return db, nil
}

func isCorrupt(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrNotADB || se.Code == sqlite3.ErrCorrupt
	}
	return false
}

// SQLiteBackend stores each entity as a JSON row keyed by its id.
type SQLiteBackend struct {
	db   *sql.DB
	path string
	// openErr holds the corruption found at open; Load reports it and the
	// first Save moves the file aside.
	openErr error
}

// NewSQLiteBackend opens the database at path. A file that is not a usable
// database still yields a backend whose Load returns ErrCorruptSnapshot.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := OpenDatabase(path)
	if errors.Is(err, ErrCorruptSnapshot) {
		return &SQLiteBackend{path: path, openErr: err}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

// DB exposes the underlying handle. It is nil while the file is corrupt.
func (b *SQLiteBackend) DB() *sql.DB { return b.db }

func (b *SQLiteBackend) Load(ctx context.Context) (*models.Snapshot, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	snap := models.EmptySnapshot()
	var err error
	if snap.Contacts, err = loadRows[models.Contact](ctx, b.db, "contacts"); err != nil {
		return nil, err
	}
	if snap.Leads, err = loadRows[models.Lead](ctx, b.db, "leads"); err != nil {
		return nil, err
	}
	if snap.Campaigns, err = loadRows[models.Campaign](ctx, b.db, "campaigns"); err != nil {
		return nil, err
	}
	if snap.Documents, err = loadRows[models.Document](ctx, b.db, "documents"); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadRows[T any](ctx context.Context, db *sql.DB, table string) ([]T, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, data FROM "+table+" ORDER BY id")
	if err != nil {
		if isCorrupt(err) {
			return nil, corrupt(table, err)
		}
		return nil, persistence("query "+table, err)
	}
	defer func() { _ = rows.Close() }()

	out := []T{}
	for rows.Next() {
		var (
			id   int
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, persistence("scan "+table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, corrupt(fmt.Sprintf("%s row %d", table, id), err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("iterate "+table, err)
	}
	return out, nil
}

// recreate renames the corrupt file (and its WAL files) to
// <path>.corrupt-<timestamp> and opens a fresh database in its place.
func (b *SQLiteBackend) recreate() error {
	aside := fmt.Sprintf("%s.corrupt-%s", b.path, time.Now().Format("20060102-150405"))
	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Rename(b.path+suffix, aside+suffix)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return persistence("move corrupt database aside", err)
		}
	}
	db, err := OpenDatabase(b.path)
	if err != nil {
		return persistence("recreate database", err)
	}
	b.db, b.openErr = db, nil
	return nil
}

func (b *SQLiteBackend) Save(ctx context.Context, snap *models.Snapshot) error {
	if b.openErr != nil {
		if err := b.recreate(); err != nil {
			return err
		}
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return persistence("clear "+table, err)
		}
	}
	if err := saveRows(ctx, tx, "contacts", snap.Contacts, func(c models.Contact) int { return c.ID }); err != nil {
		return err
	}
	if err := saveRows(ctx, tx, "leads", snap.Leads, func(l models.Lead) int { return l.ID }); err != nil {
		return err
	}
	if err := saveRows(ctx, tx, "campaigns", snap.Campaigns, func(c models.Campaign) int { return c.ID }); err != nil {
		return err
	}
	if err := saveRows(ctx, tx, "documents", snap.Documents, func(d models.Document) int { return d.ID }); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistence("commit", err)
	}
	return nil
}

func saveRows[T any](ctx context.Context, tx *sql.Tx, table string, items []T, id func(T) int) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (id, data) VALUES (?, ?)")
	if err != nil {
		return persistence("prepare "+table, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return persistence("encode "+table, err)
		}
		if _, err := stmt.ExecContext(ctx, id(it), string(data)); err != nil {
			return persistence(fmt.Sprintf("insert %s %d", table, id(it)), err)
		}
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
