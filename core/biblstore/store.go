// Package biblstore persists bibliography snapshots: a SQLite database for
// cross-document sharing and xz-compressed JSON files for single-document
// export. The SQLite driver is pure Go by default; build with -tags
// cgo_sqlite for mattn/go-sqlite3.
package biblstore

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/errors"
)

// DriverType identifies the underlying implementation: "purego" or "cgo".
func DriverType() string { return driverType }

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	location   TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	data       TEXT NOT NULL
);
`

// Store is a snapshot database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, &errors.LoadError{Path: path, Op: "open", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &errors.LoadError{Path: path, Op: "init schema", Err: err}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts the snapshot under its document location.
func (s *Store) Save(ctx context.Context, snap *biblio.Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (location, session_id, data) VALUES (?, ?, ?)
		 ON CONFLICT(location) DO UPDATE SET session_id = excluded.session_id, data = excluded.data`,
		snap.Location, snap.SessionID, string(data))
	if err != nil {
		return &errors.LoadError{Path: snap.Location, Op: "save snapshot", Err: err}
	}
	return nil
}

// Load fetches the snapshot stored under location.
func (s *Store) Load(ctx context.Context, location string) (*biblio.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE location = ?`, location).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &errors.LoadError{Path: location, Op: "load snapshot", Err: errors.ErrNotFound}
	}
	if err != nil {
		return nil, &errors.LoadError{Path: location, Op: "load snapshot", Err: err}
	}
	return biblio.UnmarshalSnapshot([]byte(data))
}

// LoadAll fetches every stored snapshot, ordered by location.
func (s *Store) LoadAll(ctx context.Context) ([]*biblio.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM snapshots ORDER BY location`)
	if err != nil {
		return nil, &errors.LoadError{Op: "load snapshots", Err: err}
	}
	defer rows.Close()

	var snaps []*biblio.Snapshot
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		snap, err := biblio.UnmarshalSnapshot([]byte(data))
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// WriteFile writes the snapshot as JSON, xz-compressed when the path ends
// in .xz.
func WriteFile(path string, snap *biblio.Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return &errors.LoadError{Path: path, Op: "create", Err: err}
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(path, ".xz") {
		xw, err := xz.NewWriter(f)
		if err != nil {
			return &errors.LoadError{Path: path, Op: "compress", Err: err}
		}
		defer xw.Close()
		w = xw
	}
	if _, err := w.Write(data); err != nil {
		return &errors.LoadError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// ReadFile loads a snapshot from a JSON file, decompressing .xz transparently.
// SQLite database paths (.db, .sqlite) go through the store instead; this
// handles the file formats.
func ReadFile(path string) (*biblio.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.LoadError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, &errors.LoadError{Path: path, Op: "decompress", Err: err}
		}
		r = xr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &errors.LoadError{Path: path, Op: "read", Err: err}
	}
	return biblio.UnmarshalSnapshot(data)
}

// ReadAny loads snapshots from path regardless of format: a SQLite database
// yields every stored snapshot, a JSON or JSON.xz file yields one.
func ReadAny(ctx context.Context, path string) ([]*biblio.Snapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		store, err := Open(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadAll(ctx)
	default:
		snap, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []*biblio.Snapshot{snap}, nil
	}
}
