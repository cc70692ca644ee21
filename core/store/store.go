// Package store is a SQLite-backed catalog of pathway documents. Each
// record keeps the serialized document alongside the model hash, so
// re-adding an unchanged pathway is detected without re-parsing.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
//
// The driver name is "sqlite" or "sqlite3" depending on the
// implementation; Open always picks the right one.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/gopml/gopml/core/errors"
)

// DriverName returns the SQL driver name in use.
func DriverName() string { return driverName }

// DriverType returns "cgo" or "purego".
func DriverType() string { return driverType }

// IsCGO reports whether the CGO implementation is in use.
func IsCGO() bool { return driverType == "cgo" }

// Info describes the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	Package    string `json:"package"`
}

// GetInfo returns the current SQLite configuration.
func GetInfo() Info {
	return Info{DriverName: driverName, DriverType: driverType, Package: driverPackage}
}

// Record is one cataloged pathway.
type Record struct {
	ID       string // uuid, assigned on first put
	Name     string // catalog key, e.g. "WP254"
	Title    string
	Organism string
	Format   string // format version the document was stored in
	Hash     string // model hash of the parsed document
	Data     []byte // serialized GPML document

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is an open pathway catalog.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pathways (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL DEFAULT '',
	organism   TEXT NOT NULL DEFAULT '',
	format     TEXT NOT NULL DEFAULT '',
	hash       TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pathways_hash ON pathways(hash);
CREATE INDEX IF NOT EXISTS idx_pathways_organism ON pathways(organism);
`

// Open opens (creating if needed) a catalog at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize catalog schema")
	}
	return &Store{db: db}, nil
}

// Close closes the catalog.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or updates a record, keyed by name. A missing ID gets a
// fresh uuid. Put reports whether the record was newly created.
func (s *Store) Put(ctx context.Context, rec *Record) (created bool, err error) {
	if rec.Name == "" {
		return false, &errors.ValidationError{Field: "name", Message: "catalog records need a name"}
	}
	now := time.Now().UTC()

	existing, err := s.Get(ctx, rec.Name)
	switch {
	case err == nil:
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		_, err = s.db.ExecContext(ctx,
			`UPDATE pathways SET title=?, organism=?, format=?, hash=?, data=?, updated_at=? WHERE name=?`,
			rec.Title, rec.Organism, rec.Format, rec.Hash, rec.Data, rec.UpdatedAt, rec.Name)
		if err != nil {
			return false, errors.Wrapf(err, "update pathway %q", rec.Name)
		}
		return false, nil
	case errors.Is(err, errors.ErrNotFound):
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO pathways (id, name, title, organism, format, hash, data, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, rec.Title, rec.Organism, rec.Format, rec.Hash, rec.Data, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			return false, errors.Wrapf(err, "insert pathway %q", rec.Name)
		}
		return true, nil
	default:
		return false, err
	}
}

const recordColumns = `id, name, title, organism, format, hash, data, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Name, &rec.Title, &rec.Organism, &rec.Format,
		&rec.Hash, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns the record with the given name.
func (s *Store) Get(ctx context.Context, name string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM pathways WHERE name = ?`, name)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "pathway", ID: name}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get pathway %q", name)
	}
	return rec, nil
}

// FindByHash returns the records whose model hash matches.
func (s *Store) FindByHash(ctx context.Context, hash string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM pathways WHERE hash = ? ORDER BY name`, hash)
	if err != nil {
		return nil, errors.Wrap(err, "find by hash")
	}
	defer rows.Close()
	return collectRecords(rows)
}

// List returns all records ordered by name. Data is included; callers
// listing large catalogs should page via ListNames instead.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM pathways ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list pathways")
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListNames returns all record names ordered.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pathways ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list pathway names")
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan pathway name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan pathway record")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the record with the given name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pathways WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "delete pathway %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete pathway")
	}
	if n == 0 {
		return &errors.NotFoundError{Resource: "pathway", ID: name}
	}
	return nil
}

// Count returns the number of cataloged pathways.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pathways`).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count pathways")
	}
	return n, nil
}
