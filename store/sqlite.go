package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/axonbase/extcore/types"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS extensions (
	id     TEXT PRIMARY KEY,
	record BLOB NOT NULL
);`

// SQLiteStore persists records in a single-table sqlite database. Update
// wraps the read-modify-write in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a sqlite store at the given file.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store at %s: %w", path, err)
	}
	// Per-id writes must serialize; sqlite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create extensions table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the record for the id, or ErrNotFound.
func (s *SQLiteStore) Get(id string) (*types.Record, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT record FROM extensions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return types.UnmarshalRecord(data)
}

// Put writes the record.
func (s *SQLiteStore) Put(rec *types.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO extensions (id, record) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET record = excluded.record`,
		rec.ID, data)
	return err
}

// Delete removes the record for the id.
func (s *SQLiteStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM extensions WHERE id = ?`, id)
	return err
}

// List returns every stored record.
func (s *SQLiteStore) List() ([]*types.Record, error) {
	rows, err := s.db.Query(`SELECT record FROM extensions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*types.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := types.UnmarshalRecord(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update atomically applies fn to the record for the id.
func (s *SQLiteStore) Update(id string, fn func(*types.Record) (*types.Record, error)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current *types.Record
	var data []byte
	err = tx.QueryRow(`SELECT record FROM extensions WHERE id = ?`, id).Scan(&data)
	switch {
	case err == nil:
		current, err = types.UnmarshalRecord(data)
		if err != nil {
			return err
		}
	case errors.Is(err, sql.ErrNoRows):
		// fall through with a nil current
	default:
		return err
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}
	if updated == nil {
		if _, err := tx.Exec(`DELETE FROM extensions WHERE id = ?`, id); err != nil {
			return err
		}
		return tx.Commit()
	}

	out, err := updated.Marshal()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO extensions (id, record) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET record = excluded.record`,
		id, out); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
