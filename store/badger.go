package store

import (
	"errors"
	"fmt"

	"github.com/axonbase/extcore/types"
	badger "github.com/dgraph-io/badger/v4"
)

var recordPrefix = []byte("ext/")

// BadgerStore persists records in an embedded badger database. Records are
// stored as JSON under an "ext/" key prefix; Update runs inside a single
// badger transaction, which gives the atomic per-id read-modify-write the
// coordinator depends on.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a badger store at the given directory.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func recordKey(id string) []byte {
	return append(append([]byte{}, recordPrefix...), id...)
}

// Get returns the record for the id, or ErrNotFound.
func (s *BadgerStore) Get(id string) (*types.Record, error) {
	var rec *types.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = types.UnmarshalRecord(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Put writes the record.
func (s *BadgerStore) Put(rec *types.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
}

// Delete removes the record for the id.
func (s *BadgerStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(recordKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// List returns every stored record.
func (s *BadgerStore) List() ([]*types.Record, error) {
	var records []*types.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := types.UnmarshalRecord(val)
				if err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Update atomically applies fn to the record for the id.
func (s *BadgerStore) Update(id string, fn func(*types.Record) (*types.Record, error)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var current *types.Record
		item, err := txn.Get(recordKey(id))
		switch {
		case err == nil:
			err = item.Value(func(val []byte) error {
				current, err = types.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// fall through with a nil current
		default:
			return err
		}

		updated, err := fn(current)
		if err != nil {
			return err
		}
		if updated == nil {
			if current == nil {
				return nil
			}
			return txn.Delete(recordKey(id))
		}
		data, err := updated.Marshal()
		if err != nil {
			return err
		}
		return txn.Set(recordKey(id), data)
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
