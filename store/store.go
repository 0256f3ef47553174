package store

import (
	"errors"

	"github.com/axonbase/extcore/types"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("record not found")

// Store is the durable persistence boundary for extension records, keyed by
// extension id. Implementations must provide atomic per-id read-modify-write
// through Update.
type Store interface {
	// Get returns the record for the id, or ErrNotFound.
	Get(id string) (*types.Record, error)

	// Put writes the record, replacing any existing one for the same id.
	Put(rec *types.Record) error

	// Delete removes the record for the id. Deleting an absent id is a
	// no-op.
	Delete(id string) error

	// List returns every stored record.
	List() ([]*types.Record, error)

	// Update atomically applies fn to the current record for the id (nil
	// when absent). A nil result deletes the record; a non-nil result
	// replaces it. Returning an error from fn aborts without writing.
	Update(id string, fn func(*types.Record) (*types.Record, error)) error

	// Close releases the backing resources.
	Close() error
}
