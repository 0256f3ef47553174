package store

import (
	"fmt"

	"github.com/axonbase/extcore/config"
)

// New builds a Store from configuration.
func New(cfg *config.Store) (Store, error) {
	if cfg == nil {
		return NewMemoryStore(), nil
	}
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(cfg.Path)
	case "sqlite":
		return OpenSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
