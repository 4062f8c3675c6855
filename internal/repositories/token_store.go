package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"csy/internal/config"
	"csy/internal/datastore"
	"csy/internal/services/qr"
)

// NewTokenStore selects the token store backend named by cfg.StoreDriver.
// The returned close func releases backend resources the caller owns.
func NewTokenStore(cfg config.QRConfig, db *gorm.DB) (qr.TokenStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if db == nil {
			return nil, nil, fmt.Errorf("postgres token store requires a database connection")
		}
		return NewQRTokenRepository(db), noop, nil
	case config.StoreDriverSQLite:
		store, err := datastore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoreDriverMemory:
		store := datastore.NewMemoryStore()
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown token store driver %q", cfg.StoreDriver)
}
