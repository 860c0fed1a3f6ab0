package daemon

import (
	"fmt"
	"path/filepath"

	"github.com/studyplatform/xpd/internal/domain"
	"github.com/studyplatform/xpd/internal/infra/memkv"
	"github.com/studyplatform/xpd/internal/infra/postgres"
	"github.com/studyplatform/xpd/internal/infra/sqlite"
)

// RecordStore is a KV backend the engine and the health checker can use.
type RecordStore interface {
	domain.KVStore
	domain.Pinger
	Keys(prefix string) ([]string, error)
}

// OpenStore opens the backend selected by cfg.Driver. The returned func
// closes it. Postgres schemas are migrated up before use.
func OpenStore(cfg StoreConfig) (RecordStore, func() error, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		dir := cfg.Dir
		if dir == "" {
			dir = xpdHome()
		}
		db, err := sqlite.Open(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return db, db.Close, nil

	case DriverPostgres:
		db, err := postgres.Open(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return db, db.Close, nil

	case DriverMemory:
		return memkv.New(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidStoreDriver, cfg.Driver)
	}
}

// storeDataDir is the directory the health checker watches, empty for
// backends that are not file based.
func storeDataDir(cfg StoreConfig) string {
	if cfg.Driver != DriverSQLite && cfg.Driver != "" {
		return ""
	}
	if cfg.Dir == "" {
		return xpdHome()
	}
	return filepath.Clean(cfg.Dir)
}
