// Package postgres is the shared key-value store for deployments where
// several xpd instances serve the same users.
package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is a postgres-backed key-value store.
type DB struct {
	db *sql.DB
}

// Open connects to postgres using a lib/pq DSN or URL. It does not migrate;
// call Migrate (or run `xpd migrate`) first.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db: db}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Migrate applies all pending up migrations. Already-current schemas are not an error.
func (d *DB) Migrate() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	v, dirty, _ := m.Version()
	log.Printf("[postgres] schema at version %d (dirty=%v)", v, dirty)
	return nil
}

// MigrateDown rolls back every migration.
func (d *DB) MigrateDown() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func (d *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := pgmigrate.WithInstance(d.db, &pgmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

// ─── Key-Value ──────────────────────────────────────────────────────────────

// Set stores a key-value pair, replacing any previous value.
func (d *DB) Set(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO gamification_kv (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	return err
}

// Get retrieves a value by key. Returns "" if key not found.
func (d *DB) Get(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM gamification_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Keys lists keys starting with prefix, most recently written first.
func (d *DB) Keys(prefix string) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT key FROM gamification_kv WHERE left(key, length($1)) = $1 ORDER BY updated_at DESC, key`,
		prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
