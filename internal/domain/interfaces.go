package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// Infrastructure implements these; the application layer depends on them.

// KVStore is the string key-value medium the gamification record lives in.
// Implemented by infra/sqlite, infra/postgres and infra/memkv.
type KVStore interface {
	// Get returns "" with a nil error when the key does not exist.
	Get(key string) (string, error)

	// Set overwrites the value for key in a single write.
	Set(key, value string) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping() error
}

// ActivitySource fetches the platform activity for the user owning token.
// Implemented by infra/platform.Client.
type ActivitySource interface {
	Snapshot(ctx context.Context, token string) (ActivitySnapshot, error)
}
