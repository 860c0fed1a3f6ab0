package sqlite

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, FileName)); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.Set("k", "v"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	db.Close()

	// Migrations must be idempotent and data must survive.
	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db.Close()

	v, err := db.Get("k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v != "v" {
		t.Errorf("Get() = %q, want %q", v, "v")
	}
}

// ─── Key-Value ──────────────────────────────────────────────────────────────

func TestGet_Missing(t *testing.T) {
	db := newTestDB(t)
	v, err := db.Get("missing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v != "" {
		t.Errorf("Get() = %q, want empty", v)
	}
}

func TestSet_Upsert(t *testing.T) {
	db := newTestDB(t)

	if err := db.Set("studyplatform_gamification_u1", `{"xp":10}`); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := db.Set("studyplatform_gamification_u1", `{"xp":25}`); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}

	v, _ := db.Get("studyplatform_gamification_u1")
	if v != `{"xp":25}` {
		t.Errorf("Get() = %q, want overwritten value", v)
	}
}

func TestKeys_Prefix(t *testing.T) {
	db := newTestDB(t)
	_ = db.Set("studyplatform_gamification_a", "1")
	_ = db.Set("studyplatform_gamification_b", "2")
	_ = db.Set("other_key", "3")
	_ = db.Set("studyplatform_gam", "4")

	keys, err := db.Keys("studyplatform_gamification_")
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v, want 2 keys", keys)
	}
	for _, k := range keys {
		if k != "studyplatform_gamification_a" && k != "studyplatform_gamification_b" {
			t.Errorf("unexpected key %q", k)
		}
	}
}
