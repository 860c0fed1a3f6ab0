package memkv

import (
	"errors"
	"testing"
)

func TestStore_GetMissing(t *testing.T) {
	s := New()
	v, err := s.Get("nope")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v != "" {
		t.Errorf("Get() = %q, want empty", v)
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	s := New()
	_ = s.Set("k", "one")
	_ = s.Set("k", "two")

	v, _ := s.Get("k")
	if v != "two" {
		t.Errorf("Get() = %q, want %q", v, "two")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_Fail(t *testing.T) {
	s := New()
	boom := errors.New("disk gone")
	s.Fail(boom)

	if _, err := s.Get("k"); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want %v", err, boom)
	}
	if err := s.Set("k", "v"); !errors.Is(err, boom) {
		t.Errorf("Set() error = %v, want %v", err, boom)
	}
	if err := s.Ping(); !errors.Is(err, boom) {
		t.Errorf("Ping() error = %v, want %v", err, boom)
	}

	s.Fail(nil)
	if err := s.Set("k", "v"); err != nil {
		t.Errorf("Set() after recovery error: %v", err)
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	s := New()
	_ = s.Set("app_b", "1")
	_ = s.Set("app_a", "1")
	_ = s.Set("other", "1")

	keys, err := s.Keys("app_")
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "app_a" || keys[1] != "app_b" {
		t.Errorf("Keys() = %v, want [app_a app_b]", keys)
	}
}
