// Package memkv is an in-process key-value store. It backs the "memory"
// store driver and engine tests; nothing survives a restart.
package memkv

import (
	"sort"
	"strings"
	"sync"
)

// Store is a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
	err  error
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Get returns "" when the key is missing.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return "", s.err
	}
	return s.data[key], nil
}

// Set overwrites the value for key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

// Ping always succeeds unless a failure was injected.
func (s *Store) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys lists keys starting with prefix in lexical order.
func (s *Store) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Fail makes every later call return err until Fail(nil) is called.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
