// Package kv defines the opaque key-value store the application persists
// into, plus an in-memory implementation.
//
// The store is dumb: string keys, string values, no listing and
// no transactions. Everything above it (key naming, record encoding,
// partitioning) lives in repository/kvstore, so any backend that can get,
// set and delete a string can hold the whole application state.
//
// Backends:
//   - Memory          this package, for tests and throwaway sessions
//   - kv/sqlite       a single-table SQLite file (default)
//   - kv/rediskv      a Redis server
package kv

import (
	"context"
	"sync"
)

// Store is a persistent map from string key to string value.
//
// Get reports ok=false for a missing key; that is not an error.
// Delete of a missing key is not an error either.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Memory is a Store backed by a map. Data is lost on Close.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	return nil
}

// Len returns the number of keys held. Used by tests to assert that a
// failed operation wrote nothing.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
