package kv

import (
	"context"
	"sync"
)

// Memory implements Substrate in process memory.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64
	used  int64
}

// NewMemory returns an empty in-memory substrate. A positive quotaBytes caps
// the summed size of all keys and values.
func NewMemory(quotaBytes int64) *Memory {
	return &Memory{data: make(map[string]string), quota: quotaBytes}
}

// Driver returns DriverMemory.
func (m *Memory) Driver() Driver { return DriverMemory }

// Get returns the value stored under key.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key, or returns ErrQuotaExceeded and leaves the
// previous value in place.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used
	if old, ok := m.data[key]; ok {
		used -= entrySize(key, old)
	}
	used += entrySize(key, value)
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.used = used
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.used -= entrySize(key, old)
		delete(m.data, key)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
