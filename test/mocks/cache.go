// Package mocks provides shared test doubles for cross-package collaborators.
package mocks

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory implementation of the cache.Cache interface.
// Setting FailWith makes every operation return that error, which lets tests
// exercise the cache-unavailable fallback paths.
type MockCache struct {
	mu       sync.RWMutex
	data     map[string]string
	FailWith error
}

// NewMockCache creates a new mock cache instance.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

// Get retrieves a value. A missing key returns an empty string, matching the
// Redis-backed implementation.
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	return m.data[key], nil
}

// Set stores a value. The expiration is ignored; entries live until deleted.
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if s, ok := value.(string); ok {
		m.data[key] = s
	}
	return nil
}

// Del deletes keys.
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Health reports the injected failure, if any.
func (m *MockCache) Health(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FailWith
}

// Close is a no-op.
func (m *MockCache) Close() error {
	return nil
}

// Len returns the number of stored entries.
func (m *MockCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
