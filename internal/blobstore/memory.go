package blobstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests.
type Memory struct {
	mu      sync.Mutex
	blob    []byte
	written bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Seed pre-populates the store, as if a prior process had saved the blob.
func (m *Memory) Seed(blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = append([]byte(nil), blob...)
	m.written = true
}

func (m *Memory) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.written {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.blob...), nil
}

func (m *Memory) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = append([]byte(nil), blob...)
	m.written = true
	return nil
}

func (m *Memory) Close() error { return nil }
