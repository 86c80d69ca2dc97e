// Package blobstore provides the durable byte store behind the job
// orchestrator. The contract is deliberately small: one key, one opaque
// blob, read at startup and overwritten whole on every mutation. Backends
// exist for SQLite (default), PostgreSQL, Redis and S3-compatible storage.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when the key has never been written.
var ErrNotFound = errors.New("blob not found")

// Store persists a single opaque blob under a fixed key.
type Store interface {
	// Load reads the current blob. Returns ErrNotFound when no blob has
	// been saved yet.
	Load(ctx context.Context) ([]byte, error)

	// Save overwrites the blob. An empty or nil value is valid and
	// represents a deliberately discarded blob.
	Save(ctx context.Context, blob []byte) error

	Close() error
}
