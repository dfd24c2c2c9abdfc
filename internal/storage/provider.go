// Package storage defines the interface for the raw-document object store.
// This abstraction keeps the fetch and backfill loops independent of the
// concrete backend (MinIO via the S3 API in production, an in-memory store
// in tests).
package storage

import (
	"context"
)

// Provider defines the common interface for a blob storage provider.
// It abstracts the operation of saving data.
type Provider interface {
	// Save uploads data to a specified object path/key in the blob store.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider is a storage provider that performs no operations.
// It backs runs with STORE_XML disabled, where metadata is scraped but the
// raw documents are discarded.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
