// Package storage provides blob storage for uploaded evidence files.
package storage

import (
	"context"
	"fmt"
)

// Storage is the blob-store contract the pipeline depends on. Download
// failures surface as *StorageError and are retryable.
type Storage interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// StorageError wraps a failure to reach or read a storage key.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
