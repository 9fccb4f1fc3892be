// Package storage serves the pictogram image assets referenced by cards.
// Cards carry a storage key; this package resolves keys to S3-compatible
// object stores (AWS S3, Cloudflare R2, MinIO and friends) and builds the
// public URLs handed to board clients.
package storage

import (
	"context"
	"io"
	"strings"
)

// ObjectStorage is the interface card images are read and written through.
type ObjectStorage interface {
	// Upload stores a pictogram asset under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download streams a pictogram asset
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL resolves a card's storage key to a client-reachable URL
	GetURL(key string) string

	// Delete removes an asset
	Delete(ctx context.Context, key string) error

	// Exists reports whether an asset is present
	Exists(ctx context.Context, key string) (bool, error)
}

// New picks a backend from the configured endpoint. All supported backends
// speak the S3 API, so detection only decides provider quirks (R2 cannot
// create buckets over the API).
func New(cfg *S3Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}
	return NewS3Storage(cfg)
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)
	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
