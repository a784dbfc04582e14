package storage

import (
	"context"
	"io"
)

// BlobStore keeps exported result files. Keys are slash separated.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	URL(key string) string // fs returns "file://..." for dev
}
