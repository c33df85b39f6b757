package storage

import (
	"context"
	"io"
)

// BlobStore holds captured evidence (photos, signature images). The
// engine treats keys as opaque: it stores and counts them, never
// inspects content.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, key string) (string, error) // fs returns "file://..." for dev
}
