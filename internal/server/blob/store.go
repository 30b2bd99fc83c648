// Package blob is the key/value object store holding status documents and
// run artifacts. Writes can be made conditional on an ETag so callers can
// build compare-and-swap on top of it.
package blob

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("blob not found")
	ErrPreconditionFailed = errors.New("blob precondition failed")
)

// PutOptions controls a single write.
type PutOptions struct {
	ContentType string
	// IfMatch makes the write succeed only if the stored ETag equals it.
	IfMatch string
	// IfNoneMatch makes the write succeed only if the key does not exist.
	IfNoneMatch bool
}

type Store interface {
	// EnsureBucket creates the container if it is absent. Idempotent.
	EnsureBucket(ctx context.Context) error
	// Put writes data under key and returns the new ETag. A failed
	// condition is reported as ErrPreconditionFailed.
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error)
	// Get returns the object and its ETag, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, string, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// PresignGet returns a read-only URL for key that expires after ttl.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
