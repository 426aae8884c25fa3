package storage

import (
	"context"
	"io"
)

// Storage is a flat key/value blob store for uploaded audio.
type Storage interface {
	// Upload writes data from reader under key, replacing any existing blob.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download returns a reader for the blob. The caller closes it.
	// A missing blob yields a NOT_FOUND app error.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Size returns the blob size in bytes.
	Size(ctx context.Context, key string) (int64, error)

	// URL returns a location for the blob: a file:// URL for local storage,
	// an object URL for S3.
	URL(ctx context.Context, key string) (string, error)
}

// PathResolver hands out a local filesystem path for a blob, so providers
// that upload from disk can read it. release must be called when the path
// is no longer needed.
type PathResolver interface {
	ResolvePath(ctx context.Context, key string) (path string, release func(), err error)
}

// Pinger is implemented by backends that can probe their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
