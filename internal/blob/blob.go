package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists at the requested key.
var ErrNotFound = errors.New("blob: not found")

// Store is job-scoped object storage. Keys are slash-separated paths; every
// key written by the pipeline is prefixed with a job identifier, so
// concurrent jobs never contend on the same key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
