package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound reports an absent key; implementations map their
// backend's not-found responses onto it.
var ErrObjectNotFound = errors.New("object not found")

// Store abstracts S3-compatible object storage.
type Store interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}
