// Package modelstore is the object-store collaborator holding the deployed
// baseline model. Evaluation reads it, promotion replaces it.
package modelstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/platform/objectstore"
)

// ErrNotFound reports that no model is deployed at the requested key.
var ErrNotFound = errors.New("model not found")

// Registry stores and retrieves deployable model bundles by key.
type Registry interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*learn.ModelBundle, error)
	Put(ctx context.Context, key string, bundle *learn.ModelBundle) error
}

const bundleContentType = "application/json"

// ObjectRegistry keeps bundles in an S3-compatible bucket.
type ObjectRegistry struct {
	store  objectstore.Store
	bucket string
}

func NewObjectRegistry(store objectstore.Store, bucket string) *ObjectRegistry {
	if store == nil || bucket == "" {
		return nil
	}
	return &ObjectRegistry{store: store, bucket: bucket}
}

func (r *ObjectRegistry) Exists(ctx context.Context, key string) (bool, error) {
	if r == nil || r.store == nil {
		return false, fmt.Errorf("model registry not initialized")
	}
	_, err := r.store.Stat(ctx, r.bucket, key)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat model %s: %w", key, err)
	}
	return true, nil
}

func (r *ObjectRegistry) Get(ctx context.Context, key string) (*learn.ModelBundle, error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("model registry not initialized")
	}
	body, _, err := r.store.Get(ctx, r.bucket, key)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, fmt.Errorf("model %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get model %s: %w", key, err)
	}
	defer func() { _ = body.Close() }()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", key, err)
	}
	bundle, err := learn.DecodeBundle(raw)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", key, err)
	}
	return bundle, nil
}

func (r *ObjectRegistry) Put(ctx context.Context, key string, bundle *learn.ModelBundle) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("model registry not initialized")
	}
	raw, err := learn.EncodeBundle(bundle)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, r.bucket, key, bytes.NewReader(raw), int64(len(raw)), bundleContentType); err != nil {
		return fmt.Errorf("put model %s: %w", key, err)
	}
	return nil
}
