package modelstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/platform/objectstore"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[bucket+"/"+key] = raw
	return nil
}

func (s *memStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	raw, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, objectstore.ObjectInfo{}, fmt.Errorf("%s/%s: %w", bucket, key, objectstore.ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(raw)), objectstore.ObjectInfo{Key: key, Size: int64(len(raw))}, nil
}

func (s *memStore) Stat(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	raw, ok := s.objects[bucket+"/"+key]
	if !ok {
		return objectstore.ObjectInfo{}, fmt.Errorf("%s/%s: %w", bucket, key, objectstore.ErrObjectNotFound)
	}
	return objectstore.ObjectInfo{Key: key, Size: int64(len(raw))}, nil
}

func testBundle() *learn.ModelBundle {
	scaler := learn.NewColumnScaler([]string{"a"}, nil)
	_ = scaler.Fit(learn.Table{Columns: []string{"a"}, Rows: [][]float64{{1}, {2}}})
	forest := learn.NewForest(learn.ForestConfig{
		Trees: 2, MinSamplesSplit: 2, MinSamplesLeaf: 1, Criterion: learn.CriterionGini, Seed: 1,
	})
	_ = forest.Fit([][]float64{{0}, {1}, {0}, {1}}, []int{0, 1, 0, 1})
	return learn.NewModelBundle(scaler, forest)
}

func TestObjectRegistry_PutGetExists(t *testing.T) {
	ctx := context.Background()
	reg := NewObjectRegistry(newMemStore(), "models")

	ok, err := reg.Exists(ctx, "prod/model.json")
	if err != nil {
		t.Fatalf("Exists() err=%v", err)
	}
	if ok {
		t.Fatalf("Exists()=true before Put")
	}

	if _, err := reg.Get(ctx, "prod/model.json"); err == nil {
		t.Fatalf("Get() expected error before Put")
	}

	if err := reg.Put(ctx, "prod/model.json", testBundle()); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	ok, err = reg.Exists(ctx, "prod/model.json")
	if err != nil {
		t.Fatalf("Exists() err=%v", err)
	}
	if !ok {
		t.Fatalf("Exists()=false after Put")
	}

	got, err := reg.Get(ctx, "prod/model.json")
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if got.Schema != learn.BundleSchemaV1 {
		t.Fatalf("Get() schema=%q, want %q", got.Schema, learn.BundleSchemaV1)
	}
}
