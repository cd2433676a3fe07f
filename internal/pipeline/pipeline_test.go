package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/animus-labs/modelforge/internal/docstore"
	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/schema"
)

// fakeSource serves canned documents, standing in for the document store.
type fakeSource struct {
	docs map[string][]docstore.Document
	err  error
}

func (f *fakeSource) FetchAll(_ context.Context, collection string) ([]docstore.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[collection], nil
}

// fakeRegistry is an in-memory model registry.
type fakeRegistry struct {
	mu      sync.Mutex
	bundles map[string]*learn.ModelBundle
	putErr  error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{bundles: make(map[string]*learn.ModelBundle)}
}

func (f *fakeRegistry) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.bundles[key]
	return ok, nil
}

func (f *fakeRegistry) Get(_ context.Context, key string) (*learn.ModelBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[key]
	if !ok {
		return nil, fmt.Errorf("fake registry: %s not found", key)
	}
	return b, nil
}

func (f *fakeRegistry) Put(_ context.Context, key string, bundle *learn.ModelBundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.bundles[key] = bundle
	return nil
}

func insuranceCatalog() schema.Catalog {
	return schema.Catalog{
		Columns: []string{
			"id", "Gender", "Age", "Driving_License", "Region_Code",
			"Previously_Insured", "Vehicle_Age", "Vehicle_Damage",
			"Annual_Premium", "Policy_Sales_Channel", "Vintage", "Response",
		},
		Numerical: []string{
			"Age", "Driving_License", "Region_Code", "Previously_Insured",
			"Annual_Premium", "Policy_Sales_Channel", "Vintage",
		},
		Categorical:   []string{"Gender", "Vehicle_Age", "Vehicle_Damage"},
		NumFeatures:   []string{"Age", "Annual_Premium", "Vintage"},
		MinMaxColumns: []string{"Region_Code", "Policy_Sales_Channel"},
		DropColumns:   schema.StringList{"id"},
		TargetColumn:  "Response",
	}
}

// insuranceDocuments generates records whose response is learnable from
// vehicle damage and prior insurance, with some noise and class imbalance.
func insuranceDocuments(n int, seed int64) []docstore.Document {
	rng := rand.New(rand.NewSource(seed))
	genders := []string{"Female", "Male"}
	vehicleAges := []string{"< 1 Year", "1-2 Year", "> 2 Years"}

	docs := make([]docstore.Document, n)
	for i := range docs {
		damaged := rng.Float64() < 0.5
		insured := rng.Float64() < 0.45
		response := 0
		if damaged && !insured && rng.Float64() < 0.9 {
			response = 1
		}
		damage := "No"
		if damaged {
			damage = "Yes"
		}
		prev := 0
		if insured {
			prev = 1
		}
		docs[i] = docstore.Document{
			"_id":                  fmt.Sprintf("doc-%04d", i),
			"id":                   float64(i + 1),
			"Gender":               genders[rng.Intn(2)],
			"Age":                  float64(20 + rng.Intn(50)),
			"Driving_License":      float64(1),
			"Region_Code":          float64(rng.Intn(50)),
			"Previously_Insured":   float64(prev),
			"Vehicle_Age":          vehicleAges[rng.Intn(3)],
			"Vehicle_Damage":       damage,
			"Annual_Premium":       2500 + rng.Float64()*40000,
			"Policy_Sales_Channel": float64(rng.Intn(160)),
			"Vintage":              float64(10 + rng.Intn(290)),
			"Response":             float64(response),
		}
	}
	return docs
}

func testPipelineConfig(root string) Config {
	return Config{
		Collection:   "vehicle_insurance",
		SchemaPath:   "unused",
		ArtifactRoot: root,
		TestFraction: 0.2,
		SplitSeed:    22,
		ResampleSeed: 22,
		ResampleTest: true,
		Forest: learn.ForestConfig{
			Trees:           15,
			MinSamplesSplit: 4,
			MinSamplesLeaf:  2,
			MaxDepth:        8,
			Criterion:       learn.CriterionEntropy,
			Seed:            101,
		},
		ExpectedAccuracy: 0.6,
		ModelKey:         "registry/model.json",
	}
}

func mustFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return f
}
