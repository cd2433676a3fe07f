package learn

import (
	"encoding/json"
	"fmt"
)

// BundleSchemaV1 versions the serialized deployable unit.
const BundleSchemaV1 = "modelforge.model_bundle.v1"

// ModelBundle is the deployable unit: the fitted column scaler together with
// the fitted classifier. Predictions run engineered features through the
// scaler first, exactly as training did.
type ModelBundle struct {
	Schema      string        `json:"schema"`
	Transformer *ColumnScaler `json:"transformer"`
	Model       *Forest       `json:"model"`
}

func NewModelBundle(transformer *ColumnScaler, model *Forest) *ModelBundle {
	return &ModelBundle{Schema: BundleSchemaV1, Transformer: transformer, Model: model}
}

// Predict scales the engineered feature table and classifies each row.
func (b *ModelBundle) Predict(features Table) ([]int, error) {
	if b == nil || b.Transformer == nil || b.Model == nil {
		return nil, fmt.Errorf("model bundle not initialized")
	}
	scaled, err := b.Transformer.Transform(features)
	if err != nil {
		return nil, fmt.Errorf("bundle transform: %w", err)
	}
	preds, err := b.Model.Predict(scaled.Rows)
	if err != nil {
		return nil, fmt.Errorf("bundle predict: %w", err)
	}
	return preds, nil
}

func EncodeBundle(b *ModelBundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("model bundle is nil")
	}
	if b.Schema == "" {
		b.Schema = BundleSchemaV1
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return raw, nil
}

func DecodeBundle(raw []byte) (*ModelBundle, error) {
	var b ModelBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Schema != BundleSchemaV1 {
		return nil, fmt.Errorf("unsupported bundle schema %q", b.Schema)
	}
	if b.Transformer == nil || b.Model == nil {
		return nil, fmt.Errorf("bundle missing transformer or model")
	}
	return &b, nil
}
