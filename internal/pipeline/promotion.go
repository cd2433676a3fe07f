package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/modelstore"
)

// PromotionStage publishes an accepted model bundle to the registry under
// the configured key, replacing whatever baseline was there.
type PromotionStage struct {
	cfg      Config
	registry modelstore.Registry
	logger   *slog.Logger
}

func NewPromotionStage(cfg Config, registry modelstore.Registry, logger *slog.Logger) *PromotionStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromotionStage{cfg: cfg, registry: registry, logger: logger}
}

func (s *PromotionStage) Run(ctx context.Context, trainer TrainerArtifact) (PromotionArtifact, error) {
	if s == nil || s.registry == nil {
		return PromotionArtifact{}, stageErrf(StagePromotion, "run", KindPromotion, "promotion stage not initialized")
	}
	s.logger.Info("promotion started", "model", trainer.ModelPath, "key", s.cfg.ModelKey)

	raw, err := os.ReadFile(trainer.ModelPath)
	if err != nil {
		return PromotionArtifact{}, stageErr(StagePromotion, "read bundle", KindIO, err)
	}
	bundle, err := learn.DecodeBundle(raw)
	if err != nil {
		return PromotionArtifact{}, stageErr(StagePromotion, "decode bundle", KindIO, err)
	}

	if err := s.registry.Put(ctx, s.cfg.ModelKey, bundle); err != nil {
		return PromotionArtifact{}, stageErr(StagePromotion, "upload bundle", KindPromotion, err)
	}

	s.logger.Info("promotion finished", "key", s.cfg.ModelKey)
	return PromotionArtifact{RemoteModelKey: s.cfg.ModelKey}, nil
}
