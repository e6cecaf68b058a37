package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/domain/repository"
)

type ConfigUsecase interface {
	// Get returns the stored stamp settings
	Get(ctx context.Context) (entity.StampConfig, error)

	// Update merges patch into the stored settings and persists the result
	Update(ctx context.Context, patch entity.StampConfigPatch) (entity.StampConfig, error)

	// Reset restores and persists the defaults
	Reset(ctx context.Context) (entity.StampConfig, error)
}

type configUsecase struct {
	store  repository.StampConfigRepository
	logger *zap.Logger
}

func NewConfigUsecase(store repository.StampConfigRepository, logger *zap.Logger) ConfigUsecase {
	return &configUsecase{
		store:  store,
		logger: logger,
	}
}

func (u *configUsecase) Get(ctx context.Context) (entity.StampConfig, error) {
	return u.store.Load(ctx)
}

func (u *configUsecase) Update(ctx context.Context, patch entity.StampConfigPatch) (entity.StampConfig, error) {
	current, err := u.store.Load(ctx)
	if err != nil {
		return entity.StampConfig{}, err
	}

	updated := patch.Apply(current)
	if err := u.store.Save(ctx, updated); err != nil {
		return entity.StampConfig{}, fmt.Errorf("failed to persist stamp config: %w", err)
	}

	u.logger.Info("Stamp config updated",
		zap.String("mode", updated.Mode),
		zap.String("prefix", updated.Prefix),
		zap.String("target_pages", updated.TargetPages),
	)
	return updated, nil
}

func (u *configUsecase) Reset(ctx context.Context) (entity.StampConfig, error) {
	defaults := entity.DefaultStampConfig()
	if err := u.store.Save(ctx, defaults); err != nil {
		return entity.StampConfig{}, fmt.Errorf("failed to reset stamp config: %w", err)
	}

	u.logger.Info("Stamp config reset to defaults")
	return defaults, nil
}
