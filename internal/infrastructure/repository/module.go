package repository

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/domain/repository"
	"evidence-stamp/internal/infrastructure/redis"
)

var Module = fx.Module("repository",
	fx.Provide(NewStampConfigRepository),
	fx.Provide(NewBatchLogRepository),
)

// NewStampConfigRepository picks the settings backend named by store.backend.
func NewStampConfigRepository(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (repository.StampConfigRepository, error) {
	if !cfg.UsesRedisStore() {
		logger.Info("Stamp config stored on disk", zap.String("path", cfg.Store.FilePath))
		return NewFileStampConfigRepository(cfg.Store.FilePath, logger), nil
	}

	client, err := redis.NewRedisClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisStampConfigRepository(client, cfg.Store.RedisKey, logger), nil
}
