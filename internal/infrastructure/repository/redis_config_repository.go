package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/domain/repository"
	"evidence-stamp/internal/infrastructure/redis"
)

type redisStampConfigRepository struct {
	client *redis.RedisClient
	key    string
	logger *zap.Logger
}

// NewRedisStampConfigRepository keeps the stamp settings as a JSON string under key.
func NewRedisStampConfigRepository(client *redis.RedisClient, key string, logger *zap.Logger) repository.StampConfigRepository {
	return &redisStampConfigRepository{
		client: client,
		key:    key,
		logger: logger,
	}
}

func (r *redisStampConfigRepository) Load(ctx context.Context) (entity.StampConfig, error) {
	value, ok, err := r.client.Get(ctx, r.key)
	if err != nil {
		r.logger.Error("Failed to load stamp config from redis",
			zap.String("key", r.key),
			zap.Error(err),
		)
		return entity.StampConfig{}, fmt.Errorf("failed to load stamp config: %w", err)
	}
	if !ok {
		return entity.DefaultStampConfig(), nil
	}

	return decodeStampConfig([]byte(value), "redis:"+r.key, r.logger), nil
}

func (r *redisStampConfigRepository) Save(ctx context.Context, cfg entity.StampConfig) error {
	data, err := encodeStampConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode stamp config: %w", err)
	}

	if err := r.client.Set(ctx, r.key, string(data), 0); err != nil {
		r.logger.Error("Failed to save stamp config to redis",
			zap.String("key", r.key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save stamp config: %w", err)
	}
	return nil
}
