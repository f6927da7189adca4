package redis

import (
	"context"
	"time"

	"settings-service/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewClient(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Error connecting to Redis", zap.String("addr", cfg.Address), zap.Error(err))
	} else {
		logger.Info("Successfully connected to Redis", zap.String("addr", cfg.Address))
	}
	return client
}
