package redis

import (
	"context"

	"gavel-auction-engine/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewClient builds the shared Redis client used by the broadcaster and the
// settlement sweeper. Timeouts and pool sizing come from RedisConfig; the
// read timeout bounds writes too.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.ReadTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MaxRetries:   3,
	})
}

// PingRedis verifies the connection within the configured dial timeout.
func PingRedis(client *redis.Client, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	defer cancel()

	return client.Ping(ctx).Err()
}
