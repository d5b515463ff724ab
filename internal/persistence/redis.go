package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/config"
)

// Redis wraps the go-redis client together with the key namespaces this
// service owns.
type Redis struct {
	Client         *redis.Client
	IdentityPrefix string
	LockPrefix     string
}

// NewRedis builds the client. An unreachable server is logged, not fatal;
// callers fall back to in-process locking.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{
		Client:         client,
		IdentityPrefix: cfg.IdentityPrefix,
		LockPrefix:     cfg.LockPrefix,
	}
}

// NewLocker returns a transition locker under the configured lock prefix.
func (r *Redis) NewLocker(ttl, wait time.Duration) *RedisLocker {
	return NewRedisLocker(r.Client, r.LockPrefix, ttl, wait)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
