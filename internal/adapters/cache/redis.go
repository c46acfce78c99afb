package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the connection settings for the shared Redis client.
// The same client backs the loop cache, the rate limiter and the
// change publisher, so pool sizing here affects all three.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return rdb, nil
}
