package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient dials addr and pings it within connectTimeout. The client
// is shared by the redis key-value backend and the redis change bus.
func NewRedisClient(ctx context.Context, addr string, db int64, connectTimeout time.Duration) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   int(db),
	})
	timeoutCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	_, err := redisClient.Ping(timeoutCtx).Result()
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return redisClient, nil
}
