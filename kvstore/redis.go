package kvstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Addr           string `mapstructure:"ADDR"`
	DB             int64  `mapstructure:"DB"`
	ConnectTimeout int64  `mapstructure:"CONNECT_TIMEOUT"`
	// Prefix namespaces every key, e.g. "fxconvert:".
	Prefix string `mapstructure:"PREFIX"`
}

type redisStore struct {
	lg     *zap.Logger
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedis wraps an existing client. The caller keeps ownership of client.
func NewRedis(lg *zap.Logger, client *redis.Client, prefix string) Store {
	return &redisStore{lg: lg, client: client, prefix: prefix}
}

// DialRedis connects using cfg and returns a store that closes the client on
// Close.
func DialRedis(ctx context.Context, lg *zap.Logger, cfg *RedisConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   int(cfg.DB),
	})

	timeout := time.Duration(cfg.ConnectTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis for storage: %w", err)
	}
	lg.Info("connected to redis for storage", zap.String("addr", cfg.Addr), zap.Int64("db", cfg.DB))

	return &redisStore{lg: lg, client: client, prefix: cfg.Prefix, owned: true}, nil
}

func (s *redisStore) key(key string) string {
	return s.prefix + key
}

func (s *redisStore) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	if expiry < 0 {
		expiry = 0
	}
	if err := s.client.Set(ctx, s.key(key), value, expiry).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	data, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return data, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	if !s.owned {
		return nil
	}
	s.lg.Info("closing redis connection for storage")
	return s.client.Close()
}
