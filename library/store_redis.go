package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix    = "library:"
	redisDialTimeout  = 3 * time.Second
	redisReadTimeout  = 2 * time.Second
	redisWriteTimeout = 2 * time.Second
	redisPingTimeout  = 2 * time.Second
)

// RedisStore keeps each slot under "library:<slot>" in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses redisURL, connects and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, log *zap.Logger) (*RedisStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	options.DialTimeout = redisDialTimeout
	options.ReadTimeout = redisReadTimeout
	options.WriteTimeout = redisWriteTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	log.Info("redis store connected", zap.String("addr", options.Addr), zap.Int("db", options.DB))
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

// Save writes the slots inside MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, slots map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range slots {
			pipe.Set(ctx, redisKeyPrefix+key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
