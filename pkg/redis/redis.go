package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/fleetverify-backend/config"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// CounterStore backs ratelimit.HourlyLimiter with INCR + EXPIRE in one pipeline.
type CounterStore struct {
	client redis.Cmdable
}

func NewCounterStore(c redis.Cmdable) *CounterStore {
	return &CounterStore{client: c}
}

func (s *CounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		// NX keeps the window anchored at the first hit
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		logger.Error("Failed to increment counter", err, map[string]interface{}{
			"key": key,
		})
		return 0, err
	}
	return incr.Val(), nil
}

func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		logger.Error("Failed to read counter", err, map[string]interface{}{
			"key": key,
		})
		return 0, err
	}
	return v, nil
}
