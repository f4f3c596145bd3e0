package middleware

import (
	"context"
	"time"

	"mailwarm/config"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RedisStorage adapts a redis client to fiber's Storage interface so the
// rate limiter survives restarts and is shared across instances.
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (r *RedisStorage) Get(key string) ([]byte, error) {
	val, err := r.client.Get(context.Background(), key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return r.client.Set(context.Background(), key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	return r.client.Del(context.Background(), key).Err()
}

func (r *RedisStorage) Reset() error {
	return r.client.FlushDB(context.Background()).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// ManualSendRateLimit throttles the manual send endpoint. Manual sends
// bypass the daily plan, so an unguarded endpoint could burn through the
// domain's reputation in minutes.
func ManualSendRateLimit(storage fiber.Storage) fiber.Handler {
	max := config.AppConfig.RateLimitManualSend
	if max <= 0 {
		max = 3
	}

	cfg := limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "manual-send:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many manual send requests, try again later",
			})
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}

	return limiter.New(cfg)
}
