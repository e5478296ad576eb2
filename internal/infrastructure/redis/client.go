package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOptions tune the Redis client. Zero values keep go-redis defaults.
type ClientOptions struct {
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewClient creates a Redis client from a redis:// URL and pings it.
func NewClient(ctx context.Context, redisURL string, opts ...ClientOptions) (*redis.Client, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	for _, o := range opts {
		if o.PoolSize > 0 {
			parsed.PoolSize = o.PoolSize
		}
		if o.DialTimeout > 0 {
			parsed.DialTimeout = o.DialTimeout
		}
		if o.ReadTimeout > 0 {
			parsed.ReadTimeout = o.ReadTimeout
		}
		if o.WriteTimeout > 0 {
			parsed.WriteTimeout = o.WriteTimeout
		}
	}

	client := redis.NewClient(parsed)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
