package sdfcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is how long a field stays in Redis after its last write.
const DefaultRedisTTL = 7 * 24 * time.Hour

// Redis is a Backend shared between processes.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis wraps an existing client. A non-positive ttl selects
// DefaultRedisTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// DialRedis connects to addr and checks the connection with PING.
func DialRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sdfcache: redis %s: %w", addr, err)
	}
	return NewRedis(client, ttl), nil
}

// Get implements Backend.
func (r *Redis) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sdfcache: redis get: %w", err)
	}
	return data, true, nil
}

// Set implements Backend.
func (r *Redis) Set(ctx context.Context, key Key, data []byte) error {
	if err := r.client.Set(ctx, key.String(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("sdfcache: redis set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
