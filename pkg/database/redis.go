package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flsteven87/chatalyst-ai/pkg/config"
)

// redisPingTimeout bounds the startup reachability check so a wrong host
// fails fast instead of hanging boot.
const redisPingTimeout = 5 * time.Second

// NewRedisClient connects to the Redis instance backing the result cache and
// verifies it is reachable. Callers should gate on cfg.IsAvailable() first;
// an unconfigured host is an error here.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.IsAvailable() {
		return nil, fmt.Errorf("redis host is not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return client, nil
}
