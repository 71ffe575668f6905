package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	logger.Info().Msgf("Connected to redis at %s", addr)
	return rdb, nil
}
