package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 2 * time.Second
	redisIOTimeout   = time.Second
)

// Redis carries the client shared by the report queue and the rate limiter.
type Redis struct {
	Client *redis.Client
}

// NewRedis configures a client for addr. Connections are opened lazily, so an
// unreachable server shows up in Healthy and on the first command.
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
	})}
}

// Healthy pings the queue and limiter backend for /healthz.
func (r *Redis) Healthy(ctx context.Context) bool {
	return r != nil && r.Client != nil && r.Client.Ping(ctx).Err() == nil
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
