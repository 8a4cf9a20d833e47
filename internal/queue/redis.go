package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisQueue is a Redis list: producers LPUSH JSON envelopes, consumers BRPOP.
type RedisQueue struct {
	client  *redis.Client
	key     string
	block   time.Duration
	backoff time.Duration
	log     *zap.Logger
}

// NewRedisQueue builds a queue on the list at key.
func NewRedisQueue(client *redis.Client, key string, log *zap.Logger) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisQueue{client: client, key: key, block: 5 * time.Second, backoff: time.Second, log: log}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	payload, err := encode(stamp(msg))
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Depth is the number of messages waiting.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Consume streams messages until ctx ends. Malformed payloads are logged and
// dropped; connection errors back off and retry.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, q.block, q.key).Result()
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, redis.Nil):
				continue
			case err != nil:
				q.log.Warn("queue pop failed", zap.String("key", q.key), zap.Error(err))
				select {
				case <-time.After(q.backoff):
				case <-ctx.Done():
					return
				}
				continue
			}

			// res is [key, value].
			msg, err := decode(res[len(res)-1])
			if err != nil {
				q.log.Warn("dropping malformed message", zap.String("payload", res[len(res)-1]))
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
