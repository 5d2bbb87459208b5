package queue

import (
	"context"
	"fmt"
	"time"

	"excel-insights-api/internal/config"

	"github.com/go-redis/redis/v8"
)

const pingTimeout = 5 * time.Second

// RedisClient owns the connection shared by the cleanup producer and
// consumer.
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	r := &RedisClient{client: rdb}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		rdb.Close()
		return nil, err
	}
	return r, nil
}

func (r *RedisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis at %s: %w", r.client.Options().Addr, err)
	}
	return nil
}

// Backlog reports how many jobs wait in each of the named lists.
func (r *RedisClient) Backlog(ctx context.Context, queues ...string) (map[string]int64, error) {
	pipe := r.client.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(queues))
	for _, q := range queues {
		cmds[q] = pipe.LLen(ctx, q)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	backlog := make(map[string]int64, len(queues))
	for q, cmd := range cmds {
		backlog[q] = cmd.Val()
	}
	return backlog, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Client() *redis.Client {
	return r.client
}
