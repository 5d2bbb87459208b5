package queue

import (
	"context"
	"time"

	"excel-insights-api/internal/config"
	"excel-insights-api/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type Consumer struct {
	client      redis.Cmdable
	queue       string
	dlqSuffix   string
	pollTimeout time.Duration
	log         zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	return &Consumer{
		client:      redisClient.Client(),
		queue:       cfg.Redis.CleanupQueue,
		dlqSuffix:   cfg.Redis.DLQSuffix,
		pollTimeout: 5 * time.Second,
		log:         logger.Component("queue"),
	}
}

func (c *Consumer) DLQName() string {
	return c.queue + c.dlqSuffix
}

// ConsumeCleanupQueue blocks until ctx is cancelled, handing each message
// to handler. Messages the handler rejects are moved to the DLQ.
func (c *Consumer) ConsumeCleanupQueue(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			result, err := c.client.BRPop(ctx, c.pollTimeout, c.queue).Result()
			if err != nil {
				if err == redis.Nil {
					continue // Timeout, continue polling
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to consume message")
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			message := result[1]
			if err := handler(ctx, []byte(message)); err != nil {
				c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to process message")
				c.DeadLetter(ctx, []byte(message))
			}
		}
	}
}

func (c *Consumer) DeadLetter(ctx context.Context, message []byte) {
	if err := c.client.LPush(ctx, c.DLQName(), message).Err(); err != nil {
		c.log.Error().Err(err).Str("dlq", c.DLQName()).Msg("Failed to move message to DLQ")
	}
}

// Requeue puts a message back on the work queue after delay.
func (c *Consumer) Requeue(ctx context.Context, message []byte, delay time.Duration) error {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return c.client.LPush(ctx, c.queue, message).Err()
}
