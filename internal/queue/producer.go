package queue

import (
	"context"
	"encoding/json"

	"excel-insights-api/internal/config"
	"excel-insights-api/internal/model"

	"github.com/go-redis/redis/v8"
)

type Producer struct {
	client redis.Cmdable
	queue  string
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return newProducer(redisClient.Client(), cfg.Redis.CleanupQueue)
}

func newProducer(client redis.Cmdable, queue string) *Producer {
	return &Producer{client: client, queue: queue}
}

// EnqueueBlobCleanup schedules deletion of a blob whose metadata record is
// already gone.
func (p *Producer) EnqueueBlobCleanup(ctx context.Context, job model.BlobCleanupJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return p.client.LPush(ctx, p.queue, data).Err()
}
