package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"

	"github.com/go-redis/redis/v8"
)

// fakeRedis implements the few list commands the queue uses.
type fakeRedis struct {
	redis.Cmdable

	mu      sync.Mutex
	lists   map[string][]string
	onEmpty func()
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: make(map[string][]string)}
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		var s string
		switch val := v.(type) {
		case []byte:
			s = string(val)
		default:
			s = fmt.Sprint(val)
		}
		f.lists[key] = append([]string{s}, f.lists[key]...)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	f.mu.Lock()
	key := keys[0]
	list := f.lists[key]
	if len(list) == 0 {
		onEmpty := f.onEmpty
		f.mu.Unlock()
		if onEmpty != nil {
			onEmpty()
		}
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	last := list[len(list)-1]
	f.lists[key] = list[:len(list)-1]
	f.mu.Unlock()
	return redis.NewStringSliceResult([]string{key, last}, nil)
}

func (f *fakeRedis) list(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lists[key]...)
}

func TestProducer_EnqueueBlobCleanup(t *testing.T) {
	rdb := newFakeRedis()
	p := newProducer(rdb, "blob_cleanup")

	job := model.BlobCleanupJob{StoredName: "1-a.xlsx", FileID: "f-1", OwnerID: "u-1"}
	if err := p.EnqueueBlobCleanup(context.Background(), job); err != nil {
		t.Fatalf("EnqueueBlobCleanup() error = %v", err)
	}

	items := rdb.list("blob_cleanup")
	if len(items) != 1 {
		t.Fatalf("queue length = %d, want 1", len(items))
	}
	var got model.BlobCleanupJob
	if err := json.Unmarshal([]byte(items[0]), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != job {
		t.Errorf("queued job = %+v, want %+v", got, job)
	}
}

func TestConsumer_DeadLettersFailedMessages(t *testing.T) {
	rdb := newFakeRedis()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rdb.onEmpty = cancel

	c := &Consumer{
		client:      rdb,
		queue:       "blob_cleanup",
		dlqSuffix:   ":dlq",
		pollTimeout: time.Millisecond,
		log:         logger.Get(),
	}
	rdb.LPush(ctx, "blob_cleanup", []byte("ok"), []byte("bad"))

	var handled []string
	err := c.ConsumeCleanupQueue(ctx, func(ctx context.Context, data []byte) error {
		handled = append(handled, string(data))
		if string(data) == "bad" {
			return fmt.Errorf("cannot handle")
		}
		return nil
	})
	if err != context.Canceled {
		t.Errorf("ConsumeCleanupQueue() error = %v, want context.Canceled", err)
	}

	if len(handled) != 2 || handled[0] != "ok" || handled[1] != "bad" {
		t.Errorf("handled = %v, want [ok bad] in FIFO order", handled)
	}
	if dlq := rdb.list("blob_cleanup:dlq"); len(dlq) != 1 || dlq[0] != "bad" {
		t.Errorf("dlq = %v, want [bad]", dlq)
	}
}
