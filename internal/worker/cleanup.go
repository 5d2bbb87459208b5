package worker

import (
	"context"
	"encoding/json"
	"time"

	"excel-insights-api/internal/config"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"
	"excel-insights-api/internal/queue"
	"excel-insights-api/internal/storage"
	"excel-insights-api/pkg/errors"

	"github.com/rs/zerolog"
)

// JobQueue is the part of the queue consumer the cleanup worker drives.
type JobQueue interface {
	ConsumeCleanupQueue(ctx context.Context, handler queue.MessageHandler) error
	Requeue(ctx context.Context, message []byte, delay time.Duration) error
	DeadLetter(ctx context.Context, message []byte)
}

// CleanupWorker removes blobs left behind when a file record was deleted
// but its binary could not be removed at the time.
type CleanupWorker struct {
	storage     storage.Storage
	queue       JobQueue
	workerPool  *WorkerPool
	maxAttempts int
	retryDelay  time.Duration
	log         zerolog.Logger
}

func NewCleanupWorker(cfg *config.Config, store storage.Storage, jobs JobQueue) *CleanupWorker {
	return &CleanupWorker{
		storage:     store,
		queue:       jobs,
		workerPool:  NewWorkerPool(cfg.Workers.Cleanup.Count),
		maxAttempts: cfg.Workers.Cleanup.MaxAttempts,
		retryDelay:  cfg.Workers.Cleanup.RetryDelay,
		log:         logger.Component("cleanup_worker"),
	}
}

func (w *CleanupWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting cleanup worker")

	w.workerPool.Start(ctx)

	return w.queue.ConsumeCleanupQueue(ctx, w.handleMessage)
}

func (w *CleanupWorker) Stop() {
	w.log.Info().Msg("Stopping cleanup worker")
	w.workerPool.Stop()
}

func (w *CleanupWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.BlobCleanupJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal cleanup job")
		return err
	}
	if job.StoredName == "" {
		return errors.NewValidationError("stored_name", job.StoredName, "stored name is required")
	}

	w.log.Info().Str("stored_name", job.StoredName).Int("attempt", job.Attempt).Msg("Processing cleanup job")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		return w.process(ctx, job)
	})
}

func (w *CleanupWorker) process(ctx context.Context, job model.BlobCleanupJob) error {
	log := w.log.With().Str("stored_name", job.StoredName).Str("file_id", job.FileID).Logger()

	err := w.removeBlob(ctx, job.StoredName)
	if err == nil {
		log.Info().Msg("Orphaned blob removed")
		return nil
	}

	job.Attempt++
	payload, marshalErr := json.Marshal(job)
	if marshalErr != nil {
		return marshalErr
	}

	if !errors.IsRetryable(err) {
		log.Error().Err(err).Msg("Orphaned blob cannot be removed")
		w.queue.DeadLetter(ctx, payload)
		return err
	}

	if job.Attempt >= w.maxAttempts {
		log.Error().Err(err).Int("attempt", job.Attempt).Msg("Giving up on orphaned blob")
		w.queue.DeadLetter(ctx, payload)
		return err
	}

	log.Warn().Err(err).Int("attempt", job.Attempt).Msg("Blob removal failed, requeueing")
	if reqErr := w.queue.Requeue(ctx, payload, w.retryDelay); reqErr != nil {
		w.queue.DeadLetter(ctx, payload)
		return reqErr
	}
	return nil
}

// removeBlob treats an already missing blob as removed. A rejected key
// will never succeed and is returned as is.
func (w *CleanupWorker) removeBlob(ctx context.Context, key string) error {
	err := w.storage.Delete(ctx, key)
	if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
		return nil
	}
	if errors.Is(err, storage.ErrInvalidKey) {
		return err
	}
	return errors.NewRetryableError(err, "delete blob")
}
