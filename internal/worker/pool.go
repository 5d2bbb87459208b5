package worker

import (
	"context"
	"sync"

	"excel-insights-api/internal/logger"

	"github.com/rs/zerolog"
)

type WorkerPool struct {
	workerCount int
	jobChan     chan func(context.Context) error
	wg          sync.WaitGroup
	log         zerolog.Logger
}

func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan func(context.Context) error, workerCount*2),
		log:         logger.Component("worker_pool"),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop closes the job channel and waits for queued jobs to drain.
func (wp *WorkerPool) Stop() {
	wp.log.Info().Msg("Stopping worker pool")
	close(wp.jobChan)
	wp.wg.Wait()
	wp.log.Info().Msg("Worker pool stopped")
}

// Submit blocks until a worker slot accepts the job or ctx is done, so
// jobs are applied back-pressure instead of being dropped.
func (wp *WorkerPool) Submit(ctx context.Context, job func(context.Context) error) error {
	select {
	case wp.jobChan <- job:
		return nil
	case <-ctx.Done():
		wp.log.Warn().Msg("Job not submitted before context cancellation")
		return ctx.Err()
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Worker started")

	for job := range wp.jobChan {
		if err := job(ctx); err != nil {
			log.Error().Err(err).Msg("Job execution failed")
		}
	}
	log.Debug().Msg("Worker stopping due to closed job channel")
}
