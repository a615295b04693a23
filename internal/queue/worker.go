package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/skill-dashboard/internal/events"
	"github.com/codebuildervaibhav/skill-dashboard/internal/logging"
	"github.com/codebuildervaibhav/skill-dashboard/internal/metrics"
	"github.com/codebuildervaibhav/skill-dashboard/internal/storage"
)

const (
	jobTimeout     = 30 * time.Second
	publishRetries = 3
)

// WorkerPool runs history writes and event publishing off the request path
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	history     storage.HistoryStore
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	retryDelay  time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. publisher may be nil.
func NewWorkerPool(workerCount, queueSize int, history storage.HistoryStore, publisher events.Publisher) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		history:     history,
		publisher:   publisher,
		metrics:     metrics.DefaultMetrics,
		logger:      logging.WithComponent("queue"),
		retryDelay:  time.Second,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	wp.logger.Info().Int("workers", wp.workerCount).Msg("Starting worker pool")
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// EnqueueJob adds a job to the queue without blocking. It reports false and drops
// the job when the queue is full or the pool has stopped.
func (wp *WorkerPool) EnqueueJob(job *Job) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.closed {
		wp.metrics.QueueDropped.Inc()
		wp.logger.Warn().Str("job", job.ID).Str("kind", string(job.Kind)).Msg("Worker pool stopped, job dropped")
		return false
	}

	select {
	case wp.jobQueue <- job:
		wp.logger.Debug().Str("job", job.ID).Str("kind", string(job.Kind)).Msg("Job enqueued")
		return true
	default:
		wp.metrics.QueueDropped.Inc()
		wp.logger.Warn().Str("job", job.ID).Str("kind", string(job.Kind)).Msg("Worker queue full, job dropped")
		return false
	}
}

// Stop closes the queue and waits for queued jobs to finish
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.logger.Info().Msg("Worker pool stopped")
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error().
						Int("worker", id).
						Str("job", job.ID).
						Str("stack", string(debug.Stack())).
						Msgf("PANIC processing job: %v", r)
				}
			}()

			if err := wp.processJob(job); err != nil {
				wp.logger.Error().Err(err).
					Int("worker", id).
					Str("job", job.ID).
					Str("kind", string(job.Kind)).
					Msg("Background job failed")
			}
		}()
	}
}

func (wp *WorkerPool) processJob(job *Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	switch job.Kind {
	case KindHistoryCreate:
		err := wp.history.CreateRecord(ctx, job.UserID, job.Skill, job.Input, job.Output)
		wp.metrics.HistoryWrites.WithLabelValues("create", metrics.Result(err)).Inc()
		return err

	case KindHistoryUpdate:
		updated, err := wp.history.UpdateLatest(ctx, job.UserID, job.Skill, job.Output)
		wp.metrics.HistoryWrites.WithLabelValues("update", metrics.Result(err)).Inc()
		if err == nil && !updated {
			wp.logger.Debug().Str("user", job.UserID).Str("skill", string(job.Skill)).Msg("No history row to update")
		}
		return err

	case KindPublishCompleted:
		if wp.publisher == nil || job.Event == nil {
			return nil
		}
		return wp.publishWithRetry(ctx, job)
	}

	return fmt.Errorf("unknown job kind %q", job.Kind)
}

func (wp *WorkerPool) publishWithRetry(ctx context.Context, job *Job) error {
	var err error
	for attempt := 1; attempt <= publishRetries; attempt++ {
		if err = wp.publisher.PublishCompleted(ctx, *job.Event); err == nil {
			return nil
		}
		wp.logger.Warn().Err(err).Str("job", job.ID).Msgf("Publish attempt %d/%d failed", attempt, publishRetries)
		if attempt < publishRetries {
			select {
			case <-time.After(time.Duration(attempt*attempt) * wp.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("publish after %d attempts: %w", publishRetries, err)
}
