package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/youtube-trending/internal/jobs"
	"github.com/dvloznov/youtube-trending/internal/logger"
)

// QueueConfig configures a Queue.
type QueueConfig struct {
	// BufferSize is how many jobs can be queued before PublishMaterialize blocks.
	BufferSize int
	// Workers is the number of concurrent workers.
	Workers int
	// MaxRetries is applied to jobs that do not set their own.
	MaxRetries int
	// Backoff is the base retry delay, multiplied by the retry count.
	Backoff time.Duration
	// Retryable decides whether a failed job is retried. Nil retries every error.
	Retryable func(error) bool
}

// DefaultQueueConfig returns the default queue settings.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{BufferSize: 100, Workers: 5, MaxRetries: 3, Backoff: time.Second}
}

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// This implementation is suitable for single-instance deployments and testing.
type Queue struct {
	cfg       QueueConfig
	jobChan   chan *jobs.MaterializeJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
}

// NewQueue creates a new in-memory job queue. Zero config fields fall back
// to DefaultQueueConfig.
func NewQueue(cfg QueueConfig, store jobs.JobStore) *Queue {
	def := DefaultQueueConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	return &Queue{
		cfg:       cfg,
		jobChan:   make(chan *jobs.MaterializeJob, cfg.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
	}
}

// PublishMaterialize implements the Publisher interface.
// It enqueues a materialization job for asynchronous processing.
func (q *Queue) PublishMaterialize(ctx context.Context, job *jobs.MaterializeJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	// Generate job ID if not provided
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}

	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.cfg.MaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	// Workers own their copy; the caller may keep reading job.
	queued := *job
	select {
	case q.jobChan <- &queued:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
// It starts cfg.Workers goroutines that process jobs with the provided handler.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) retryable(err error) bool {
	if q.cfg.Retryable == nil {
		return true
	}
	return q.cfg.Retryable(err)
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.MaterializeJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("asset", job.AssetKey).
		Str("partition", job.PartitionKey).
		Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	var backoff time.Duration
	retry := false
	if err != nil {
		job.Error = err.Error()

		if q.retryable(err) && job.RetryCount < job.MaxRetries {
			retry = true
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying
			backoff = time.Duration(job.RetryCount) * q.cfg.Backoff
			log.Warn().Err(err).Int("retry", job.RetryCount).Dur("backoff", backoff).Msg("Job failed, retrying")
		} else {
			job.Status = jobs.JobStatusFailed
			log.Error().Err(err).Msg("Job failed")
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Info().Msg("Job completed")
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	// Re-enqueue only after the failed attempt is saved.
	if retry {
		time.AfterFunc(backoff, func() {
			job.Status = jobs.JobStatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			if err := q.PublishMaterialize(ctx, job); err != nil {
				log.Error().Err(err).Msg("Could not re-enqueue job")
			}
		})
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
