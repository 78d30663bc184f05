package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/youtube-trending/internal/jobs"
)

var errPermanent = errors.New("permanent")

func startQueue(t *testing.T, cfg QueueConfig, handler jobs.JobHandler) (*Queue, *Store) {
	t.Helper()
	store := NewStore()
	q := NewQueue(cfg, store)
	require.NoError(t, q.Start(context.Background(), handler))
	t.Cleanup(func() { _ = q.Close() })
	return q, store
}

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.MaterializeJob {
	t.Helper()
	var got *jobs.MaterializeJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	q, store := startQueue(t, QueueConfig{Workers: 2}, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.MaterializeJob).RowCount = 7
		return nil
	})

	job := &jobs.MaterializeJob{AssetKey: "silver/x"}
	require.NoError(t, q.PublishMaterialize(context.Background(), job))
	require.NotEmpty(t, job.JobID)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 7, got.RowCount)
	assert.NotNil(t, got.CompletedAt)
}

func TestQueue_DoesNotRetryPermanentErrors(t *testing.T) {
	var calls int32
	q, store := startQueue(t, QueueConfig{
		MaxRetries: 3,
		Backoff:    time.Millisecond,
		Retryable:  func(err error) bool { return !errors.Is(err, errPermanent) },
	}, func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&calls, 1)
		return errPermanent
	})

	job := &jobs.MaterializeJob{AssetKey: "silver/x"}
	require.NoError(t, q.PublishMaterialize(context.Background(), job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, "permanent", got.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueue_RetriesTransientErrors(t *testing.T) {
	var calls int32
	q, store := startQueue(t, QueueConfig{MaxRetries: 2, Backoff: time.Millisecond}, func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("storage unavailable")
		}
		return nil
	})

	job := &jobs.MaterializeJob{AssetKey: "silver/x"}
	require.NoError(t, q.PublishMaterialize(context.Background(), job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 2, got.RetryCount)
	assert.Empty(t, got.Error)
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(QueueConfig{}, nil)
	require.NoError(t, q.Close())

	err := q.PublishMaterialize(context.Background(), &jobs.MaterializeJob{})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), nil))
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, key := range []string{"a", "b", "a"} {
		require.NoError(t, s.SaveJob(ctx, &jobs.MaterializeJob{
			JobID:     string(rune('1' + i)),
			AssetKey:  key,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].JobID)

	onlyA, err := s.ListJobs(ctx, jobs.JobFilter{AssetKey: "a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "3", onlyA[0].JobID)

	require.NoError(t, s.UpdateJobStatus(ctx, "1", jobs.JobStatusFailed, "boom"))
	failed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.Error(t, s.SaveJob(ctx, &jobs.MaterializeJob{}))
}

func TestQueue_WorkersDoNotShareCallerJob(t *testing.T) {
	release := make(chan struct{})
	q, store := startQueue(t, QueueConfig{Workers: 1}, func(ctx context.Context, job jobs.Job) error {
		<-release
		job.(*jobs.MaterializeJob).RowCount = 99
		return nil
	})

	job := &jobs.MaterializeJob{AssetKey: "silver/x"}
	require.NoError(t, q.PublishMaterialize(context.Background(), job))
	close(release)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 99, got.RowCount)
	assert.Equal(t, 0, job.RowCount)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
}
