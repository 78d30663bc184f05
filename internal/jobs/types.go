package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a job ID is unknown to the store.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeMaterialize represents an asset materialization job.
	JobTypeMaterialize JobType = "materialize"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// MaterializeJob represents a job to materialize one asset partition.
type MaterializeJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// AssetKey is the key of the asset to materialize.
	AssetKey string `json:"asset_key"`

	// PartitionKey is the YYYY-MM partition, empty for unpartitioned assets.
	PartitionKey string `json:"partition_key,omitempty"`

	// RunID is the ID of the materialization run in BigQuery.
	RunID string `json:"run_id,omitempty"`

	// RowCount and ColumnCount describe the stored output.
	RowCount    int `json:"row_count,omitempty"`
	ColumnCount int `json:"column_count,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *MaterializeJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *MaterializeJob) GetType() JobType {
	return JobTypeMaterialize
}

// GetStatus implements the Job interface.
func (j *MaterializeJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishMaterialize publishes an asset materialization job.
	PublishMaterialize(ctx context.Context, job *MaterializeJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *MaterializeJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*MaterializeJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*MaterializeJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// AssetKey filters jobs by asset.
	AssetKey string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
