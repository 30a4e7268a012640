package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeAnalyzeSource runs the analysis pipeline over a remote source.
	JobTypeAnalyzeSource JobType = "analyze_source"
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

// AnalyzeJob asks a worker to analyze one source.
type AnalyzeJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Source is the location handed to the loader. It may carry
	// credentials and is never serialized.
	Source string `json:"-"`

	// Label is the display form of Source.
	Label string `json:"source"`

	// Publish exports the finished report to Notion.
	Publish bool `json:"publish,omitempty"`

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

	// ErrorKind classifies input errors: "schema_error" or "parse_error".
	ErrorKind string `json:"error_kind,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`

	// Report is set once the job completed.
	Report *domain.Report `json:"report,omitempty"`
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
func (j *AnalyzeJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *AnalyzeJob) GetType() JobType {
	return JobTypeAnalyzeSource
}

// GetStatus implements the Job interface.
func (j *AnalyzeJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishAnalyze publishes an analysis job.
	PublishAnalyze(ctx context.Context, job *AnalyzeJob) error

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
// It should return an error if the job failed; retryable errors are retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *AnalyzeJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*AnalyzeJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalyzeJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Source filters jobs by display label.
	Source string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// ErrJobNotFound is returned by stores for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// ErrorKind returns the API error code for input errors, or empty string.
func ErrorKind(err error) string {
	switch {
	case domain.IsSchemaError(err):
		return "schema_error"
	case domain.IsParseError(err):
		return "parse_error"
	}
	return ""
}

// IsRetryable reports whether a failed job may succeed on a later attempt.
// Bad input and cancellation are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ErrorKind(err) != "" {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
