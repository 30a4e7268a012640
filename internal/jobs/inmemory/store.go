// Package inmemory keeps analyze jobs in process memory. Jobs do not
// survive a restart.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/sales-analyst/internal/jobs"
)

var errMissingJobID = errors.New("job ID is required")

// Store holds analyze jobs keyed by id. It is safe for concurrent use and
// never hands out pointers into its own state.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.AnalyzeJob
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.AnalyzeJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SaveJob stores a snapshot of job, replacing any job with the same id.
func (s *Store) SaveJob(ctx context.Context, job *jobs.AnalyzeJob) error {
	if job == nil || job.JobID == "" {
		return fmt.Errorf("SaveJob: %w", errMissingJobID)
	}

	snapshot := snapshotOf(job)
	s.mu.Lock()
	s.jobs[job.JobID] = snapshot
	s.mu.Unlock()
	return nil
}

// GetJob returns a snapshot of the job with the given id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.AnalyzeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: %w: %s", jobs.ErrJobNotFound, jobID)
	}
	return snapshotOf(job), nil
}

// ListJobs returns the jobs matching filter, newest first. Jobs created at
// the same instant are ordered by id.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.AnalyzeJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.AnalyzeJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if matches(job, filter) {
			matched = append(matched, snapshotOf(job))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.JobID < b.JobID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return page(matched, filter.Offset, filter.Limit), nil
}

// UpdateJobStatus moves a job to status. Entering running stamps StartedAt
// and entering a terminal status stamps CompletedAt, each only once. A
// non-empty errorMsg replaces the recorded error.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus: %w: %s", jobs.ErrJobNotFound, jobID)
	}

	now := s.now()
	switch status {
	case jobs.JobStatusRunning:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case jobs.JobStatusCompleted, jobs.JobStatusFailed:
		if job.CompletedAt == nil {
			job.CompletedAt = &now
		}
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

func matches(job *jobs.AnalyzeJob, filter jobs.JobFilter) bool {
	if filter.Source != "" && filter.Source != job.Label {
		return false
	}
	return filter.Status == "" || filter.Status == job.Status
}

// page applies offset then limit. A non-positive limit means no limit.
func page(list []*jobs.AnalyzeJob, offset, limit int) []*jobs.AnalyzeJob {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []*jobs.AnalyzeJob{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// snapshotOf copies job including its timestamps. The report is shared
// since a finished report is never modified.
func snapshotOf(job *jobs.AnalyzeJob) *jobs.AnalyzeJob {
	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

var _ jobs.JobStore = (*Store)(nil)
