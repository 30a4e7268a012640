package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/sales-analyst/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.SaveJob(ctx, &jobs.AnalyzeJob{}); err == nil {
		t.Error("expected error for missing job ID")
	}

	job := &jobs.AnalyzeJob{JobID: "a", Label: "sales.csv", Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}
	job.Status = jobs.JobStatusRunning

	got, err := s.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("stored job changed through caller pointer: %s", got.Status)
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.AnalyzeJob{
		{JobID: "1", Label: "a.csv", Status: jobs.JobStatusCompleted},
		{JobID: "2", Label: "b.csv", Status: jobs.JobStatusFailed},
		{JobID: "3", Label: "a.csv", Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "all newest first", want: []string{"3", "2", "1"}},
		{name: "by source", filter: jobs.JobFilter{Source: "a.csv"}, want: []string{"3", "1"}},
		{name: "by status", filter: jobs.JobFilter{Status: jobs.JobStatusFailed}, want: []string{"2"}},
		{name: "limit", filter: jobs.JobFilter{Limit: 2}, want: []string{"3", "2"}},
		{name: "offset", filter: jobs.JobFilter{Offset: 1}, want: []string{"2", "1"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 5}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			ids := []string{}
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ListJobs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.SaveJob(ctx, &jobs.AnalyzeJob{JobID: "a"})

	if err := s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	got, _ := s.GetJob(ctx, "a")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v", got)
	}
	if err := s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("error = %v, want ErrJobNotFound", err)
	}
}

func TestStore_UpdateJobStatus_StampsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	_ = s.SaveJob(ctx, &jobs.AnalyzeJob{JobID: "a", Status: jobs.JobStatusPending})

	if err := s.UpdateJobStatus(ctx, "a", jobs.JobStatusRunning, ""); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	started := clock
	clock = clock.Add(time.Minute)
	_ = s.UpdateJobStatus(ctx, "a", jobs.JobStatusRunning, "")
	clock = clock.Add(time.Minute)
	_ = s.UpdateJobStatus(ctx, "a", jobs.JobStatusCompleted, "")

	got, _ := s.GetJob(ctx, "a")
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(clock) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, clock)
	}

	*got.StartedAt = time.Time{}
	again, _ := s.GetJob(ctx, "a")
	if !again.StartedAt.Equal(started) {
		t.Errorf("stored StartedAt changed through returned copy: %v", again.StartedAt)
	}
}

func TestStore_ListJobs_SameInstantOrderedByID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"b", "c", "a"} {
		_ = s.SaveJob(ctx, &jobs.AnalyzeJob{JobID: id, CreatedAt: at})
	}

	got, err := s.ListJobs(ctx, jobs.JobFilter{Offset: -1})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	ids := []string{}
	for _, j := range got {
		ids = append(ids, j.JobID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("ListJobs() mismatch (-want +got):\n%s", diff)
	}
}
