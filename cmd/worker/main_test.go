package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/jobs"
	"github.com/dvloznov/sales-analyst/internal/jobs/inmemory"
)

func TestReadSources(t *testing.T) {
	input := `
# nightly batch
gs://bucket/a.csv

  bigquery://proj/sales.orders
postgres://app@db/shop?table=orders
`
	got, err := readSources(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readSources() error = %v", err)
	}
	want := []string{
		"gs://bucket/a.csv",
		"bigquery://proj/sales.orders",
		"postgres://app@db/shop?table=orders",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitForJobs(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	for _, id := range []string{"a", "b"} {
		if err := store.SaveJob(ctx, &jobs.AnalyzeJob{JobID: id, Status: jobs.JobStatusRunning}); err != nil {
			t.Fatal(err)
		}
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		store.UpdateJobStatus(ctx, "a", jobs.JobStatusCompleted, "")
		store.UpdateJobStatus(ctx, "b", jobs.JobStatusFailed, "boom")
	}()

	finished, err := waitForJobs(ctx, store, []string{"a", "b"}, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("waitForJobs() error = %v", err)
	}
	if len(finished) != 2 || finished[0].JobID != "a" || finished[1].Status != jobs.JobStatusFailed {
		t.Errorf("finished = %+v", finished)
	}
}

func TestWaitForJobs_ContextCanceled(t *testing.T) {
	store := inmemory.NewStore()
	store.SaveJob(context.Background(), &jobs.AnalyzeJob{JobID: "a", Status: jobs.JobStatusPending})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	finished, err := waitForJobs(ctx, store, []string{"a"}, 5*time.Millisecond)
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(finished) != 0 {
		t.Errorf("finished = %+v, want none", finished)
	}
}

func TestPrintResults(t *testing.T) {
	color.NoColor = true

	finished := []*jobs.AnalyzeJob{
		{
			Label:  "gs://bucket/a.csv",
			Status: jobs.JobStatusCompleted,
			Report: &domain.Report{
				RunID:   "run-1",
				KPIs:    domain.KPISet{OrderCount: 12},
				Notices: []domain.Notice{{Code: domain.NoticeExportFailed, Message: "notion down"}},
			},
		},
		{
			Label:     "b.csv",
			Status:    jobs.JobStatusFailed,
			Error:     "missing required columns: Price",
			ErrorKind: "schema_error",
		},
	}

	var buf bytes.Buffer
	failed := printResults(&buf, finished)
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	out := buf.String()
	for _, want := range []string{
		"gs://bucket/a.csv: 12 orders, 0 rules, run run-1 (export failed)",
		"b.csv: schema_error: missing required columns: Price",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
