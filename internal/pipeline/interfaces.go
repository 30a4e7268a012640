package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/table"
)

// Loader reads the raw input table for a source URI or path.
type Loader interface {
	Load(ctx context.Context, source string) (*table.Table, error)
}

// Summarizer writes a short narrative for a finished report.
// This interface enables mocking of the language model in tests.
type Summarizer interface {
	Summarize(ctx context.Context, report *domain.Report) (string, error)
}

// StepObserver is notified after every step with its duration and outcome.
type StepObserver interface {
	ObserveStep(step string, elapsed time.Duration, err error)
}
