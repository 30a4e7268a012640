// Package pipeline runs one analysis of a sales export, from loading the
// input to the finished report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/logger"
	"github.com/dvloznov/sales-analyst/internal/table"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps    []PipelineStep
	observer StepObserver
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// WithObserver sets the observer notified after each step.
func (p *Pipeline) WithObserver(o StepObserver) *Pipeline {
	p.observer = o
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps in the pipeline sequentially and stops at the
// first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d (%s) not started: %w", i+1, step.Name(), err)
		}

		start := time.Now()
		err := step.Execute(ctx, state)
		elapsed := time.Since(start)

		if p.observer != nil {
			p.observer.ObserveStep(step.Name(), elapsed, err)
		}
		if err != nil {
			log.Error().Err(err).Str("step", step.Name()).Dur("elapsed", elapsed).Msg("Pipeline step failed")
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		log.Debug().Str("step", step.Name()).Dur("elapsed", elapsed).Msg("Pipeline step completed")
	}
	return nil
}

// Options configures a standard analysis pipeline.
type Options struct {
	Analysis config.Analysis

	// Loader resolves sources when no table is supplied. Optional.
	Loader Loader
	// Summarizer adds an executive summary. Optional.
	Summarizer Summarizer
	// Observer receives step timings. Optional.
	Observer StepObserver
	// Label names the source in the report and in logs. Defaults to the
	// source itself; set it when the source carries credentials.
	Label string
}

// NewAnalysisPipeline creates the standard pipeline: load, validate,
// aggregate, build the basket, mine itemsets, generate rules and, when a
// Summarizer is configured, summarize.
func NewAnalysisPipeline(opts Options) *Pipeline {
	steps := []PipelineStep{
		&LoadStep{Loader: opts.Loader},
		&ValidateStep{},
		&AggregateStep{},
		&BuildBasketStep{},
		&MineItemsetsStep{},
		&GenerateRulesStep{},
	}
	if opts.Summarizer != nil {
		steps = append(steps, &SummarizeStep{Summarizer: opts.Summarizer})
	}
	return NewPipeline(steps...).WithObserver(opts.Observer)
}

// Analyze runs the standard pipeline over raw. When raw is nil the source
// is read through opts.Loader.
func Analyze(ctx context.Context, source string, raw *table.Table, opts Options) (*domain.Report, error) {
	if err := opts.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("Analyze: invalid analysis options: %w", err)
	}

	label := opts.Label
	if label == "" {
		label = source
	}

	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID, label)

	state := &PipelineState{
		Source:   source,
		Analysis: opts.Analysis,
		Raw:      raw,
		Report: &domain.Report{
			RunID:       runID,
			Source:      label,
			GeneratedAt: time.Now().UTC(),
			Notices:     []domain.Notice{},
		},
	}

	log := logger.FromContext(ctx)
	log.Info().Msg("Analysis started")

	if err := NewAnalysisPipeline(opts).Execute(ctx, state); err != nil {
		return nil, err
	}

	log.Info().
		Int("rows", state.Report.KPIs.RowCount).
		Int("orders", state.Report.KPIs.OrderCount).
		Int("rules", len(state.Report.Baskets.Rules.Rules)).
		Str("basket_status", string(state.Report.Baskets.Status)).
		Msg("Analysis completed")

	return state.Report, nil
}
