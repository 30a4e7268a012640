package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/sales-analyst/internal/analytics"
	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/logger"
	"github.com/dvloznov/sales-analyst/internal/mining"
	"github.com/dvloznov/sales-analyst/internal/table"
)

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps. Each run
// owns its state; nothing is shared between runs.
type PipelineState struct {
	Source   string
	Analysis config.Analysis

	Raw      *table.Table
	Table    *domain.Table
	Basket   *mining.Basket
	Itemsets []domain.FrequentItemset

	Report *domain.Report
}

// LoadStep reads the raw table through a Loader unless the caller already
// supplied one, as the upload path does.
type LoadStep struct {
	Loader Loader
}

func (s *LoadStep) Name() string { return StepLoad }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Raw != nil {
		return nil
	}
	if s.Loader == nil {
		return fmt.Errorf("LoadStep: no input table and no loader for %q", state.Source)
	}
	raw, err := s.Loader.Load(ctx, state.Source)
	if err != nil {
		return fmt.Errorf("LoadStep: %w", err)
	}
	state.Raw = raw
	return nil
}

// ValidateStep checks the schema and types the rows. It aborts the run
// before any metric is computed.
type ValidateStep struct{}

func (s *ValidateStep) Name() string { return StepValidate }

func (s *ValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	tbl, err := analytics.Validate(state.Raw, state.Analysis.Columns)
	if err != nil {
		return err
	}
	state.Table = tbl

	n := state.Analysis.PreviewRows
	if n > tbl.Len() {
		n = tbl.Len()
	}
	state.Report.Preview = append([]domain.TransactionRow{}, tbl.Rows[:n]...)

	log := logger.FromContext(ctx)
	log.Debug().
		Int("rows", tbl.Len()).
		Bool("has_client_id", tbl.HasClientID).
		Int("missing_dates", tbl.MissingDates).
		Int("blank_keys", tbl.BlankKeys).
		Msg("Input validated")
	return nil
}

// AggregateStep computes the four descriptive sections concurrently. They
// only read the validated table and each writes its own report field.
type AggregateStep struct{}

func (s *AggregateStep) Name() string { return StepAggregate }

func (s *AggregateStep) Execute(ctx context.Context, state *PipelineState) error {
	tbl := state.Table
	report := state.Report

	var g errgroup.Group
	g.Go(func() error {
		report.KPIs = analytics.ComputeKPIs(tbl)
		return nil
	})
	g.Go(func() error {
		report.Daily = analytics.DailyRevenue(tbl)
		return nil
	})
	g.Go(func() error {
		report.Menu = analytics.ClassifyMenu(tbl)
		return nil
	})
	g.Go(func() error {
		report.Customers = analytics.RankCustomers(tbl, state.Analysis.TopKCustomers)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if report.KPIs.OrderCount == 0 {
		report.AddNotice(domain.NoticeNoOrders, "the input contains no orders; every metric is zero")
	}
	if tbl.MissingDates > 0 {
		report.AddNotice(domain.NoticeMissingDates, fmt.Sprintf(
			"%d of %d rows have an unreadable order date and are left out of the daily revenue series",
			tbl.MissingDates, tbl.Len()))
	}
	if tbl.BlankKeys > 0 {
		report.AddNotice(domain.NoticeBlankKeys, fmt.Sprintf(
			"%d of %d rows have a blank order id or dish; their price counts as revenue but they are left out of orders, the menu matrix and the basket",
			tbl.BlankKeys, tbl.Len()))
	}
	if !report.Customers.Available() {
		report.AddNotice(domain.NoticeNoCustomerColumn, report.Customers.Message)
	}
	return nil
}

// BuildBasketStep pivots orders into the one-hot basket and decides whether
// mining can run at all.
type BuildBasketStep struct{}

func (s *BuildBasketStep) Name() string { return StepBuildBasket }

func (s *BuildBasketStep) Execute(ctx context.Context, state *PipelineState) error {
	basket := mining.BuildBasket(state.Table, state.Analysis.BasketThreshold)
	state.Basket = basket

	analysis := &state.Report.Baskets
	analysis.Basket = basket.Summary()
	analysis.MinSupport = state.Analysis.MinSupport
	analysis.MinLift = state.Analysis.MinLift
	analysis.Itemsets = []domain.FrequentItemset{}

	if !basket.HasMultiItemBaskets() {
		msg := "no order contains two or more distinct dishes; co-purchase analysis was skipped"
		skip(state.Report, domain.StatusNoMultiItemBaskets, msg)
		state.Report.AddNotice(domain.NoticeNoMultiItemBaskets, msg)
	}
	return nil
}

// MineItemsetsStep runs Apriori over the basket.
type MineItemsetsStep struct{}

func (s *MineItemsetsStep) Name() string { return StepMineItemsets }

func (s *MineItemsetsStep) Execute(ctx context.Context, state *PipelineState) error {
	if skipped(state.Report) {
		return nil
	}

	itemsets, err := mining.Apriori(state.Basket, mining.AprioriOptions{
		MinSupport: state.Analysis.MinSupport,
		MaxLen:     state.Analysis.MaxItemsetSize,
	})
	if err != nil {
		return err
	}
	state.Itemsets = itemsets
	state.Report.Baskets.Itemsets = itemsets

	if len(itemsets) == 0 {
		msg := fmt.Sprintf("no dish appears in at least %.2f%% of orders; lower the minimum support", state.Analysis.MinSupport*100)
		skip(state.Report, domain.StatusNoFrequentItemsets, msg)
		state.Report.AddNotice(domain.NoticeNoFrequentItemsets, msg)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Int("itemsets", len(itemsets)).
		Float64("min_support", state.Analysis.MinSupport).
		Msg("Frequent itemsets mined")
	return nil
}

// GenerateRulesStep scores, filters and ranks association rules.
type GenerateRulesStep struct{}

func (s *GenerateRulesStep) Name() string { return StepGenerateRules }

func (s *GenerateRulesStep) Execute(ctx context.Context, state *PipelineState) error {
	if skipped(state.Report) {
		return nil
	}

	rules := mining.GenerateRules(state.Itemsets, mining.RuleOptions{
		MinLift: state.Analysis.MinLift,
		TopN:    state.Analysis.TopNRules,
	})

	analysis := &state.Report.Baskets
	analysis.Rules = rules
	analysis.Status = rules.Status
	analysis.Message = rules.Message
	if rules.Status != domain.StatusOK {
		state.Report.AddNotice(domain.NoticeNoRules, rules.Message)
	}
	return nil
}

// SummarizeStep asks the Summarizer for a narrative. Failures are recorded
// as a notice and never fail the run.
type SummarizeStep struct {
	Summarizer Summarizer
}

func (s *SummarizeStep) Name() string { return StepSummarize }

func (s *SummarizeStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Summarizer == nil {
		return nil
	}
	text, err := s.Summarizer.Summarize(ctx, state.Report)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Summary generation failed")
		state.Report.AddNotice(domain.NoticeSummaryFailed, "the executive summary could not be generated")
		return nil
	}
	state.Report.Summary = text
	return nil
}

// skip marks the co-purchase section as finished with an explanation.
func skip(report *domain.Report, status domain.SectionStatus, msg string) {
	report.Baskets.Status = status
	report.Baskets.Message = msg
	report.Baskets.Rules = domain.RuleSet{Status: status, Message: msg, Rules: []domain.AssociationRule{}}
}

func skipped(report *domain.Report) bool {
	return report.Baskets.Status != ""
}
