package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// maxSummaryLen bounds the stored summary text.
const maxSummaryLen = 8000

// ReportRunRow is one row of the report_runs table.
type ReportRunRow struct {
	RunID       string    `bigquery:"run_id"`       // REQUIRED
	Source      string    `bigquery:"source"`       // REQUIRED
	GeneratedTS time.Time `bigquery:"generated_ts"` // REQUIRED

	RowCount          int64              `bigquery:"row_count"`           // REQUIRED
	OrderCount        int64              `bigquery:"order_count"`         // REQUIRED
	TotalRevenue      *big.Rat           `bigquery:"total_revenue"`       // NUMERIC, REQUIRED
	AverageOrderValue *big.Rat           `bigquery:"average_order_value"` // NUMERIC, REQUIRED
	UniqueCustomers   bigquery.NullInt64 `bigquery:"unique_customers"`    // NULLABLE (no client column)

	BasketStatus string              `bigquery:"basket_status"` // REQUIRED
	ItemsetCount int64               `bigquery:"itemset_count"` // REQUIRED
	RuleCount    int64               `bigquery:"rule_count"`    // REQUIRED
	TopRule      bigquery.NullString `bigquery:"top_rule"`      // NULLABLE

	Summary bigquery.NullString `bigquery:"summary"` // NULLABLE
	Notices bigquery.NullJSON   `bigquery:"notices"` // JSON, NULLABLE
}

// NewReportRunRow flattens a report into a report_runs row.
func NewReportRunRow(report *domain.Report) (*ReportRunRow, error) {
	row := &ReportRunRow{
		RunID:             report.RunID,
		Source:            report.Source,
		GeneratedTS:       report.GeneratedAt,
		RowCount:          int64(report.KPIs.RowCount),
		OrderCount:        int64(report.KPIs.OrderCount),
		TotalRevenue:      decimalToRat(report.KPIs.TotalRevenue),
		AverageOrderValue: decimalToRat(report.KPIs.AverageOrderValue),
		BasketStatus:      string(report.Baskets.Status),
		ItemsetCount:      int64(len(report.Baskets.Itemsets)),
		RuleCount:         int64(len(report.Baskets.Rules.Rules)),
	}

	if c := report.KPIs.UniqueCustomers; c.Available {
		row.UniqueCustomers = bigquery.NullInt64{Int64: int64(c.Value), Valid: true}
	}
	if len(report.Baskets.Rules.Rules) > 0 {
		row.TopRule = bigquery.NullString{StringVal: RuleLabel(report.Baskets.Rules.Rules[0]), Valid: true}
	}
	if s := strings.TrimSpace(report.Summary); s != "" {
		if len(s) > maxSummaryLen {
			s = s[:maxSummaryLen]
		}
		row.Summary = bigquery.NullString{StringVal: s, Valid: true}
	}
	if len(report.Notices) > 0 {
		b, err := json.Marshal(report.Notices)
		if err != nil {
			return nil, fmt.Errorf("NewReportRunRow: encoding notices: %w", err)
		}
		row.Notices = bigquery.NullJSON{JSONVal: string(b), Valid: true}
	}
	return row, nil
}

// RuleLabel renders a rule as "a, b => c".
func RuleLabel(r domain.AssociationRule) string {
	return strings.Join(r.Antecedent, ", ") + " => " + strings.Join(r.Consequent, ", ")
}

// InsertReportRunWithClient streams one report_runs row into ref.
func InsertReportRunWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, row *ReportRunRow) error {
	inserter := client.DatasetInProject(ref.ProjectID, ref.DatasetID).Table(ref.TableID).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertReportRunWithClient: inserting run %s: %w", row.RunID, err)
	}
	return nil
}

// decimalToRat converts to the NUMERIC representation the client expects.
func decimalToRat(d decimal.Decimal) *big.Rat {
	return d.Rat()
}
