package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/sales-analyst/internal/config"
)

// TransactionRepository reads point-of-sale rows from the warehouse.
type TransactionRepository interface {
	// QueryTransactions returns a header row followed by one string record
	// per table row.
	QueryTransactions(ctx context.Context, ref TableRef, cols config.Columns) ([][]string, error)
}

// ReportRepository records the outcome of analysis runs.
type ReportRepository interface {
	InsertReportRun(ctx context.Context, ref TableRef, row *ReportRunRow) error
}

// BigQueryRepository is the concrete implementation of TransactionRepository
// and ReportRepository. It holds a shared BigQuery client to avoid creating
// a new connection for each operation.
type BigQueryRepository struct {
	client *bigquery.Client
}

// NewBigQueryRepository creates a new instance of BigQueryRepository.
func NewBigQueryRepository(ctx context.Context, projectID string) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{client: client}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// QueryTransactions delegates to QueryTransactionsWithClient with the shared client.
func (r *BigQueryRepository) QueryTransactions(ctx context.Context, ref TableRef, cols config.Columns) ([][]string, error) {
	return QueryTransactionsWithClient(ctx, r.client, ref, cols)
}

// InsertReportRun delegates to InsertReportRunWithClient with the shared client.
func (r *BigQueryRepository) InsertReportRun(ctx context.Context, ref TableRef, row *ReportRunRow) error {
	return InsertReportRunWithClient(ctx, r.client, ref, row)
}
