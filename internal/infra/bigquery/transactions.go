package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/sales-analyst/internal/config"
)

// QueryTransactionsWithClient reads the configured sales columns from a
// BigQuery table. The client column is selected only when the table has it.
// The first returned record is the header.
func QueryTransactionsWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, cols config.Columns) ([][]string, error) {
	md, err := client.DatasetInProject(ref.ProjectID, ref.DatasetID).Table(ref.TableID).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsWithClient: reading table metadata: %w", err)
	}

	selected := selectColumns(md.Schema, cols)
	q := client.Query(buildSelect(ref, selected))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsWithClient: executing query: %w", err)
	}

	var records [][]string
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsWithClient: reading row: %w", err)
		}
		if records == nil {
			records = append(records, schemaHeader(it.Schema, selected))
		}
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatValue(v)
		}
		records = append(records, record)
	}

	if records == nil {
		records = [][]string{schemaHeader(it.Schema, selected)}
	}
	return records, nil
}

// selectColumns returns the configured columns to query. Required columns
// are always requested so that a missing one surfaces as a query error; the
// client column is only requested when the schema has it.
func selectColumns(schema bigquery.Schema, cols config.Columns) []string {
	selected := cols.Required()
	if cols.ClientID == "" {
		return selected
	}
	for _, f := range schema {
		if strings.EqualFold(f.Name, cols.ClientID) {
			return append(selected, cols.ClientID)
		}
	}
	return selected
}

func buildSelect(ref TableRef, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "`" + strings.ReplaceAll(c, "`", "") + "`"
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), ref.quoted())
}

func schemaHeader(schema bigquery.Schema, fallback []string) []string {
	if len(schema) == 0 {
		return append([]string(nil), fallback...)
	}
	header := make([]string, len(schema))
	for i, f := range schema {
		header[i] = f.Name
	}
	return header
}

// formatValue renders a BigQuery cell the way the CSV reader would see it.
func formatValue(v bigquery.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *big.Rat:
		if x == nil {
			return ""
		}
		return strings.TrimRight(strings.TrimRight(x.FloatString(9), "0"), ".")
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case civil.Date:
		return x.String()
	case civil.DateTime:
		return x.Date.String() + " " + x.Time.String()
	case civil.Time:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
