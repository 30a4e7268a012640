package sqlsource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// QueryPostgres runs the request against PostgreSQL and returns a header
// row followed by one string record per result row.
func QueryPostgres(ctx context.Context, req Request) ([][]string, error) {
	u, table, err := splitURL(req.URL)
	if err != nil {
		return nil, fmt.Errorf("QueryPostgres: %w", err)
	}
	query, err := buildQuery(req, table, `"`)
	if err != nil {
		return nil, fmt.Errorf("QueryPostgres: %w", err)
	}

	conn, err := pgx.Connect(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("QueryPostgres: connecting: %w", err)
	}
	defer conn.Close(context.Background())

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("QueryPostgres: executing query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	records := [][]string{header}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("QueryPostgres: reading row %d: %w", len(records), err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("QueryPostgres: iterating rows: %w", err)
	}
	return records, nil
}
