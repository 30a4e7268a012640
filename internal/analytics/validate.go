// Package analytics computes the descriptive sections of a sales report
// from a validated transaction table.
package analytics

import (
	"strings"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/table"
)

// Validate checks that every required column is present and converts the
// raw table into typed transaction rows. A missing column is reported as a
// *domain.SchemaError naming all missing columns. Unparseable dates become
// nil and the row is kept. Rows with a blank order id or dish are kept and
// counted in BlankKeys. A non-numeric price is a *domain.ParseError.
func Validate(raw *table.Table, cols config.Columns) (*domain.Table, error) {
	required := cols.Required()

	var missing []string
	for _, name := range required {
		if !raw.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing, Required: required}
	}

	orderIDs, _ := raw.Column(cols.OrderID)
	dates, _ := raw.Column(cols.OrderDate)
	dishes, _ := raw.Column(cols.Dish)
	prices, _ := raw.Column(cols.Price)

	var clientIDs []string
	hasClient := false
	if cols.ClientID != "" {
		clientIDs, hasClient = raw.Column(cols.ClientID)
	}

	out := &domain.Table{
		Rows:        make([]domain.TransactionRow, raw.Len()),
		HasClientID: hasClient,
	}

	for i := range out.Rows {
		rowNum := i + 1
		row := &out.Rows[i]

		row.OrderID = strings.TrimSpace(orderIDs[i])
		row.Dish = strings.TrimSpace(dishes[i])
		if !row.Keyed() {
			out.BlankKeys++
		}

		price, err := table.ParsePrice(prices[i])
		if err != nil {
			return nil, &domain.ParseError{Row: rowNum, Column: cols.Price, Value: prices[i], Err: err}
		}
		row.Price = price

		if ts, ok := table.ParseTimestamp(dates[i]); ok {
			row.OrderDate = &ts
		} else {
			out.MissingDates++
		}

		if hasClient {
			row.ClientID = strings.TrimSpace(clientIDs[i])
		}
	}

	return out, nil
}
