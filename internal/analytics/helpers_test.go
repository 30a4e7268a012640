package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// line is a compact test row: order, date ("" for missing), dish, price, client.
type line struct {
	order, date, dish, price, client string
}

func buildTable(t *testing.T, hasClient bool, lines ...line) *domain.Table {
	t.Helper()
	tbl := &domain.Table{HasClientID: hasClient}
	for _, l := range lines {
		row := domain.TransactionRow{
			OrderID:  l.order,
			Dish:     l.dish,
			Price:    decimal.RequireFromString(l.price),
			ClientID: l.client,
		}
		if l.date != "" {
			ts, err := time.Parse("2006-01-02 15:04", l.date)
			if err != nil {
				t.Fatalf("bad test date %q: %v", l.date, err)
			}
			row.OrderDate = &ts
		} else {
			tbl.MissingDates++
		}
		if !row.Keyed() {
			tbl.BlankKeys++
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
