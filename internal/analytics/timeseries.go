package analytics

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// DailyRevenue sums prices per calendar date of the order timestamp in
// ascending date order. Rows without a date are left out and days without
// orders are absent rather than zero.
func DailyRevenue(t *domain.Table) []domain.DailyRevenue {
	type bucket struct {
		revenue decimal.Decimal
		orders  map[string]struct{}
	}

	buckets := make(map[civil.Date]*bucket)
	for _, row := range t.Rows {
		if row.OrderDate == nil {
			continue
		}
		day := civil.DateOf(*row.OrderDate)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{revenue: decimal.Zero, orders: make(map[string]struct{})}
			buckets[day] = b
		}
		b.revenue = b.revenue.Add(row.Price)
		if row.OrderID != "" {
			b.orders[row.OrderID] = struct{}{}
		}
	}

	series := make([]domain.DailyRevenue, 0, len(buckets))
	for day, b := range buckets {
		series = append(series, domain.DailyRevenue{Date: day, Revenue: b.revenue, Orders: len(b.orders)})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}
