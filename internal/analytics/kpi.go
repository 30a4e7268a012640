package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// ComputeKPIs returns revenue, order and customer totals. The average order
// value is zero when there are no orders. Rows with a blank order id add
// to revenue but not to the order count. Unique customers is NotAvailable
// when the input had no client column, and counts non-blank ids otherwise.
func ComputeKPIs(t *domain.Table) domain.KPISet {
	kpis := domain.KPISet{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		UniqueCustomers:   domain.NotAvailable(),
		RowCount:          t.Len(),
	}
	if t == nil {
		return kpis
	}

	orders := make(map[string]struct{})
	customers := make(map[string]struct{})
	for _, row := range t.Rows {
		kpis.TotalRevenue = kpis.TotalRevenue.Add(row.Price)
		if row.OrderID != "" {
			orders[row.OrderID] = struct{}{}
		}
		if row.ClientID != "" {
			customers[row.ClientID] = struct{}{}
		}
	}

	kpis.OrderCount = len(orders)
	if kpis.OrderCount > 0 {
		kpis.AverageOrderValue = kpis.TotalRevenue.Div(decimal.NewFromInt(int64(kpis.OrderCount)))
	}
	if t.HasClientID {
		kpis.UniqueCustomers = domain.CountOf(len(customers))
	}
	return kpis
}
