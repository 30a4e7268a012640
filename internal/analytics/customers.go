package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// RankCustomers returns the k clients with the highest total spend. Without
// a client column the ranking is NotAvailable, which is distinct from an OK
// ranking with no customers. Rows with a blank client id are skipped. Equal
// spends keep the order in which the clients first appear; callers should
// not rely on that order. k <= 0 returns every client.
func RankCustomers(t *domain.Table, k int) domain.CustomerRanking {
	if !t.HasClientID {
		return domain.CustomerRanking{
			Status:    domain.StatusNotAvailable,
			Message:   "input has no client identifier column; customer ranking is not available",
			Customers: []domain.CustomerSpend{},
		}
	}

	type acc struct {
		spend  decimal.Decimal
		orders map[string]struct{}
	}

	var ids []string
	byID := make(map[string]*acc)
	for _, row := range t.Rows {
		if row.ClientID == "" {
			continue
		}
		a, ok := byID[row.ClientID]
		if !ok {
			a = &acc{spend: decimal.Zero, orders: make(map[string]struct{})}
			byID[row.ClientID] = a
			ids = append(ids, row.ClientID)
		}
		a.spend = a.spend.Add(row.Price)
		if row.OrderID != "" {
			a.orders[row.OrderID] = struct{}{}
		}
	}

	customers := make([]domain.CustomerSpend, 0, len(ids))
	for _, id := range ids {
		a := byID[id]
		customers = append(customers, domain.CustomerSpend{ClientID: id, Spend: a.spend, Orders: len(a.orders)})
	}
	sort.SliceStable(customers, func(i, j int) bool {
		return customers[i].Spend.GreaterThan(customers[j].Spend)
	})

	if k > 0 && len(customers) > k {
		customers = customers[:k]
	}

	ranking := domain.CustomerRanking{Status: domain.StatusOK, Customers: customers}
	if len(customers) == 0 {
		ranking.Message = "client column is present but every client id is blank"
	}
	return ranking
}
