package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// ClassifyMenu computes popularity (line count) and revenue per dish and
// places each dish in a quadrant relative to the means across distinct
// dishes. A dish at or above a mean is on the high side of that axis. The
// comparison is made as value*n >= total so a tie at the mean is exact.
func ClassifyMenu(t *domain.Table) domain.MenuMatrix {
	matrix := domain.MenuMatrix{
		Items:         []domain.MenuItem{},
		AvgPopularity: decimal.Zero,
		AvgRevenue:    decimal.Zero,
		Counts:        make(map[domain.Quadrant]int, len(domain.Quadrants)),
	}
	for _, q := range domain.Quadrants {
		matrix.Counts[q] = 0
	}

	index := make(map[string]int)
	for _, row := range t.Rows {
		if row.Dish == "" {
			continue
		}
		i, ok := index[row.Dish]
		if !ok {
			i = len(matrix.Items)
			index[row.Dish] = i
			matrix.Items = append(matrix.Items, domain.MenuItem{Dish: row.Dish, Revenue: decimal.Zero})
		}
		matrix.Items[i].Popularity++
		matrix.Items[i].Revenue = matrix.Items[i].Revenue.Add(row.Price)
	}

	n := len(matrix.Items)
	if n == 0 {
		return matrix
	}

	totalPop := 0
	totalRev := decimal.Zero
	for _, item := range matrix.Items {
		totalPop += item.Popularity
		totalRev = totalRev.Add(item.Revenue)
	}

	dishes := decimal.NewFromInt(int64(n))
	matrix.AvgPopularity = decimal.NewFromInt(int64(totalPop)).Div(dishes)
	matrix.AvgRevenue = totalRev.Div(dishes)

	for i := range matrix.Items {
		item := &matrix.Items[i]
		highPop := item.Popularity*n >= totalPop
		highRev := item.Revenue.Mul(dishes).GreaterThanOrEqual(totalRev)
		item.Quadrant = domain.QuadrantFor(highPop, highRev)
		matrix.Counts[item.Quadrant]++
	}

	sort.Slice(matrix.Items, func(i, j int) bool {
		return matrix.Items[i].Dish < matrix.Items[j].Dish
	})
	return matrix
}
