// Package mining builds market baskets from transactions and mines frequent
// itemsets and association rules from them.
package mining

import (
	"sort"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// Basket is a one-hot order-by-dish matrix. Orders and Items are sorted and
// every cell is 0 or 1.
type Basket struct {
	Orders []string
	Items  []string

	cells   [][]uint8
	columns []bitset
}

// BuildBasket counts each (order, dish) pair and sets the cell when the
// count reaches threshold. Values below 1 are treated as 1, so any
// occurrence of a dish in an order counts once regardless of quantity.
func BuildBasket(t *domain.Table, threshold int) *Basket {
	if threshold < 1 {
		threshold = 1
	}

	counts := make(map[string]map[string]int)
	itemSet := make(map[string]struct{})
	for _, row := range t.Rows {
		if !row.Keyed() {
			continue
		}
		perOrder, ok := counts[row.OrderID]
		if !ok {
			perOrder = make(map[string]int)
			counts[row.OrderID] = perOrder
		}
		perOrder[row.Dish]++
		itemSet[row.Dish] = struct{}{}
	}

	b := &Basket{
		Orders: make([]string, 0, len(counts)),
		Items:  make([]string, 0, len(itemSet)),
	}
	for id := range counts {
		b.Orders = append(b.Orders, id)
	}
	for item := range itemSet {
		b.Items = append(b.Items, item)
	}
	sort.Strings(b.Orders)
	sort.Strings(b.Items)

	col := make(map[string]int, len(b.Items))
	b.columns = make([]bitset, len(b.Items))
	for j, item := range b.Items {
		col[item] = j
		b.columns[j] = newBitset(len(b.Orders))
	}

	b.cells = make([][]uint8, len(b.Orders))
	for i, id := range b.Orders {
		b.cells[i] = make([]uint8, len(b.Items))
		for dish, n := range counts[id] {
			if n >= threshold {
				j := col[dish]
				b.cells[i][j] = 1
				b.columns[j].set(i)
			}
		}
	}
	return b
}

// Value returns the cell for order row i and item column j.
func (b *Basket) Value(i, j int) uint8 {
	return b.cells[i][j]
}

// Row returns a copy of the cells of order row i.
func (b *Basket) Row(i int) []uint8 {
	out := make([]uint8, len(b.cells[i]))
	copy(out, b.cells[i])
	return out
}

// MultiItemOrders counts orders with at least two distinct dishes set.
func (b *Basket) MultiItemOrders() int {
	n := 0
	for _, row := range b.cells {
		set := 0
		for _, v := range row {
			set += int(v)
		}
		if set >= 2 {
			n++
		}
	}
	return n
}

// HasMultiItemBaskets reports whether mining can produce anything beyond
// singletons. It is false when there are no items or no order holds two
// distinct dishes.
func (b *Basket) HasMultiItemBaskets() bool {
	return len(b.Items) > 0 && b.MultiItemOrders() > 0
}

// Summary describes the basket dimensions for the report.
func (b *Basket) Summary() domain.BasketSummary {
	return domain.BasketSummary{
		Orders:          len(b.Orders),
		Items:           len(b.Items),
		MultiItemOrders: b.MultiItemOrders(),
	}
}
