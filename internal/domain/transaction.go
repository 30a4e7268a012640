package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRow is one point-of-sale line item. An order spans every row
// sharing the same OrderID.
type TransactionRow struct {
	OrderID   string          `json:"order_id"`
	OrderDate *time.Time      `json:"order_date"` // nil when the source value could not be parsed
	Dish      string          `json:"dish"`
	Price     decimal.Decimal `json:"price"`
	ClientID  string          `json:"client_id,omitempty"` // empty when blank or when the column is absent
}

// Table is the validated, immutable input of one analysis run.
type Table struct {
	Rows []TransactionRow

	// HasClientID reports whether the source carried a client identifier
	// column. Customer metrics are only computed when it is true.
	HasClientID bool

	// MissingDates counts rows whose order date could not be parsed.
	MissingDates int

	// BlankKeys counts rows with a blank order id or dish. Their price is
	// still revenue, but they belong to no order and no menu item.
	BlankKeys int
}

// Keyed reports whether the row carries both an order id and a dish.
func (r TransactionRow) Keyed() bool {
	return r.OrderID != "" && r.Dish != ""
}

// Len returns the number of transaction rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
