// Package report renders analysis reports for terminals and Markdown.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func ratio(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func items(labels []string) string {
	return strings.Join(labels, ", ")
}

// basketMessage explains an empty co-purchase section.
func basketMessage(b domain.BasketAnalysis) string {
	switch {
	case b.Status != domain.StatusOK:
		if b.Message != "" {
			return b.Message
		}
		return string(b.Status)
	case b.Rules.Status != domain.StatusOK:
		if b.Rules.Message != "" {
			return b.Rules.Message
		}
		return string(b.Rules.Status)
	}
	return ""
}

func kpiRows(k domain.KPISet) [][]string {
	return [][]string{
		{"Total revenue", money(k.TotalRevenue)},
		{"Orders", strconv.Itoa(k.OrderCount)},
		{"Average order value", money(k.AverageOrderValue)},
		{"Unique customers", k.UniqueCustomers.String()},
		{"Rows", strconv.Itoa(k.RowCount)},
	}
}

func dailyRows(daily []domain.DailyRevenue) [][]string {
	rows := make([][]string, len(daily))
	for i, d := range daily {
		rows[i] = []string{d.Date.String(), money(d.Revenue), strconv.Itoa(d.Orders)}
	}
	return rows
}

func menuRows(items []domain.MenuItem) [][]string {
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{it.Dish, strconv.Itoa(it.Popularity), money(it.Revenue), string(it.Quadrant)}
	}
	return rows
}

func customerRows(customers []domain.CustomerSpend) [][]string {
	rows := make([][]string, len(customers))
	for i, c := range customers {
		rows[i] = []string{strconv.Itoa(i + 1), c.ClientID, money(c.Spend), strconv.Itoa(c.Orders)}
	}
	return rows
}

func ruleRows(rules []domain.AssociationRule) [][]string {
	rows := make([][]string, len(rules))
	for i, r := range rules {
		rows[i] = []string{
			items(r.Antecedent),
			items(r.Consequent),
			ratio(r.Support),
			ratio(r.Confidence),
			ratio(r.Lift),
			ratio(r.Leverage),
		}
	}
	return rows
}

func previewRows(preview []domain.TransactionRow, hasClient bool) [][]string {
	rows := make([][]string, len(preview))
	for i, p := range preview {
		date := ""
		if p.OrderDate != nil {
			date = p.OrderDate.Format("2006-01-02 15:04")
		}
		row := []string{p.OrderID, date, p.Dish, money(p.Price)}
		if hasClient {
			row = append(row, p.ClientID)
		}
		rows[i] = row
	}
	return rows
}

func quadrantCounts(m domain.MenuMatrix) string {
	parts := make([]string, 0, len(domain.Quadrants))
	for _, q := range domain.Quadrants {
		parts = append(parts, fmt.Sprintf("%s %d", q, m.Counts[q]))
	}
	return strings.Join(parts, " | ")
}
