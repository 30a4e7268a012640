package report

import (
	"fmt"
	"strings"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// Markdown formats a report as a Markdown document.
func Markdown(r *domain.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Sales report: %s\n\n", r.Source)
	fmt.Fprintf(&b, "_Run %s, generated %s_\n\n", r.RunID, r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	if r.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(r.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Key metrics\n\n")
	mdTable(&b, []string{"Metric", "Value"}, kpiRows(r.KPIs))

	b.WriteString("## Daily revenue\n\n")
	if len(r.Daily) == 0 {
		b.WriteString("No dated orders.\n\n")
	} else {
		mdTable(&b, []string{"Date", "Revenue", "Orders"}, dailyRows(r.Daily))
	}

	b.WriteString("## Menu engineering\n\n")
	if len(r.Menu.Items) == 0 {
		b.WriteString("No dishes.\n\n")
	} else {
		fmt.Fprintf(&b, "Mean popularity %s, mean revenue %s. %s\n\n",
			r.Menu.AvgPopularity.StringFixed(2), money(r.Menu.AvgRevenue), quadrantCounts(r.Menu))
		mdTable(&b, []string{"Dish", "Units", "Revenue", "Quadrant"}, menuRows(r.Menu.Items))
	}

	b.WriteString("## Top customers\n\n")
	switch {
	case !r.Customers.Available():
		b.WriteString("Not available: the input has no client column.\n\n")
	case len(r.Customers.Customers) == 0:
		b.WriteString("No identified customers.\n\n")
	default:
		mdTable(&b, []string{"#", "ClientID", "Spend", "Orders"}, customerRows(r.Customers.Customers))
	}

	b.WriteString("## Co-purchase rules\n\n")
	bk := r.Baskets
	fmt.Fprintf(&b, "%d orders, %d dishes, %d multi-item orders. Min support %s, min lift %s.\n\n",
		bk.Basket.Orders, bk.Basket.Items, bk.Basket.MultiItemOrders, ratio(bk.MinSupport), ratio(bk.MinLift))
	if msg := basketMessage(bk); msg != "" {
		fmt.Fprintf(&b, "%s\n\n", msg)
	} else {
		mdTable(&b, []string{"If", "Then", "Support", "Confidence", "Lift", "Leverage"}, ruleRows(bk.Rules.Rules))
	}

	if len(r.Notices) > 0 {
		b.WriteString("## Notices\n\n")
		for _, n := range r.Notices {
			fmt.Fprintf(&b, "- **%s**: %s\n", n.Code, n.Message)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func mdTable(b *strings.Builder, headers []string, rows [][]string) {
	b.WriteString("| " + strings.Join(escapeCells(headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	b.WriteString("\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}
