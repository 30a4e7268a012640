package summary

import (
	"fmt"
	"strings"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// promptRules and promptDishes bound how much of the report goes into the
// prompt.
const (
	promptRules  = 5
	promptDishes = 12
)

// BuildPrompt renders the report facts the model is allowed to use.
func BuildPrompt(report *domain.Report) string {
	var b strings.Builder

	b.WriteString("You are a restaurant sales analyst. Write a short executive summary ")
	b.WriteString("(at most 6 sentences) of the sales report below for the owner.\n")
	b.WriteString("Use ONLY the numbers given. Do not invent figures.\n")
	b.WriteString("Return plain text. Do NOT use Markdown headings or code fences.\n\n")

	k := report.KPIs
	b.WriteString("KPIs:\n")
	fmt.Fprintf(&b, "- total revenue: %s\n", k.TotalRevenue.StringFixed(2))
	fmt.Fprintf(&b, "- orders: %d\n", k.OrderCount)
	fmt.Fprintf(&b, "- average order value: %s\n", k.AverageOrderValue.StringFixed(2))
	fmt.Fprintf(&b, "- unique customers: %s\n", k.UniqueCustomers)
	fmt.Fprintf(&b, "- rows: %d\n", k.RowCount)

	if n := len(report.Daily); n > 0 {
		best := report.Daily[0]
		for _, d := range report.Daily[1:] {
			if d.Revenue.GreaterThan(best.Revenue) {
				best = d
			}
		}
		fmt.Fprintf(&b, "\nDaily revenue: %d days from %s to %s, best day %s with %s.\n",
			n, report.Daily[0].Date, report.Daily[n-1].Date, best.Date, best.Revenue.StringFixed(2))
	}

	if items := report.Menu.Items; len(items) > 0 {
		b.WriteString("\nMenu engineering (dish: quadrant, units, revenue):\n")
		for i, it := range items {
			if i == promptDishes {
				fmt.Fprintf(&b, "- ... and %d more dishes\n", len(items)-promptDishes)
				break
			}
			fmt.Fprintf(&b, "- %s: %s, %d, %s\n", it.Dish, it.Quadrant, it.Popularity, it.Revenue.StringFixed(2))
		}
	}

	if report.Customers.Available() && len(report.Customers.Customers) > 0 {
		top := report.Customers.Customers[0]
		fmt.Fprintf(&b, "\nTop customer: %s spent %s over %d orders.\n", top.ClientID, top.Spend.StringFixed(2), top.Orders)
	}

	b.WriteString("\nCo-purchase rules:\n")
	rules := report.Baskets.Rules
	if len(rules.Rules) == 0 {
		status := report.Baskets.Status
		if status == domain.StatusOK {
			status = rules.Status
		}
		fmt.Fprintf(&b, "- none (%s)\n", status)
	}
	for i, r := range rules.Rules {
		if i == promptRules {
			break
		}
		fmt.Fprintf(&b, "- %s => %s (support %.3f, confidence %.3f, lift %.2f)\n",
			strings.Join(r.Antecedent, ", "), strings.Join(r.Consequent, ", "), r.Support, r.Confidence, r.Lift)
	}

	for _, n := range report.Notices {
		if n.Code == domain.NoticeSummaryFailed {
			continue
		}
		fmt.Fprintf(&b, "\nNote: %s\n", n.Message)
	}

	return b.String()
}
