package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1).
			Width(80)

	warningColor = color.New(color.FgYellow, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
)

func newTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
}

// Render formats a report for the terminal.
func Render(r *domain.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Sales report: " + r.Source))
	b.WriteString("\n")
	b.WriteString(mutedColor.Sprintf("run %s, generated %s", r.RunID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	b.WriteString("\n")

	if len(r.Preview) > 0 {
		hasClient := r.KPIs.UniqueCustomers.Available
		headers := []string{"OrderID", "OrderDate", "Dish", "Price"}
		if hasClient {
			headers = append(headers, "ClientID")
		}
		section(&b, fmt.Sprintf("Preview (%d of %d rows)", len(r.Preview), r.KPIs.RowCount))
		b.WriteString(newTable(headers, previewRows(r.Preview, hasClient)))
		b.WriteString("\n")
	}

	section(&b, "Key metrics")
	b.WriteString(newTable([]string{"Metric", "Value"}, kpiRows(r.KPIs)))
	b.WriteString("\n")

	section(&b, "Daily revenue")
	if len(r.Daily) == 0 {
		b.WriteString(mutedColor.Sprint("no dated orders"))
	} else {
		b.WriteString(newTable([]string{"Date", "Revenue", "Orders"}, dailyRows(r.Daily)))
	}
	b.WriteString("\n")

	section(&b, "Menu engineering")
	if len(r.Menu.Items) == 0 {
		b.WriteString(mutedColor.Sprint("no dishes"))
	} else {
		b.WriteString(fmt.Sprintf("mean popularity %s, mean revenue %s\n",
			r.Menu.AvgPopularity.StringFixed(2), money(r.Menu.AvgRevenue)))
		b.WriteString(quadrantCounts(r.Menu))
		b.WriteString("\n")
		b.WriteString(newTable([]string{"Dish", "Units", "Revenue", "Quadrant"}, menuRows(r.Menu.Items)))
	}
	b.WriteString("\n")

	section(&b, "Top customers")
	switch {
	case !r.Customers.Available():
		b.WriteString(mutedColor.Sprint(domain.NotAvailableLabel))
	case len(r.Customers.Customers) == 0:
		b.WriteString(mutedColor.Sprint("no identified customers"))
	default:
		b.WriteString(newTable([]string{"#", "ClientID", "Spend", "Orders"}, customerRows(r.Customers.Customers)))
	}
	b.WriteString("\n")

	section(&b, "Co-purchase rules")
	bk := r.Baskets
	b.WriteString(fmt.Sprintf("%d orders, %d dishes, %d multi-item orders; min support %s, min lift %s\n",
		bk.Basket.Orders, bk.Basket.Items, bk.Basket.MultiItemOrders, ratio(bk.MinSupport), ratio(bk.MinLift)))
	if msg := basketMessage(bk); msg != "" {
		b.WriteString(warningColor.Sprint(msg))
	} else {
		b.WriteString(newTable([]string{"If", "Then", "Support", "Confidence", "Lift", "Leverage"}, ruleRows(bk.Rules.Rules)))
		if bk.Rules.Total > len(bk.Rules.Rules) {
			b.WriteString("\n")
			b.WriteString(mutedColor.Sprintf("showing %d of %d rules", len(bk.Rules.Rules), bk.Rules.Total))
		}
	}
	b.WriteString("\n")

	if r.Summary != "" {
		section(&b, "Summary")
		b.WriteString(summaryStyle.Render(r.Summary))
		b.WriteString("\n")
	}

	if len(r.Notices) > 0 {
		section(&b, "Notices")
		for _, n := range r.Notices {
			b.WriteString(warningColor.Sprintf("! %s", n.Code))
			b.WriteString(" ")
			b.WriteString(n.Message)
			b.WriteString("\n")
		}
	}

	return b.String()
}
