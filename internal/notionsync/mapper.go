package notionsync

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// Property names shared by the menu and rules databases.
const (
	PropRunID      = "Run ID"
	PropSource     = "Source"
	PropReportDate = "Report Date"
)

// MenuItemToNotionProperties converts a menu-engineering row to Notion properties.
// Menu database: Dish (title), Quadrant, Popularity, Revenue, Run ID, Source, Report Date.
func MenuItemToNotionProperties(report *domain.Report, item domain.MenuItem) notionapi.Properties {
	revenue, _ := item.Revenue.Float64()

	props := notionapi.Properties{
		"Dish": titleProperty(item.Dish),
		"Quadrant": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(item.Quadrant),
			},
		},
		"Popularity": notionapi.NumberProperty{
			Number: float64(item.Popularity),
		},
		"Revenue": notionapi.NumberProperty{
			Number: revenue,
		},
	}
	addRunProperties(props, report)
	return props
}

// RuleToNotionProperties converts an association rule to Notion properties.
// Rules database: Rule (title), Antecedent, Consequent, Rank, Support,
// Confidence, Lift, Leverage, Run ID, Source, Report Date.
func RuleToNotionProperties(report *domain.Report, rank int, rule domain.AssociationRule) notionapi.Properties {
	antecedent := strings.Join(rule.Antecedent, ", ")
	consequent := strings.Join(rule.Consequent, ", ")

	props := notionapi.Properties{
		"Rule":       titleProperty(antecedent + " => " + consequent),
		"Antecedent": richTextProperty(antecedent),
		"Consequent": richTextProperty(consequent),
		"Rank": notionapi.NumberProperty{
			Number: float64(rank),
		},
		"Support": notionapi.NumberProperty{
			Number: rule.Support,
		},
		"Confidence": notionapi.NumberProperty{
			Number: rule.Confidence,
		},
		"Lift": notionapi.NumberProperty{
			Number: rule.Lift,
		},
		"Leverage": notionapi.NumberProperty{
			Number: rule.Leverage,
		},
	}
	addRunProperties(props, report)
	return props
}

func addRunProperties(props notionapi.Properties, report *domain.Report) {
	props[PropRunID] = richTextProperty(report.RunID)
	if report.Source != "" {
		props[PropSource] = richTextProperty(report.Source)
	}
	if !report.GeneratedAt.IsZero() {
		props[PropReportDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(report.GeneratedAt.UTC().Truncate(time.Second))
					return &d
				}(),
			},
		}
	}
}

func titleProperty(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: s,
				},
			},
		},
	}
}

func richTextProperty(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: s,
				},
			},
		},
	}
}

// extractRichText returns the plain text of a rich-text property, or empty
// string if not found.
func extractRichText(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			var b strings.Builder
			for _, rt := range richText.RichText {
				b.WriteString(rt.PlainText)
			}
			return b.String()
		}
	}
	return ""
}
