package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Count is an integer metric that depends on the shape of the input table.
// When Available is false the metric was not computed, which is different
// from a computed zero.
type Count struct {
	Value     int
	Available bool
}

// NotAvailableLabel is how an unavailable Count is rendered.
const NotAvailableLabel = "not_available"

// CountOf returns an available Count.
func CountOf(n int) Count {
	return Count{Value: n, Available: true}
}

// NotAvailable returns the sentinel Count.
func NotAvailable() Count {
	return Count{}
}

func (c Count) String() string {
	if !c.Available {
		return NotAvailableLabel
	}
	return strconv.Itoa(c.Value)
}

// MarshalJSON encodes an available count as a number and the sentinel as
// the string "not_available".
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Available {
		return json.Marshal(NotAvailableLabel)
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (c *Count) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = NotAvailable()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = CountOf(n)
	return nil
}

// KPISet holds the scalar summary metrics of one run.
type KPISet struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	OrderCount        int             `json:"order_count"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	UniqueCustomers   Count           `json:"unique_customers"`
	RowCount          int             `json:"row_count"`
}

// DailyRevenue is one point of the revenue time series.
type DailyRevenue struct {
	Date    civil.Date      `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// Quadrant is a menu-engineering class derived from popularity and revenue
// relative to the menu-wide means.
type Quadrant string

const (
	// QuadrantStar is high popularity, high revenue.
	QuadrantStar Quadrant = "star"
	// QuadrantPlowhorse is high popularity, low revenue.
	QuadrantPlowhorse Quadrant = "plowhorse"
	// QuadrantPuzzle is low popularity, high revenue.
	QuadrantPuzzle Quadrant = "puzzle"
	// QuadrantDog is low popularity, low revenue.
	QuadrantDog Quadrant = "dog"
)

// Quadrants lists every class in display order.
var Quadrants = []Quadrant{QuadrantStar, QuadrantPlowhorse, QuadrantPuzzle, QuadrantDog}

// QuadrantFor maps the two threshold comparisons to a class.
func QuadrantFor(highPopularity, highRevenue bool) Quadrant {
	switch {
	case highPopularity && highRevenue:
		return QuadrantStar
	case highPopularity:
		return QuadrantPlowhorse
	case highRevenue:
		return QuadrantPuzzle
	default:
		return QuadrantDog
	}
}

// Description returns a short human label for the quadrant.
func (q Quadrant) Description() string {
	switch q {
	case QuadrantStar:
		return "high popularity / high revenue"
	case QuadrantPlowhorse:
		return "high popularity / low revenue"
	case QuadrantPuzzle:
		return "low popularity / high revenue"
	case QuadrantDog:
		return "low popularity / low revenue"
	}
	return string(q)
}

// MenuItem is the per-dish popularity/revenue record.
type MenuItem struct {
	Dish       string          `json:"dish"`
	Popularity int             `json:"popularity"`
	Revenue    decimal.Decimal `json:"revenue"`
	Quadrant   Quadrant        `json:"quadrant"`
}

// MenuMatrix is the menu-engineering classification of one run.
type MenuMatrix struct {
	Items         []MenuItem       `json:"items"`
	AvgPopularity decimal.Decimal  `json:"avg_popularity"`
	AvgRevenue    decimal.Decimal  `json:"avg_revenue"`
	Counts        map[Quadrant]int `json:"counts"`
}

// CustomerSpend is the total spend of one client.
type CustomerSpend struct {
	ClientID string          `json:"client_id"`
	Spend    decimal.Decimal `json:"spend"`
	Orders   int             `json:"orders"`
}

// SectionStatus describes whether a report section holds results.
type SectionStatus string

const (
	StatusOK                    SectionStatus = "ok"
	StatusNotAvailable          SectionStatus = "not_available"
	StatusNoMultiItemBaskets    SectionStatus = "no_multi_item_baskets"
	StatusNoFrequentItemsets    SectionStatus = "no_frequent_itemsets"
	StatusNoMultiItemItemsets   SectionStatus = "no_multi_item_itemsets"
	StatusNoRulesAboveThreshold SectionStatus = "no_rules_above_threshold"
)

// CustomerRanking is the optional top-K customers section.
type CustomerRanking struct {
	Status    SectionStatus   `json:"status"`
	Message   string          `json:"message,omitempty"`
	Customers []CustomerSpend `json:"customers"`
}

// Available reports whether the ranking was computed.
func (r CustomerRanking) Available() bool {
	return r.Status == StatusOK
}

// FrequentItemset is a set of dishes bought together in at least the
// minimum share of orders. Items are sorted.
type FrequentItemset struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
	Count   int      `json:"count"`
}

// Key returns a canonical identity for the itemset.
func (f FrequentItemset) Key() string {
	return ItemsetKey(f.Items)
}

// ItemsetKey joins sorted item labels into a map key.
func ItemsetKey(items []string) string {
	return strings.Join(items, "\x1f")
}

// AssociationRule is an "if antecedent then consequent" rule.
type AssociationRule struct {
	Antecedent        []string `json:"antecedent"`
	Consequent        []string `json:"consequent"`
	AntecedentSupport float64  `json:"antecedent_support"`
	ConsequentSupport float64  `json:"consequent_support"`
	Support           float64  `json:"support"`
	Confidence        float64  `json:"confidence"`
	Lift              float64  `json:"lift"`
	Leverage          float64  `json:"leverage"`
}

// RuleSet is the outcome of rule generation, with an explanation when empty.
type RuleSet struct {
	Status  SectionStatus     `json:"status"`
	Message string            `json:"message,omitempty"`
	Rules   []AssociationRule `json:"rules"`
	// Total is the number of rules that passed the lift filter before
	// truncation.
	Total int `json:"total"`
}

// BasketSummary describes the market-basket table the miner ran on.
type BasketSummary struct {
	Orders          int `json:"orders"`
	Items           int `json:"items"`
	MultiItemOrders int `json:"multi_item_orders"`
}

// BasketAnalysis is the co-purchase section of the report.
type BasketAnalysis struct {
	Status     SectionStatus     `json:"status"`
	Message    string            `json:"message,omitempty"`
	Basket     BasketSummary     `json:"basket"`
	MinSupport float64           `json:"min_support"`
	MinLift    float64           `json:"min_lift"`
	Itemsets   []FrequentItemset `json:"itemsets"`
	Rules      RuleSet           `json:"rules"`
}

// Notice is an informational message about degenerate input. Notices are
// never errors.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Notice codes.
const (
	NoticeNoOrders           = "no_orders"
	NoticeMissingDates       = "missing_dates"
	NoticeBlankKeys          = "blank_keys"
	NoticeNoCustomerColumn   = "customers_not_available"
	NoticeNoMultiItemBaskets = string(StatusNoMultiItemBaskets)
	NoticeNoFrequentItemsets = string(StatusNoFrequentItemsets)
	NoticeNoRules            = "no_rules"
	NoticeSummaryFailed      = "summary_failed"
	NoticeExportFailed       = "export_failed"
)

// Report is the complete output of one analysis run.
type Report struct {
	RunID       string           `json:"run_id"`
	Source      string           `json:"source"`
	GeneratedAt time.Time        `json:"generated_at"`
	Preview     []TransactionRow `json:"preview"`
	KPIs        KPISet           `json:"kpis"`
	Daily       []DailyRevenue   `json:"daily_revenue"`
	Menu        MenuMatrix       `json:"menu"`
	Customers   CustomerRanking  `json:"customers"`
	Baskets     BasketAnalysis   `json:"baskets"`
	Summary     string           `json:"summary,omitempty"`
	Notices     []Notice         `json:"notices"`
}

// AddNotice appends an informational notice.
func (r *Report) AddNotice(code, message string) {
	r.Notices = append(r.Notices, Notice{Code: code, Message: message})
}

// HasNotice reports whether a notice with the given code was recorded.
func (r *Report) HasNotice(code string) bool {
	for _, n := range r.Notices {
		if n.Code == code {
			return true
		}
	}
	return false
}
