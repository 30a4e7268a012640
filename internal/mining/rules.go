package mining

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// RuleOptions controls rule filtering and ranking.
type RuleOptions struct {
	// MinLift drops rules whose lift is below it.
	MinLift float64
	// TopN truncates the ranked rules. 0 keeps all of them.
	TopN int
}

// GenerateRules splits every frequent itemset of two or more items into each
// antecedent/consequent pair and scores it:
//
//	confidence = support(itemset) / support(antecedent)
//	lift       = confidence / support(consequent)
//	leverage   = support(itemset) - support(antecedent)*support(consequent)
//
// Rules are ranked by lift, then confidence, then support, all descending.
// An empty result is reported through the RuleSet status, never as an error.
func GenerateRules(itemsets []domain.FrequentItemset, opts RuleOptions) domain.RuleSet {
	set := domain.RuleSet{Rules: []domain.AssociationRule{}}

	support := make(map[string]float64, len(itemsets))
	multi := 0
	for _, is := range itemsets {
		support[is.Key()] = is.Support
		if len(is.Items) >= 2 {
			multi++
		}
	}

	if multi == 0 {
		set.Status = domain.StatusNoMultiItemItemsets
		set.Message = "no combination of two or more dishes reached the minimum support; try a lower threshold or more data"
		return set
	}

	var rules []domain.AssociationRule
	for _, is := range itemsets {
		if len(is.Items) < 2 {
			continue
		}
		for _, split := range splits(is.Items) {
			sA, okA := support[domain.ItemsetKey(split.antecedent)]
			sC, okC := support[domain.ItemsetKey(split.consequent)]
			if !okA || !okC || sA == 0 || sC == 0 {
				continue
			}

			confidence := is.Support / sA
			rule := domain.AssociationRule{
				Antecedent:        split.antecedent,
				Consequent:        split.consequent,
				AntecedentSupport: sA,
				ConsequentSupport: sC,
				Support:           is.Support,
				Confidence:        confidence,
				Lift:              confidence / sC,
				Leverage:          is.Support - sA*sC,
			}
			if rule.Lift >= opts.MinLift {
				rules = append(rules, rule)
			}
		}
	}

	if len(rules) == 0 {
		set.Status = domain.StatusNoRulesAboveThreshold
		set.Message = fmt.Sprintf("no rule reached the minimum lift of %.2f", opts.MinLift)
		return set
	}

	SortRules(rules)
	set.Total = len(rules)
	if opts.TopN > 0 && len(rules) > opts.TopN {
		rules = rules[:opts.TopN]
	}
	set.Status = domain.StatusOK
	set.Rules = rules
	return set
}

// SortRules ranks rules by lift, confidence and support, descending, with
// the item labels as a final deterministic tie-break.
func SortRules(rules []domain.AssociationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if x, y := strings.Join(a.Antecedent, ","), strings.Join(b.Antecedent, ","); x != y {
			return x < y
		}
		return strings.Join(a.Consequent, ",") < strings.Join(b.Consequent, ",")
	})
}

type split struct {
	antecedent []string
	consequent []string
}

// splits returns every partition of items into a non-empty antecedent and a
// non-empty consequent. Both halves keep the input order.
func splits(items []string) []split {
	n := len(items)
	out := make([]split, 0, (1<<n)-2)
	for mask := 1; mask < (1<<n)-1; mask++ {
		var s split
		for i, item := range items {
			if mask&(1<<i) != 0 {
				s.antecedent = append(s.antecedent, item)
			} else {
				s.consequent = append(s.consequent, item)
			}
		}
		out = append(out, s)
	}
	return out
}
