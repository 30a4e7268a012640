package mining

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

// ErrMinSupport is returned when the support threshold is outside (0, 1].
var ErrMinSupport = errors.New("min support must be in (0, 1]")

// AprioriOptions controls itemset mining.
type AprioriOptions struct {
	// MinSupport is the minimum fraction of orders containing an itemset.
	MinSupport float64
	// MaxLen bounds the itemset size. 0 means unbounded.
	MaxLen int
}

// candidate is an itemset as sorted basket column indices plus the orders
// that contain it.
type candidate struct {
	items []int
	cover bitset
	count int
}

// Apriori enumerates every itemset whose support is at least MinSupport,
// level by level. A (k+1)-candidate is the join of two frequent k-itemsets
// sharing their first k-1 items and is only counted when all of its
// k-subsets are frequent. Results are ordered by size, then by item labels.
func Apriori(b *Basket, opts AprioriOptions) ([]domain.FrequentItemset, error) {
	if !(opts.MinSupport > 0 && opts.MinSupport <= 1) {
		return nil, fmt.Errorf("Apriori: %w, got %v", ErrMinSupport, opts.MinSupport)
	}

	result := []domain.FrequentItemset{}
	n := len(b.Orders)
	if n == 0 || len(b.Items) == 0 {
		return result, nil
	}

	frequent := func(count int) bool {
		return float64(count)/float64(n) >= opts.MinSupport
	}

	var level []candidate
	for j, cover := range b.columns {
		if c := cover.count(); frequent(c) {
			level = append(level, candidate{items: []int{j}, cover: cover, count: c})
		}
	}

	for size := 1; len(level) > 0; size++ {
		for _, c := range level {
			result = append(result, b.itemset(c, n))
		}
		if opts.MaxLen > 0 && size >= opts.MaxLen {
			break
		}
		level = b.nextLevel(level, frequent)
	}

	return result, nil
}

// nextLevel joins the sorted frequent k-itemsets into counted, frequent
// (k+1)-itemsets. The output stays sorted lexicographically.
func (b *Basket) nextLevel(level []candidate, frequent func(int) bool) []candidate {
	known := make(map[string]struct{}, len(level))
	for _, c := range level {
		known[indexKey(c.items)] = struct{}{}
	}

	var next []candidate
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			a, o := level[i].items, level[j].items
			if !samePrefix(a, o) {
				// Level is sorted, so no later itemset shares a's prefix.
				break
			}

			items := make([]int, len(a)+1)
			copy(items, a)
			items[len(a)] = o[len(o)-1]

			if !allSubsetsKnown(items, known) {
				continue
			}

			cover := level[i].cover.and(b.columns[items[len(items)-1]])
			count := cover.count()
			if !frequent(count) {
				continue
			}
			next = append(next, candidate{items: items, cover: cover, count: count})
		}
	}
	return next
}

func (b *Basket) itemset(c candidate, orders int) domain.FrequentItemset {
	labels := make([]string, len(c.items))
	for i, j := range c.items {
		labels[i] = b.Items[j]
	}
	return domain.FrequentItemset{
		Items:   labels,
		Support: float64(c.count) / float64(orders),
		Count:   c.count,
	}
}

// samePrefix reports whether a and b agree on all but their last element.
func samePrefix(a, b []int) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// allSubsetsKnown checks every subset obtained by dropping one element.
// The two subsets that formed the join are known already and are skipped.
func allSubsetsKnown(items []int, known map[string]struct{}) bool {
	if len(items) <= 2 {
		return true
	}
	subset := make([]int, 0, len(items)-1)
	for skip := 0; skip < len(items)-2; skip++ {
		subset = subset[:0]
		for i, v := range items {
			if i != skip {
				subset = append(subset, v)
			}
		}
		if _, ok := known[indexKey(subset)]; !ok {
			return false
		}
	}
	return true
}

func indexKey(items []int) string {
	var sb strings.Builder
	for i, v := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}
