package analytics

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
)

func TestClassifyMenu(t *testing.T) {
	// Means: popularity 1.75, revenue 7.25.
	tbl := buildTable(t, false,
		line{"1", "", "Burger", "5", ""},
		line{"2", "", "Burger", "5", ""},
		line{"3", "", "Burger", "5", ""},
		line{"1", "", "Fries", "1", ""},
		line{"2", "", "Fries", "1", ""},
		line{"4", "", "Lobster", "10", ""},
		line{"5", "", "Water", "2", ""},
	)

	got := ClassifyMenu(tbl)

	want := map[string]domain.Quadrant{
		"Burger":  domain.QuadrantStar,
		"Fries":   domain.QuadrantPlowhorse,
		"Lobster": domain.QuadrantPuzzle,
		"Water":   domain.QuadrantDog,
	}
	if len(got.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(got.Items), len(want))
	}
	for _, item := range got.Items {
		if item.Quadrant != want[item.Dish] {
			t.Errorf("%s quadrant = %s, want %s", item.Dish, item.Quadrant, want[item.Dish])
		}
	}
	if got.Items[0].Dish != "Burger" || got.Items[3].Dish != "Water" {
		t.Errorf("items not sorted by dish: %+v", got.Items)
	}
	if !got.AvgPopularity.Equal(dec("1.75")) {
		t.Errorf("AvgPopularity = %s, want 1.75", got.AvgPopularity)
	}
	if !got.AvgRevenue.Equal(dec("7.25")) {
		t.Errorf("AvgRevenue = %s, want 7.25", got.AvgRevenue)
	}
	for _, q := range domain.Quadrants {
		if got.Counts[q] != 1 {
			t.Errorf("Counts[%s] = %d, want 1", q, got.Counts[q])
		}
	}
}

func TestClassifyMenu_TiesGoHigh(t *testing.T) {
	tests := []struct {
		name  string
		lines []line
		dish  string
		want  domain.Quadrant
	}{
		{
			name:  "single dish sits on both means",
			lines: []line{{"1", "", "Tea", "2", ""}},
			dish:  "Tea",
			want:  domain.QuadrantStar,
		},
		{
			name: "identical dishes are all stars",
			lines: []line{
				{"1", "", "Tea", "2", ""},
				{"2", "", "Coffee", "2", ""},
			},
			dish: "Coffee",
			want: domain.QuadrantStar,
		},
		{
			name: "revenue tie with repeating popularity mean",
			lines: []line{
				{"1", "", "A", "3", ""},
				{"2", "", "B", "1", ""},
				{"3", "", "C", "1", ""},
				{"4", "", "C", "1", ""},
			},
			dish: "C",
			want: domain.QuadrantStar,
		},
		{
			name: "popularity tie with low revenue",
			lines: []line{
				{"1", "", "A", "0.5", ""},
				{"2", "", "A", "0.5", ""},
				{"3", "", "B", "2.5", ""},
				{"4", "", "B", "2.5", ""},
			},
			dish: "A",
			want: domain.QuadrantPlowhorse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMenu(buildTable(t, false, tt.lines...))
			for _, item := range got.Items {
				if item.Dish == tt.dish && item.Quadrant != tt.want {
					t.Errorf("%s quadrant = %s, want %s", item.Dish, item.Quadrant, tt.want)
				}
			}
		})
	}
}

func TestClassifyMenu_Empty(t *testing.T) {
	got := ClassifyMenu(&domain.Table{})
	if len(got.Items) != 0 || got.Items == nil {
		t.Errorf("Items = %v, want empty non-nil", got.Items)
	}
	if !got.AvgPopularity.IsZero() || !got.AvgRevenue.IsZero() {
		t.Errorf("means = %s/%s, want 0/0", got.AvgPopularity, got.AvgRevenue)
	}
}

func TestClassifyMenu_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dishes := []string{"Tea", "Coffee", "Cake", "Soup", "Salad", "Bread", "Pie"}

	for run := 0; run < 50; run++ {
		var lines []line
		n := 1 + rng.Intn(60)
		for i := 0; i < n; i++ {
			lines = append(lines, line{
				order: fmt.Sprint(rng.Intn(20)),
				dish:  dishes[rng.Intn(1+rng.Intn(len(dishes)))],
				price: decimal.New(int64(rng.Intn(2000)), -2).String(),
			})
		}
		tbl := buildTable(t, false, lines...)
		kpis := ComputeKPIs(tbl)
		matrix := ClassifyMenu(tbl)

		popSum := 0
		revSum := decimal.Zero
		classified := 0
		for _, item := range matrix.Items {
			popSum += item.Popularity
			revSum = revSum.Add(item.Revenue)
			switch item.Quadrant {
			case domain.QuadrantStar, domain.QuadrantPlowhorse, domain.QuadrantPuzzle, domain.QuadrantDog:
				classified++
			}
		}

		if popSum != tbl.Len() {
			t.Fatalf("run %d: popularity sum = %d, want %d", run, popSum, tbl.Len())
		}
		if !revSum.Equal(kpis.TotalRevenue) {
			t.Fatalf("run %d: revenue sum = %s, want %s", run, revSum, kpis.TotalRevenue)
		}
		if classified != len(matrix.Items) {
			t.Fatalf("run %d: %d of %d dishes classified", run, classified, len(matrix.Items))
		}
		countSum := 0
		for _, c := range matrix.Counts {
			countSum += c
		}
		if countSum != len(matrix.Items) {
			t.Fatalf("run %d: quadrant counts sum = %d, want %d", run, countSum, len(matrix.Items))
		}
	}
}
