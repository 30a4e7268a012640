package notionsync

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/logger"
)

// MockNotionService is a mock implementation of NotionService for testing.
type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePageFunc    func(ctx context.Context, pageID string) error
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, databaseID, properties)
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return m.QueryDatabaseFunc(ctx, databaseID, filter)
}

func (m *MockNotionService) DeletePage(ctx context.Context, pageID string) error {
	return m.DeletePageFunc(ctx, pageID)
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(&bytes.Buffer{}))
}

func testReport() *domain.Report {
	return &domain.Report{
		RunID:       "run-2",
		Source:      "cafe.csv",
		GeneratedAt: time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC),
		Menu: domain.MenuMatrix{Items: []domain.MenuItem{
			{Dish: "Cake", Popularity: 3, Revenue: decimal.RequireFromString("12"), Quadrant: domain.QuadrantStar},
			{Dish: "Tea", Popularity: 3, Revenue: decimal.RequireFromString("7.5"), Quadrant: domain.QuadrantPlowhorse},
		}},
		Baskets: domain.BasketAnalysis{
			Status: domain.StatusOK,
			Rules: domain.RuleSet{
				Status: domain.StatusOK,
				Rules: []domain.AssociationRule{
					{Antecedent: []string{"Tea"}, Consequent: []string{"Cake"}, Support: 0.5, Confidence: 1, Lift: 1.33, Leverage: 0.125},
				},
			},
		},
	}
}

func notionPage(id, runID, source string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropRunID:  &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: runID}}},
			PropSource: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: source}}},
		},
	}
}

func TestMenuItemToNotionProperties(t *testing.T) {
	report := testReport()
	props := MenuItemToNotionProperties(report, report.Menu.Items[1])

	title, ok := props["Dish"].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "Tea" {
		t.Errorf("Dish = %#v", props["Dish"])
	}
	if q := props["Quadrant"].(notionapi.SelectProperty).Select.Name; q != "plowhorse" {
		t.Errorf("Quadrant = %q, want plowhorse", q)
	}
	if r := props["Revenue"].(notionapi.NumberProperty).Number; r != 7.5 {
		t.Errorf("Revenue = %v, want 7.5", r)
	}
	if run := props[PropRunID].(notionapi.RichTextProperty).RichText[0].Text.Content; run != "run-2" {
		t.Errorf("Run ID = %q", run)
	}
	if _, ok := props[PropReportDate]; !ok {
		t.Error("Report Date missing")
	}
}

func TestRuleToNotionProperties(t *testing.T) {
	report := testReport()
	props := RuleToNotionProperties(report, 1, report.Baskets.Rules.Rules[0])

	if got := props["Rule"].(notionapi.TitleProperty).Title[0].Text.Content; got != "Tea => Cake" {
		t.Errorf("Rule = %q", got)
	}
	numbers := map[string]float64{"Rank": 1, "Support": 0.5, "Confidence": 1, "Lift": 1.33, "Leverage": 0.125}
	for name, want := range numbers {
		if got := props[name].(notionapi.NumberProperty).Number; got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestPublishReport(t *testing.T) {
	created := map[string]int{}
	var deleted []string

	mock := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			if databaseID != "menu-db" {
				return &notionapi.DatabaseQueryResponse{}, nil
			}
			if req.StartCursor == "" {
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{notionPage("p1", "run-1", "cafe.csv")},
					HasMore:    true,
					NextCursor: "next",
				}, nil
			}
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{
					notionPage("p2", "run-1", "other.csv"),
					notionPage("p3", "run-2", "cafe.csv"),
				},
			}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			created[databaseID]++
			return &notionapi.Page{ID: "new"}, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			deleted = append(deleted, pageID)
			return nil
		},
	}

	res, err := PublishReport(testContext(), mock, Databases{MenuID: "menu-db", RulesID: "rules-db"}, testReport(), false)
	if err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}

	want := PublishResult{MenuCreated: 2, RulesCreated: 1, Archived: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("PublishReport() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p1"}, deleted); diff != "" {
		t.Errorf("archived pages mismatch (-want +got):\n%s", diff)
	}
	if created["menu-db"] != 2 || created["rules-db"] != 1 {
		t.Errorf("created = %v", created)
	}
}

func TestPublishReport_DryRun(t *testing.T) {
	mock := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{notionPage("p1", "run-1", "cafe.csv")}}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Error("CreatePage called during dry run")
			return nil, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			t.Error("DeletePage called during dry run")
			return nil
		},
	}

	res, err := PublishReport(testContext(), mock, Databases{MenuID: "menu-db"}, testReport(), true)
	if err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}
	if res.MenuCreated != 2 || res.Archived != 1 || res.RulesCreated != 0 {
		t.Errorf("PublishReport() = %+v", res)
	}
}

func TestPublishReport_Failures(t *testing.T) {
	mock := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			return nil, errors.New("validation_error")
		},
	}

	res, err := PublishReport(testContext(), mock, Databases{RulesID: "rules-db"}, testReport(), false)
	if err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}
	if res.Failed != 1 || res.RulesCreated != 0 {
		t.Errorf("PublishReport() = %+v", res)
	}

	mock.QueryDatabaseFunc = func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
		return nil, errors.New("unauthorized")
	}
	if _, err := PublishReport(testContext(), mock, Databases{MenuID: "menu-db"}, testReport(), false); err == nil {
		t.Error("expected query error")
	}
}
