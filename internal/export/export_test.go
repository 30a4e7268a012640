package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	bq "github.com/dvloznov/sales-analyst/internal/infra/bigquery"
	"github.com/dvloznov/sales-analyst/internal/logger"
)

// MockStorageService is a mock implementation of gcs.StorageService.
type MockStorageService struct {
	UploadBytesFunc func(ctx context.Context, gcsURI, contentType string, data []byte) error
	Uploads         map[string][]byte
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (m *MockStorageService) UploadBytes(ctx context.Context, gcsURI, contentType string, data []byte) error {
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, gcsURI, contentType, data)
	}
	if m.Uploads == nil {
		m.Uploads = make(map[string][]byte)
	}
	m.Uploads[gcsURI] = data
	return nil
}

func (m *MockStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

// MockReportRepository is a mock implementation of bigquery.ReportRepository.
type MockReportRepository struct {
	Rows []*bq.ReportRunRow
	Refs []bq.TableRef
	Err  error
}

func (m *MockReportRepository) InsertReportRun(ctx context.Context, ref bq.TableRef, row *bq.ReportRunRow) error {
	if m.Err != nil {
		return m.Err
	}
	m.Refs = append(m.Refs, ref)
	m.Rows = append(m.Rows, row)
	return nil
}

type exporterFunc func(ctx context.Context, r *domain.Report) error

func (f exporterFunc) Export(ctx context.Context, r *domain.Report) error {
	return f(ctx, r)
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(&bytes.Buffer{}))
}

func testReport() *domain.Report {
	return &domain.Report{
		RunID:       "run-1",
		Source:      "sales.csv",
		GeneratedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		KPIs:        domain.KPISet{OrderCount: 2, RowCount: 3},
		Notices:     []domain.Notice{},
	}
}

func TestArchive_Export(t *testing.T) {
	storage := &MockStorageService{}
	a := &Archive{Storage: storage, Prefix: "gs://bucket/reports/"}

	if err := a.Export(testContext(), testReport()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var keys []string
	for k := range storage.Uploads {
		keys = append(keys, k)
	}
	want := map[string]bool{
		"gs://bucket/reports/run-1.json": true,
		"gs://bucket/reports/run-1.md":   true,
	}
	if len(keys) != 2 || !want[keys[0]] || !want[keys[1]] {
		t.Fatalf("uploads = %v", keys)
	}

	var decoded domain.Report
	if err := json.Unmarshal(storage.Uploads["gs://bucket/reports/run-1.json"], &decoded); err != nil {
		t.Fatalf("archived JSON: %v", err)
	}
	if decoded.RunID != "run-1" {
		t.Errorf("RunID = %q", decoded.RunID)
	}
}

func TestArchive_UploadError(t *testing.T) {
	storage := &MockStorageService{UploadBytesFunc: func(ctx context.Context, uri, ct string, data []byte) error {
		return errors.New("permission denied")
	}}
	a := &Archive{Storage: storage, Prefix: "gs://bucket"}

	err := a.Export(testContext(), testReport())
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Export() error = %v", err)
	}
}

func TestRunLog_Export(t *testing.T) {
	repo := &MockReportRepository{}
	ref := bq.TableRef{ProjectID: "p", DatasetID: "sales", TableID: "runs"}
	l := &RunLog{Repo: repo, Table: ref}

	if err := l.Export(testContext(), testReport()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(repo.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(repo.Rows))
	}
	if diff := cmp.Diff(ref, repo.Refs[0]); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
	if repo.Rows[0].RunID != "run-1" || repo.Rows[0].OrderCount != 2 {
		t.Errorf("row = %+v", repo.Rows[0])
	}
}

func TestChain_JoinsErrors(t *testing.T) {
	var calls []string
	chain := Chain{
		exporterFunc(func(ctx context.Context, r *domain.Report) error {
			calls = append(calls, "first")
			return errors.New("first failed")
		}),
		exporterFunc(func(ctx context.Context, r *domain.Report) error {
			calls = append(calls, "second")
			return nil
		}),
		exporterFunc(func(ctx context.Context, r *domain.Report) error {
			calls = append(calls, "third")
			return errors.New("third failed")
		}),
	}

	err := chain.Export(testContext(), testReport())
	if diff := cmp.Diff([]string{"first", "second", "third"}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if err == nil || !strings.Contains(err.Error(), "first failed") || !strings.Contains(err.Error(), "third failed") {
		t.Errorf("Export() error = %v", err)
	}

	if err := (Chain{}).Export(testContext(), testReport()); err != nil {
		t.Errorf("empty chain error = %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantLen int
		wantErr bool
	}{
		{name: "nothing configured", modify: func(c *config.Config) {}, wantLen: 0},
		{
			name: "notion without databases",
			modify: func(c *config.Config) {
				c.Notion.Token = "secret"
			},
			wantLen: 0,
		},
		{
			name: "notion and archive",
			modify: func(c *config.Config) {
				c.Notion.Token = "secret"
				c.Notion.RulesDatabaseID = "db-rules"
				c.Export.GCSPrefix = "gs://bucket/reports"
			},
			wantLen: 2,
		},
		{
			name: "runs table without project",
			modify: func(c *config.Config) {
				c.Export.RunsTable = "bigquery://sales.runs"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)

			chain, closeFn, err := FromConfig(testContext(), cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if closeFn == nil {
				t.Fatal("close function must never be nil")
			}
			if len(chain) != tt.wantLen {
				t.Errorf("len(chain) = %d, want %d", len(chain), tt.wantLen)
			}
		})
	}
}

func TestArchivePath(t *testing.T) {
	if got := ArchivePath("gs://b/p/", "r1"); got != "gs://b/p/r1" {
		t.Errorf("ArchivePath = %q", got)
	}
}
