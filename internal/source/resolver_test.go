package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/sales-analyst/internal/config"
	bq "github.com/dvloznov/sales-analyst/internal/infra/bigquery"
	"github.com/dvloznov/sales-analyst/internal/infra/sqlsource"
	"github.com/dvloznov/sales-analyst/internal/logger"
)

// MockStorageService is a mock implementation of gcs.StorageService for testing.
type MockStorageService struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return m.FetchFromGCSFunc(ctx, gcsURI)
}

func (m *MockStorageService) UploadBytes(ctx context.Context, gcsURI, contentType string, data []byte) error {
	return errors.New("not implemented")
}

func (m *MockStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return filepath.Base(uri)
}

// MockTransactionRepository is a mock implementation of bq.TransactionRepository for testing.
type MockTransactionRepository struct {
	QueryTransactionsFunc func(ctx context.Context, ref bq.TableRef, cols config.Columns) ([][]string, error)
}

func (m *MockTransactionRepository) QueryTransactions(ctx context.Context, ref bq.TableRef, cols config.Columns) ([][]string, error) {
	return m.QueryTransactionsFunc(ctx, ref, cols)
}

const salesCSV = "OrderID,OrderDate,Dish,Price\n1,2024-01-01,Tea,2.50\n1,2024-01-01,Cake,4\n"

var salesRecords = [][]string{
	{"OrderID", "OrderDate", "Dish", "Price"},
	{"1", "2024-01-01", "Tea", "2.50"},
	{"1", "2024-01-01", "Cake", "4"},
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(&bytes.Buffer{}))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		src     string
		want    Kind
		wantErr bool
	}{
		{src: "sales.csv", want: KindFile},
		{src: "/data/sales.xlsx", want: KindFile},
		{src: "file:///data/sales.csv", want: KindFile},
		{src: "gs://bucket/sales.csv", want: KindGCS},
		{src: "bigquery://p/d.t", want: KindBigQuery},
		{src: "postgres://db/shop", want: KindPostgres},
		{src: "postgresql://db/shop", want: KindPostgres},
		{src: "mysql://db/shop", want: KindMySQL},
		{src: "s3://bucket/sales.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Detect(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Detect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedSource) {
				t.Errorf("error = %v, want ErrUnsupportedSource", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte(salesCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{}
	for _, src := range []string{path, "file://" + path} {
		tbl, err := r.Load(testContext(), src)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", src, err)
		}
		if tbl.Len() != 2 || tbl.Name() != "sales.csv" {
			t.Errorf("Load(%q) = %d rows named %q", src, tbl.Len(), tbl.Name())
		}
	}

	if _, err := r.Load(testContext(), filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := r.Load(testContext(), "  "); err == nil {
		t.Error("expected error for empty source")
	}
}

func TestResolver_LoadGCS(t *testing.T) {
	var fetched string
	r := &Resolver{Storage: &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			fetched = gcsURI
			return []byte(salesCSV), nil
		},
	}}

	tbl, err := r.Load(testContext(), "gs://bucket/exports/sales.csv")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if fetched != "gs://bucket/exports/sales.csv" {
		t.Errorf("fetched %q", fetched)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}

	r.Storage = &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			return nil, errors.New("permission denied")
		},
	}
	if _, err := r.Load(testContext(), "gs://bucket/sales.csv"); err == nil {
		t.Error("expected fetch error")
	}
}

func TestResolver_LoadBigQuery(t *testing.T) {
	var gotRef bq.TableRef
	r := &Resolver{
		Sources: config.SourcesConfig{GCPProject: "default-proj"},
		Columns: config.DefaultColumns(),
		Warehouse: &MockTransactionRepository{
			QueryTransactionsFunc: func(ctx context.Context, ref bq.TableRef, cols config.Columns) ([][]string, error) {
				gotRef = ref
				return salesRecords, nil
			},
		},
	}

	tbl, err := r.Load(testContext(), "bigquery://sales.orders")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := bq.TableRef{ProjectID: "default-proj", DatasetID: "sales", TableID: "orders"}
	if diff := cmp.Diff(want, gotRef); diff != "" {
		t.Errorf("table ref mismatch (-want +got):\n%s", diff)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestResolver_LoadSQL(t *testing.T) {
	var got []sqlsource.Request
	query := func(ctx context.Context, req sqlsource.Request) ([][]string, error) {
		got = append(got, req)
		return salesRecords, nil
	}
	r := &Resolver{
		Postgres: query,
		MySQL:    query,
		Sources:  config.SourcesConfig{SQLTable: "orders"},
	}

	for _, src := range []string{"postgres://app:secret@db/shop", "mysql://app@db/shop"} {
		tbl, err := r.Load(testContext(), src)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", src, err)
		}
		if tbl.Len() != 2 {
			t.Errorf("Load(%q) Len() = %d, want 2", src, tbl.Len())
		}
	}

	want := []sqlsource.Request{
		{URL: "postgres://app:secret@db/shop", Table: "orders"},
		{URL: "mysql://app@db/shop", Table: "orders"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}

	if _, err := (&Resolver{}).Load(testContext(), "mysql://db/shop"); err == nil {
		t.Error("expected error without a driver")
	}
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"sales.csv":                     "sales.csv",
		"gs://bucket/sales.csv":         "gs://bucket/sales.csv",
		"postgres://app:secret@db/shop": "postgres://app:xxxxx@db/shop",
		"mysql://app@db/shop":           "mysql://app@db/shop",
	}
	for in, want := range tests {
		if got := Redact(in); got != want {
			t.Errorf("Redact(%q) = %q, want %q", in, got, want)
		}
	}
}
