package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultAnalysis(t *testing.T) {
	got := DefaultAnalysis()
	want := Analysis{
		MinSupport:      0.01,
		MinLift:         1.0,
		TopNRules:       10,
		TopKCustomers:   10,
		BasketThreshold: 1,
		MaxItemsetSize:  0,
		PreviewRows:     5,
		Columns: Columns{
			OrderID:   "OrderID",
			OrderDate: "OrderDate",
			Dish:      "Dish",
			Price:     "Price",
			ClientID:  "ClientID",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DefaultAnalysis() mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9090"
  read_timeout: 5s
log:
  level: debug
  format: json
analysis:
  min_support: 0.05
  min_lift: 1.2
  top_n_rules: 0
  columns:
    order_id: Check
    order_date: Opened
    dish: Item
    price: Amount
    client_id: ""
jobs:
  workers: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want default 60s", cfg.Server.WriteTimeout)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Analysis.MinSupport != 0.05 || cfg.Analysis.MinLift != 1.2 {
		t.Errorf("thresholds = %v/%v, want 0.05/1.2", cfg.Analysis.MinSupport, cfg.Analysis.MinLift)
	}
	if cfg.Analysis.TopNRules != 0 {
		t.Errorf("TopNRules = %d, want 0", cfg.Analysis.TopNRules)
	}
	if cfg.Analysis.TopKCustomers != DefaultTopKCustomers {
		t.Errorf("TopKCustomers = %d, want default", cfg.Analysis.TopKCustomers)
	}
	wantCols := []string{"Check", "Opened", "Item", "Amount"}
	if diff := cmp.Diff(wantCols, cfg.Analysis.Columns.Required()); diff != "" {
		t.Errorf("Required() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Jobs.Workers != 3 {
		t.Errorf("Jobs.Workers = %d, want 3", cfg.Jobs.Workers)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(DefaultAnalysis(), cfg.Analysis); diff != "" {
		t.Errorf("Analysis mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SALES_MIN_SUPPORT", "0.2")
	t.Setenv("SALES_TOP_N_RULES", "3")
	t.Setenv("SALES_LOG_LEVEL", "warn")
	t.Setenv("SALES_SUMMARY_ENABLED", "true")
	t.Setenv("SALES_API_KEY", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.MinSupport != 0.2 {
		t.Errorf("MinSupport = %v, want 0.2", cfg.Analysis.MinSupport)
	}
	if cfg.Analysis.TopNRules != 3 {
		t.Errorf("TopNRules = %d, want 3", cfg.Analysis.TopNRules)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if !cfg.Summary.Enabled {
		t.Error("Summary.Enabled = false, want true")
	}
	if cfg.Server.APIKey != "s3cret" {
		t.Errorf("Server.APIKey = %q, want s3cret", cfg.Server.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("bad env number", func(t *testing.T) {
		t.Setenv("SALES_MIN_LIFT", "high")
		if _, err := Load(""); err == nil {
			t.Error("expected error for non-numeric SALES_MIN_LIFT")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("analysis: [1, 2"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

func TestAnalysisValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Analysis)
		wantErr bool
	}{
		{name: "defaults", mutate: func(a *Analysis) {}},
		{name: "support of one", mutate: func(a *Analysis) { a.MinSupport = 1 }},
		{name: "zero support", mutate: func(a *Analysis) { a.MinSupport = 0 }, wantErr: true},
		{name: "support above one", mutate: func(a *Analysis) { a.MinSupport = 1.5 }, wantErr: true},
		{name: "negative lift", mutate: func(a *Analysis) { a.MinLift = -1 }, wantErr: true},
		{name: "NaN lift", mutate: func(a *Analysis) { a.MinLift = math.NaN() }, wantErr: true},
		{name: "infinite lift", mutate: func(a *Analysis) { a.MinLift = math.Inf(1) }, wantErr: true},
		{name: "NaN support", mutate: func(a *Analysis) { a.MinSupport = math.NaN() }, wantErr: true},
		{name: "negative top n", mutate: func(a *Analysis) { a.TopNRules = -1 }, wantErr: true},
		{name: "zero top k", mutate: func(a *Analysis) { a.TopKCustomers = 0 }, wantErr: true},
		{name: "zero threshold", mutate: func(a *Analysis) { a.BasketThreshold = 0 }, wantErr: true},
		{name: "max itemset of one", mutate: func(a *Analysis) { a.MaxItemsetSize = 1 }, wantErr: true},
		{name: "max itemset of two", mutate: func(a *Analysis) { a.MaxItemsetSize = 2 }},
		{name: "empty dish column", mutate: func(a *Analysis) { a.Columns.Dish = " " }, wantErr: true},
		{name: "duplicate column", mutate: func(a *Analysis) { a.Columns.Price = "Dish" }, wantErr: true},
		{name: "client id duplicates order id", mutate: func(a *Analysis) { a.Columns.ClientID = "OrderID" }, wantErr: true},
		{name: "no client column", mutate: func(a *Analysis) { a.Columns.ClientID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultAnalysis()
			tt.mutate(&a)
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = "http" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Jobs.Workers = 0 }, wantErr: true},
		{name: "export prefix", mutate: func(c *Config) { c.Export.GCSPrefix = "gs://bucket/reports" }},
		{name: "export prefix not gcs", mutate: func(c *Config) { c.Export.GCSPrefix = "/tmp/reports" }, wantErr: true},
		{name: "runs table", mutate: func(c *Config) { c.Export.RunsTable = "bigquery://p/sales.report_runs" }},
		{name: "runs table not bigquery", mutate: func(c *Config) { c.Export.RunsTable = "sales.report_runs" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
