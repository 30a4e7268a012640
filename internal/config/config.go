package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration shared by the API server and CLI.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Log      LogConfig     `yaml:"log"`
	Analysis Analysis      `yaml:"analysis"`
	Sources  SourcesConfig `yaml:"sources"`
	Summary  SummaryConfig `yaml:"summary"`
	Notion   NotionConfig  `yaml:"notion"`
	Jobs     JobsConfig    `yaml:"jobs"`
	Export   ExportConfig  `yaml:"export"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          string        `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	MaxUploadSize int64         `yaml:"max_upload_size"`
	// APIKey, when set, is required as a bearer token on /api routes.
	APIKey string `yaml:"api_key"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Analysis holds the knobs of the analytics pipeline.
type Analysis struct {
	// MinSupport is the minimum fraction of orders an itemset must appear
	// in to be kept by the miner. Small datasets need a higher value than
	// large ones.
	MinSupport float64 `yaml:"min_support"`

	// MinLift filters association rules. 1.0 keeps rules whose items
	// co-occur at least as often as independence predicts.
	MinLift float64 `yaml:"min_lift"`

	// TopNRules truncates the ranked rule list. 0 keeps every rule.
	TopNRules int `yaml:"top_n_rules"`

	// TopKCustomers truncates the customer ranking.
	TopKCustomers int `yaml:"top_k_customers"`

	// BasketThreshold is the minimum count of a dish within an order for
	// the basket cell to be set.
	BasketThreshold int `yaml:"basket_threshold"`

	// MaxItemsetSize bounds the miner. 0 means unbounded.
	MaxItemsetSize int `yaml:"max_itemset_size"`

	// PreviewRows is how many validated rows the report echoes back.
	PreviewRows int `yaml:"preview_rows"`

	Columns Columns `yaml:"columns"`
}

// Columns names the input columns. ClientID is optional in the input.
type Columns struct {
	OrderID   string `yaml:"order_id"`
	OrderDate string `yaml:"order_date"`
	Dish      string `yaml:"dish"`
	Price     string `yaml:"price"`
	ClientID  string `yaml:"client_id"`
}

// Required returns the column names that must be present in every input.
func (c Columns) Required() []string {
	return []string{c.OrderID, c.OrderDate, c.Dish, c.Price}
}

// SourcesConfig configures remote input sources.
type SourcesConfig struct {
	// GCPProject is used for BigQuery sources without an explicit project.
	GCPProject string `yaml:"gcp_project"`
	// SQLQuery overrides the SELECT used for postgres and mysql sources.
	// It must return the configured column names.
	SQLQuery string `yaml:"sql_query"`
	// SQLTable is read when SQLQuery is empty.
	SQLTable string `yaml:"sql_table"`
	// Sheet selects the spreadsheet sheet; empty means the first one.
	Sheet string `yaml:"sheet"`
}

// SummaryConfig configures the optional executive summary.
type SummaryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotionConfig configures the optional Notion export.
type NotionConfig struct {
	Token           string `yaml:"token"`
	MenuDatabaseID  string `yaml:"menu_database_id"`
	RulesDatabaseID string `yaml:"rules_database_id"`
}

// ExportConfig configures where finished reports are archived.
type ExportConfig struct {
	// GCSPrefix is a gs://bucket/prefix under which JSON and Markdown
	// reports are written. Empty disables the upload.
	GCSPrefix string `yaml:"gcs_prefix"`
	// RunsTable is a bigquery://project/dataset.table receiving one row per
	// run. Empty disables the insert.
	RunsTable string `yaml:"runs_table"`
}

// JobsConfig configures the background analysis queue.
type JobsConfig struct {
	Workers    int `yaml:"workers"`
	BufferSize int `yaml:"buffer_size"`
	MaxRetries int `yaml:"max_retries"`
}

// Default values for the analysis pipeline.
const (
	DefaultMinSupport      = 0.01
	DefaultMinLift         = 1.0
	DefaultTopNRules       = 10
	DefaultTopKCustomers   = 10
	DefaultBasketThreshold = 1
	DefaultPreviewRows     = 5
)

// DefaultSummaryModel is the Gemini model used for executive summaries.
const DefaultSummaryModel = "gemini-2.5-flash"

// DefaultColumns returns the standard export column names.
func DefaultColumns() Columns {
	return Columns{
		OrderID:   "OrderID",
		OrderDate: "OrderDate",
		Dish:      "Dish",
		Price:     "Price",
		ClientID:  "ClientID",
	}
}

// DefaultAnalysis returns the documented pipeline defaults.
func DefaultAnalysis() Analysis {
	return Analysis{
		MinSupport:      DefaultMinSupport,
		MinLift:         DefaultMinLift,
		TopNRules:       DefaultTopNRules,
		TopKCustomers:   DefaultTopKCustomers,
		BasketThreshold: DefaultBasketThreshold,
		PreviewRows:     DefaultPreviewRows,
		Columns:         DefaultColumns(),
	}
}

// Default returns a complete configuration with defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   60 * time.Second,
			MaxUploadSize: 32 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Analysis: DefaultAnalysis(),
		Summary: SummaryConfig{
			Model:   DefaultSummaryModel,
			Timeout: time.Minute,
		},
		Jobs: JobsConfig{
			Workers:    1,
			BufferSize: 100,
			MaxRetries: 0,
		},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("Load: parse config %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides file values with SALES_* environment variables.
func (c *Config) applyEnv() error {
	c.Server.Port = getEnvOrDefault("SALES_PORT", c.Server.Port)
	c.Log.Level = getEnvOrDefault("SALES_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("SALES_LOG_FORMAT", c.Log.Format)
	c.Sources.GCPProject = getEnvOrDefault("GOOGLE_CLOUD_PROJECT", c.Sources.GCPProject)
	c.Summary.Model = getEnvOrDefault("SALES_SUMMARY_MODEL", c.Summary.Model)
	c.Notion.Token = getEnvOrDefault("NOTION_TOKEN", c.Notion.Token)
	c.Server.APIKey = getEnvOrDefault("SALES_API_KEY", c.Server.APIKey)
	c.Export.GCSPrefix = getEnvOrDefault("SALES_EXPORT_GCS_PREFIX", c.Export.GCSPrefix)
	c.Export.RunsTable = getEnvOrDefault("SALES_RUNS_TABLE", c.Export.RunsTable)

	var err error
	if c.Analysis.MinSupport, err = floatEnv("SALES_MIN_SUPPORT", c.Analysis.MinSupport); err != nil {
		return err
	}
	if c.Analysis.MinLift, err = floatEnv("SALES_MIN_LIFT", c.Analysis.MinLift); err != nil {
		return err
	}
	if c.Analysis.TopNRules, err = intEnv("SALES_TOP_N_RULES", c.Analysis.TopNRules); err != nil {
		return err
	}
	if c.Analysis.TopKCustomers, err = intEnv("SALES_TOP_K_CUSTOMERS", c.Analysis.TopKCustomers); err != nil {
		return err
	}
	if v := os.Getenv("SALES_SUMMARY_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SALES_SUMMARY_ENABLED: %w", err)
		}
		c.Summary.Enabled = enabled
	}
	return nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s, must be 'console' or 'json'", c.Log.Format)
	}

	if c.Jobs.Workers < 1 {
		return fmt.Errorf("jobs.workers must be at least 1, got %d", c.Jobs.Workers)
	}
	if c.Jobs.BufferSize < 0 {
		return fmt.Errorf("jobs.buffer_size must not be negative, got %d", c.Jobs.BufferSize)
	}
	if p := c.Export.GCSPrefix; p != "" && !strings.HasPrefix(p, "gs://") {
		return fmt.Errorf("export.gcs_prefix must start with gs://, got %q", p)
	}
	if t := c.Export.RunsTable; t != "" && !strings.HasPrefix(t, "bigquery://") {
		return fmt.Errorf("export.runs_table must start with bigquery://, got %q", t)
	}

	return nil
}

// Validate checks the analysis knobs.
func (a Analysis) Validate() error {
	if !(a.MinSupport > 0 && a.MinSupport <= 1) {
		return fmt.Errorf("analysis.min_support must be in (0, 1], got %v", a.MinSupport)
	}
	if !(a.MinLift >= 0) || math.IsInf(a.MinLift, 1) {
		return fmt.Errorf("analysis.min_lift must be a finite non-negative number, got %v", a.MinLift)
	}
	if a.TopNRules < 0 {
		return fmt.Errorf("analysis.top_n_rules must not be negative, got %d", a.TopNRules)
	}
	if a.TopKCustomers < 1 {
		return fmt.Errorf("analysis.top_k_customers must be at least 1, got %d", a.TopKCustomers)
	}
	if a.BasketThreshold < 1 {
		return fmt.Errorf("analysis.basket_threshold must be at least 1, got %d", a.BasketThreshold)
	}
	if a.MaxItemsetSize < 0 || a.MaxItemsetSize == 1 {
		return fmt.Errorf("analysis.max_itemset_size must be 0 or at least 2, got %d", a.MaxItemsetSize)
	}
	if a.PreviewRows < 0 {
		return fmt.Errorf("analysis.preview_rows must not be negative, got %d", a.PreviewRows)
	}

	seen := make(map[string]bool)
	for _, name := range a.Columns.Required() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("analysis.columns: required column name is empty")
		}
		if seen[name] {
			return fmt.Errorf("analysis.columns: column %q mapped twice", name)
		}
		seen[name] = true
	}
	if a.Columns.ClientID != "" && seen[a.Columns.ClientID] {
		return fmt.Errorf("analysis.columns: column %q mapped twice", a.Columns.ClientID)
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
