// Package source resolves input locations to raw tables.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/gcs"
	bq "github.com/dvloznov/sales-analyst/internal/infra/bigquery"
	"github.com/dvloznov/sales-analyst/internal/infra/sqlsource"
	"github.com/dvloznov/sales-analyst/internal/logger"
	"github.com/dvloznov/sales-analyst/internal/table"
)

// ErrUnsupportedSource is returned for URIs with an unknown scheme.
var ErrUnsupportedSource = errors.New("unsupported source")

// Kind identifies where a source lives.
type Kind string

const (
	KindFile     Kind = "file"
	KindGCS      Kind = "gcs"
	KindBigQuery Kind = "bigquery"
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
)

// SQLQueryFunc runs a SQL source request and returns string records with a
// header row.
type SQLQueryFunc func(ctx context.Context, req sqlsource.Request) ([][]string, error)

// Resolver loads tables from local files, Cloud Storage, BigQuery,
// PostgreSQL and MySQL. It implements pipeline.Loader.
type Resolver struct {
	Storage gcs.StorageService
	// Warehouse is used for bigquery:// sources. When nil a client is
	// created for the configured project on each load.
	Warehouse bq.TransactionRepository
	Postgres  SQLQueryFunc
	MySQL     SQLQueryFunc

	Sources config.SourcesConfig
	Columns config.Columns
}

// NewResolver wires the production backends.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		Storage:  gcs.NewGCSStorageService(),
		Postgres: sqlsource.QueryPostgres,
		MySQL:    sqlsource.QueryMySQL,
		Sources:  cfg.Sources,
		Columns:  cfg.Analysis.Columns,
	}
}

// Detect classifies a source string.
func Detect(src string) (Kind, error) {
	switch {
	case strings.HasPrefix(src, gcs.Scheme):
		return KindGCS, nil
	case strings.HasPrefix(src, bq.Scheme):
		return KindBigQuery, nil
	case strings.HasPrefix(src, "postgres://"), strings.HasPrefix(src, "postgresql://"):
		return KindPostgres, nil
	case strings.HasPrefix(src, "mysql://"):
		return KindMySQL, nil
	case strings.HasPrefix(src, "file://"):
		return KindFile, nil
	case strings.Contains(src, "://"):
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, src)
	default:
		return KindFile, nil
	}
}

// Load reads the source into a raw table.
func (r *Resolver) Load(ctx context.Context, src string) (*table.Table, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("Load: empty source")
	}
	kind, err := Detect(src)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("source", Redact(src)).
		Str("kind", string(kind)).
		Msg("Loading source")

	switch kind {
	case KindGCS:
		return r.loadGCS(ctx, src)
	case KindBigQuery:
		return r.loadBigQuery(ctx, src)
	case KindPostgres:
		return r.loadSQL(ctx, src, r.Postgres)
	case KindMySQL:
		return r.loadSQL(ctx, src, r.MySQL)
	default:
		return r.loadFile(src)
	}
}

func (r *Resolver) loadFile(src string) (*table.Table, error) {
	path := strings.TrimPrefix(src, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadFile: opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := table.Read(filepath.Base(path), f, table.Options{Sheet: r.Sources.Sheet})
	if err != nil {
		return nil, fmt.Errorf("loadFile: %w", err)
	}
	return t, nil
}

func (r *Resolver) loadGCS(ctx context.Context, src string) (*table.Table, error) {
	if r.Storage == nil {
		return nil, fmt.Errorf("loadGCS: no storage service configured")
	}
	data, err := r.Storage.FetchFromGCS(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loadGCS: %w", err)
	}

	name := r.Storage.ExtractFilenameFromGCSURI(src)
	t, err := table.Read(name, bytes.NewReader(data), table.Options{Sheet: r.Sources.Sheet})
	if err != nil {
		return nil, fmt.Errorf("loadGCS: %w", err)
	}
	return t, nil
}

func (r *Resolver) loadBigQuery(ctx context.Context, src string) (*table.Table, error) {
	ref, err := bq.ParseTableURI(src, r.Sources.GCPProject)
	if err != nil {
		return nil, fmt.Errorf("loadBigQuery: %w", err)
	}

	repo := r.Warehouse
	if repo == nil {
		client, err := bq.NewBigQueryRepository(ctx, ref.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("loadBigQuery: %w", err)
		}
		defer client.Close()
		repo = client
	}

	records, err := repo.QueryTransactions(ctx, ref, r.Columns)
	if err != nil {
		return nil, fmt.Errorf("loadBigQuery: %w", err)
	}
	t, err := table.FromRecords(ref.String(), records)
	if err != nil {
		return nil, fmt.Errorf("loadBigQuery: %w", err)
	}
	return t, nil
}

func (r *Resolver) loadSQL(ctx context.Context, src string, query SQLQueryFunc) (*table.Table, error) {
	if query == nil {
		return nil, fmt.Errorf("loadSQL: no driver configured for %s", Redact(src))
	}
	records, err := query(ctx, sqlsource.Request{
		URL:   src,
		Query: r.Sources.SQLQuery,
		Table: r.Sources.SQLTable,
	})
	if err != nil {
		return nil, fmt.Errorf("loadSQL: %w", err)
	}
	t, err := table.FromRecords(Redact(src), records)
	if err != nil {
		return nil, fmt.Errorf("loadSQL: %w", err)
	}
	return t, nil
}

// Redact hides passwords in connection URLs so sources can be logged and
// stored in reports.
func Redact(src string) string {
	if !strings.Contains(src, "://") {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || u.User == nil {
		return src
	}
	return u.Redacted()
}
