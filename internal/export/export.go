// Package export publishes finished reports to the configured destinations:
// Notion databases, a Cloud Storage archive and a BigQuery runs table.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/gcs"
	bq "github.com/dvloznov/sales-analyst/internal/infra/bigquery"
	"github.com/dvloznov/sales-analyst/internal/logger"
	"github.com/dvloznov/sales-analyst/internal/notionsync"
	"github.com/dvloznov/sales-analyst/internal/report"
)

// Exporter publishes a finished report.
type Exporter interface {
	Export(ctx context.Context, report *domain.Report) error
}

// Archive writes the JSON and Markdown renderings of each report to
// <Prefix>/<run id>.json and <Prefix>/<run id>.md.
type Archive struct {
	Storage gcs.StorageService
	Prefix  string
}

// Export implements Exporter.
func (a *Archive) Export(ctx context.Context, r *domain.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("Archive.Export: encoding report: %w", err)
	}

	base := ArchivePath(a.Prefix, r.RunID)
	if err := a.Storage.UploadBytes(ctx, base+".json", "application/json", data); err != nil {
		return fmt.Errorf("Archive.Export: %w", err)
	}
	if err := a.Storage.UploadBytes(ctx, base+".md", "text/markdown; charset=utf-8", []byte(report.Markdown(r))); err != nil {
		return fmt.Errorf("Archive.Export: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("run_id", r.RunID).Str("uri", base+".json").Msg("Report archived")
	return nil
}

// ArchivePath returns the object URI of a run without extension.
func ArchivePath(prefix, runID string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + runID
}

// RunLog appends one summary row per report to a BigQuery table.
type RunLog struct {
	Repo  bq.ReportRepository
	Table bq.TableRef
}

// Export implements Exporter.
func (l *RunLog) Export(ctx context.Context, r *domain.Report) error {
	row, err := bq.NewReportRunRow(r)
	if err != nil {
		return fmt.Errorf("RunLog.Export: %w", err)
	}
	if err := l.Repo.InsertReportRun(ctx, l.Table, row); err != nil {
		return fmt.Errorf("RunLog.Export: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("run_id", r.RunID).Str("table", l.Table.String()).Msg("Report run recorded")
	return nil
}

// Chain runs every exporter in order. Failures do not stop later
// exporters and are joined into one error.
type Chain []Exporter

// Export implements Exporter.
func (c Chain) Export(ctx context.Context, r *domain.Report) error {
	var errs []error
	for _, e := range c {
		if err := e.Export(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds a Chain for every destination set in cfg. The returned
// close function releases any clients it opened. The chain is empty when
// nothing is configured.
func FromConfig(ctx context.Context, cfg *config.Config) (Chain, func() error, error) {
	var chain Chain
	closeFn := func() error { return nil }

	if dbs := NotionDatabases(cfg.Notion); cfg.Notion.Token != "" && (dbs.MenuID != "" || dbs.RulesID != "") {
		chain = append(chain, &notionsync.Exporter{
			Client:    notionsync.NewNotionClient(cfg.Notion.Token),
			Databases: dbs,
		})
	}

	if cfg.Export.GCSPrefix != "" {
		chain = append(chain, &Archive{
			Storage: gcs.NewGCSStorageService(),
			Prefix:  cfg.Export.GCSPrefix,
		})
	}

	if cfg.Export.RunsTable != "" {
		ref, err := bq.ParseTableURI(cfg.Export.RunsTable, cfg.Sources.GCPProject)
		if err != nil {
			return nil, closeFn, fmt.Errorf("FromConfig: runs table: %w", err)
		}
		repo, err := bq.NewBigQueryRepository(ctx, ref.ProjectID)
		if err != nil {
			return nil, closeFn, fmt.Errorf("FromConfig: %w", err)
		}
		closeFn = repo.Close
		chain = append(chain, &RunLog{Repo: repo, Table: ref})
	}

	return chain, closeFn, nil
}

// NotionDatabases maps the Notion config section to target databases.
func NotionDatabases(cfg config.NotionConfig) notionsync.Databases {
	return notionsync.Databases{
		MenuID:  cfg.MenuDatabaseID,
		RulesID: cfg.RulesDatabaseID,
	}
}
