// Package notionsync exports finished reports to Notion databases.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/logger"
)

// Databases names the target Notion databases. An empty ID skips that
// section.
type Databases struct {
	MenuID  string
	RulesID string
}

// Exporter publishes reports to fixed Notion databases.
type Exporter struct {
	Client    NotionService
	Databases Databases
}

// Export publishes the report and fails when any page could not be written.
func (e *Exporter) Export(ctx context.Context, report *domain.Report) error {
	res, err := PublishReport(ctx, e.Client, e.Databases, report, false)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("Export: %d Notion pages failed", res.Failed)
	}
	return nil
}

// PublishResult counts what PublishReport did.
type PublishResult struct {
	MenuCreated  int `json:"menu_created"`
	RulesCreated int `json:"rules_created"`
	Archived     int `json:"archived"`
	Failed       int `json:"failed"`
}

// PublishReport writes the menu matrix and the top rules of a report to
// Notion. Pages left by earlier runs over the same source are archived
// first, so each database holds the latest run per source. Individual page
// failures are logged and counted and do not stop the export.
func PublishReport(ctx context.Context, notionClient NotionService, dbs Databases, report *domain.Report, dryRun bool) (PublishResult, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("run_id", report.RunID).
		Bool("dry_run", dryRun).
		Msg("Starting report export to Notion")

	var res PublishResult

	if dbs.MenuID != "" {
		pages := make([]notionapi.Properties, len(report.Menu.Items))
		for i, item := range report.Menu.Items {
			pages[i] = MenuItemToNotionProperties(report, item)
		}
		created, archived, failed, err := replaceRunPages(ctx, notionClient, dbs.MenuID, report, pages, dryRun)
		if err != nil {
			return res, fmt.Errorf("PublishReport: menu: %w", err)
		}
		res.MenuCreated = created
		res.Archived += archived
		res.Failed += failed
	}

	if dbs.RulesID != "" {
		rules := report.Baskets.Rules.Rules
		pages := make([]notionapi.Properties, len(rules))
		for i, rule := range rules {
			pages[i] = RuleToNotionProperties(report, i+1, rule)
		}
		created, archived, failed, err := replaceRunPages(ctx, notionClient, dbs.RulesID, report, pages, dryRun)
		if err != nil {
			return res, fmt.Errorf("PublishReport: rules: %w", err)
		}
		res.RulesCreated = created
		res.Archived += archived
		res.Failed += failed
	}

	log.Info().
		Int("menu_created", res.MenuCreated).
		Int("rules_created", res.RulesCreated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Report export completed")

	return res, nil
}

// replaceRunPages archives stale pages for the report's source and creates
// the new ones.
func replaceRunPages(ctx context.Context, notionClient NotionService, databaseID string, report *domain.Report, pages []notionapi.Properties, dryRun bool) (created, archived, failed int, err error) {
	log := logger.FromContext(ctx).With().Str("database_id", databaseID).Logger()

	existing, err := queryAllNotionPages(ctx, notionClient, databaseID)
	if err != nil {
		return 0, 0, 0, err
	}
	log.Info().Int("notion_page_count", len(existing)).Msg("Retrieved existing Notion pages")

	for _, page := range existing {
		runID := extractRichText(page, PropRunID)
		if runID == report.RunID || extractRichText(page, PropSource) != report.Source {
			continue
		}
		if dryRun {
			log.Info().
				Str("run_id", runID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			archived++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("run_id", runID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			failed++
			continue
		}
		archived++
	}

	for _, props := range pages {
		if dryRun {
			created++
			continue
		}
		page, err := notionClient.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create Notion page")
			failed++
			continue
		}
		log.Debug().Str("page_id", string(page.ID)).Msg("Created Notion page")
		created++
	}
	if dryRun && created > 0 {
		log.Info().Int("pages", created).Msg("[DRY RUN] Would create Notion pages")
	}

	return created, archived, failed, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
