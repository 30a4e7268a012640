package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/logger"
	"github.com/dvloznov/sales-analyst/internal/pipeline"
)

// Exporter publishes a finished report outside the service.
type Exporter interface {
	Export(ctx context.Context, report *domain.Report) error
}

// NewAnalyzeHandler returns a JobHandler that runs the analysis pipeline
// for AnalyzeJobs. opts.Loader must be set. exporter is optional; when a
// job asks to publish and the export fails, the report keeps a notice and
// the job still completes.
func NewAnalyzeHandler(opts pipeline.Options, exporter Exporter) JobHandler {
	return func(ctx context.Context, job Job) error {
		aj, ok := job.(*AnalyzeJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", aj.JobID).
			Str("source", aj.Label).
			Int("retry", aj.RetryCount).
			Msg("Processing analysis job")

		runOpts := opts
		runOpts.Label = aj.Label
		report, err := pipeline.Analyze(ctx, aj.Source, nil, runOpts)
		if err != nil {
			return err
		}

		if aj.Publish {
			switch {
			case exporter == nil:
				report.AddNotice(domain.NoticeExportFailed, "export requested but no exporter is configured")
			default:
				if err := exporter.Export(ctx, report); err != nil {
					log.Warn().Err(err).Str("job_id", aj.JobID).Msg("Report export failed")
					report.AddNotice(domain.NoticeExportFailed, err.Error())
				}
			}
		}

		aj.Report = report
		return nil
	}
}
