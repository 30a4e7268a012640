package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/report"
)

// analysisFlags hold command-line overrides of the analysis knobs. Only
// flags given on the command line replace config values.
type analysisFlags struct {
	minSupport      float64
	minLift         float64
	topNRules       int
	topKCustomers   int
	basketThreshold int
	maxItemsetSize  int
	clientColumn    string
}

func (a *analysisFlags) register(fs *flag.FlagSet) {
	d := config.DefaultAnalysis()
	fs.Float64Var(&a.minSupport, "min-support", d.MinSupport, "Minimum itemset support in (0, 1]")
	fs.Float64Var(&a.minLift, "min-lift", d.MinLift, "Minimum rule lift")
	fs.IntVar(&a.topNRules, "top-n-rules", d.TopNRules, "Rules to keep (0 keeps all)")
	fs.IntVar(&a.topKCustomers, "top-k-customers", d.TopKCustomers, "Customers to rank")
	fs.IntVar(&a.basketThreshold, "basket-threshold", d.BasketThreshold, "Minimum quantity for a dish to count as bought")
	fs.IntVar(&a.maxItemsetSize, "max-itemset-size", d.MaxItemsetSize, "Largest itemset to mine (0 is unbounded)")
	fs.StringVar(&a.clientColumn, "client-column", d.Columns.ClientID, "Client id column name")
}

// apply returns base with every explicitly set flag applied.
func (a *analysisFlags) apply(fs *flag.FlagSet, base config.Analysis) config.Analysis {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-support":
			base.MinSupport = a.minSupport
		case "min-lift":
			base.MinLift = a.minLift
		case "top-n-rules":
			base.TopNRules = a.topNRules
		case "top-k-customers":
			base.TopKCustomers = a.topKCustomers
		case "basket-threshold":
			base.BasketThreshold = a.basketThreshold
		case "max-itemset-size":
			base.MaxItemsetSize = a.maxItemsetSize
		case "client-column":
			base.Columns.ClientID = a.clientColumn
		}
	})
	return base
}

// formatReport renders r in the named output format.
func formatReport(r *domain.Report, format string) (string, error) {
	switch format {
	case "render", "":
		return report.Render(r), nil
	case "markdown", "md":
		return report.Markdown(r), nil
	case "json":
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("formatReport: %w", err)
		}
		return string(b) + "\n", nil
	default:
		return "", fmt.Errorf("unknown format %q (want render, markdown or json)", format)
	}
}

// writeOutput writes text to path, or to stdout when path is empty.
func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Fprint(os.Stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writeOutput: %w", err)
	}
	return nil
}

func exitCode(err error) int {
	if domain.IsSchemaError(err) || domain.IsParseError(err) {
		return 2
	}
	return 1
}
