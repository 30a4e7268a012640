package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/sales-analyst/internal/api/middleware"
	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/pipeline"
	"github.com/dvloznov/sales-analyst/internal/report"
	"github.com/dvloznov/sales-analyst/internal/table"
)

// AnalysisHandler runs the pipeline synchronously over an uploaded file.
type AnalysisHandler struct {
	opts      pipeline.Options
	maxUpload int64
	log       zerolog.Logger
}

// NewAnalysisHandler creates a new analysis handler. opts.Loader is not
// used; the uploaded file is the input table.
func NewAnalysisHandler(opts pipeline.Options, maxUpload int64, log zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		opts:      opts,
		maxUpload: maxUpload,
		log:       log,
	}
}

// Analyze handles POST /api/analyze
//
// The request is multipart with the transactions in a "file" field.
// Optional form fields override the configured thresholds. The report is
// returned as JSON, or as Markdown with ?format=markdown.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	analysis, err := analysisFromForm(h.opts.Analysis, r)
	if err != nil {
		middleware.WriteErrorCode(w, http.StatusBadRequest, "invalid_option", err.Error(), nil)
		return
	}

	name := filepath.Base(header.Filename)
	raw, err := table.Read(name, file, table.Options{Sheet: r.FormValue("sheet")})
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	opts := h.opts
	opts.Analysis = analysis
	opts.Label = name

	rep, err := pipeline.Analyze(r.Context(), name, raw, opts)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(report.Markdown(rep)))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, rep)
}

// writeAnalysisError maps input errors to client errors and everything else
// to 500.
func (h *AnalysisHandler) writeAnalysisError(w http.ResponseWriter, err error) {
	var schemaErr *domain.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		middleware.WriteErrorCode(w, http.StatusUnprocessableEntity, "schema_error", schemaErr.Error(), map[string][]string{
			"missing":  schemaErr.Missing,
			"required": schemaErr.Required,
		})
	case domain.IsParseError(err):
		var parseErr *domain.ParseError
		errors.As(err, &parseErr)
		middleware.WriteErrorCode(w, http.StatusBadRequest, "parse_error", parseErr.Error(), parseDetails(parseErr))
	default:
		h.log.Error().Err(err).Msg("Analysis failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Analysis failed")
	}
}

func parseDetails(e *domain.ParseError) map[string]interface{} {
	if e == nil || e.Row == 0 {
		return nil
	}
	return map[string]interface{}{
		"row":    e.Row,
		"column": e.Column,
		"value":  e.Value,
	}
}

// analysisFromForm applies optional form overrides to base and validates
// the result.
func analysisFromForm(base config.Analysis, r *http.Request) (config.Analysis, error) {
	a := base

	floats := []struct {
		field string
		dst   *float64
	}{
		{"min_support", &a.MinSupport},
		{"min_lift", &a.MinLift},
	}
	for _, f := range floats {
		if v := r.FormValue(f.field); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return a, fmt.Errorf("%s: %q is not a number", f.field, v)
			}
			*f.dst = parsed
		}
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{"top_n_rules", &a.TopNRules},
		{"top_k_customers", &a.TopKCustomers},
		{"basket_threshold", &a.BasketThreshold},
		{"preview_rows", &a.PreviewRows},
	}
	for _, f := range ints {
		if v := r.FormValue(f.field); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return a, fmt.Errorf("%s: %q is not an integer", f.field, v)
			}
			*f.dst = parsed
		}
	}

	if err := a.Validate(); err != nil {
		return a, err
	}
	return a, nil
}
