// Package api assembles the HTTP surface of the analysis service.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/sales-analyst/internal/api/handlers"
	"github.com/dvloznov/sales-analyst/internal/api/middleware"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Analysis *handlers.AnalysisHandler
	Jobs     *handlers.JobsHandler
	Metrics  *handlers.MetricsHandler
}

// NewRouter registers every endpoint and wraps the mux in the standard
// middleware chain. An empty apiKey leaves /api/ open.
func NewRouter(h Handlers, apiKey string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Analysis endpoints
	mux.HandleFunc("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Analysis.Analyze(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Jobs.ListJobs(w, r)
		case http.MethodPost:
			h.Jobs.CreateJob(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			h.Jobs.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Metrics endpoint
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Metrics.GetMetrics(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.APIKey(apiKey)(mux),
				),
			),
		),
	)
}
