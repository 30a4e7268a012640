package handlers

import (
	"net/http"

	"github.com/dvloznov/sales-analyst/internal/api/middleware"
	"github.com/dvloznov/sales-analyst/internal/metrics"
)

// MetricsHandler exposes pipeline step latencies.
type MetricsHandler struct {
	recorder *metrics.Recorder
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(recorder *metrics.Recorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	steps := h.recorder.Snapshot()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"steps": steps,
		"count": len(steps),
	})
}
