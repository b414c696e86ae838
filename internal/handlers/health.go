package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

// Pinger is anything with a connection to check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

type HealthHandler struct {
	catalog *snippet.Catalog
	events  Pinger // nil when events are disabled
	logger  *slog.Logger
}

func NewHealthHandler(catalog *snippet.Catalog, events Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		events:  events,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]any)
	overallStatus := "healthy"

	components["snippets"] = map[string]any{
		"source": h.catalog.Source(),
		"count":  h.catalog.Len(),
		"topics": len(h.catalog.ListTopics()),
	}
	if h.catalog.Source() == "builtin" {
		// Data file failed to load; the game still runs on built-in content.
		overallStatus = "degraded"
	}

	if h.events == nil {
		components["events"] = "disabled"
	} else if err := h.events.Ping(ctx); err != nil {
		h.logger.Warn("Events health check failed", "error", err)
		components["events"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["events"] = "healthy"
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "freud-of-the-dark",
		Components: components,
	}

	statusCode := http.StatusOK
	if components["events"] == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
