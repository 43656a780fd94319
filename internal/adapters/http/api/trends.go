// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// TrendsHandler handles trend analysis requests.
type TrendsHandler struct {
	deps   Dependencies
	server *Server
}

// NewTrendsHandler creates a new trends handler.
func NewTrendsHandler(deps Dependencies, server *Server) *TrendsHandler {
	return &TrendsHandler{deps: deps, server: server}
}

// HandleTrends handles GET /api/trends/{submission_id} requests.
func (h *TrendsHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ident, ok := h.server.identity(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/trends/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	report, err := h.deps.Trends(r.Context(), ident, id)
	if err != nil {
		h.server.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ForecastHandler handles metric forecast requests.
type ForecastHandler struct {
	deps   Dependencies
	server *Server
}

// NewForecastHandler creates a new forecast handler.
func NewForecastHandler(deps Dependencies, server *Server) *ForecastHandler {
	return &ForecastHandler{deps: deps, server: server}
}

// HandleForecast handles GET /api/forecast/{submission_id}/{metric}
// requests. An optional horizon query parameter overrides the configured
// projection length.
func (h *ForecastHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ident, ok := h.server.identity(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/forecast/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: expected /api/forecast/{submission_id}/{metric}", ErrBadRequest))
		return
	}
	id := parts[0]
	metric, ok := kpiParams[strings.ToLower(parts[1])]
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%w: unknown metric %q", ErrBadRequest, parts[1]))
		return
	}

	horizon := 0
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%w: horizon must be a positive integer", ErrBadRequest))
			return
		}
		horizon = n
	}

	report, err := h.deps.Forecast(r.Context(), ident, id, metric, horizon)
	if err != nil {
		h.server.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
