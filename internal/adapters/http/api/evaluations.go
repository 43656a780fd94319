// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/drishtilabs/drishti/internal/domain/model"
)

// EvaluationsHandler handles evaluation listing and single-submission
// lookups.
type EvaluationsHandler struct {
	deps   Dependencies
	server *Server
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps Dependencies, server *Server) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps, server: server}
}

// HandleList handles GET /api/evaluations requests. Query parameters
// year, mode, department, institution and status narrow the listing.
func (h *EvaluationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ident, ok := h.server.identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := model.Filter{
		InstitutionName: strings.TrimSpace(q.Get("institution")),
		DepartmentName:  strings.TrimSpace(q.Get("department")),
		Status:          strings.TrimSpace(q.Get("status")),
		Mode:            strings.ToLower(strings.TrimSpace(q.Get("mode"))),
		AcademicYear:    strings.TrimSpace(q.Get("year")),
	}
	evals, err := h.deps.ListEvaluations(r.Context(), ident, f)
	if err != nil {
		h.server.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": evals,
		"count":       len(evals),
	})
}

// HandleGet handles GET /api/submissions/{id} requests.
func (h *EvaluationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ident, ok := h.server.identity(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/submissions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	detail, err := h.deps.GetSubmission(r.Context(), ident, id)
	if err != nil {
		h.server.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
