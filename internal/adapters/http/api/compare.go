// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// CompareHandler handles comparison requests.
type CompareHandler struct {
	deps   Dependencies
	server *Server
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(deps Dependencies, server *Server) *CompareHandler {
	return &CompareHandler{deps: deps, server: server}
}

// HandleCompare handles GET /api/compare?ids=a,b,... requests.
func (h *CompareHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ident, ok := h.server.identity(w, r)
	if !ok {
		return
	}
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.Compare(r.Context(), ident, ids)
	if err != nil {
		h.server.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseIDs splits a comma-separated id list, dropping empty segments and
// duplicates while preserving order.
func parseIDs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoIDs
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	return ids, nil
}
