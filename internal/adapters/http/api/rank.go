// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/drishtilabs/drishti/internal/domain/kpi"
)

// kpiParams maps the kpi query parameter (and its aliases) to canonical
// metric keys. "all" selects weighted multi-criteria ranking.
var kpiParams = map[string]string{
	"fsr":                  kpi.FSRScore,
	"fsr_score":            kpi.FSRScore,
	"infra":                kpi.InfrastructureScore,
	"infrastructure":       kpi.InfrastructureScore,
	"infrastructure_score": kpi.InfrastructureScore,
	"placement":            kpi.PlacementIndex,
	"placement_index":      kpi.PlacementIndex,
	"lab":                  kpi.LabComplianceIndex,
	"lab_compliance":       kpi.LabComplianceIndex,
	"lab_compliance_index": kpi.LabComplianceIndex,
	"overall":              kpi.OverallScore,
	"overall_score":        kpi.OverallScore,
}

// RankHandler handles ranking requests.
type RankHandler struct {
	deps   Dependencies
	server *Server
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies, server *Server) *RankHandler {
	return &RankHandler{deps: deps, server: server}
}

// HandleRank handles GET /api/compare/rank requests.
//
// Parameters: ids (comma separated, required), kpi (metric name or "all",
// default "overall"), weights (JSON object, required when kpi=all),
// top_n (default: all ids).
func (h *RankHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ident, ok := h.server.identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	ids, err := parseIDs(q.Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	topN := len(ids)
	if raw := q.Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%w: top_n must be a positive integer", ErrBadRequest))
			return
		}
		if n > h.deps.MaxTopN() {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%w: top_n exceeds %d", ErrBadRequest, h.deps.MaxTopN()))
			return
		}
		topN = n
	}

	weights, err := parseWeights(q.Get("kpi"), q.Get("weights"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.RankTop(r.Context(), ident, ids, weights, topN)
	if err != nil {
		h.server.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseWeights turns the kpi selector into a canonical weight map.
// A single metric gets weight 1; "all" requires an explicit weights JSON
// object whose keys may use metric aliases.
func parseWeights(kpiParam, weightsParam string) (map[string]float64, error) {
	selector := strings.ToLower(strings.TrimSpace(kpiParam))
	if selector == "" {
		selector = "overall"
	}

	if canonical, ok := kpiParams[selector]; ok {
		return map[string]float64{canonical: 1}, nil
	}
	if selector != "all" {
		return nil, fmt.Errorf("%w: unknown kpi %q", ErrBadRequest, kpiParam)
	}

	if strings.TrimSpace(weightsParam) == "" {
		return nil, fmt.Errorf("%w: kpi=all requires a weights parameter", ErrBadRequest)
	}
	raw := make(map[string]float64)
	if err := json.Unmarshal([]byte(weightsParam), &raw); err != nil {
		return nil, fmt.Errorf("%w: weights must be a JSON object of metric to number", ErrBadRequest)
	}
	weights := make(map[string]float64, len(raw))
	for k, v := range raw {
		canonical, ok := kpiParams[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown metric %q in weights", ErrBadRequest, k)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: weight for %q must not be negative", ErrBadRequest, k)
		}
		weights[canonical] = v
	}
	return weights, nil
}
