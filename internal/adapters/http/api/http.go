// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/drishtilabs/drishti/internal/app"
	"github.com/drishtilabs/drishti/internal/auth"
	"github.com/drishtilabs/drishti/internal/domain/comparison"
	"github.com/drishtilabs/drishti/internal/domain/model"
	"github.com/drishtilabs/drishti/internal/domain/ranking"
	"github.com/drishtilabs/drishti/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Compare(ctx context.Context, ident *auth.Identity, ids []string) (comparison.Result, error)
	RankTop(ctx context.Context, ident *auth.Identity, ids []string, weights map[string]float64, topN int) (ranking.Result, error)
	Trends(ctx context.Context, ident *auth.Identity, submissionID string) (*service.TrendReport, error)
	Forecast(ctx context.Context, ident *auth.Identity, submissionID, metric string, horizon int) (*service.ForecastReport, error)
	ListEvaluations(ctx context.Context, ident *auth.Identity, f model.Filter) ([]service.Evaluation, error)
	GetSubmission(ctx context.Context, ident *auth.Identity, submissionID string) (*service.SubmissionDetail, error)

	MaxTopN() int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	compareHandler     *CompareHandler
	rankHandler        *RankHandler
	trendsHandler      *TrendsHandler
	forecastHandler    *ForecastHandler
	evaluationsHandler *EvaluationsHandler
	verifier           *auth.Verifier
	log                logger.Logger
}

// NewServer creates a new API server with all handlers. A nil verifier
// disables token checks; every request then runs anonymous.
func NewServer(deps Dependencies, verifier *auth.Verifier, log logger.Logger) *Server {
	s := &Server{
		verifier: verifier,
		log:      log,
	}
	s.healthHandler = NewHealthHandler()
	s.compareHandler = NewCompareHandler(deps, s)
	s.rankHandler = NewRankHandler(deps, s)
	s.trendsHandler = NewTrendsHandler(deps, s)
	s.forecastHandler = NewForecastHandler(deps, s)
	s.evaluationsHandler = NewEvaluationsHandler(deps, s)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/evaluations", MetricsMiddleware(s.evaluationsHandler.HandleList, "evaluations"))
	mux.HandleFunc("/api/submissions/", MetricsMiddleware(s.evaluationsHandler.HandleGet, "submissions"))
	mux.HandleFunc("/api/compare", MetricsMiddleware(s.compareHandler.HandleCompare, "compare"))
	mux.HandleFunc("/api/compare/rank", MetricsMiddleware(s.rankHandler.HandleRank, "rank"))
	mux.HandleFunc("/api/trends/", MetricsMiddleware(s.trendsHandler.HandleTrends, "trends"))
	mux.HandleFunc("/api/forecast/", MetricsMiddleware(s.forecastHandler.HandleForecast, "forecast"))
}

// identity resolves the caller from the request, writing the error
// response itself on a bad token. The bool reports whether to proceed.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ident, err := s.verifier.FromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", err)
		return nil, false
	}
	return ident, true
}

// writeServiceError translates service-layer errors to HTTP responses.
// Unrecognized errors are logged in full and reported generically.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTooFewIDs),
		errors.Is(err, service.ErrTooManyIDs),
		errors.Is(err, service.ErrUnknownMetric),
		errors.Is(err, ranking.ErrZeroWeights),
		errors.Is(err, ranking.ErrInvalidTopN):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access_denied", err)
	default:
		if s.log != nil {
			s.log.Error(r.Context(), "request failed",
				logger.String("path", r.URL.Path),
				logger.Error(err),
			)
		}
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
