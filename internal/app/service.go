// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/drishtilabs/drishti/internal/adapters/cache"
	"github.com/drishtilabs/drishti/internal/adapters/repository"
	"github.com/drishtilabs/drishti/internal/auth"
	"github.com/drishtilabs/drishti/internal/domain/comparison"
	"github.com/drishtilabs/drishti/internal/domain/dashboard"
	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/label"
	"github.com/drishtilabs/drishti/internal/domain/model"
	"github.com/drishtilabs/drishti/internal/domain/ranking"
	"github.com/drishtilabs/drishti/internal/domain/trend"
	"github.com/drishtilabs/drishti/pkg/logger"
	"github.com/drishtilabs/drishti/pkg/metrics"
)

// Service implements the API dependencies for the comparison engine.
// All entry points are read-compute only; the single write path is one
// cache entry per computed result.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	results *cache.Cache

	// Configuration
	sqlitePath      string
	cacheTTL        time.Duration
	cacheMaxEntries int
	maxCompareIDs   int
	maxTopN         int
	forecastHorizon int
	defaultWeights  map[string]float64

	// State
	started   bool
	ownsStore bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a pre-built store. The service will not open its own
// and will not close the injected one on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithSQLitePath sets the database path opened on Start. Empty selects
// the in-memory store.
func WithSQLitePath(path string) Option {
	return func(s *Service) {
		s.sqlitePath = path
	}
}

// WithCache injects a pre-built result cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.results = c
		}
	}
}

// WithCacheTTL sets how long computed results are served from cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCacheMaxEntries caps the result cache size.
func WithCacheMaxEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheMaxEntries = n
		}
	}
}

// WithMaxCompareIDs caps how many submissions one comparison may cover.
func WithMaxCompareIDs(n int) Option {
	return func(s *Service) {
		if n >= comparison.MinInstitutions {
			s.maxCompareIDs = n
		}
	}
}

// WithMaxTopN caps the top_n parameter of ranking requests.
func WithMaxTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopN = n
		}
	}
}

// WithForecastHorizon sets how many future years forecasts project.
func WithForecastHorizon(h int) Option {
	return func(s *Service) {
		if h > 0 {
			s.forecastHorizon = h
		}
	}
}

// WithDefaultWeights sets the ranking weights used when a request
// supplies none.
func WithDefaultWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.defaultWeights = weights
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheTTL:        cache.DefaultTTL,
		cacheMaxEntries: cache.DefaultMaxEntries,
		maxCompareIDs:   10,
		maxTopN:         ranking.MaxTopN,
		forecastHorizon: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultWeights == nil {
		s.defaultWeights = make(map[string]float64, len(kpi.Keys))
		for _, k := range kpi.Keys {
			s.defaultWeights[k] = 1
		}
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		if s.sqlitePath == "" {
			s.store = repository.NewMemStore()
			s.logger.Info(ctx, "using in-memory store")
		} else {
			st, err := repository.OpenSQLite(s.sqlitePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			s.store = st
			s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
		}
		s.ownsStore = true
	}
	if s.results == nil {
		s.results = cache.New(
			cache.WithTTL(s.cacheTTL),
			cache.WithMaxEntries(s.cacheMaxEntries),
		)
	}

	s.started = true
	s.logger.Info(ctx, "comparison service started",
		logger.Int("maxCompareIDs", s.maxCompareIDs),
		logger.Int("maxTopN", s.maxTopN),
		logger.Int("forecastHorizon", s.forecastHorizon),
		logger.Any("cacheTTL", s.cacheTTL),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "comparison service stopped")
}

// recordSet is a prefetched snapshot set serving the engines. Scope checks
// happen before the set is built, so engines never see out-of-scope data.
type recordSet map[string]*model.Record

func (r recordSet) Record(_ context.Context, id string) (*model.Record, error) {
	return r[id], nil
}

// fetchScoped loads records for ids and enforces the caller's read scope.
// Unknown ids stay in the set as nil entries so the engines report them.
func (s *Service) fetchScoped(ctx context.Context, ident *auth.Identity, ids []string) (recordSet, error) {
	recs, err := s.store.Records(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	for id, rec := range recs {
		if rec == nil {
			continue
		}
		if !auth.CanRead(ident, rec.Submission) {
			return nil, fmt.Errorf("%w: submission %s", ErrAccessDenied, id)
		}
	}
	return recs, nil
}

// Compare builds a side-by-side comparison of the given submissions.
func (s *Service) Compare(ctx context.Context, ident *auth.Identity, ids []string) (comparison.Result, error) {
	if err := s.ready(); err != nil {
		return comparison.Result{}, err
	}
	if len(ids) < comparison.MinInstitutions {
		return comparison.Result{}, ErrTooFewIDs
	}
	if len(ids) > s.maxCompareIDs {
		return comparison.Result{}, fmt.Errorf("%w: got %d, max %d", ErrTooManyIDs, len(ids), s.maxCompareIDs)
	}

	key := cache.Key("compare", ids, scopeKey(ident))
	if v, ok := s.results.Get(key); ok {
		metrics.RecordCacheHit()
		return v.(comparison.Result), nil
	}
	metrics.RecordCacheMiss()

	set, err := s.fetchScoped(ctx, ident, ids)
	if err != nil {
		return comparison.Result{}, err
	}

	start := time.Now()
	res, err := comparison.New(set).Compare(ctx, ids)
	if err != nil {
		return comparison.Result{}, err
	}
	metrics.RecordEngineLatency("compare", float64(time.Since(start).Milliseconds()))
	metrics.RecordComparisonComputed()
	for _, sk := range res.Skipped {
		metrics.RecordEligibilitySkip(sk.Reason)
	}

	s.results.Set(key, res)
	s.logger.Debug(ctx, "comparison computed",
		logger.Int("ids", len(ids)),
		logger.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// RankTop scores the given submissions against the weight map and returns
// the top-N. Nil or empty weights fall back to the configured defaults.
func (s *Service) RankTop(ctx context.Context, ident *auth.Identity, ids []string, weights map[string]float64, topN int) (ranking.Result, error) {
	if err := s.ready(); err != nil {
		return ranking.Result{}, err
	}
	if len(ids) < comparison.MinInstitutions {
		return ranking.Result{}, ErrTooFewIDs
	}
	if len(ids) > s.maxCompareIDs {
		return ranking.Result{}, fmt.Errorf("%w: got %d, max %d", ErrTooManyIDs, len(ids), s.maxCompareIDs)
	}
	if len(weights) == 0 {
		weights = s.defaultWeights
	}
	if topN > s.maxTopN {
		return ranking.Result{}, fmt.Errorf("%w: got %d, max %d", ranking.ErrInvalidTopN, topN, s.maxTopN)
	}

	key := cache.Key("rank", ids, scopeKey(ident), weightsKey(weights), fmt.Sprintf("n=%d", topN))
	if v, ok := s.results.Get(key); ok {
		metrics.RecordCacheHit()
		return v.(ranking.Result), nil
	}
	metrics.RecordCacheMiss()

	set, err := s.fetchScoped(ctx, ident, ids)
	if err != nil {
		return ranking.Result{}, err
	}

	start := time.Now()
	res, err := ranking.New(set).Rank(ctx, ids, weights, topN)
	if err != nil {
		return ranking.Result{}, err
	}
	metrics.RecordEngineLatency("rank", float64(time.Since(start).Milliseconds()))
	metrics.RecordRankingComputed()
	for _, sk := range res.Insufficient {
		metrics.RecordEligibilitySkip(sk.Reason)
	}

	s.results.Set(key, res)
	return res, nil
}

// TrendReport is the trend analysis for one institution+department
// identity. Available is false when fewer than three distinct academic
// years exist; the years found so far are still reported.
type TrendReport struct {
	SubmissionID    string                       `json:"submission_id"`
	InstitutionName string                       `json:"institution_name"`
	DepartmentName  string                       `json:"department_name,omitempty"`
	Available       bool                         `json:"available"`
	Reason          string                       `json:"reason,omitempty"`
	YearsAvailable  []string                     `json:"years_available"`
	KPIsPerYear     map[string]kpi.Vector        `json:"kpis_per_year,omitempty"`
	Trends          map[string]trend.MetricTrend `json:"trends,omitempty"`
}

// Trends analyzes the yearly KPI history behind one submission.
func (s *Service) Trends(ctx context.Context, ident *auth.Identity, submissionID string) (*TrendReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	key := cache.Key("trends", []string{submissionID}, scopeKey(ident))
	if v, ok := s.results.Get(key); ok {
		metrics.RecordCacheHit()
		return v.(*TrendReport), nil
	}
	metrics.RecordCacheMiss()

	series, rec, err := s.buildSeries(ctx, ident, submissionID)
	if err != nil {
		return nil, err
	}

	report := &TrendReport{
		SubmissionID:    submissionID,
		InstitutionName: label.InstitutionName(rec),
		DepartmentName:  rec.Submission.DepartmentName,
		YearsAvailable:  series.Years,
	}
	if len(series.Years) < trend.MinYears {
		report.Reason = "insufficient_data"
		s.results.Set(key, report)
		return report, nil
	}

	start := time.Now()
	report.Available = true
	report.Trends = trend.Trends(series)
	report.KPIsPerYear = make(map[string]kpi.Vector, len(series.Years))
	for i, year := range series.Years {
		report.KPIsPerYear[year] = series.Vectors[i]
	}
	metrics.RecordEngineLatency("trends", float64(time.Since(start).Milliseconds()))
	metrics.RecordTrendComputed()

	s.results.Set(key, report)
	return report, nil
}

// ForecastReport projects one metric forward for an institution+department
// identity. Available is false when the history cannot support a fit.
type ForecastReport struct {
	SubmissionID     string             `json:"submission_id"`
	Metric           string             `json:"metric"`
	MetricName       string             `json:"metric_name"`
	InstitutionName  string             `json:"institution_name"`
	Available        bool               `json:"available"`
	Reason           string             `json:"reason,omitempty"`
	YearsAvailable   []string           `json:"years_available"`
	HistoricalYears  []string           `json:"historical_years,omitempty"`
	HistoricalValues []float64          `json:"historical_values,omitempty"`
	Fit              *trend.Fit         `json:"fit,omitempty"`
	Projections      []trend.Projection `json:"projections,omitempty"`
}

// Forecast fits the metric's yearly history and projects it forward.
// A non-positive horizon selects the configured default.
func (s *Service) Forecast(ctx context.Context, ident *auth.Identity, submissionID, metric string, horizon int) (*ForecastReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !validMetric(metric) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if horizon <= 0 {
		horizon = s.forecastHorizon
	}

	key := cache.Key("forecast", []string{submissionID}, scopeKey(ident), metric, fmt.Sprintf("h=%d", horizon))
	if v, ok := s.results.Get(key); ok {
		metrics.RecordCacheHit()
		return v.(*ForecastReport), nil
	}
	metrics.RecordCacheMiss()

	series, rec, err := s.buildSeries(ctx, ident, submissionID)
	if err != nil {
		return nil, err
	}

	report := &ForecastReport{
		SubmissionID:    submissionID,
		Metric:          metric,
		MetricName:      label.MetricName(metric),
		InstitutionName: label.InstitutionName(rec),
		YearsAvailable:  series.Years,
	}
	years, values := series.MetricPoints(metric)
	if len(values) < trend.MinYears {
		report.Reason = "insufficient_data"
		s.results.Set(key, report)
		return report, nil
	}

	start := time.Now()
	fit, err := trend.FitLine(values)
	if err != nil {
		report.Reason = "insufficient_data"
		s.results.Set(key, report)
		return report, nil
	}
	report.Available = true
	report.HistoricalYears = years
	report.HistoricalValues = values
	report.Fit = &fit
	report.Projections = fit.Forecast(horizon)
	metrics.RecordEngineLatency("forecast", float64(time.Since(start).Milliseconds()))
	metrics.RecordForecastComputed()

	s.results.Set(key, report)
	return report, nil
}

// buildSeries resolves the identity behind a submission and collects its
// yearly history across completed, non-invalid submissions.
func (s *Service) buildSeries(ctx context.Context, ident *auth.Identity, submissionID string) (trend.Series, *model.Record, error) {
	rec, err := s.store.Record(ctx, submissionID)
	if err != nil {
		return trend.Series{}, nil, fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return trend.Series{}, nil, fmt.Errorf("%w: %s", ErrNotFound, submissionID)
	}
	if !auth.CanRead(ident, rec.Submission) {
		return trend.Series{}, nil, fmt.Errorf("%w: submission %s", ErrAccessDenied, submissionID)
	}

	sub := rec.Submission
	subs, err := s.store.QuerySubmissions(ctx, model.Filter{
		InstitutionName: sub.InstitutionName,
		DepartmentName:  sub.DepartmentName,
		Status:          model.StatusCompleted,
		OnlyValid:       true,
	})
	if err != nil {
		return trend.Series{}, nil, fmt.Errorf("query history: %w", err)
	}
	ids := make([]string, 0, len(subs))
	for _, sb := range subs {
		if auth.CanRead(ident, sb) {
			ids = append(ids, sb.ID)
		}
	}
	recs, err := s.store.Records(ctx, ids)
	if err != nil {
		return trend.Series{}, nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]*model.Record, 0, len(recs))
	for _, id := range ids {
		history = append(history, recs[id])
	}
	return trend.BuildSeries(history, sub.InstitutionName, sub.DepartmentName), rec, nil
}

// Evaluation is one row of the evaluation listing.
type Evaluation struct {
	SubmissionID    string    `json:"submission_id"`
	Mode            string    `json:"mode"`
	Status          string    `json:"status"`
	InstitutionName string    `json:"institution_name"`
	DepartmentName  string    `json:"department_name,omitempty"`
	AcademicYear    string    `json:"academic_year"`
	DataSource      string    `json:"data_source"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListEvaluations returns the submissions visible to the caller, filtered
// by the given selector. Out-of-scope rows are dropped, not rejected.
func (s *Service) ListEvaluations(ctx context.Context, ident *auth.Identity, f model.Filter) ([]Evaluation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	subs, err := s.store.QuerySubmissions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	out := make([]Evaluation, 0, len(subs))
	for _, sub := range subs {
		if !auth.CanRead(ident, sub) {
			continue
		}
		year := sub.AcademicYear
		if year == "" {
			year = label.DefaultAcademicYear
		}
		out = append(out, Evaluation{
			SubmissionID:    sub.ID,
			Mode:            sub.Mode,
			Status:          sub.Status,
			InstitutionName: sub.InstitutionName,
			DepartmentName:  sub.DepartmentName,
			AcademicYear:    year,
			DataSource:      sub.DataSource,
			CreatedAt:       sub.CreatedAt,
		})
	}
	return out, nil
}

// SubmissionDetail is the single-submission summary.
type SubmissionDetail struct {
	SubmissionID       string     `json:"submission_id"`
	Mode               string     `json:"mode"`
	Status             string     `json:"status"`
	Invalid            bool       `json:"is_invalid"`
	DataSource         string     `json:"data_source"`
	InstitutionName    string     `json:"institution_name"`
	ShortLabel         string     `json:"short_label"`
	AcademicYear       string     `json:"academic_year"`
	KPIs               kpi.Vector `json:"kpis"`
	OverallScore       float64    `json:"overall_score"`
	SufficiencyPercent float64    `json:"sufficiency_percent"`
	ComplianceCount    int        `json:"compliance_count"`
	DocumentCount      int        `json:"document_count"`
	ValidBlockCount    int        `json:"valid_block_count"`
	Strengths          []string   `json:"strengths"`
	Weaknesses         []string   `json:"weaknesses"`
	CreatedAt          time.Time  `json:"created_at"`
}

// GetSubmission returns the summary view of one submission.
func (s *Service) GetSubmission(ctx context.Context, ident *auth.Identity, submissionID string) (*SubmissionDetail, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rec, err := s.store.Record(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, submissionID)
	}
	if !auth.CanRead(ident, rec.Submission) {
		return nil, fmt.Errorf("%w: submission %s", ErrAccessDenied, submissionID)
	}

	view := dashboard.Build(rec)
	strengths, weaknesses := dashboard.StrengthsWeaknesses(view.KPIs)
	return &SubmissionDetail{
		SubmissionID:       view.SubmissionID,
		Mode:               view.Mode,
		Status:             rec.Submission.Status,
		Invalid:            rec.Submission.Invalid,
		DataSource:         rec.Submission.DataSource,
		InstitutionName:    view.InstitutionName,
		ShortLabel:         view.ShortLabel,
		AcademicYear:       view.AcademicYear,
		KPIs:               view.KPIs,
		OverallScore:       view.OverallScore,
		SufficiencyPercent: view.SufficiencyPercent,
		ComplianceCount:    view.ComplianceCount,
		DocumentCount:      rec.DocumentCount,
		ValidBlockCount:    rec.ValidBlockCount,
		Strengths:          strengths,
		Weaknesses:         weaknesses,
		CreatedAt:          rec.Submission.CreatedAt,
	}, nil
}

// Store exposes the underlying store for the seeder and tests.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// MaxCompareIDs reports the configured comparison id cap.
func (s *Service) MaxCompareIDs() int { return s.maxCompareIDs }

// MaxTopN reports the configured ranking size cap.
func (s *Service) MaxTopN() int { return s.maxTopN }

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// scopeKey folds the caller's scope into cache keys so cached results
// never leak across identities.
func scopeKey(ident *auth.Identity) string {
	if ident == nil {
		return "scope=anon"
	}
	return "scope=" + strings.Join([]string{ident.Role, ident.InstitutionID, ident.DepartmentID, ident.UserID}, "/")
}

func weightsKey(weights map[string]float64) string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, weights[k]))
	}
	return "w=" + strings.Join(parts, ",")
}

func validMetric(metric string) bool {
	for _, k := range kpi.Keys {
		if k == metric {
			return true
		}
	}
	return false
}
