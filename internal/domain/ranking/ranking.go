// Package ranking computes weighted multi-criteria rankings over
// submission snapshots.
package ranking

import (
	"context"
	"errors"
	"sort"

	"github.com/drishtilabs/drishti/internal/domain/dashboard"
	"github.com/drishtilabs/drishti/internal/domain/eligibility"
	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/model"
)

// Top-N bounds for a ranking request.
const (
	MinTopN = 1
	MaxTopN = 50
)

// Sentinel kinds for ranking errors.
var (
	ErrZeroWeights = errors.New("total weight must be greater than zero")
	ErrInvalidTopN = errors.New("top_n out of range")
)

// Source provides read snapshots of submissions. A missing id yields a
// nil record, not an error.
type Source interface {
	Record(ctx context.Context, id string) (*model.Record, error)
}

// Entry is one ranked institution.
type Entry struct {
	SubmissionID    string     `json:"submission_id"`
	InstitutionName string     `json:"institution_name"`
	ShortLabel      string     `json:"short_label"`
	Mode            string     `json:"mode"`
	RankingScore    float64    `json:"ranking_score"`
	KPIs            kpi.Vector `json:"kpis"`
	OverallScore    float64    `json:"overall_score"`
	Strengths       []string   `json:"strengths"`
	Weaknesses      []string   `json:"weaknesses"`
}

// Skipped records an id excluded from the ranking with its reason code.
type Skipped struct {
	SubmissionID string `json:"submission_id"`
	Reason       string `json:"reason"`
}

// Result is the outcome of a ranking request.
type Result struct {
	Ranked       []Entry   `json:"institutions"`
	Insufficient []Skipped `json:"insufficient_batches"`
	TopN         int       `json:"top_n"`
	Label        string    `json:"ranking_type,omitempty"`
}

// Engine ranks submissions. Stateless apart from its source; safe for
// concurrent use.
type Engine struct {
	src Source
}

// New returns a ranking engine reading snapshots from src.
func New(src Source) *Engine {
	return &Engine{src: src}
}

// Rank scores each id against the weight map and returns the top-N
// entries plus the ids that could not be ranked.
//
// The score divides the present-weighted sum by the total configured
// weight, not by the weight of present metrics only, so a submission
// missing a heavily weighted metric scores lower than it would under the
// present-weight-only alternative. That is the established policy and is
// kept as-is.
//
// Ties keep the input order: there is no secondary tie-break in ranking.
func (e *Engine) Rank(ctx context.Context, ids []string, weights map[string]float64, topN int) (Result, error) {
	if topN < MinTopN || topN > MaxTopN {
		return Result{}, ErrInvalidTopN
	}
	var totalWeight float64
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight == 0 {
		return Result{}, ErrZeroWeights
	}

	result := Result{TopN: topN}
	for _, id := range ids {
		rec, err := e.src.Record(ctx, id)
		if err != nil {
			return Result{}, err
		}
		if ok, reason := eligibility.Check(rec); !ok {
			result.Insufficient = append(result.Insufficient, Skipped{SubmissionID: id, Reason: string(reason)})
			continue
		}
		view := dashboard.Build(rec)

		var weightedSum float64
		present := 0
		for key, w := range weights {
			if w <= 0 {
				continue
			}
			if val, ok := view.KPIs.Value(key); ok {
				weightedSum += w * val
				present++
			}
		}
		if present == 0 {
			result.Insufficient = append(result.Insufficient, Skipped{SubmissionID: id, Reason: string(eligibility.ReasonNoKPIs)})
			continue
		}

		strengths, weaknesses := dashboard.StrengthsWeaknesses(view.KPIs)
		result.Ranked = append(result.Ranked, Entry{
			SubmissionID:    id,
			InstitutionName: view.InstitutionName,
			ShortLabel:      view.ShortLabel,
			Mode:            view.Mode,
			RankingScore:    weightedSum / totalWeight,
			KPIs:            view.KPIs,
			OverallScore:    view.OverallScore,
			Strengths:       strengths,
			Weaknesses:      weaknesses,
		})
	}

	sort.SliceStable(result.Ranked, func(i, j int) bool {
		return result.Ranked[i].RankingScore > result.Ranked[j].RankingScore
	})
	if len(result.Ranked) > topN {
		result.Ranked = result.Ranked[:topN]
	}
	return result, nil
}
