// Package comparison builds cross-institution comparisons: eligibility
// filtering, department homogeneity, comparison matrix, category winners
// and a single tie-broken global winner.
package comparison

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/drishtilabs/drishti/internal/domain/dashboard"
	"github.com/drishtilabs/drishti/internal/domain/eligibility"
	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/label"
	"github.com/drishtilabs/drishti/internal/domain/model"
)

// MinInstitutions is the smallest set a comparison is defined over.
const MinInstitutions = 2

// Source provides read snapshots of submissions. A missing id yields a
// nil record, not an error.
type Source interface {
	Record(ctx context.Context, id string) (*model.Record, error)
}

// Institution is one eligible comparison participant.
type Institution struct {
	SubmissionID       string     `json:"submission_id"`
	InstitutionName    string     `json:"institution_name"`
	ShortLabel         string     `json:"short_label"`
	AcademicYear       string     `json:"academic_year"`
	Mode               string     `json:"mode"`
	KPIs               kpi.Vector `json:"kpis"`
	SufficiencyPercent float64    `json:"sufficiency_percent"`
	ComplianceCount    int        `json:"compliance_count"`
	OverallScore       float64    `json:"overall_score"`
	Strengths          []string   `json:"strengths"`
	Weaknesses         []string   `json:"weaknesses"`
}

// Skipped records an id excluded from the comparison with its reason code.
type Skipped struct {
	SubmissionID string `json:"submission_id"`
	Reason       string `json:"reason"`
}

// CategoryWinner is the per-metric leader, with tie detection.
type CategoryWinner struct {
	MetricKey    string   `json:"kpi_key"`
	MetricName   string   `json:"kpi_name"`
	SubmissionID string   `json:"winner_submission_id"`
	Label        string   `json:"winner_label"`
	Value        float64  `json:"winner_value"`
	IsTie        bool     `json:"is_tie"`
	TiedWith     []string `json:"tied_with"`
}

// Result is the full comparison outcome. Partial institution and skip
// lists are retained on invalid results for diagnostics.
type Result struct {
	Institutions       []Institution                  `json:"institutions"`
	Skipped            []Skipped                      `json:"skipped_batches"`
	Matrix             map[string]map[string]*float64 `json:"comparison_matrix"`
	WinnerSubmissionID string                         `json:"winner_submission_id,omitempty"`
	WinnerLabel        string                         `json:"winner_label,omitempty"`
	WinnerName         string                         `json:"winner_name,omitempty"`
	CategoryWinners    []CategoryWinner               `json:"category_winners,omitempty"`
	Notes              []string                       `json:"notes,omitempty"`
	ValidForComparison bool                           `json:"valid_for_comparison"`
	ValidationMessage  string                         `json:"validation_message,omitempty"`
}

// Engine builds comparisons. Safe for concurrent use.
type Engine struct {
	src Source
}

// New returns a comparison engine reading snapshots from src.
func New(src Source) *Engine {
	return &Engine{src: src}
}

// Compare evaluates the given submission ids. Individual ineligible ids
// never abort the operation; they are recorded in the skip list and the
// comparison proceeds over the remainder.
func (e *Engine) Compare(ctx context.Context, ids []string) (Result, error) {
	result := Result{Matrix: make(map[string]map[string]*float64)}
	departments := make(map[string]struct{})
	var departmentOrder []string

	for _, id := range ids {
		rec, err := e.src.Record(ctx, id)
		if err != nil {
			return Result{}, err
		}
		if ok, reason := eligibility.Check(rec); !ok {
			result.Skipped = append(result.Skipped, Skipped{SubmissionID: id, Reason: string(reason)})
			continue
		}

		view := dashboard.Build(rec)
		if view.KPIs.Empty() {
			result.Skipped = append(result.Skipped, Skipped{SubmissionID: id, Reason: string(eligibility.ReasonNoValidKPIs)})
			continue
		}

		if dept := strings.TrimSpace(rec.Submission.DepartmentName); dept != "" {
			if _, seen := departments[dept]; !seen {
				departments[dept] = struct{}{}
				departmentOrder = append(departmentOrder, dept)
			}
		}

		strengths, weaknesses := dashboard.StrengthsWeaknesses(view.KPIs)
		result.Institutions = append(result.Institutions, Institution{
			SubmissionID:       id,
			InstitutionName:    view.InstitutionName,
			ShortLabel:         view.ShortLabel,
			AcademicYear:       view.AcademicYear,
			Mode:               view.Mode,
			KPIs:               view.KPIs,
			SufficiencyPercent: view.SufficiencyPercent,
			ComplianceCount:    view.ComplianceCount,
			OverallScore:       view.OverallScore,
			Strengths:          strengths,
			Weaknesses:         weaknesses,
		})
		for _, key := range kpi.Keys {
			if result.Matrix[key] == nil {
				result.Matrix[key] = make(map[string]*float64)
			}
			if val, ok := view.KPIs.Value(key); ok {
				v := val
				result.Matrix[key][view.ShortLabel] = &v
			} else {
				result.Matrix[key][view.ShortLabel] = nil
			}
		}
	}

	// Cross-department comparisons are never valid regardless of how many
	// institutions survived.
	if len(departmentOrder) > 1 {
		result.ValidationMessage = fmt.Sprintf(
			"Cross-department comparison not allowed. Found departments: %s",
			strings.Join(departmentOrder, ", "))
		return result, nil
	}

	if len(result.Institutions) < MinInstitutions {
		result.ValidationMessage = fmt.Sprintf(
			"Only %d valid institution(s). Need at least %d for comparison. %d submission(s) were skipped.",
			len(result.Institutions), MinInstitutions, len(result.Skipped))
		return result, nil
	}

	sort.SliceStable(result.Institutions, func(i, j int) bool {
		return result.Institutions[i].OverallScore > result.Institutions[j].OverallScore
	})

	winner := pickWinner(result.Institutions)
	result.WinnerSubmissionID = winner.SubmissionID
	result.WinnerLabel = winner.ShortLabel
	result.WinnerName = winner.InstitutionName
	result.CategoryWinners = categoryWinners(result.Institutions)
	result.Notes = notes(winner, len(result.Skipped))
	result.ValidForComparison = true
	return result, nil
}

// pickWinner applies the fixed tie-break chain in strict priority order:
// overall score desc, placement index desc, sufficiency percent desc,
// compliance count asc. The chain picks exactly one winner; it never
// re-ranks the institution list.
func pickWinner(institutions []Institution) Institution {
	best := institutions[0]
	for _, inst := range institutions[1:] {
		if chainLess(best, inst) {
			best = inst
		}
	}
	return best
}

// chainLess reports whether b beats a under the tie-break chain.
func chainLess(a, b Institution) bool {
	if a.OverallScore != b.OverallScore {
		return b.OverallScore > a.OverallScore
	}
	ap, _ := a.KPIs.Value(kpi.PlacementIndex)
	bp, _ := b.KPIs.Value(kpi.PlacementIndex)
	if ap != bp {
		return bp > ap
	}
	if a.SufficiencyPercent != b.SufficiencyPercent {
		return b.SufficiencyPercent > a.SufficiencyPercent
	}
	return b.ComplianceCount < a.ComplianceCount
}

// categoryWinners scans each metric over the institutions in their sorted
// order. A strictly greater value replaces the running winner and clears
// the tie list; an equal value appends to it. Metrics with no present
// value anywhere are omitted.
func categoryWinners(institutions []Institution) []CategoryWinner {
	var winners []CategoryWinner
	for _, key := range kpi.Keys {
		var (
			best      *Institution
			bestValue float64
			tied      []string
		)
		for i := range institutions {
			inst := &institutions[i]
			val, ok := inst.KPIs.Value(key)
			if !ok {
				continue
			}
			switch {
			case best == nil || val > bestValue:
				best = inst
				bestValue = val
				tied = nil
			case val == bestValue:
				tied = append(tied, inst.ShortLabel)
			}
		}
		if best == nil {
			continue
		}
		winners = append(winners, CategoryWinner{
			MetricKey:    key,
			MetricName:   label.MetricName(key),
			SubmissionID: best.SubmissionID,
			Label:        best.ShortLabel,
			Value:        bestValue,
			IsTie:        len(tied) > 0,
			TiedWith:     tied,
		})
	}
	return winners
}

func notes(winner Institution, skipped int) []string {
	out := []string{fmt.Sprintf("%s leads with overall score of %.1f", winner.ShortLabel, winner.OverallScore)}
	if winner.ComplianceCount == 0 {
		out = append(out, fmt.Sprintf("%s has zero compliance issues", winner.ShortLabel))
	}
	if skipped > 0 {
		out = append(out, fmt.Sprintf("%d submission(s) excluded from comparison", skipped))
	}
	return out
}
