// Package dashboard builds the per-submission KPI/metadata view consumed
// by the comparison and ranking engines.
package dashboard

import (
	"github.com/tidwall/gjson"

	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/label"
	"github.com/drishtilabs/drishti/internal/domain/model"
)

// View is a read-only aggregation of one submission's display data.
type View struct {
	SubmissionID    string     `json:"submission_id"`
	Mode            string     `json:"mode"`
	InstitutionName string     `json:"institution_name"`
	ShortLabel      string     `json:"short_label"`
	AcademicYear    string     `json:"academic_year"`
	KPIs            kpi.Vector `json:"kpis"`
	// OverallScore is the canonical overall when present, otherwise the
	// mean of the present canonical metrics, otherwise 0.
	OverallScore       float64 `json:"overall_score"`
	SufficiencyPercent float64 `json:"sufficiency_percent"`
	ComplianceCount    int     `json:"compliance_count"`
}

// Build derives the view from a read snapshot. Pure; rebuilt on every read.
func Build(rec *model.Record) View {
	sub := rec.Submission
	vector := kpi.Canonicalize(sub.RawKPIs)
	name := label.InstitutionName(rec)
	year := label.AcademicYear(rec)

	overall, ok := vector.Value(kpi.OverallScore)
	if !ok {
		overall = meanPresent(vector)
	}

	return View{
		SubmissionID:       sub.ID,
		Mode:               sub.Mode,
		InstitutionName:    name,
		ShortLabel:         label.ShortLabel(name, sub.ID, year),
		AcademicYear:       year,
		KPIs:               vector,
		OverallScore:       overall,
		SufficiencyPercent: sufficiencyPercent(sub.Sufficiency),
		ComplianceCount:    sub.ComplianceCount,
	}
}

func meanPresent(v kpi.Vector) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, val := range v {
		sum += val
	}
	return sum / float64(len(v))
}

// sufficiencyPercent reads the percentage out of the stored sufficiency
// result JSON; a missing or malformed result counts as 0.
func sufficiencyPercent(rawJSON string) float64 {
	if rawJSON == "" {
		return 0
	}
	if field := gjson.Get(rawJSON, "percentage"); field.Type == gjson.Number {
		return field.Num
	}
	return 0
}
