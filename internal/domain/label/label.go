// Package label derives display names and short labels from stored
// submission data.
package label

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/drishtilabs/drishti/internal/domain/model"
)

// metricNames maps canonical metric keys to display names.
var metricNames = map[string]string{
	"fsr_score":            "FSR Score",
	"infrastructure_score": "Infrastructure Score",
	"placement_index":      "Placement Index",
	"lab_compliance_index": "Lab Compliance Index",
	"overall_score":        "Overall Score",
}

// institutionKeys is the lookup order for institution names inside block
// data, matching what the extraction pipeline has historically produced.
var institutionKeys = []string{"institution_name", "name", "institute_name", "college_name"}

// academicYearPattern matches labels like "2024-25" or "2024-2025".
var academicYearPattern = regexp.MustCompile(`^20\d{2}-\d{2,4}$`)

// DefaultAcademicYear is used when no year can be resolved from data.
const DefaultAcademicYear = "2024-25"

const minInstitutionNameLen = 4 // shorter strings are junk from extraction

// MetricName returns the display name for a canonical metric key.
// Unknown keys are title-cased from their underscore form.
func MetricName(key string) string {
	if name, ok := metricNames[key]; ok {
		return name
	}
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// InstitutionName resolves a display institution name for a record:
// the stored institution name when it looks real, then block data fields,
// then a generated fallback from mode and id suffix.
func InstitutionName(rec *model.Record) string {
	sub := rec.Submission
	if name := strings.TrimSpace(sub.InstitutionName); len(name) >= minInstitutionNameLen {
		return name
	}
	for _, block := range rec.Blocks {
		if block.Data == "" {
			continue
		}
		for _, key := range institutionKeys {
			if field := gjson.Get(block.Data, key); field.Type == gjson.String && strings.TrimSpace(field.Str) != "" {
				return strings.TrimSpace(field.Str)
			}
		}
	}
	return fmt.Sprintf("%s Institution #%s", strings.ToUpper(sub.Mode), idSuffix(sub.ID))
}

// ShortLabel builds a compact label for matrix columns and winner fields,
// e.g. "IIT Delhi 24-25". Long names keep their leading words up to a
// budget; the year keeps labels distinct across a historical series.
func ShortLabel(name, id, academicYear string) string {
	const maxNameLen = 20
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = "#" + idSuffix(id)
	}
	if len(trimmed) > maxNameLen {
		cut := strings.LastIndex(trimmed[:maxNameLen], " ")
		if cut <= 0 {
			cut = maxNameLen
		}
		trimmed = trimmed[:cut]
	}
	year := academicYear
	if year == "" {
		year = DefaultAcademicYear
	}
	if i := strings.Index(year, "-"); i > 2 {
		year = year[2:] // "2024-25" -> "24-25"
	}
	return trimmed + " " + year
}

// AcademicYear extracts an academic-year label from a record: the stored
// field first, then block data, then the default.
func AcademicYear(rec *model.Record) string {
	if y := strings.TrimSpace(rec.Submission.AcademicYear); academicYearPattern.MatchString(y) {
		return y
	}
	for _, block := range rec.Blocks {
		if block.Data == "" {
			continue
		}
		for _, key := range []string{"academic_year", "year", "session"} {
			field := gjson.Get(block.Data, key)
			if field.Type == gjson.String && academicYearPattern.MatchString(strings.TrimSpace(field.Str)) {
				return strings.TrimSpace(field.Str)
			}
		}
	}
	return DefaultAcademicYear
}

func idSuffix(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}
