// Package kpi normalizes heterogeneous stored KPI data into a fixed
// canonical metric vector.
//
// Stored KPI results accumulated in two shapes over time: a record
// {"value": 84.5, "name": ...} and a bare number 84.5. Both are accepted
// here and nowhere else; every other component sees only a Vector.
package kpi

import "github.com/tidwall/gjson"

// Canonical metric keys. Every comparison and ranking operates over
// exactly these five.
const (
	FSRScore            = "fsr_score"
	InfrastructureScore = "infrastructure_score"
	PlacementIndex      = "placement_index"
	LabComplianceIndex  = "lab_compliance_index"
	OverallScore        = "overall_score"
)

// Keys lists the canonical metric keys in presentation order.
var Keys = []string{FSRScore, InfrastructureScore, PlacementIndex, LabComplianceIndex, OverallScore}

// aliases maps each canonical key to its lookup chain, first present wins.
// Older stored payloads used the short names.
var aliases = map[string][]string{
	FSRScore:            {"fsr_score", "fsr"},
	InfrastructureScore: {"infrastructure_score", "infrastructure", "infra"},
	PlacementIndex:      {"placement_index", "placement_rate_num", "placement"},
	LabComplianceIndex:  {"lab_compliance_index", "lab_compliance", "lab"},
	OverallScore:        {"overall_score"},
}

// Vector maps canonical keys to positive values. A missing key means the
// metric is not present; a stored value of exactly 0 is treated the same
// as absent and never enters a Vector.
type Vector map[string]float64

// Value returns the metric value and whether it is present.
func (v Vector) Value(key string) (float64, bool) {
	val, ok := v[key]
	return val, ok
}

// Empty reports whether no metric is present.
func (v Vector) Empty() bool {
	return len(v) == 0
}

// Canonicalize rebuilds the canonical vector from a raw KPI JSON mapping.
// Pure and deterministic: the same logical value in either storage shape
// yields the same Vector.
func Canonicalize(rawJSON string) Vector {
	v := make(Vector, len(Keys))
	if rawJSON == "" || !gjson.Valid(rawJSON) {
		return v
	}
	root := gjson.Parse(rawJSON)
	for _, key := range Keys {
		for _, alias := range aliases[key] {
			field := root.Get(alias)
			if !field.Exists() {
				continue
			}
			// A null or zero value under one alias falls through to the
			// next, same as an absent key.
			if val, ok := numeric(field); ok && val > 0 {
				v[key] = val
				break
			}
		}
	}
	return v
}

// numeric extracts a number from either accepted shape. Any other shape
// (string, array, object without value, null) is not a number.
func numeric(field gjson.Result) (float64, bool) {
	switch field.Type {
	case gjson.Number:
		return field.Num, true
	case gjson.JSON:
		if !field.IsObject() {
			return 0, false
		}
		inner := field.Get("value")
		if inner.Type == gjson.Number {
			return inner.Num, true
		}
		return 0, false
	default:
		return 0, false
	}
}
