package dashboard

import (
	"fmt"
	"sort"

	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/label"
)

// Readability thresholds for strengths/weaknesses text.
const (
	excellentThreshold = 80
	goodThreshold      = 60
	maxWeaknesses      = 3
	maxStrengths       = 3
)

// StrengthsWeaknesses derives readable strengths and weaknesses from a
// canonical vector. Strengths come from the top three present metrics
// (>=80 excellent, >=60 good); any metric below 60 is a weakness, weakest
// first, capped at three. Presentation only; no contract beyond that.
func StrengthsWeaknesses(v kpi.Vector) (strengths, weaknesses []string) {
	type scored struct {
		key   string
		value float64
	}
	entries := make([]scored, 0, len(v))
	for _, key := range kpi.Keys { // canonical order keeps ties deterministic
		if val, ok := v.Value(key); ok {
			entries = append(entries, scored{key, val})
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].value > entries[j].value })

	for i := 0; i < len(entries) && i < maxStrengths; i++ {
		e := entries[i]
		switch {
		case e.value >= excellentThreshold:
			strengths = append(strengths, fmt.Sprintf("Excellent %s (%.1f)", label.MetricName(e.key), e.value))
		case e.value >= goodThreshold:
			strengths = append(strengths, fmt.Sprintf("Good %s (%.1f)", label.MetricName(e.key), e.value))
		}
	}
	for i := len(entries) - 1; i >= 0 && len(weaknesses) < maxWeaknesses; i-- {
		if e := entries[i]; e.value < goodThreshold {
			weaknesses = append(weaknesses, fmt.Sprintf("%s needs improvement (%.1f)", label.MetricName(e.key), e.value))
		}
	}
	return strengths, weaknesses
}
