// Package trend aggregates multi-year KPI series and fits linear
// projections with confidence bounds.
package trend

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/label"
	"github.com/drishtilabs/drishti/internal/domain/model"
)

// MinYears is the smallest series a trend or forecast is defined over.
const MinYears = 3

// Confidence shaping constants. Confidence starts from the fit quality
// and decays with forecast horizon; the band widens with horizon and
// narrows with fit quality.
const (
	confidenceBase   = 0.35
	confidenceR2Gain = 0.6
	confidenceDecay  = 0.9
	confidenceFloor  = 0.05
	bandScale        = 1.96 // symmetric band at roughly two standard errors
)

// ErrInsufficientSeries marks a series with fewer than MinYears usable
// points. Callers translate it into a structured insufficient-data
// response, never a failure.
var ErrInsufficientSeries = errors.New("insufficient historical data")

// Series is an ordered-by-academic-year sequence of KPI vectors for one
// institution+department identity.
type Series struct {
	InstitutionName string
	DepartmentName  string
	Years           []string // ascending academic-year labels
	Vectors         []kpi.Vector
}

// BuildSeries collects one vector per distinct academic year from
// completed, non-invalid submissions of the given identity. Records from
// other identities are ignored. The first submission encountered for a
// year keeps the slot.
func BuildSeries(recs []*model.Record, institution, department string) Series {
	s := Series{InstitutionName: institution, DepartmentName: department}
	byYear := make(map[string]kpi.Vector)
	for _, rec := range recs {
		if rec == nil || rec.Submission == nil {
			continue
		}
		sub := rec.Submission
		if sub.Status != model.StatusCompleted || sub.Invalid {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(sub.InstitutionName), strings.TrimSpace(institution)) ||
			!strings.EqualFold(strings.TrimSpace(sub.DepartmentName), strings.TrimSpace(department)) {
			continue
		}
		year := label.AcademicYear(rec)
		if _, taken := byYear[year]; taken {
			continue
		}
		byYear[year] = kpi.Canonicalize(sub.RawKPIs)
	}
	for year := range byYear {
		s.Years = append(s.Years, year)
	}
	sort.Strings(s.Years) // "2022-23" < "2023-24" lexically
	for _, year := range s.Years {
		s.Vectors = append(s.Vectors, byYear[year])
	}
	return s
}

// MetricPoints extracts the usable yearly values for one metric. Years
// missing the metric are excluded from the fit without invalidating the
// series.
func (s Series) MetricPoints(metric string) (years []string, values []float64) {
	for i, v := range s.Vectors {
		if val, ok := v.Value(metric); ok {
			years = append(years, s.Years[i])
			values = append(values, val)
		}
	}
	return years, values
}

// Fit is an ordinary least-squares line over (year index, value).
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Points    int     `json:"historical_points"`
	stderr    float64
}

// FitLine fits values against their indices 0..n-1. Fewer than MinYears
// points yields ErrInsufficientSeries.
func FitLine(values []float64) (Fit, error) {
	n := len(values)
	if n < MinYears {
		return Fit{}, ErrInsufficientSeries
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return Fit{}, ErrInsufficientSeries
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssTot, ssRes float64
	for i, y := range values {
		pred := intercept + slope*float64(i)
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	if r2 < 0 {
		r2 = 0
	}
	stderr := 0.0
	if n > 2 {
		stderr = math.Sqrt(ssRes / float64(n-2))
	}
	return Fit{Slope: slope, Intercept: intercept, RSquared: r2, Points: n, stderr: stderr}, nil
}

// Projection is one forward-year point estimate with its uncertainty band.
type Projection struct {
	YearOffset int     `json:"year_offset"` // 1 = first forecast year
	Value      float64 `json:"predicted_value"`
	Lower      float64 `json:"lower_bound"`
	Upper      float64 `json:"upper_bound"`
	Confidence float64 `json:"confidence"`
}

// Forecast extrapolates the fitted line for horizon forward years. The
// band half-width grows with horizon and shrinks with fit quality;
// per-year confidence is in (0,1] and non-increasing with horizon.
func (f Fit) Forecast(horizon int) []Projection {
	out := make([]Projection, 0, horizon)
	n := float64(f.Points)
	for h := 1; h <= horizon; h++ {
		x := n - 1 + float64(h)
		value := f.Intercept + f.Slope*x

		half := bandScale * f.stderr * math.Sqrt(1+float64(h)/n) * (2 - f.RSquared)
		if half == 0 {
			// A perfect fit still widens with distance, just not with
			// residual noise.
			half = math.Abs(f.Slope) * 0.1 * float64(h)
		}
		lower := value - half
		if lower < 0 {
			lower = 0
		}

		confidence := (confidenceBase + confidenceR2Gain*f.RSquared) * math.Pow(confidenceDecay, float64(h-1))
		if confidence < confidenceFloor {
			confidence = confidenceFloor
		}
		if confidence > 1 {
			confidence = 1
		}

		out = append(out, Projection{
			YearOffset: h,
			Value:      value,
			Lower:      lower,
			Upper:      value + half,
			Confidence: confidence,
		})
	}
	return out
}

// MetricTrend summarizes one metric's historical movement.
type MetricTrend struct {
	Slope      float64 `json:"slope"`
	Volatility float64 `json:"volatility"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	DataPoints int     `json:"data_points"`
	Insight    string  `json:"insight"`
}

// Trends computes per-metric summaries over the series. Metrics with
// fewer than MinYears usable points are omitted.
func Trends(s Series) map[string]MetricTrend {
	out := make(map[string]MetricTrend)
	for _, metric := range kpi.Keys {
		_, values := s.MetricPoints(metric)
		fit, err := FitLine(values)
		if err != nil {
			continue
		}
		minV, maxV, sum := values[0], values[0], 0.0
		for _, v := range values {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			sum += v
		}
		avg := sum / float64(len(values))
		var variance float64
		for _, v := range values {
			variance += (v - avg) * (v - avg)
		}
		volatility := 0.0
		if avg != 0 {
			volatility = math.Sqrt(variance/float64(len(values))) / avg
		}
		out[metric] = MetricTrend{
			Slope:      fit.Slope,
			Volatility: volatility,
			Min:        minV,
			Max:        maxV,
			Avg:        avg,
			DataPoints: len(values),
			Insight:    insight(fit.Slope, volatility),
		}
	}
	return out
}

func insight(slope, volatility float64) string {
	switch {
	case slope > 2:
		return "Strong growth"
	case slope > 0.5:
		return "Improving steadily"
	case slope > -0.5:
		if volatility > 0.15 {
			return "Flat but volatile"
		}
		return "Holding steady"
	default:
		return fmt.Sprintf("Declining (%.1f per year)", slope)
	}
}
