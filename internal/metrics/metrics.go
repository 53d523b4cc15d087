// Package metrics computes the descriptive metric families for the enrollment
// dashboard: temporal growth, geographic concentration, demographic diversity,
// data quality, biometric coverage, update ratios, and trend volatility.
//
// Every calculator degrades predictably instead of raising: an unresolved semantic
// column or a series too short to aggregate returns the family's zero value wrapped
// with ErrInsufficientData, so one degraded family never takes down a report.
package metrics

import (
	"errors"
	"math"
	"sort"
	"time"

	"enrolsight/internal/datasets"
	"enrolsight/internal/schema"
)

// ErrInsufficientData marks expected, recoverable degradation: required columns are
// unresolved or the filtered series is too small. Callers should treat the family
// as unavailable, not the run as failed.
var ErrInsufficientData = errors.New("metrics: insufficient data")

// Filter restricts computation to a state subset and/or date range. The zero value
// means no filtering.
type Filter struct {
	States []string
	From   time.Time
	To     time.Time
}

// Report aggregates every metric family over one filtered bundle. Families that
// could not be computed carry their zero value and are listed in Unavailable; the
// insight generator's defaults then reproduce the upstream dashboard's behavior
// for missing metrics.
type Report struct {
	Temporal    TemporalMetrics    `json:"temporal_metrics"`
	Geographic  GeographicMetrics  `json:"geographic_metrics"`
	Demographic DemographicMetrics `json:"demographic_metrics"`
	Quality     QualityMetrics     `json:"quality_metrics"`
	Biometric   BiometricMetrics   `json:"biometric_metrics"`
	Update      UpdateMetrics      `json:"update_metrics"`
	Trend       TrendMetrics       `json:"trend_metrics"`

	Unavailable []string `json:"unavailable,omitempty"`
}

// Compute runs all metric families over the bundle after applying the filter.
// An explicit column mapping (may be nil) overrides heuristic role resolution and
// surfaces a named error when it references a missing column.
func Compute(b *datasets.Bundle, mapping map[string]string, f Filter) (*Report, error) {
	enrol, res, err := Prepare(b.Enrolment, mapping, f)
	if err != nil {
		return nil, err
	}

	bio := b.Biometric
	bioForCoverage := bio
	if bioForCoverage == nil {
		// The source dashboard falls back to the filtered enrolment table when no
		// biometric extract exists.
		bioForCoverage = enrol
	}

	rep := &Report{}
	record := func(name string, e error) error {
		if e == nil {
			return nil
		}
		var re *schema.RoleError
		if errors.Is(e, ErrInsufficientData) || errors.As(e, &re) {
			rep.Unavailable = append(rep.Unavailable, name)
			return nil
		}
		return e
	}

	var ferr error
	rep.Temporal, ferr = ComputeTemporal(enrol, res)
	if err := record("temporal", ferr); err != nil {
		return nil, err
	}
	rep.Geographic, ferr = ComputeGeographic(enrol, res)
	if err := record("geographic", ferr); err != nil {
		return nil, err
	}
	rep.Demographic, ferr = ComputeDemographic(enrol, res)
	if err := record("demographic", ferr); err != nil {
		return nil, err
	}
	rep.Quality = ComputeQuality(enrol)
	rep.Biometric, ferr = ComputeBiometric(bioForCoverage)
	if err := record("biometric", ferr); err != nil {
		return nil, err
	}
	rep.Update = ComputeUpdate(enrol, bio, b.Demographic)
	rep.Trend, ferr = ComputeTrend(enrol, res)
	if err := record("trend", ferr); err != nil {
		return nil, err
	}
	return rep, nil
}

// Prepare resolves columns for a table and applies the filter.
func Prepare(t *datasets.Table, mapping map[string]string, f Filter) (*datasets.Table, schema.Resolution, error) {
	var res schema.Resolution
	var err error
	if len(mapping) > 0 {
		res, err = schema.ResolveExplicit(t.Columns, mapping)
		if err != nil {
			return nil, res, err
		}
	} else {
		res = schema.Resolve(t.Columns)
	}
	filtered := t.Filtered(t.ColumnIndex(res.State), f.States, t.ColumnIndex(res.Date), f.From, f.To)
	return filtered, res, nil
}

// datePoint is one per-date aggregate in ascending date order.
type datePoint struct {
	date  time.Time
	label string
	total float64
}

// dateSeries groups totals by parsed date, ascending. Rows whose date cell does not
// parse are excluded, matching coerce-to-missing grouping upstream.
func dateSeries(t *datasets.Table, dateCol, totalCol int) []datePoint {
	if dateCol < 0 || totalCol < 0 {
		return nil
	}
	acc := map[time.Time]float64{}
	for r := range t.Rows {
		d, ok := t.Date(r, dateCol)
		if !ok {
			continue
		}
		v, _ := t.Float(r, totalCol)
		acc[d] += v
	}
	series := make([]datePoint, 0, len(acc))
	for d, v := range acc {
		series = append(series, datePoint{date: d, label: d.Format(datasets.DateLayout), total: v})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].date.Before(series[j].date) })
	return series
}

// growthSeries returns fractional period-over-period changes. Divisions by zero
// yield non-finite values and are skipped.
func growthSeries(series []datePoint) []float64 {
	var out []float64
	for i := 1; i < len(series); i++ {
		prev := series[i-1].total
		if prev == 0 {
			continue
		}
		out = append(out, (series[i].total-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation (n-1 denominator), matching the upstream
// dataframe library's default.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// quantile computes the q-quantile with linear interpolation over a sorted copy.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
