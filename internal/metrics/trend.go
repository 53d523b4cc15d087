package metrics

import (
	"fmt"
	"math"

	"enrolsight/internal/datasets"
	"enrolsight/internal/schema"
)

// Volatility labels for TrendMetrics.VolatilityLevel.
const (
	VolatilityHigh   = "High"
	VolatilityMedium = "Medium"
	VolatilityLow    = "Low"
)

// Coefficient-of-variation bands for volatility classification.
const (
	cvHighThreshold   = 0.5
	cvMediumThreshold = 0.2
)

// Breakpoint severities, keyed to how many standard deviations a growth
// observation sits from the mean.
const (
	SeverityHighDeviation   = "high"
	SeverityMediumDeviation = "medium"
)

// TrendMetrics captures structural breaks and dispersion of the daily series.
// Growth rates here are fractional, unlike the percentage rates in
// TemporalMetrics.
type TrendMetrics struct {
	Breakpoints            []Breakpoint `json:"breakpoints,omitempty"`
	VolatilityStd          float64      `json:"volatility_std"`
	CoefficientOfVariation float64      `json:"coefficient_of_variation"`
	VolatilityLevel        string       `json:"volatility_level"`
}

// Breakpoint is a date whose growth deviates sharply from the mean growth.
type Breakpoint struct {
	Date       string  `json:"date"`
	GrowthRate float64 `json:"growth_rate"`
	Severity   string  `json:"severity"`
}

// ComputeTrend needs at least two distinct dates to form a growth series.
func ComputeTrend(t *datasets.Table, res schema.Resolution) (TrendMetrics, error) {
	var out TrendMetrics
	dateCol := t.ColumnIndex(res.Date)
	totalCol := t.ColumnIndex(res.EnrolTotal)
	if dateCol < 0 || totalCol < 0 {
		return out, fmt.Errorf("trend: date or total column unresolved: %w", ErrInsufficientData)
	}
	series := dateSeries(t, dateCol, totalCol)
	if len(series) < 2 {
		return out, fmt.Errorf("trend: fewer than two periods: %w", ErrInsufficientData)
	}

	type growthPoint struct {
		label string
		g     float64
	}
	points := make([]growthPoint, 0, len(series)-1)
	growths := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].total
		if prev == 0 {
			continue
		}
		g := (series[i].total - prev) / prev
		points = append(points, growthPoint{label: series[i].label, g: g})
		growths = append(growths, g)
	}
	growthMean := mean(growths)
	growthStd := stddev(growths)
	out.VolatilityStd = growthStd

	if growthStd > 0 {
		for _, p := range points {
			dev := math.Abs(p.g - growthMean)
			switch {
			case dev > 3*growthStd:
				out.Breakpoints = append(out.Breakpoints, Breakpoint{
					Date: p.label, GrowthRate: p.g, Severity: SeverityHighDeviation,
				})
			case dev > 2*growthStd:
				out.Breakpoints = append(out.Breakpoints, Breakpoint{
					Date: p.label, GrowthRate: p.g, Severity: SeverityMediumDeviation,
				})
			}
		}
	}

	totals := make([]float64, len(series))
	for i, p := range series {
		totals[i] = p.total
	}
	if m := mean(totals); m > 0 {
		out.CoefficientOfVariation = stddev(totals) / m
	}
	out.VolatilityLevel = classifyVolatility(out.CoefficientOfVariation)
	return out, nil
}

func classifyVolatility(cv float64) string {
	switch {
	case cv > cvHighThreshold:
		return VolatilityHigh
	case cv > cvMediumThreshold:
		return VolatilityMedium
	default:
		return VolatilityLow
	}
}
