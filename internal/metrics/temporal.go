package metrics

import (
	"fmt"
	"sort"

	"enrolsight/internal/datasets"
	"enrolsight/internal/schema"
)

// Trend direction labels for TemporalMetrics.TrendDirection.
const (
	TrendUpward   = "upward"
	TrendDownward = "downward"
	TrendStable   = "stable"
)

// trailingWindow is the number of most recent growth observations classified for
// trend direction, and trendThreshold the strict percent band around zero.
const (
	trailingWindow = 10
	trendThreshold = 5.0
)

// TemporalMetrics describes per-date enrollment dynamics.
type TemporalMetrics struct {
	AvgGrowthRate    float64        `json:"avg_growth_rate"`
	PeakGrowthRate   float64        `json:"peak_growth_rate"`
	LowestGrowthRate float64        `json:"lowest_growth_rate"`
	TrendDirection   string         `json:"trend_direction"`
	PeakDay          string         `json:"peak_day,omitempty"`
	PeakCount        float64        `json:"peak_count"`
	TotalRecords     int64          `json:"total_records"`
	AnomalousDays    []AnomalousDay `json:"anomalous_days,omitempty"`
	Weekly           WeeklyStats    `json:"weekly_stats"`
	Monthly          []MonthlyTotal `json:"monthly_trends,omitempty"`
}

// AnomalousDay is a date whose total falls outside the IQR fences.
type AnomalousDay struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// WeeklyStats summarizes ISO-week aggregates.
type WeeklyStats struct {
	AvgWeekly      int64   `json:"avg_weekly"`
	BestWeek       int64   `json:"best_week"`
	WorstWeek      int64   `json:"worst_week"`
	WeeklyVariance float64 `json:"weekly_variance"`
}

// MonthlyTotal is one calendar month's enrollment sum.
type MonthlyTotal struct {
	Month       string  `json:"month"`
	Enrollments float64 `json:"enrollments"`
}

// ComputeTemporal aggregates totals per date and derives growth statistics.
// Fewer than two distinct dates yields a zero-valued stable result; unresolved
// date or total columns yield ErrInsufficientData.
func ComputeTemporal(t *datasets.Table, res schema.Resolution) (TemporalMetrics, error) {
	out := TemporalMetrics{TrendDirection: TrendStable}
	dateCol := t.ColumnIndex(res.Date)
	totalCol := t.ColumnIndex(res.EnrolTotal)
	if dateCol < 0 || totalCol < 0 {
		return out, fmt.Errorf("temporal: date or total column unresolved: %w", ErrInsufficientData)
	}
	series := dateSeries(t, dateCol, totalCol)
	if len(series) < 2 {
		return out, nil
	}

	growths := growthSeries(series)
	pct := make([]float64, len(growths))
	for i, g := range growths {
		pct[i] = g * 100
	}
	out.AvgGrowthRate = mean(pct)
	if len(pct) > 0 {
		peak, low := pct[0], pct[0]
		for _, g := range pct[1:] {
			if g > peak {
				peak = g
			}
			if g < low {
				low = g
			}
		}
		out.PeakGrowthRate = peak
		out.LowestGrowthRate = low
	}
	out.TrendDirection = classifyTrend(pct)

	var total float64
	best := series[0]
	for _, p := range series {
		total += p.total
		if p.total > best.total {
			best = p
		}
	}
	out.TotalRecords = int64(total)
	out.PeakDay = best.label
	out.PeakCount = best.total
	out.AnomalousDays = anomalousDays(series)
	out.Weekly = weeklyStats(series)
	out.Monthly = monthlyTotals(series)
	return out, nil
}

// classifyTrend averages the trailing growth observations and applies a strict
// band: strictly above +5 percent is upward, strictly below -5 is downward.
func classifyTrend(pct []float64) string {
	if len(pct) == 0 {
		return TrendStable
	}
	tail := pct
	if len(tail) > trailingWindow {
		tail = tail[len(tail)-trailingWindow:]
	}
	switch m := mean(tail); {
	case m > trendThreshold:
		return TrendUpward
	case m < -trendThreshold:
		return TrendDownward
	default:
		return TrendStable
	}
}

func anomalousDays(series []datePoint) []AnomalousDay {
	totals := make([]float64, len(series))
	for i, p := range series {
		totals[i] = p.total
	}
	q1 := quantile(totals, 0.25)
	q3 := quantile(totals, 0.75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr
	var out []AnomalousDay
	for _, p := range series {
		if p.total < lo || p.total > hi {
			out = append(out, AnomalousDay{Date: p.label, Total: p.total})
		}
	}
	return out
}

func weeklyStats(series []datePoint) WeeklyStats {
	type week struct{ year, week int }
	acc := map[week]float64{}
	for _, p := range series {
		y, w := p.date.ISOWeek()
		acc[week{y, w}] += p.total
	}
	if len(acc) == 0 {
		return WeeklyStats{}
	}
	sums := make([]float64, 0, len(acc))
	for _, v := range acc {
		sums = append(sums, v)
	}
	best, worst := sums[0], sums[0]
	for _, v := range sums[1:] {
		if v > best {
			best = v
		}
		if v < worst {
			worst = v
		}
	}
	return WeeklyStats{
		AvgWeekly:      int64(mean(sums)),
		BestWeek:       int64(best),
		WorstWeek:      int64(worst),
		WeeklyVariance: stddev(sums),
	}
}

func monthlyTotals(series []datePoint) []MonthlyTotal {
	acc := map[string]float64{}
	for _, p := range series {
		acc[p.date.Format("2006-01")] += p.total
	}
	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]MonthlyTotal, len(keys))
	for i, k := range keys {
		out[i] = MonthlyTotal{Month: k, Enrollments: acc[k]}
	}
	return out
}
