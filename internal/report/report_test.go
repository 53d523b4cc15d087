package report

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"enrolsight/internal/insights"
	"enrolsight/internal/metrics"
)

func renderPlain(t *testing.T, rep *metrics.Report) string {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	Render(&buf, rep, insights.Generate(rep))
	return buf.String()
}

func TestRenderSections(t *testing.T) {
	rep := &metrics.Report{
		Temporal: metrics.TemporalMetrics{
			AvgGrowthRate:  12.0,
			TrendDirection: metrics.TrendUpward,
			PeakDay:        "15-01-2025",
			PeakCount:      900,
			TotalRecords:   36500,
			Weekly:         metrics.WeeklyStats{AvgWeekly: 700, BestWeek: 800, WorstWeek: 650, WeeklyVariance: 40},
			Monthly:        []metrics.MonthlyTotal{{Month: "2025-01", Enrollments: 36500}},
		},
		Geographic: metrics.GeographicMetrics{
			HerfindahlIndex:    900,
			GiniCoefficient:    0.2,
			ConcentrationLevel: metrics.ConcentrationLow,
			TopState:           "Kerala",
			TopStatePercentage: 12,
			NumStates:          32,
			States: []metrics.RegionShare{
				{Name: "Kerala", Total: 4380, Percentage: 12},
				{Name: "Bihar", Total: 3650, Percentage: 10},
			},
		},
		Demographic: metrics.DemographicMetrics{
			AgeDiversityIndex:     0.85,
			DominantAge:           "age_5_18",
			DominantAgePercentage: 40,
			AgeGroups: []metrics.BucketShare{
				{Name: "age_5_18", Total: 14600, Percentage: 40},
				{Name: "age_0_5", Total: 10950, Percentage: 30},
			},
		},
		Quality: metrics.QualityMetrics{
			OverallCompleteness: 99.2,
			Status:              metrics.QualityExcellent,
		},
		Update: metrics.UpdateMetrics{
			BiometricToEnrolRatio:   0.4,
			DemographicToEnrolRatio: 0.3,
		},
		Trend: metrics.TrendMetrics{VolatilityLevel: metrics.VolatilityLow},
	}

	out := renderPlain(t, rep)
	require.Contains(t, out, "ON TRACK - Healthy Performance")
	require.Contains(t, out, "TOTAL ENROLLMENTS")
	require.Contains(t, out, "RANK")
	require.Contains(t, out, "Kerala")
	require.Contains(t, out, "Age Composition")
	require.Contains(t, out, "age_5_18")
	require.Contains(t, out, "Monthly Enrollments")
	require.Contains(t, out, "2025-01")
	require.Contains(t, out, "36500")
	require.Contains(t, out, "Key Recommendations")
	require.Contains(t, out, "insights:")
}

func TestRenderCriticalBanner(t *testing.T) {
	rep := &metrics.Report{
		Quality: metrics.QualityMetrics{OverallCompleteness: 50, Status: metrics.QualityPoor},
	}
	out := renderPlain(t, rep)
	require.Contains(t, out, "CRITICAL - Immediate Action Required")
	require.Contains(t, out, "Critical")
}

func TestRenderSkipsEmptyTables(t *testing.T) {
	rep := &metrics.Report{}
	out := renderPlain(t, rep)
	// The geographic coverage card mentions "State Distribution" in its title, so
	// the table checks use strings only the tables emit.
	require.NotContains(t, out, "RANK")
	require.NotContains(t, out, "Age Composition")
	require.NotContains(t, out, "Monthly Enrollments")
}
