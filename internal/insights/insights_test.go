package insights

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"enrolsight/internal/metrics"
)

func healthyReport(t *testing.T) *metrics.Report {
	t.Helper()
	return &metrics.Report{
		Temporal: metrics.TemporalMetrics{
			AvgGrowthRate:  12.0,
			TrendDirection: metrics.TrendUpward,
			PeakDay:        "15-01-2025",
			PeakCount:      5000,
			TotalRecords:   400000,
			Weekly:         metrics.WeeklyStats{AvgWeekly: 10000, WeeklyVariance: 500},
		},
		Geographic: metrics.GeographicMetrics{
			HerfindahlIndex:    900,
			ConcentrationLevel: metrics.ConcentrationLow,
			TopState:           "Uttar Pradesh",
			TopStatePercentage: 12.5,
			NumStates:          32,
		},
		Demographic: metrics.DemographicMetrics{
			AgeDiversityIndex:     0.85,
			DominantAge:           "age_18_plus",
			DominantAgePercentage: 40.0,
			Gender: &metrics.GenderMetrics{
				Counts: []metrics.GenderCount{
					{Name: "F", Count: 105},
					{Name: "M", Count: 100},
				},
				BalanceRatio: 1.05,
			},
		},
		Quality: metrics.QualityMetrics{
			OverallCompleteness: 99.2,
			TotalRecords:        1000,
			Status:              metrics.QualityExcellent,
		},
		Biometric: metrics.BiometricMetrics{
			Columns:     []metrics.BioCoverage{{Column: "bioage_5_17", Percentage: 95}},
			AvgCoverage: 95,
		},
		Update: metrics.UpdateMetrics{
			BiometricToEnrolRatio:   0.4,
			DemographicToEnrolRatio: 0.3,
		},
		Trend: metrics.TrendMetrics{VolatilityLevel: metrics.VolatilityLow},
	}
}

func TestGenerateOrderAndCount(t *testing.T) {
	a := Generate(healthyReport(t))
	require.Len(t, a.Insights, 13)

	require.Equal(t, TypeQuality, a.Insights[0].Type)
	require.Equal(t, TypeTemporal, a.Insights[1].Type)
	require.Equal(t, TypeGeographic, a.Insights[2].Type)
	require.Equal(t, TypeDemographic, a.Insights[3].Type)
	require.Equal(t, TypeCapacity, a.Insights[12].Type)
}

func TestGenerateSkipsAbsentGenderAndBiometric(t *testing.T) {
	rep := healthyReport(t)
	rep.Demographic.Gender = nil
	rep.Biometric = metrics.BiometricMetrics{}

	a := Generate(rep)
	require.Len(t, a.Insights, 11)
	require.Empty(t, a.ByType(TypeBiometric))
	for _, c := range a.Insights {
		require.NotEmpty(t, c.Title)
	}
}

func TestGeographicCardHighConcentration(t *testing.T) {
	c := geographicCard(metrics.GeographicMetrics{
		HerfindahlIndex:    4600,
		TopState:           "A",
		TopStatePercentage: 60.0,
	})
	require.Equal(t, SeverityWarning, c.Severity)
	require.Contains(t, c.Title, "HIGH CONCENTRATION")
	require.Contains(t, c.Message, "A dominates with 60.0%")
}

func TestGeographicCardBands(t *testing.T) {
	require.Equal(t, SeverityInfo, geographicCard(metrics.GeographicMetrics{HerfindahlIndex: 2200}).Severity)
	require.Equal(t, SeverityPositive, geographicCard(metrics.GeographicMetrics{HerfindahlIndex: 1500}).Severity)
	// Boundary values fall to the lower band.
	require.Equal(t, SeverityPositive, geographicCard(metrics.GeographicMetrics{HerfindahlIndex: 2000}).Severity)
	require.Equal(t, SeverityInfo, geographicCard(metrics.GeographicMetrics{HerfindahlIndex: 2500}).Severity)
}

func TestTemporalCardBands(t *testing.T) {
	cases := []struct {
		growth   float64
		severity string
		title    string
	}{
		{25, SeverityPositive, "EXCEPTIONAL GROWTH"},
		{15, SeverityPositive, "STRONG GROWTH"},
		{7, SeverityInfo, "STEADY GROWTH"},
		{3, SeverityWarning, "SLOW GROWTH"},
		{0, SeverityWarning, "SLOW GROWTH"},
	}
	for _, tc := range cases {
		c := temporalCard(metrics.TemporalMetrics{AvgGrowthRate: tc.growth, TrendDirection: metrics.TrendStable})
		require.Equal(t, tc.severity, c.Severity, "growth %.0f", tc.growth)
		require.Contains(t, c.Title, tc.title)
		require.Contains(t, c.Message, "STABLE")
	}
}

func TestQualityCardBands(t *testing.T) {
	require.Equal(t, SeverityPositive, qualityCard(metrics.QualityMetrics{OverallCompleteness: 98}).Severity)
	require.Equal(t, SeverityInfo, qualityCard(metrics.QualityMetrics{OverallCompleteness: 95}).Severity)
	require.Equal(t, SeverityWarning, qualityCard(metrics.QualityMetrics{OverallCompleteness: 90}).Severity)
	require.Equal(t, SeverityCritical, qualityCard(metrics.QualityMetrics{OverallCompleteness: 80}).Severity)
}

func TestDemographicCardBands(t *testing.T) {
	require.Equal(t, SeverityPositive, demographicCard(metrics.DemographicMetrics{AgeDiversityIndex: 0.85}).Severity)
	require.Equal(t, SeverityInfo, demographicCard(metrics.DemographicMetrics{AgeDiversityIndex: 0.7}).Severity)
	require.Equal(t, SeverityWarning, demographicCard(metrics.DemographicMetrics{AgeDiversityIndex: 0.5}).Severity)
	require.Equal(t, SeverityCritical, demographicCard(metrics.DemographicMetrics{AgeDiversityIndex: 0.3}).Severity)
}

func TestGenderCardRatioBands(t *testing.T) {
	mk := func(ratio float64) metrics.DemographicMetrics {
		return metrics.DemographicMetrics{Gender: &metrics.GenderMetrics{
			Counts:       []metrics.GenderCount{{Name: "M", Count: 10}, {Name: "F", Count: 8}},
			BalanceRatio: ratio,
		}}
	}
	require.Equal(t, SeverityPositive, genderCard(mk(1.1)).Severity)
	require.Equal(t, SeverityInfo, genderCard(mk(1.3)).Severity)
	require.Equal(t, SeverityWarning, genderCard(mk(1.8)).Severity)
	require.Contains(t, genderCard(mk(1.8)).Message, "M to F")
}

func TestDuplicatesCardBands(t *testing.T) {
	none := duplicatesCard(metrics.QualityMetrics{TotalRecords: 1000})
	require.Equal(t, SeverityPositive, none.Severity)

	few := duplicatesCard(metrics.QualityMetrics{
		TotalRecords: 1000,
		Issues:       metrics.QualityIssues{DuplicateRecords: 3},
	})
	require.Equal(t, SeverityInfo, few.Severity)

	many := duplicatesCard(metrics.QualityMetrics{
		TotalRecords: 1000,
		Issues:       metrics.QualityIssues{DuplicateRecords: 50},
	})
	require.Equal(t, SeverityWarning, many.Severity)
	require.Contains(t, many.Message, "5.00%")
}

func TestVolatilityCardDefaultsToMedium(t *testing.T) {
	c := volatilityCard(metrics.TrendMetrics{})
	require.Equal(t, SeverityInfo, c.Severity)
	require.Contains(t, c.Message, "Moderate Variability")
}

func TestCapacityCardUtilization(t *testing.T) {
	// 365 days at 100 per day with a peak of 110: utilization just over 90%.
	c := capacityCard(metrics.TemporalMetrics{TotalRecords: 36500, PeakCount: 110})
	require.Equal(t, SeverityWarning, c.Severity)

	idle := capacityCard(metrics.TemporalMetrics{TotalRecords: 36500, PeakCount: 1000})
	require.Equal(t, SeverityPositive, idle.Severity)

	noPeak := capacityCard(metrics.TemporalMetrics{})
	require.Equal(t, SeverityPositive, noPeak.Severity)
}

func TestRecommendationOrdering(t *testing.T) {
	cards := []Card{
		{Severity: SeverityCritical, Action: "fix the critical thing"},
		{Severity: SeverityPositive, Action: "keep doing the good thing"},
		{Severity: SeverityWarning, Action: "watch the risky thing"},
		{Severity: SeverityInfo, Action: "informational only"},
	}
	recs := deriveRecommendations(cards)
	require.Equal(t, []string{
		"fix the critical thing",
		"watch the risky thing",
		"keep doing the good thing",
	}, recs)
	require.NotContains(t, recs, "informational only")
}

func TestRecommendationDefaultsWhenAllInfo(t *testing.T) {
	recs := deriveRecommendations([]Card{{Severity: SeverityInfo, Action: "x"}})
	require.Len(t, recs, 4)
	require.Equal(t, "Monitor all key metrics regularly", recs[0])
}

func TestRecommendationCap(t *testing.T) {
	var cards []Card
	for i := 0; i < 15; i++ {
		cards = append(cards, Card{Severity: SeverityWarning, Action: "act"})
	}
	require.Len(t, deriveRecommendations(cards), 10)
}

func TestKeyRecommendationsTopFive(t *testing.T) {
	a := &Analysis{Recommendations: []string{"a", "b", "c", "d", "e", "f", "g"}}
	require.Len(t, a.KeyRecommendations(), 5)
}

func TestBannerEscalation(t *testing.T) {
	healthy := Generate(healthyReport(t)).Banner()
	require.Equal(t, ColorHealthy, healthy.Color)
	require.True(t, strings.HasPrefix(healthy.Status, "ON TRACK"))

	rep := healthyReport(t)
	rep.Temporal.AvgGrowthRate = 1
	caution := Generate(rep).Banner()
	require.Equal(t, ColorWarning, caution.Color)

	rep.Quality.OverallCompleteness = 50
	critical := Generate(rep).Banner()
	require.Equal(t, ColorCritical, critical.Color)
	require.True(t, strings.HasPrefix(critical.Status, "CRITICAL"))
}

func TestExportShape(t *testing.T) {
	a := Generate(healthyReport(t))
	exp := a.ToExport()
	require.Equal(t, len(a.Insights), exp.Summary.TotalInsights)
	total := exp.Summary.Critical + exp.Summary.Warning + exp.Summary.Positive + exp.Summary.Info
	require.Equal(t, exp.Summary.TotalInsights, total)

	raw, err := json.Marshal(exp)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "insights")
	require.Contains(t, decoded, "recommendations")
	require.Contains(t, decoded, "summary")
}

func TestCommaFormatting(t *testing.T) {
	require.Equal(t, "0", comma(0))
	require.Equal(t, "999", comma(999))
	require.Equal(t, "1,000", comma(1000))
	require.Equal(t, "12,345,678", comma(12345678))
	require.Equal(t, "-1,234", comma(-1234))
}
