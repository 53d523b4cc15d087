// Package insights turns a metrics report into plain-language cards for
// non-technical readers, plus derived recommendations and a dashboard banner.
// Card texts and severity bands are fixed; no model or heuristic tuning is
// involved, so the same report always produces the same cards.
package insights

import (
	"fmt"
	"strconv"
	"strings"

	"enrolsight/internal/metrics"
)

// Severity levels, ordered by urgency in recommendation derivation.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
	SeverityPositive = "positive"
)

// Card types group insights by the metric family they interpret.
const (
	TypeTemporal    = "temporal"
	TypeGeographic  = "geographic"
	TypeDemographic = "demographic"
	TypeQuality     = "quality"
	TypeBiometric   = "biometric"
	TypeUpdate      = "update"
	TypeTrend       = "trend"
	TypeCapacity    = "capacity"
)

// Banner colors for the dashboard header.
const (
	ColorCritical = "#ef4444"
	ColorWarning  = "#f59e0b"
	ColorHealthy  = "#10b981"
)

// statesAndUTs is the number of Indian states and union territories used for
// coverage percentage.
const statesAndUTs = 36

// Card is one human-readable insight.
type Card struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Details  string `json:"details"`
	Action   string `json:"action"`
	Severity string `json:"severity"`
	Type     string `json:"type"`
}

// Analysis is the full set of cards and recommendations for one report.
type Analysis struct {
	Insights        []Card   `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// Banner is the dashboard status header derived from severity counts.
type Banner struct {
	Status   string `json:"status"`
	Color    string `json:"color"`
	Positive int    `json:"positive"`
	Warning  int    `json:"warning"`
	Critical int    `json:"critical"`
}

// Summary counts cards by severity for the JSON export.
type Summary struct {
	TotalInsights int `json:"total_insights"`
	Critical      int `json:"critical"`
	Warning       int `json:"warning"`
	Positive      int `json:"positive"`
	Info          int `json:"info"`
}

// Export is the JSON-safe shape consumed by external dashboards.
type Export struct {
	Insights        []Card   `json:"insights"`
	Recommendations []string `json:"recommendations"`
	Summary         Summary  `json:"summary"`
}

// Generate builds every card in fixed priority order and derives the
// recommendation list. Cards whose inputs are absent from the report (gender,
// biometric) are skipped; degraded metric families still produce cards from
// their zero values so the output shape stays stable.
func Generate(rep *metrics.Report) *Analysis {
	cards := []Card{
		qualityCard(rep.Quality),
		temporalCard(rep.Temporal),
		geographicCard(rep.Geographic),
		demographicCard(rep.Demographic),
		peakActivityCard(rep.Temporal),
		weeklyConsistencyCard(rep.Temporal),
		stateCoverageCard(rep.Geographic),
		genderCard(rep.Demographic),
		duplicatesCard(rep.Quality),
		biometricCard(rep.Biometric),
		updateCard(rep.Update),
		volatilityCard(rep.Trend),
		capacityCard(rep.Temporal),
	}

	a := &Analysis{}
	for _, c := range cards {
		if c.Title == "" {
			continue
		}
		a.Insights = append(a.Insights, c)
	}
	a.Recommendations = deriveRecommendations(a.Insights)
	return a
}

// ByType returns cards of one type in generation order.
func (a *Analysis) ByType(cardType string) []Card {
	var out []Card
	for _, c := range a.Insights {
		if c.Type == cardType {
			out = append(out, c)
		}
	}
	return out
}

// BySeverity returns cards of one severity in generation order.
func (a *Analysis) BySeverity(severity string) []Card {
	var out []Card
	for _, c := range a.Insights {
		if c.Severity == severity {
			out = append(out, c)
		}
	}
	return out
}

// KeyRecommendations returns the top five recommendations.
func (a *Analysis) KeyRecommendations() []string {
	if len(a.Recommendations) > 5 {
		return a.Recommendations[:5]
	}
	return a.Recommendations
}

// Banner derives the header status from severity counts: any critical card
// wins, then any warning, otherwise healthy.
func (a *Analysis) Banner() Banner {
	b := Banner{
		Positive: len(a.BySeverity(SeverityPositive)),
		Warning:  len(a.BySeverity(SeverityWarning)),
		Critical: len(a.BySeverity(SeverityCritical)),
	}
	switch {
	case b.Critical > 0:
		b.Status = "CRITICAL - Immediate Action Required"
		b.Color = ColorCritical
	case b.Warning > 0:
		b.Status = "CAUTION - Review Needed"
		b.Color = ColorWarning
	default:
		b.Status = "ON TRACK - Healthy Performance"
		b.Color = ColorHealthy
	}
	return b
}

// ToExport produces the JSON-safe dashboard payload.
func (a *Analysis) ToExport() Export {
	return Export{
		Insights:        a.Insights,
		Recommendations: a.Recommendations,
		Summary: Summary{
			TotalInsights: len(a.Insights),
			Critical:      len(a.BySeverity(SeverityCritical)),
			Warning:       len(a.BySeverity(SeverityWarning)),
			Positive:      len(a.BySeverity(SeverityPositive)),
			Info:          len(a.BySeverity(SeverityInfo)),
		},
	}
}

// deriveRecommendations lists critical and warning actions first, then positive
// reinforcements, capped at ten, with a fixed default set when no card carries
// an actionable severity.
func deriveRecommendations(cards []Card) []string {
	var recs []string
	for _, c := range cards {
		if c.Severity == SeverityCritical || c.Severity == SeverityWarning {
			recs = append(recs, c.Action)
		}
	}
	for _, c := range cards {
		if c.Severity == SeverityPositive {
			recs = append(recs, c.Action)
		}
	}
	if len(recs) == 0 {
		recs = []string{
			"Monitor all key metrics regularly",
			"Maintain current data collection standards",
			"Review system performance weekly",
			"Plan quarterly improvement initiatives",
		}
	}
	if len(recs) > 10 {
		recs = recs[:10]
	}
	return recs
}

func temporalCard(t metrics.TemporalMetrics) Card {
	growth := t.AvgGrowthRate
	trend := strings.ToUpper(t.TrendDirection)
	switch {
	case growth > 20:
		return Card{
			Title: "EXCEPTIONAL GROWTH - Accelerating Fast",
			Message: fmt.Sprintf("The enrollment is growing at %.1f%% daily - this is outstanding! "+
				"It is experiencing rapid expansion with peak day reaching %s enrollments. Trend: %s",
				growth, comma(int64(t.PeakCount)), trend),
			Details: "Growth above 20% daily indicates explosive expansion. This is exceptional and " +
				"requires infrastructure scaling to handle the volume.",
			Action:   "Scale infrastructure immediately to handle increased volume",
			Severity: SeverityPositive,
			Type:     TypeTemporal,
		}
	case growth > 10:
		return Card{
			Title: "STRONG GROWTH - On Track",
			Message: fmt.Sprintf("Daily growth rate is %.1f%% - excellent performance! "+
				"This system is expanding well with consistent positive momentum. Trend: %s", growth, trend),
			Details:  "Growth between 10-20% is strong and sustainable. The enrollment system is performing well.",
			Action:   "Maintain momentum and continue monitoring capacity",
			Severity: SeverityPositive,
			Type:     TypeTemporal,
		}
	case growth > 5:
		return Card{
			Title: "STEADY GROWTH - Healthy Progress",
			Message: fmt.Sprintf("Enrollment is growing steadily at %.1f%% daily. "+
				"This is on track with consistent, healthy expansion. Trend: %s", growth, trend),
			Details:  "5-10% daily growth is healthy and sustainable long-term.",
			Action:   "Continue current strategy while planning for scaling",
			Severity: SeverityInfo,
			Type:     TypeTemporal,
		}
	default:
		return Card{
			Title: "SLOW GROWTH - Needs Attention",
			Message: fmt.Sprintf("Growth rate is %.1f%% daily - below target. Trend: %s. "+
				"The enrollment needs a boost.", growth, trend),
			Details:  "Below 5% daily growth suggests the need for campaign improvements.",
			Action:   "Review marketing campaigns and identify growth barriers",
			Severity: SeverityWarning,
			Type:     TypeTemporal,
		}
	}
}

func peakActivityCard(t metrics.TemporalMetrics) Card {
	peakDay := t.PeakDay
	if peakDay == "" {
		peakDay = "N/A"
	}
	return Card{
		Title: "PEAK ACTIVITY - The Busiest Day",
		Message: fmt.Sprintf("The peak enrollment day recorded %s registrations on %s. "+
			"This shows the system's maximum capacity and user interest level.",
			comma(int64(t.PeakCount)), peakDay),
		Details:  "Understanding peak capacity helps with infrastructure planning and resource allocation.",
		Action:   "Use peak day data to plan infrastructure and staffing",
		Severity: SeverityInfo,
		Type:     TypeTemporal,
	}
}

func weeklyConsistencyCard(t metrics.TemporalMetrics) Card {
	var cv float64
	if t.Weekly.WeeklyVariance != 0 && t.Weekly.AvgWeekly != 0 {
		cv = t.Weekly.WeeklyVariance / float64(t.Weekly.AvgWeekly) * 100
	}
	var status, severity string
	switch {
	case cv < 15:
		status, severity = "Highly Consistent - Predictable patterns", SeverityPositive
	case cv < 30:
		status, severity = "Moderately Consistent - Some variation", SeverityInfo
	default:
		status, severity = "Highly Variable - Unpredictable patterns", SeverityWarning
	}
	return Card{
		Title: "WEEKLY PATTERNS - Predictability Check",
		Message: fmt.Sprintf("Average weekly enrollment: %s registrations. Status: %s. "+
			"This tells how predictable the enrollment patterns are.", comma(t.Weekly.AvgWeekly), status),
		Details:  "Low variation means you can forecast demand accurately. High variation requires flexible resources.",
		Action:   "Plan staffing and resources based on consistency level",
		Severity: severity,
		Type:     TypeTemporal,
	}
}

func geographicCard(g metrics.GeographicMetrics) Card {
	topState := g.TopState
	if topState == "" {
		topState = "N/A"
	}
	switch {
	case g.HerfindahlIndex > 2500:
		return Card{
			Title: "HIGH CONCENTRATION - Unbalanced Distribution",
			Message: fmt.Sprintf("%s dominates with %.1f%% of all enrollments. "+
				"The enrollment is heavily concentrated in one region. This means most of the "+
				"users are from a specific area.", topState, g.TopStatePercentage),
			Details: "High concentration (HHI > 2500) indicates unbalanced geographic distribution. " +
				"This creates risk if that region experiences disruption.",
			Action:   "Launch targeted campaigns in underserved regions",
			Severity: SeverityWarning,
			Type:     TypeGeographic,
		}
	case g.HerfindahlIndex > 2000:
		return Card{
			Title: "MODERATE CONCENTRATION - Room for Growth",
			Message: fmt.Sprintf("%s leads with %.1f%% of enrollments. "+
				"The distribution is somewhat unbalanced but manageable. "+
				"There's good opportunity for geographic expansion.", topState, g.TopStatePercentage),
			Details:  "Moderate concentration suggests some regional imbalance but with diversification potential.",
			Action:   "Focus on expanding in tier-2 and tier-3 cities",
			Severity: SeverityInfo,
			Type:     TypeGeographic,
		}
	default:
		return Card{
			Title: "BALANCED DISTRIBUTION - Well Spread",
			Message: fmt.Sprintf("Enrollments are well-distributed across regions. "+
				"Top state (%s) has only %.1f%%. This excellent geographic diversity reduces "+
				"regional risk.", topState, g.TopStatePercentage),
			Details:  "Low concentration (HHI < 2000) indicates healthy geographic distribution.",
			Action:   "Continue expanding in new regions",
			Severity: SeverityPositive,
			Type:     TypeGeographic,
		}
	}
}

func stateCoverageCard(g metrics.GeographicMetrics) Card {
	coveragePct := float64(g.NumStates) / statesAndUTs * 100
	var status, severity string
	switch {
	case g.NumStates >= 30:
		status, severity = "Excellent - Nearly complete coverage", SeverityPositive
	case g.NumStates >= 20:
		status, severity = "Good - Significant coverage", SeverityInfo
	default:
		status, severity = "Limited - Room for expansion", SeverityWarning
	}
	action := "Maintain national coverage"
	if g.NumStates < statesAndUTs {
		action = fmt.Sprintf("Plan expansion to reach remaining %d regions", statesAndUTs-g.NumStates)
	}
	return Card{
		Title: "GEOGRAPHIC COVERAGE - State Distribution",
		Message: fmt.Sprintf("The service covers %d states/UTs (%.0f%% of India). Status: %s. "+
			"This shows the national reach.", g.NumStates, coveragePct, status),
		Details:  "Higher coverage means better national presence and reduced geographic risk.",
		Action:   action,
		Severity: severity,
		Type:     TypeGeographic,
	}
}

func demographicCard(d metrics.DemographicMetrics) Card {
	dominant := d.DominantAge
	if dominant == "" {
		dominant = "N/A"
	}
	switch {
	case d.AgeDiversityIndex > 0.8:
		return Card{
			Title: "EXCELLENT DIVERSITY - All Groups Well Represented",
			Message: fmt.Sprintf("The enrollment is highly diverse across all age groups. "+
				"No single age group dominates (largest is %.1f%%). "+
				"This indicates inclusive outreach and balanced participation.", d.DominantAgePercentage),
			Details:  "High diversity (>0.8) means the service appeals to all demographics.",
			Action:   "Maintain inclusive engagement strategies",
			Severity: SeverityPositive,
			Type:     TypeDemographic,
		}
	case d.AgeDiversityIndex > 0.6:
		return Card{
			Title: "GOOD DIVERSITY - Balanced Participation",
			Message: fmt.Sprintf("Most age groups are well-represented, though %s leads with %.1f%%. "+
				"The enrollment is reasonably balanced.", dominant, d.DominantAgePercentage),
			Details:  "Moderate diversity (0.6-0.8) shows balanced but not perfect representation.",
			Action:   "Monitor underrepresented groups for equity",
			Severity: SeverityInfo,
			Type:     TypeDemographic,
		}
	case d.AgeDiversityIndex > 0.4:
		return Card{
			Title: "MODERATE SKEW - Some Groups Underrepresented",
			Message: fmt.Sprintf("%s accounts for %.1f%% of enrollments. "+
				"Other age groups are underrepresented. This needs attention.", dominant, d.DominantAgePercentage),
			Details:  "Lower diversity suggests some demographic groups are not being reached.",
			Action:   "Launch targeted outreach for underrepresented age groups",
			Severity: SeverityWarning,
			Type:     TypeDemographic,
		}
	default:
		return Card{
			Title: "CRITICAL SKEW - Severe Demographic Imbalance",
			Message: fmt.Sprintf("%s dominates with %.1f%% of enrollments. "+
				"Other demographic groups are significantly underrepresented. "+
				"This is a critical gap that needs immediate action.", dominant, d.DominantAgePercentage),
			Details:  "Very low diversity indicates major demographic gaps in the service.",
			Action:   "Launch immediate diversity and inclusion campaigns",
			Severity: SeverityCritical,
			Type:     TypeDemographic,
		}
	}
}

// genderCard returns an empty card when no gender column resolved, which
// Generate filters out.
func genderCard(d metrics.DemographicMetrics) Card {
	g := d.Gender
	if g == nil || len(g.Counts) == 0 {
		return Card{}
	}
	maxGender := g.Counts[0]
	minGender := g.Counts[len(g.Counts)-1]
	var status, severity string
	switch {
	case g.BalanceRatio < 1.2:
		status, severity = "Excellent - Nearly equal participation", SeverityPositive
	case g.BalanceRatio < 1.5:
		status, severity = "Good - Fairly balanced", SeverityInfo
	default:
		status, severity = "Imbalanced - One gender dominates", SeverityWarning
	}
	return Card{
		Title: "GENDER BALANCE - Equality Check",
		Message: fmt.Sprintf("Gender distribution ratio is %.2f:1 (%s to %s). Status: %s. "+
			"Aim for equal participation from all genders.", g.BalanceRatio, maxGender.Name, minGender.Name, status),
		Details:  "Balanced gender representation ensures inclusive service delivery.",
		Action:   "If imbalanced, increase outreach to underrepresented gender",
		Severity: severity,
		Type:     TypeDemographic,
	}
}

func qualityCard(q metrics.QualityMetrics) Card {
	c := q.OverallCompleteness
	switch {
	case c > 97:
		return Card{
			Title: "EXCELLENT DATA QUALITY - Premium Standard",
			Message: fmt.Sprintf("Data completeness is %.1f%%. The data is pristine with minimal issues. "+
				"This ensures reliable analysis and decision-making.", c),
			Details:  "Excellent data quality (>97%) means high confidence in analytics.",
			Action:   "Maintain current data collection standards",
			Severity: SeverityPositive,
			Type:     TypeQuality,
		}
	case c > 93:
		return Card{
			Title: "GOOD DATA QUALITY - Reliable",
			Message: fmt.Sprintf("Data completeness is %.1f%%. Quality is good with minimal issues. "+
				"The data is reliable for analysis.", c),
			Details:  "Good data quality (93-97%) is acceptable for most purposes.",
			Action:   "Monitor and continue gradual improvements",
			Severity: SeverityInfo,
			Type:     TypeQuality,
		}
	case c > 85:
		return Card{
			Title: "MODERATE QUALITY - Needs Attention",
			Message: fmt.Sprintf("Data completeness is %.1f%% with %s identified issues. "+
				"Quality needs improvement for reliable analysis.", c, comma(int64(q.Issues.TotalIssues))),
			Details:  "Below 93% completeness means important data gaps exist.",
			Action:   "Identify and fix data collection gaps systematically",
			Severity: SeverityWarning,
			Type:     TypeQuality,
		}
	default:
		return Card{
			Title: "POOR DATA QUALITY - Critical",
			Message: fmt.Sprintf("Data completeness is only %.1f%% with %s critical issues. "+
				"Data quality is severely compromised.", c, comma(int64(q.Issues.TotalIssues))),
			Details:  "Below 85% completeness severely impacts reliability.",
			Action:   "Urgently review and fix data collection procedures",
			Severity: SeverityCritical,
			Type:     TypeQuality,
		}
	}
}

func duplicatesCard(q metrics.QualityMetrics) Card {
	dups := q.Issues.DuplicateRecords
	var pct float64
	if q.TotalRecords > 0 {
		pct = float64(dups) / float64(q.TotalRecords) * 100
	}
	var status, severity string
	switch {
	case dups == 0:
		status, severity = "Perfect - No duplicates", SeverityPositive
	case pct < 0.5:
		status, severity = "Acceptable - Minimal duplicates", SeverityInfo
	default:
		status, severity = "Concerning - Significant duplication", SeverityWarning
	}
	return Card{
		Title: "DUPLICATE RECORDS - Data Integrity Check",
		Message: fmt.Sprintf("Found %s duplicate records (%.2f%%). Status: %s. "+
			"This affects data accuracy.", comma(int64(dups)), pct, status),
		Details:  "Duplicates can skew analysis results and inflate enrollment numbers.",
		Action:   "Implement duplicate detection and removal procedures",
		Severity: severity,
		Type:     TypeQuality,
	}
}

// biometricCard returns an empty card when no biometric columns resolved.
func biometricCard(b metrics.BiometricMetrics) Card {
	if len(b.Columns) == 0 {
		return Card{}
	}
	var status, severity string
	switch {
	case b.AvgCoverage > 90:
		status, severity = "Excellent - High biometric collection", SeverityPositive
	case b.AvgCoverage > 70:
		status, severity = "Good - Solid coverage", SeverityInfo
	default:
		status, severity = "Low - Needs improvement", SeverityWarning
	}
	return Card{
		Title: "BIOMETRIC COVERAGE - Fingerprint Enrollment",
		Message: fmt.Sprintf("Biometric enrollment coverage is %.1f%%. Status: %s. "+
			"This shows fingerprint data collection rates.", b.AvgCoverage, status),
		Details:  "Higher biometric coverage ensures better identity verification capability.",
		Action:   "Increase biometric collection during enrollment",
		Severity: severity,
		Type:     TypeBiometric,
	}
}

func updateCard(u metrics.UpdateMetrics) Card {
	ratio := u.BiometricToEnrolRatio + u.DemographicToEnrolRatio
	var status, severity string
	switch {
	case ratio > 0.5:
		status, severity = "High - Frequent updates", SeverityPositive
	case ratio > 0.2:
		status, severity = "Moderate - Regular updates", SeverityInfo
	default:
		status, severity = "Low - Limited updates", SeverityWarning
	}
	return Card{
		Title: "UPDATE FREQUENCY - System Activity",
		Message: fmt.Sprintf("Update-to-enrollment ratio is %.2f. Status: %s. "+
			"This shows how active users are updating their data.", ratio, status),
		Details:  "Higher update ratios indicate engaged users maintaining accurate information.",
		Action:   "Encourage regular data updates and maintenance",
		Severity: severity,
		Type:     TypeUpdate,
	}
}

func volatilityCard(t metrics.TrendMetrics) Card {
	level := t.VolatilityLevel
	if level == "" {
		level = metrics.VolatilityMedium
	}
	var msg, details, action, severity string
	switch level {
	case metrics.VolatilityHigh:
		msg = "Highly Variable - Unpredictable daily changes"
		details = "High volatility means daily enrollments vary significantly."
		action = "Use flexible resource planning"
		severity = SeverityWarning
	case metrics.VolatilityLow:
		msg = "Stable - Consistent daily patterns"
		details = "Low volatility means daily enrollments remain stable."
		action = "Optimize fixed resource allocation"
		severity = SeverityPositive
	default:
		msg = "Moderate Variability - Some daily fluctuation"
		details = "Medium volatility means daily enrollments fluctuate moderately."
		action = "Maintain current planning"
		severity = SeverityInfo
	}
	return Card{
		Title:    "ENROLLMENT VOLATILITY - Stability Check",
		Message:  fmt.Sprintf("Volatility Level: %s. This affects resource planning and forecasting.", msg),
		Details:  details,
		Action:   action,
		Severity: severity,
		Type:     TypeTrend,
	}
}

func capacityCard(t metrics.TemporalMetrics) Card {
	avgDaily := float64(t.TotalRecords)
	if avgDaily > 0 {
		avgDaily /= 365
	}
	var utilization float64
	if t.PeakCount > 0 {
		utilization = avgDaily / t.PeakCount * 100
	}
	var status, action, severity string
	switch {
	case utilization > 80:
		status, action, severity = "High Load - Operating near capacity", "Upgrade infrastructure urgently", SeverityWarning
	case utilization > 50:
		status, action, severity = "Moderate Load - Good headroom", "Monitor capacity trends", SeverityInfo
	default:
		status, action, severity = "Low Load - Plenty of capacity", "Maintain current capacity", SeverityPositive
	}
	return Card{
		Title: "SYSTEM CAPACITY - Load Analysis",
		Message: fmt.Sprintf("Average-to-peak utilization is %.1f%%. Status: %s. "+
			"This shows how efficiently the system capacity is being used.", utilization, status),
		Details:  "Capacity planning ensures it can handle peak loads without degradation.",
		Action:   action,
		Severity: severity,
		Type:     TypeCapacity,
	}
}

// comma formats an integer with thousands separators.
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
