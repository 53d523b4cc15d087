// Package report renders metric and insight results as a terminal report.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"enrolsight/internal/insights"
	"enrolsight/internal/metrics"
)

const maxStateRows = 10

// Render writes the full report: status banner, insight cards grouped by severity,
// distribution tables, and the key recommendations.
func Render(w io.Writer, rep *metrics.Report, a *insights.Analysis) {
	banner(w, a)
	summaryLine(w, a)
	metricTiles(w, rep)
	insightSections(w, a)
	stateTable(w, rep.Geographic)
	ageTable(w, rep.Demographic)
	monthlyTable(w, rep.Temporal)
	recommendations(w, a)
}

func banner(w io.Writer, a *insights.Analysis) {
	b := a.Banner()
	c := color.New(color.FgGreen, color.Bold)
	switch b.Color {
	case insights.ColorCritical:
		c = color.New(color.FgRed, color.Bold)
	case insights.ColorWarning:
		c = color.New(color.FgYellow, color.Bold)
	}
	fmt.Fprintln(w)
	c.Fprintf(w, "=== %s ===\n", b.Status)
}

func summaryLine(w io.Writer, a *insights.Analysis) {
	s := a.ToExport().Summary
	fmt.Fprintf(w, "insights: %d total | %d critical, %d warning, %d positive, %d info\n",
		s.TotalInsights, s.Critical, s.Warning, s.Positive, s.Info)
}

func metricTiles(w io.Writer, rep *metrics.Report) {
	if rep.Temporal.TotalRecords == 0 && rep.Geographic.NumStates == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Total Enrollments", "States", "Districts", "Daily Avg"})
	table.Append([]string{
		strconv.FormatInt(rep.Temporal.TotalRecords, 10),
		strconv.Itoa(rep.Geographic.NumStates),
		strconv.Itoa(len(rep.Geographic.Districts)),
		strconv.FormatInt(rep.Temporal.TotalRecords/365, 10),
	})
	table.Render()
}

func insightSections(w io.Writer, a *insights.Analysis) {
	sections := []struct {
		severity string
		heading  string
		paint    *color.Color
	}{
		{insights.SeverityCritical, "Critical", color.New(color.FgRed, color.Bold)},
		{insights.SeverityWarning, "Warnings", color.New(color.FgYellow, color.Bold)},
		{insights.SeverityPositive, "Healthy", color.New(color.FgGreen, color.Bold)},
		{insights.SeverityInfo, "Notes", color.New(color.FgCyan, color.Bold)},
	}
	for _, sec := range sections {
		cards := a.BySeverity(sec.severity)
		if len(cards) == 0 {
			continue
		}
		fmt.Fprintln(w)
		sec.paint.Fprintf(w, "%s\n", sec.heading)
		for _, c := range cards {
			fmt.Fprintf(w, "  * %s: %s\n", c.Title, c.Message)
			if c.Details != "" {
				fmt.Fprintf(w, "    %s\n", c.Details)
			}
			if c.Action != "" {
				fmt.Fprintf(w, "    -> %s\n", c.Action)
			}
		}
	}
}

func stateTable(w io.Writer, g metrics.GeographicMetrics) {
	if len(g.States) == 0 {
		return
	}
	fmt.Fprintln(w)
	color.New(color.Bold).Fprintln(w, "State Distribution")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "State", "Enrollments", "Share %"})
	for i, s := range g.States {
		if i >= maxStateRows {
			break
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			s.Name,
			strconv.FormatFloat(s.Total, 'f', 0, 64),
			fmt.Sprintf("%.1f", s.Percentage),
		})
	}
	table.Render()
	fmt.Fprintf(w, "HHI %.0f (%s concentration), Gini %.3f, %d states\n",
		g.HerfindahlIndex, g.ConcentrationLevel, g.GiniCoefficient, g.NumStates)
}

func ageTable(w io.Writer, d metrics.DemographicMetrics) {
	if len(d.AgeGroups) == 0 {
		return
	}
	fmt.Fprintln(w)
	color.New(color.Bold).Fprintln(w, "Age Composition")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Age Group", "Enrollments", "Share %"})
	for _, b := range d.AgeGroups {
		table.Append([]string{
			b.Name,
			strconv.FormatFloat(b.Total, 'f', 0, 64),
			fmt.Sprintf("%.1f", b.Percentage),
		})
	}
	table.Render()
	fmt.Fprintf(w, "diversity index %.3f, dominant group %s (%.1f%%)\n",
		d.AgeDiversityIndex, d.DominantAge, d.DominantAgePercentage)
}

func monthlyTable(w io.Writer, t metrics.TemporalMetrics) {
	if len(t.Monthly) == 0 {
		return
	}
	fmt.Fprintln(w)
	color.New(color.Bold).Fprintln(w, "Monthly Enrollments")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Month", "Enrollments"})
	for _, m := range t.Monthly {
		table.Append([]string{m.Month, strconv.FormatFloat(m.Enrollments, 'f', 0, 64)})
	}
	table.Render()
}

func recommendations(w io.Writer, a *insights.Analysis) {
	recs := a.KeyRecommendations()
	if len(recs) == 0 {
		return
	}
	fmt.Fprintln(w)
	color.New(color.Bold).Fprintln(w, "Key Recommendations")
	for i, r := range recs {
		fmt.Fprintf(w, "  %d. %s\n", i+1, r)
	}
}
