package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"enrolsight/config"
	"enrolsight/internal/datasets"
	"enrolsight/internal/insights"
	"enrolsight/internal/metrics"
	"enrolsight/internal/schema"
	"enrolsight/pkg/toolerr"
	"enrolsight/pkg/validation"
)

// MetricsInput is the shared parameter set for the metric family tools: a dataset
// handle plus an optional state and date-range filter.
type MetricsInput struct {
	DatasetID string   `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID"`
	States    []string `json:"states,omitempty" jsonschema_description:"Restrict to these states (case-insensitive)"`
	From      string   `json:"from,omitempty" validate:"datefmt" jsonschema_description:"Inclusive start date, DD-MM-YYYY"`
	To        string   `json:"to,omitempty" validate:"datefmt" jsonschema_description:"Inclusive end date, DD-MM-YYYY"`
}

// RegisterMetricTools wires one tool per metric family plus generate_insights.
func RegisterMetricTools(s *server.MCPServer, reg *Registry, mgr *datasets.Manager, settings *config.Settings) {
	registerMetricTool(s, reg, mgr, settings, "temporal_metrics",
		"Aggregate enrolment totals per date and derive growth statistics: average/peak/lowest daily growth, trend direction over the trailing periods, peak day, anomalous days by IQR fence, weekly and monthly aggregates.",
		func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (metrics.TemporalMetrics, error) {
			return metrics.ComputeTemporal(enrol, res)
		},
		func(out metrics.TemporalMetrics) string {
			return fmt.Sprintf("avg_growth=%.2f%% trend=%s peak_day=%s", out.AvgGrowthRate, out.TrendDirection, out.PeakDay)
		})

	registerMetricTool(s, reg, mgr, settings, "geographic_metrics",
		"Compute state-level distribution shares, Herfindahl concentration index (0-10000), Gini coefficient, top-state and top-5/top-10 shares, and the top districts.",
		func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (metrics.GeographicMetrics, error) {
			return metrics.ComputeGeographic(enrol, res)
		},
		func(out metrics.GeographicMetrics) string {
			return fmt.Sprintf("hhi=%.0f concentration=%s top_state=%s states=%d", out.HerfindahlIndex, out.ConcentrationLevel, out.TopState, out.NumStates)
		})

	registerMetricTool(s, reg, mgr, settings, "demographic_metrics",
		"Sum age-bucket columns and derive the Simpson diversity index, Shannon entropy, dominant bucket, and the gender split when a gender column resolves.",
		func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (metrics.DemographicMetrics, error) {
			return metrics.ComputeDemographic(enrol, res)
		},
		func(out metrics.DemographicMetrics) string {
			return fmt.Sprintf("diversity=%.3f dominant=%s buckets=%d", out.AgeDiversityIndex, out.DominantAge, len(out.AgeGroups))
		})

	registerMetricTool(s, reg, mgr, settings, "quality_metrics",
		"Report overall and per-column completeness, duplicate rows, zero-enrollment rows, per-column IQR outlier flags, and a quality status band.",
		func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (metrics.QualityMetrics, error) {
			return metrics.ComputeQuality(enrol), nil
		},
		func(out metrics.QualityMetrics) string {
			return fmt.Sprintf("completeness=%.1f%% status=%s issues=%d", out.OverallCompleteness, out.Status, out.Issues.TotalIssues)
		})

	registerMetricTool(s, reg, mgr, settings, "biometric_metrics",
		"Report biometric capture coverage per age-band column, computed over the biometric extract when loaded and the filtered enrolment table otherwise.",
		func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (metrics.BiometricMetrics, error) {
			t := b.Biometric
			if t == nil {
				t = enrol
			}
			return metrics.ComputeBiometric(t)
		},
		func(out metrics.BiometricMetrics) string {
			return fmt.Sprintf("columns=%d avg_coverage=%.1f%%", len(out.Columns), out.AvgCoverage)
		})

	registerMetricTool(s, reg, mgr, settings, "update_metrics",
		"Relate biometric and demographic update volumes to enrolment volume: absolute counts, ratios, and percentages. Missing extracts contribute zero.",
		func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (metrics.UpdateMetrics, error) {
			return metrics.ComputeUpdate(enrol, b.Biometric, b.Demographic), nil
		},
		func(out metrics.UpdateMetrics) string {
			return fmt.Sprintf("enrolments=%d bio_ratio=%.2f demo_ratio=%.2f", out.TotalEnrollments, out.BiometricToEnrolRatio, out.DemographicToEnrolRatio)
		})

	registerMetricTool(s, reg, mgr, settings, "trend_metrics",
		"Detect structural breaks in daily growth (2 and 3 standard deviation fences), growth volatility, and the coefficient of variation with a High/Medium/Low band.",
		func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (metrics.TrendMetrics, error) {
			return metrics.ComputeTrend(enrol, res)
		},
		func(out metrics.TrendMetrics) string {
			return fmt.Sprintf("volatility=%s cv=%.3f breakpoints=%d", out.VolatilityLevel, out.CoefficientOfVariation, len(out.Breakpoints))
		})

	registerInsightsTool(s, reg, mgr, settings)
}

// registerMetricTool wires one family tool with the shared filter input and a
// family-specific output schema.
func registerMetricTool[T any](
	s *server.MCPServer,
	reg *Registry,
	mgr *datasets.Manager,
	settings *config.Settings,
	name, description string,
	compute func(b *datasets.Bundle, enrol *datasets.Table, res schema.Resolution) (T, error),
	summarize func(T) string,
) {
	tool := mcp.NewTool(
		name,
		mcp.WithDescription(description),
		mcp.WithInputSchema[MetricsInput](),
		mcp.WithOutputSchema[T](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in MetricsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return toolerr.FromText(msg), nil
		}
		filter, errRes := parseFilter(in)
		if errRes != nil {
			return errRes, nil
		}

		var out T
		err := mgr.WithRead(in.DatasetID, func(b *datasets.Bundle) error {
			enrol, res, err := metrics.Prepare(b.Enrolment, settings.Columns, filter)
			if err != nil {
				return err
			}
			out, err = compute(b, enrol, res)
			return err
		})
		if errRes := mapMetricError(err, in.DatasetID); errRes != nil {
			return errRes, nil
		}

		summary := summarize(out)
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

// registerInsightsTool wires generate_insights, which runs every metric family and
// renders the rule-based insight cards, recommendations, and summary counts.
func registerInsightsTool(s *server.MCPServer, reg *Registry, mgr *datasets.Manager, settings *config.Settings) {
	tool := mcp.NewTool(
		"generate_insights",
		mcp.WithDescription("Run all metric families over the filtered bundle and produce plain-language insight cards in fixed priority order, derived recommendations (critical and warning actions first, capped at ten), per-severity counts, and a dashboard status banner. Cards for absent inputs (gender, biometric) are skipped; degraded families keep their card with zero-value defaults."),
		mcp.WithInputSchema[MetricsInput](),
		mcp.WithOutputSchema[insights.Export](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in MetricsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return toolerr.FromText(msg), nil
		}
		filter, errRes := parseFilter(in)
		if errRes != nil {
			return errRes, nil
		}

		var analysis *insights.Analysis
		err := mgr.WithRead(in.DatasetID, func(b *datasets.Bundle) error {
			rep, err := metrics.Compute(b, settings.Columns, filter)
			if err != nil {
				return err
			}
			analysis = insights.Generate(rep)
			return nil
		})
		if errRes := mapMetricError(err, in.DatasetID); errRes != nil {
			return errRes, nil
		}

		banner := analysis.Banner()
		summary := fmt.Sprintf("%s (positive=%d warning=%d critical=%d)", banner.Status, banner.Positive, banner.Warning, banner.Critical)
		res := mcp.NewToolResultStructured(analysis.ToExport(), summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

// parseFilter converts the wire filter to a metrics.Filter. Date formats were
// already validated by tag.
func parseFilter(in MetricsInput) (metrics.Filter, *mcp.CallToolResult) {
	f := metrics.Filter{States: in.States}
	if in.From != "" {
		d, ok := datasets.ParseDate(in.From)
		if !ok {
			return f, toolerr.Wrapf(toolerr.Validation, "from must be DD-MM-YYYY, got %q", in.From)
		}
		f.From = d
	}
	if in.To != "" {
		d, ok := datasets.ParseDate(in.To)
		if !ok {
			return f, toolerr.Wrapf(toolerr.Validation, "to must be DD-MM-YYYY, got %q", in.To)
		}
		f.To = d
	}
	return f, nil
}

// mapMetricError converts compute errors into canonical tool errors.
func mapMetricError(err error, datasetID string) *mcp.CallToolResult {
	if err == nil {
		return nil
	}
	var roleErr *schema.RoleError
	switch {
	case errors.Is(err, datasets.ErrHandleNotFound):
		return toolerr.Wrapf(toolerr.InvalidHandle, "unknown dataset handle %s", datasetID)
	case errors.As(err, &roleErr):
		return toolerr.Wrapf(toolerr.Validation, "%v", roleErr)
	case errors.Is(err, metrics.ErrInsufficientData):
		return toolerr.Wrapf(toolerr.InsufficientData, "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return toolerr.New(toolerr.Timeout, "")
	default:
		return toolerr.Wrapf(toolerr.AnalysisFailed, "%v", err)
	}
}
