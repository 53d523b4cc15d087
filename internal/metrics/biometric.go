package metrics

import (
	"fmt"

	"enrolsight/internal/datasets"
	"enrolsight/internal/schema"
)

// BiometricMetrics reports per-column biometric capture coverage. Percentage is
// the column sum relative to the table's row count, so it can exceed 100 when a
// cell aggregates multiple captures.
type BiometricMetrics struct {
	Columns     []BioCoverage `json:"columns"`
	AvgCoverage float64       `json:"avg_coverage"`
}

// BioCoverage is one biometric age-band column's totals.
type BioCoverage struct {
	Column     string  `json:"column"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ComputeBiometric resolves biometric age-band columns on the given table, which
// is the biometric extract when loaded and the filtered enrolment table otherwise.
func ComputeBiometric(t *datasets.Table) (BiometricMetrics, error) {
	var out BiometricMetrics
	res := schema.Resolve(t.Columns)
	if len(res.BioAgeColumns) == 0 {
		return out, fmt.Errorf("biometric: no biometric columns resolved: %w", ErrInsufficientData)
	}
	rows := float64(t.NumRows())
	var pctSum float64
	for _, name := range res.BioAgeColumns {
		col := t.ColumnIndex(name)
		if col < 0 {
			continue
		}
		var sum float64
		for r := range t.Rows {
			v, _ := t.Float(r, col)
			sum += v
		}
		pct := 0.0
		if rows > 0 {
			pct = sum / rows * 100
		}
		out.Columns = append(out.Columns, BioCoverage{Column: name, Total: sum, Percentage: pct})
		pctSum += pct
	}
	if len(out.Columns) == 0 {
		return out, fmt.Errorf("biometric: no biometric columns present: %w", ErrInsufficientData)
	}
	out.AvgCoverage = pctSum / float64(len(out.Columns))
	return out, nil
}
