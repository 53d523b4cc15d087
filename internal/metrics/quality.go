package metrics

import (
	"strings"

	"enrolsight/internal/datasets"
)

// Quality status labels keyed off overall completeness.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityModerate  = "Moderate"
	QualityPoor      = "Poor"
)

// QualityMetrics summarizes completeness and structural issues of the enrolment
// table. OutlierFlags counts per-column outlier flags, so one row outlying in two
// columns contributes two.
type QualityMetrics struct {
	OverallCompleteness float64              `json:"overall_completeness"`
	NullPercentage      float64              `json:"null_percentage"`
	Columns             []ColumnCompleteness `json:"column_completeness"`
	Issues              QualityIssues        `json:"issues"`
	TotalRecords        int                  `json:"total_records"`
	Status              string               `json:"status"`
}

// ColumnCompleteness is one column's share of non-empty cells.
type ColumnCompleteness struct {
	Column       string  `json:"column"`
	Completeness float64 `json:"completeness"`
}

// QualityIssues itemizes detected problems.
type QualityIssues struct {
	DuplicateRecords      int `json:"duplicate_records"`
	ZeroEnrollmentRecords int `json:"zero_enrollment_records"`
	OutlierFlags          int `json:"outlier_flags"`
	TotalIssues           int `json:"total_issues"`
}

// ComputeQuality never degrades: an empty table reports zero completeness and
// Poor status.
func ComputeQuality(t *datasets.Table) QualityMetrics {
	out := QualityMetrics{Status: QualityPoor, TotalRecords: t.NumRows()}
	rows, cols := t.NumRows(), len(t.Columns)
	if rows == 0 || cols == 0 {
		return out
	}

	filled := 0
	perCol := make([]int, cols)
	for r := range t.Rows {
		for c := 0; c < cols; c++ {
			if t.Cell(r, c) != "" {
				filled++
				perCol[c]++
			}
		}
	}
	out.OverallCompleteness = float64(filled) / float64(rows*cols) * 100
	out.NullPercentage = 100 - out.OverallCompleteness
	out.Columns = make([]ColumnCompleteness, cols)
	for c, name := range t.Columns {
		out.Columns[c] = ColumnCompleteness{
			Column:       name,
			Completeness: float64(perCol[c]) / float64(rows) * 100,
		}
	}

	numeric := t.NumericColumns()
	out.Issues.DuplicateRecords = duplicateRows(t)
	out.Issues.ZeroEnrollmentRecords = zeroRows(t, numeric)
	out.Issues.OutlierFlags = outlierFlags(t, numeric)
	out.Issues.TotalIssues = out.Issues.DuplicateRecords +
		out.Issues.ZeroEnrollmentRecords + out.Issues.OutlierFlags
	out.Status = classifyQuality(out.OverallCompleteness)
	return out
}

func classifyQuality(completeness float64) string {
	switch {
	case completeness >= 95:
		return QualityExcellent
	case completeness >= 90:
		return QualityGood
	case completeness >= 80:
		return QualityModerate
	default:
		return QualityPoor
	}
}

// duplicateRows counts rows identical to an earlier row, keeping the first
// occurrence unflagged.
func duplicateRows(t *datasets.Table) int {
	seen := make(map[string]struct{}, t.NumRows())
	dups := 0
	for _, row := range t.Rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// zeroRows counts rows whose numeric columns sum to zero. Unparseable cells
// contribute nothing, so a fully blank numeric row counts.
func zeroRows(t *datasets.Table, numeric []int) int {
	if len(numeric) == 0 {
		return 0
	}
	count := 0
	for r := range t.Rows {
		var sum float64
		for _, c := range numeric {
			v, _ := t.Float(r, c)
			sum += v
		}
		if sum == 0 {
			count++
		}
	}
	return count
}

// outlierFlags applies the 1.5*IQR fence per numeric column over its parseable
// values and sums the flags across columns without deduplicating rows.
func outlierFlags(t *datasets.Table, numeric []int) int {
	flags := 0
	for _, c := range numeric {
		var vals []float64
		for r := range t.Rows {
			if v, ok := t.Float(r, c); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) < 4 {
			continue
		}
		q1 := quantile(vals, 0.25)
		q3 := quantile(vals, 0.75)
		iqr := q3 - q1
		lo, hi := q1-1.5*iqr, q3+1.5*iqr
		for _, v := range vals {
			if v < lo || v > hi {
				flags++
			}
		}
	}
	return flags
}
