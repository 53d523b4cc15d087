package datasets

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout matches the extract date format (DD-MM-YYYY).
const DateLayout = "02-01-2006"

// Table is an ordered, in-memory tabular dataset. Cells are kept as trimmed strings;
// numeric and date access goes through strict parsing so that a stray text value in a
// numeric column degrades to "not a number" rather than poisoning an aggregate.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of an exact (case-insensitive) column name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, col), or "" when out of bounds.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Float parses the cell at (row, col) as a number.
func (t *Table) Float(row, col int) (float64, bool) {
	return ParseFloat(t.Cell(row, col))
}

// Date parses the cell at (row, col) using the extract date layout.
func (t *Table) Date(row, col int) (time.Time, bool) {
	return ParseDate(t.Cell(row, col))
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumericColumns returns the indices of columns where at least one cell parses as a
// number and numeric cells are the dominant non-empty kind.
func (t *Table) NumericColumns() []int {
	var out []int
	for c := range t.Columns {
		num, text := 0, 0
		for r := range t.Rows {
			s := t.Cell(r, c)
			if s == "" {
				continue
			}
			if _, ok := ParseFloat(s); ok {
				num++
			} else {
				text++
			}
		}
		if num > 0 && num >= text {
			out = append(out, c)
		}
	}
	return out
}

// Filtered returns a copy restricted to rows matching the state set and date range.
// Empty states or an unresolved column (-1) leaves that criterion inactive; a zero
// From/To leaves the range unbounded on that side. Rows whose date cell does not
// parse are dropped only when a date bound is active.
func (t *Table) Filtered(stateCol int, states []string, dateCol int, from, to time.Time) *Table {
	stateSet := map[string]struct{}{}
	for _, s := range states {
		stateSet[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	useStates := stateCol >= 0 && len(stateSet) > 0
	useDates := dateCol >= 0 && (!from.IsZero() || !to.IsZero())

	out := &Table{Name: t.Name, Columns: t.Columns}
	for r := range t.Rows {
		if useStates {
			if _, ok := stateSet[strings.ToLower(strings.TrimSpace(t.Cell(r, stateCol)))]; !ok {
				continue
			}
		}
		if useDates {
			d, ok := t.Date(r, dateCol)
			if !ok {
				continue
			}
			if !from.IsZero() && d.Before(from) {
				continue
			}
			if !to.IsZero() && d.After(to) {
				continue
			}
		}
		out.Rows = append(out.Rows, t.Rows[r])
	}
	return out
}

// Sorted returns a copy ordered by the given column. Numeric cells compare
// numerically; everything else falls back to case-insensitive string order.
func (t *Table) Sorted(col int, ascending bool) *Table {
	out := &Table{Name: t.Name, Columns: t.Columns, Rows: make([][]string, len(t.Rows))}
	copy(out.Rows, t.Rows)
	if col < 0 || col >= len(t.Columns) {
		return out
	}
	less := func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		var av, bv string
		if col < len(a) {
			av = a[col]
		}
		if col < len(b) {
			bv = b[col]
		}
		af, aok := ParseFloat(av)
		bf, bok := ParseFloat(bv)
		if aok && bok {
			if ascending {
				return af < bf
			}
			return af > bf
		}
		if ascending {
			return strings.ToLower(av) < strings.ToLower(bv)
		}
		return strings.ToLower(av) > strings.ToLower(bv)
	}
	sort.SliceStable(out.Rows, less)
	return out
}

// Project returns a copy restricted to the named columns, in the given order.
// Unknown names are skipped.
func (t *Table) Project(names []string) *Table {
	var idx []int
	out := &Table{Name: t.Name}
	for _, n := range names {
		if i := t.ColumnIndex(n); i >= 0 {
			idx = append(idx, i)
			out.Columns = append(out.Columns, t.Columns[i])
		}
	}
	for r := range t.Rows {
		row := make([]string, len(idx))
		for k, i := range idx {
			row[k] = t.Cell(r, i)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// ParseFloat parses a cell as a number, tolerating thousands separators, currency
// prefixes, and percent suffixes (percent values are scaled to fractions).
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$':
			return -1
		default:
			return r
		}
	}, s)
	if strings.HasSuffix(clean, "%") {
		v := strings.TrimSpace(strings.TrimSuffix(clean, "%"))
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f / 100.0, true
		}
		return 0, false
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate parses a DD-MM-YYYY cell.
func ParseDate(s string) (time.Time, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
