package datasets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return &Table{
		Name:    TableEnrolment,
		Columns: []string{"date", "state", "district", "total"},
		Rows: [][]string{
			{"01-01-2025", "Kerala", "Ernakulam", "120"},
			{"02-01-2025", "Kerala", "Kollam", "80"},
			{"03-01-2025", "Bihar", "Patna", "310"},
			{"bad-date", "Bihar", "Gaya", "55"},
		},
	}
}

func TestParseFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 3.5 ", 3.5, true},
		{"1,234", 1234, true},
		{"$2,500", 2500, true},
		{"35%", 0.35, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseFloat(c.in)
		require.Equal(t, c.ok, ok, "input %q", c.in)
		if ok {
			require.InDelta(t, c.want, got, 1e-9, "input %q", c.in)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("31-01-2025")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), d)

	_, ok = ParseDate("2025-01-31")
	require.False(t, ok)
	_, ok = ParseDate("")
	require.False(t, ok)
}

func TestColumnIndexCaseInsensitive(t *testing.T) {
	tab := sampleTable()
	require.Equal(t, 1, tab.ColumnIndex("State"))
	require.Equal(t, 3, tab.ColumnIndex("TOTAL"))
	require.Equal(t, -1, tab.ColumnIndex("missing"))
}

func TestCellOutOfBounds(t *testing.T) {
	tab := sampleTable()
	require.Equal(t, "", tab.Cell(-1, 0))
	require.Equal(t, "", tab.Cell(0, 99))
	require.Equal(t, "", tab.Cell(99, 0))
	require.Equal(t, "Kerala", tab.Cell(0, 1))
}

func TestFilteredByState(t *testing.T) {
	tab := sampleTable()
	got := tab.Filtered(1, []string{"kerala"}, -1, time.Time{}, time.Time{})
	require.Len(t, got.Rows, 2)
	for r := range got.Rows {
		require.Equal(t, "Kerala", got.Cell(r, 1))
	}
}

func TestFilteredByDateDropsUnparseable(t *testing.T) {
	tab := sampleTable()
	from := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	got := tab.Filtered(-1, nil, 0, from, time.Time{})
	// The bad-date row is dropped once a date bound is active.
	require.Len(t, got.Rows, 2)
	require.Equal(t, "02-01-2025", got.Cell(0, 0))
	require.Equal(t, "03-01-2025", got.Cell(1, 0))
}

func TestFilteredInactiveCriteria(t *testing.T) {
	tab := sampleTable()
	got := tab.Filtered(-1, []string{"kerala"}, -1, time.Time{}, time.Time{})
	// Unresolved columns leave both criteria inactive, including the bad-date row.
	require.Len(t, got.Rows, 4)
}

func TestSortedNumericDescending(t *testing.T) {
	tab := sampleTable()
	got := tab.Sorted(3, false)
	require.Equal(t, "310", got.Cell(0, 3))
	require.Equal(t, "120", got.Cell(1, 3))
	require.Equal(t, "55", got.Cell(3, 3))
	// Original is untouched.
	require.Equal(t, "120", tab.Cell(0, 3))
}

func TestSortedStringFallback(t *testing.T) {
	tab := sampleTable()
	got := tab.Sorted(1, true)
	require.Equal(t, "Bihar", got.Cell(0, 1))
	require.Equal(t, "Kerala", got.Cell(3, 1))
}

func TestProject(t *testing.T) {
	tab := sampleTable()
	got := tab.Project([]string{"total", "state", "missing"})
	require.Equal(t, []string{"total", "state"}, got.Columns)
	require.Len(t, got.Rows, 4)
	require.Equal(t, "120", got.Cell(0, 0))
	require.Equal(t, "Kerala", got.Cell(0, 1))
}

func TestNumericColumns(t *testing.T) {
	tab := &Table{
		Columns: []string{"state", "total", "mixed", "empty"},
		Rows: [][]string{
			{"Kerala", "10", "5", ""},
			{"Bihar", "20", "x", ""},
			{"Assam", "30", "y", ""},
		},
	}
	// "mixed" has one numeric vs two text cells so it stays non-numeric.
	require.Equal(t, []int{1}, tab.NumericColumns())
}
