package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveHeuristics(t *testing.T) {
	cols := []string{"Date", "State Name", "District", "Total Enrolments", "Gender", "age_0_5", "age_5_18", "bioage_5_18"}
	res := Resolve(cols)

	require.Equal(t, "Date", res.Date)
	require.Equal(t, "State Name", res.State)
	require.Equal(t, "District", res.District)
	require.Equal(t, "Total Enrolments", res.Total)
	require.Equal(t, "Total Enrolments", res.EnrolTotal)
	require.Equal(t, "Gender", res.Gender)
	// "age" containment also catches the bioage column.
	require.Equal(t, []string{"age_0_5", "age_5_18", "bioage_5_18"}, res.AgeColumns)
	require.Equal(t, []string{"bioage_5_18"}, res.BioAgeColumns)
	require.Empty(t, res.Unresolved())
}

func TestResolveFirstMatchWinsAndRecordsAmbiguity(t *testing.T) {
	cols := []string{"state_code", "state_name", "date"}
	res := Resolve(cols)
	require.Equal(t, "state_code", res.State)
	require.Equal(t, []string{"state_code", "state_name"}, res.Ambiguous[RoleState])
	_, dateAmbiguous := res.Ambiguous[RoleDate]
	require.False(t, dateAmbiguous)
}

func TestResolveEnrolTotalFallback(t *testing.T) {
	res := Resolve([]string{"date", "state", "enrolments"})
	require.Equal(t, "", res.Total)
	require.Equal(t, "enrolments", res.EnrolTotal)
}

func TestResolveMissingRolesDegrade(t *testing.T) {
	res := Resolve([]string{"foo", "bar"})
	require.Equal(t, "", res.Date)
	require.Equal(t, "", res.Total)
	require.Len(t, res.Unresolved(), 7)
}

func TestResolveExplicitOverrides(t *testing.T) {
	cols := []string{"reg_date", "region", "count", "extra_date"}
	res, err := ResolveExplicit(cols, map[string]string{
		"date":  "reg_date",
		"state": "region",
		"total": "count",
	})
	require.NoError(t, err)
	require.Equal(t, "reg_date", res.Date)
	require.Equal(t, "region", res.State)
	require.Equal(t, "count", res.Total)
	require.Equal(t, "count", res.EnrolTotal)
}

func TestResolveExplicitMissingColumn(t *testing.T) {
	_, err := ResolveExplicit([]string{"date", "state"}, map[string]string{"total": "nope"})
	var re *RoleError
	require.ErrorAs(t, err, &re)
	require.Equal(t, RoleTotal, re.Role)
	require.Equal(t, "nope", re.Column)
}

func TestResolveExplicitUnknownRole(t *testing.T) {
	_, err := ResolveExplicit([]string{"date", "state"}, map[string]string{"altitude": "state"})
	var re *RoleError
	require.ErrorAs(t, err, &re)
	require.Equal(t, Role("altitude"), re.Role)
}

func TestResolveExplicitEmptyMappingIsHeuristic(t *testing.T) {
	cols := []string{"date", "state", "total"}
	res, err := ResolveExplicit(cols, map[string]string{"gender": " "})
	require.NoError(t, err)
	require.Equal(t, "date", res.Date)
	require.Equal(t, "", res.Gender)
}
