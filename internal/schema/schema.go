package schema

import (
	"fmt"
	"strings"
)

// Role names the semantic meaning of a column within a tabular extract.
type Role string

const (
	RoleDate     Role = "date"
	RoleState    Role = "state"
	RoleDistrict Role = "district"
	RoleTotal    Role = "total"
	RoleGender   Role = "gender"
	RoleAge      Role = "age"
	RoleBioAge   Role = "bioage"
)

// RoleError reports a role that could not be mapped to a column. It only arises in
// explicit-mapping mode; heuristic resolution degrades to an unresolved role instead.
type RoleError struct {
	Role   Role
	Column string
}

func (e *RoleError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema: role %q mapped to missing column %q", e.Role, e.Column)
	}
	return fmt.Sprintf("schema: role %q could not be resolved", e.Role)
}

// Resolution holds the resolved column per role. An empty name means the role is
// unresolved and metrics depending on it degrade to empty results. Ambiguous records
// every candidate when more than one column matched a keyword, so callers can
// surface diagnostics the match itself does not.
type Resolution struct {
	Date     string
	State    string
	District string
	Total    string
	Gender   string

	// EnrolTotal is the temporal-analysis variant: the first column containing
	// "total" or, failing that, "enrol". The other families use Total only.
	EnrolTotal string

	AgeColumns    []string
	BioAgeColumns []string

	Ambiguous map[Role][]string
}

// Resolve performs first-substring-match resolution over a column list: lowercased
// containment, first match wins, no error on a miss. "age" intentionally also
// matches "bioage" columns, so biometric bands count toward age composition.
func Resolve(columns []string) Resolution {
	res := Resolution{Ambiguous: map[Role][]string{}}

	res.Date = first(columns, "date", res.Ambiguous, RoleDate)
	res.State = first(columns, "state", res.Ambiguous, RoleState)
	res.District = first(columns, "district", res.Ambiguous, RoleDistrict)
	res.Total = first(columns, "total", res.Ambiguous, RoleTotal)
	res.Gender = first(columns, "gender", res.Ambiguous, RoleGender)

	res.EnrolTotal = res.Total
	if res.EnrolTotal == "" {
		res.EnrolTotal = first(columns, "enrol", nil, "")
	}

	for _, c := range columns {
		low := strings.ToLower(c)
		if strings.Contains(low, "bioage") {
			res.BioAgeColumns = append(res.BioAgeColumns, c)
		}
		if strings.Contains(low, "age") {
			res.AgeColumns = append(res.AgeColumns, c)
		}
	}
	return res
}

// ResolveExplicit starts from the heuristic resolution and overrides single-column
// roles from a validated configuration mapping. A mapped column that does not exist
// in the dataset yields a RoleError instead of silent degradation.
func ResolveExplicit(columns []string, mapping map[string]string) (Resolution, error) {
	res := Resolve(columns)
	for role, column := range mapping {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		if !contains(columns, column) {
			return res, &RoleError{Role: Role(strings.ToLower(role)), Column: column}
		}
		switch Role(strings.ToLower(role)) {
		case RoleDate:
			res.Date = column
		case RoleState:
			res.State = column
		case RoleDistrict:
			res.District = column
		case RoleTotal:
			res.Total = column
			res.EnrolTotal = column
		case RoleGender:
			res.Gender = column
		default:
			return res, &RoleError{Role: Role(strings.ToLower(role)), Column: column}
		}
	}
	return res, nil
}

// Unresolved lists the single-column roles with no match, for structure reporting.
func (r Resolution) Unresolved() []Role {
	var out []Role
	if r.Date == "" {
		out = append(out, RoleDate)
	}
	if r.State == "" {
		out = append(out, RoleState)
	}
	if r.District == "" {
		out = append(out, RoleDistrict)
	}
	if r.Total == "" {
		out = append(out, RoleTotal)
	}
	if r.Gender == "" {
		out = append(out, RoleGender)
	}
	if len(r.AgeColumns) == 0 {
		out = append(out, RoleAge)
	}
	if len(r.BioAgeColumns) == 0 {
		out = append(out, RoleBioAge)
	}
	return out
}

func first(columns []string, keyword string, ambiguous map[Role][]string, role Role) string {
	var matches []string
	for _, c := range columns {
		if strings.Contains(strings.ToLower(c), keyword) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	if len(matches) > 1 && ambiguous != nil {
		ambiguous[role] = matches
	}
	return matches[0]
}

func contains(columns []string, name string) bool {
	for _, c := range columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
