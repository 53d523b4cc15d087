package metrics

import (
	"fmt"
	"sort"

	"enrolsight/config"
	"enrolsight/internal/datasets"
	"enrolsight/internal/schema"
)

// Concentration labels for GeographicMetrics.ConcentrationLevel.
const (
	ConcentrationHigh     = "High"
	ConcentrationModerate = "Moderate"
	ConcentrationLow      = "Low"
)

// HHI bands over percentage shares (index range 0..10000).
const (
	hhiHighThreshold     = 2500.0
	hhiModerateThreshold = 2000.0
)

// GeographicMetrics describes how enrollment distributes across states and
// districts.
type GeographicMetrics struct {
	HerfindahlIndex    float64         `json:"herfindahl_index"`
	GiniCoefficient    float64         `json:"gini_coefficient"`
	ConcentrationLevel string          `json:"concentration_level"`
	TopState           string          `json:"top_state"`
	TopStatePercentage float64         `json:"top_state_percentage"`
	Top5StatesShare    float64         `json:"top_5_states_share"`
	Top10StatesShare   float64         `json:"top_10_states_share"`
	NumStates          int             `json:"num_states"`
	States             []RegionShare   `json:"state_distribution"`
	Districts          []DistrictTotal `json:"district_distribution,omitempty"`
}

// RegionShare is one region's total and percentage of the grand total.
type RegionShare struct {
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

// DistrictTotal is one district's enrollment sum.
type DistrictTotal struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// ComputeGeographic aggregates totals per state, derives percentage shares, and
// computes the Herfindahl and Gini concentration measures over those shares.
// A zero grand total yields all-zero shares rather than division artifacts.
func ComputeGeographic(t *datasets.Table, res schema.Resolution) (GeographicMetrics, error) {
	out := GeographicMetrics{ConcentrationLevel: ConcentrationLow}
	stateCol := t.ColumnIndex(res.State)
	totalCol := t.ColumnIndex(res.EnrolTotal)
	if stateCol < 0 || totalCol < 0 {
		return out, fmt.Errorf("geographic: state or total column unresolved: %w", ErrInsufficientData)
	}

	totals := groupSum(t, stateCol, totalCol)
	if len(totals) == 0 {
		return out, fmt.Errorf("geographic: no state groups: %w", ErrInsufficientData)
	}

	var grand float64
	for _, v := range totals {
		grand += v
	}

	shares := make([]RegionShare, 0, len(totals))
	for name, v := range totals {
		pct := 0.0
		if grand > 0 {
			pct = v / grand * 100
		}
		shares = append(shares, RegionShare{Name: name, Total: v, Percentage: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percentage != shares[j].Percentage {
			return shares[i].Percentage > shares[j].Percentage
		}
		return shares[i].Name < shares[j].Name
	})

	pct := make([]float64, len(shares))
	for i, s := range shares {
		pct[i] = s.Percentage
	}

	out.HerfindahlIndex = herfindahl(pct)
	out.GiniCoefficient = gini(pct)
	out.ConcentrationLevel = classifyConcentration(out.HerfindahlIndex)
	out.TopState = shares[0].Name
	out.TopStatePercentage = shares[0].Percentage
	out.Top5StatesShare = shareOfTop(pct, 5)
	out.Top10StatesShare = shareOfTop(pct, 10)
	out.NumStates = len(shares)

	out.States = make([]RegionShare, len(shares))
	for i, s := range shares {
		s.Percentage = round2(s.Percentage)
		out.States[i] = s
	}

	if districtCol := t.ColumnIndex(res.District); districtCol >= 0 {
		out.Districts = topDistricts(groupSum(t, districtCol, totalCol), config.DefaultDistrictTopN)
	}
	return out, nil
}

// herfindahl sums squared percentage shares; insensitive to ordering.
func herfindahl(shares []float64) float64 {
	var h float64
	for _, s := range shares {
		h += s * s
	}
	return h
}

// gini computes the Gini coefficient over shares via the sorted rank formula.
func gini(shares []float64) float64 {
	n := len(shares)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, shares)
	sort.Float64s(sorted)
	var sum, weighted float64
	for i, s := range sorted {
		sum += s
		weighted += float64(i+1) * s
	}
	if sum == 0 {
		return 0
	}
	return 2*weighted/(float64(n)*sum) - float64(n+1)/float64(n)
}

func classifyConcentration(hhi float64) string {
	switch {
	case hhi > hhiHighThreshold:
		return ConcentrationHigh
	case hhi > hhiModerateThreshold:
		return ConcentrationModerate
	default:
		return ConcentrationLow
	}
}

func shareOfTop(sortedDesc []float64, k int) float64 {
	if k > len(sortedDesc) {
		k = len(sortedDesc)
	}
	var sum float64
	for _, s := range sortedDesc[:k] {
		sum += s
	}
	return sum
}

func topDistricts(totals map[string]float64, limit int) []DistrictTotal {
	out := make([]DistrictTotal, 0, len(totals))
	for name, v := range totals {
		out = append(out, DistrictTotal{Name: name, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// groupSum sums the value column per distinct key in the key column. Rows with an
// empty key are skipped; unparseable values contribute zero.
func groupSum(t *datasets.Table, keyCol, valCol int) map[string]float64 {
	acc := map[string]float64{}
	for r := range t.Rows {
		key := t.Cell(r, keyCol)
		if key == "" {
			continue
		}
		v, _ := t.Float(r, valCol)
		acc[key] += v
	}
	return acc
}
