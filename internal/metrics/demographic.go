package metrics

import (
	"fmt"
	"math"
	"sort"

	"enrolsight/internal/datasets"
	"enrolsight/internal/schema"
)

// entropyEpsilon guards the logarithm for zero-probability buckets.
const entropyEpsilon = 1e-10

// DemographicMetrics describes the age-bucket composition and, when a gender
// column resolves, the gender split.
type DemographicMetrics struct {
	AgeDiversityIndex     float64        `json:"age_diversity_index"`
	Entropy               float64        `json:"entropy"`
	DominantAge           string         `json:"dominant_age_group"`
	DominantAgePercentage float64        `json:"dominant_age_percentage"`
	AgeGroups             []BucketShare  `json:"age_groups"`
	Gender                *GenderMetrics `json:"gender,omitempty"`
}

// BucketShare is one age bucket's total and its percentage of all buckets.
type BucketShare struct {
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

// GenderMetrics is the per-value breakdown of the gender column.
type GenderMetrics struct {
	Counts       []GenderCount `json:"counts"`
	BalanceRatio float64       `json:"balance_ratio"`
}

// GenderCount is one gender value's row count and share.
type GenderCount struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ComputeDemographic sums each age-bucket column, then derives the Simpson
// diversity index and Shannon entropy over the bucket fractions.
func ComputeDemographic(t *datasets.Table, res schema.Resolution) (DemographicMetrics, error) {
	var out DemographicMetrics
	if len(res.AgeColumns) == 0 {
		return out, fmt.Errorf("demographic: no age columns resolved: %w", ErrInsufficientData)
	}

	buckets := make([]BucketShare, 0, len(res.AgeColumns))
	var grand float64
	for _, name := range res.AgeColumns {
		col := t.ColumnIndex(name)
		if col < 0 {
			continue
		}
		var sum float64
		for r := range t.Rows {
			v, _ := t.Float(r, col)
			sum += v
		}
		buckets = append(buckets, BucketShare{Name: name, Total: sum})
		grand += sum
	}
	if len(buckets) == 0 {
		return out, fmt.Errorf("demographic: no age columns present: %w", ErrInsufficientData)
	}

	var simpson, entropy float64
	dominant := 0
	for i := range buckets {
		frac := 0.0
		if grand > 0 {
			frac = buckets[i].Total / grand
		}
		buckets[i].Percentage = frac * 100
		simpson += frac * frac
		entropy += frac * math.Log(frac+entropyEpsilon)
		if buckets[i].Total > buckets[dominant].Total {
			dominant = i
		}
	}

	out.AgeDiversityIndex = 1 - simpson
	out.Entropy = -entropy
	out.DominantAge = buckets[dominant].Name
	out.DominantAgePercentage = buckets[dominant].Percentage
	out.AgeGroups = buckets
	out.Gender = genderMetrics(t, res)
	return out, nil
}

// genderMetrics counts rows per distinct gender value. Returns nil when the
// gender column is unresolved so the insight layer can skip the card.
func genderMetrics(t *datasets.Table, res schema.Resolution) *GenderMetrics {
	col := t.ColumnIndex(res.Gender)
	if col < 0 {
		return nil
	}
	counts := map[string]int{}
	total := 0
	for r := range t.Rows {
		v := t.Cell(r, col)
		if v == "" {
			continue
		}
		counts[v]++
		total++
	}
	if total == 0 {
		return nil
	}
	out := &GenderMetrics{Counts: make([]GenderCount, 0, len(counts))}
	minCount, maxCount := math.MaxInt, 0
	for name, c := range counts {
		out.Counts = append(out.Counts, GenderCount{
			Name:       name,
			Count:      c,
			Percentage: float64(c) / float64(total) * 100,
		})
		if c < minCount {
			minCount = c
		}
		if c > maxCount {
			maxCount = c
		}
	}
	sort.Slice(out.Counts, func(i, j int) bool {
		if out.Counts[i].Count != out.Counts[j].Count {
			return out.Counts[i].Count > out.Counts[j].Count
		}
		return out.Counts[i].Name < out.Counts[j].Name
	})
	if minCount > 0 {
		out.BalanceRatio = float64(maxCount) / float64(minCount)
	}
	return out
}
