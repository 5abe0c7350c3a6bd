package formation

import (
	"math"
	"sort"
)

// Template is a known formation signature used by the pattern-library
// evaluator to score an arbitrary aircraft group without requiring it
// to match one of the hard-coded rules in formation.go.
type Template struct {
	Name             string
	ExpectedSpacing  float64 // nm
	MaxAltSpreadFt   float64
	MaxSpeedSpreadKt float64
	MaxHeadingStdDev float64 // degrees
	TypeCodes        []string
}

var Templates = []Template{
	{Name: TypeTankerReceiver, ExpectedSpacing: 3, MaxAltSpreadFt: 2000, MaxSpeedSpreadKt: 50, MaxHeadingStdDev: 20},
	{Name: TypeEscort, ExpectedSpacing: 8, MaxAltSpreadFt: 5000, MaxSpeedSpreadKt: 100, MaxHeadingStdDev: 30},
	{Name: TypeStrikePackage, ExpectedSpacing: 15, MaxAltSpreadFt: 8000, MaxSpeedSpreadKt: 150, MaxHeadingStdDev: 30},
	{Name: TypeCAP, ExpectedSpacing: 25, MaxAltSpreadFt: 10000, MaxSpeedSpreadKt: 150, MaxHeadingStdDev: 45},
}

// TemplateMatch is one template's score against a group.
type TemplateMatch struct {
	Template Template
	Score    float64
}

// RankAgainstTemplates scores an arbitrary group against every known
// formation template by comparing spacing, altitude spread, speed
// spread and heading variance. Template.TypeCodes is not consulted:
// the group's type codes do not affect the score. Returns matches
// sorted by descending score.
func RankAgainstTemplates(group []AircraftState) []TemplateMatch {
	if len(group) == 0 {
		return nil
	}
	spacing := meanPairwiseSpacing(group)
	altSpread := spreadOf(altitudes(group))
	speedSpread := spreadOf(speeds(group))
	headingStdDev := stdDevOf(headings(group))

	matches := make([]TemplateMatch, 0, len(Templates))
	for _, t := range Templates {
		score := 1.0
		score -= closeness(spacing, t.ExpectedSpacing, t.ExpectedSpacing)
		score -= closeness(altSpread, 0, t.MaxAltSpreadFt)
		score -= closeness(speedSpread, 0, t.MaxSpeedSpreadKt)
		score -= closeness(headingStdDev, 0, t.MaxHeadingStdDev)
		matches = append(matches, TemplateMatch{Template: t, Score: clamp01(score)})
	}
	sortMatchesDesc(matches)
	return matches
}

func closeness(observed, target, tolerance float64) float64 {
	if tolerance <= 0 {
		return 0
	}
	diff := math.Abs(observed - target)
	return clamp01(diff/tolerance) * 0.25
}

func meanPairwiseSpacing(group []AircraftState) float64 {
	if len(group) < 2 {
		return 0
	}
	var sum float64
	var count float64
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			sum += distanceNM(group[i], group[j])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}

func altitudes(group []AircraftState) []float64 {
	var out []float64
	for _, a := range group {
		if v, ok := altOf(a); ok {
			out = append(out, v)
		}
	}
	return out
}

func speeds(group []AircraftState) []float64 {
	var out []float64
	for _, a := range group {
		if a.GroundSpeedKts != nil {
			out = append(out, *a.GroundSpeedKts)
		}
	}
	return out
}

func headings(group []AircraftState) []float64 {
	var out []float64
	for _, a := range group {
		if v, ok := headingOf(a); ok {
			out = append(out, v)
		}
	}
	return out
}

func spreadOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

func stdDevOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func sortMatchesDesc(m []TemplateMatch) {
	sort.SliceStable(m, func(i, j int) bool { return m[i].Score > m[j].Score })
}
