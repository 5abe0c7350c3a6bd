// Package intel composes the pattern, profiler, formation and context
// layers into higher-order judgments: anomaly detections with
// explainability, heuristic intent classification, and weighted
// composite threat assessments.
package intel

import (
	"fmt"
	"sort"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/pattern"
)

// Anomaly is one detected departure from an aircraft's baseline,
// accepted past the adaptive threshold and calibrated.
type Anomaly struct {
	ID         string
	Hex        string
	Type       string
	Severity   float64
	Detected   map[string]float64
	Expected   map[string]float64
	Factors    []Factor
	DetectedAt time.Time
}

// Factor is one explainability component contributing to a judgment.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// Intent variants.
const (
	IntentRefueling    = "refueling"
	IntentSurveillance = "surveillance"
	IntentPatrol       = "patrol"
	IntentTraining     = "training"
	IntentTransit      = "transit"
)

// Intent is one heuristic intent classification with ranked
// alternatives.
type Intent struct {
	ID           string
	Hex          string
	Intent       string
	Confidence   float64
	Evidence     []string
	Alternatives []Alternative
	ClassifiedAt time.Time
}

// Alternative is a lower-ranked intent candidate.
type Alternative struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// ThreatComponents carries the six weighted inputs of a composite
// threat score, each in [0,1].
type ThreatComponents struct {
	PatternAnomaly    float64
	RegionalTension   float64
	NewsCorrelation   float64
	HistoricalContext float64
	FormationActivity float64
	LocationContext   float64
}

// Threat is one composite assessment of an entity.
type Threat struct {
	ID          string
	EntityType  string
	EntityID    string
	Score       float64
	Level       string
	Components  ThreatComponents
	Explanation Explanation
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Explanation carries the factors behind a judgment, the strongest
// contributors, and a short natural-language summary.
type Explanation struct {
	Factors     []Factor `json:"factors"`
	TopFeatures []string `json:"top_features"`
	Summary     string   `json:"summary"`
}

// ThreatLevel grades a composite score.
func ThreatLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "critical"
	case score >= 0.6:
		return "high"
	case score >= 0.4:
		return "elevated"
	case score >= 0.2:
		return "low"
	default:
		return "minimal"
	}
}

// NearbyAircraft is one aircraft near the subject, as consulted by the
// intent heuristics.
type NearbyAircraft struct {
	Hex        string
	Category   aircraft.MilitaryCategory
	DistanceNM float64
}

// ClassifyIntent runs the heuristic intent rules for one aircraft.
// The first matching rule wins; weaker matches are kept as ranked
// alternatives.
func ClassifyIntent(hex string, category aircraft.MilitaryCategory, detected pattern.Name, nearby []NearbyAircraft, now time.Time) Intent {
	type candidate struct {
		intent     string
		confidence float64
		evidence   string
	}
	var candidates []candidate

	if category == aircraft.CategoryTanker {
		receivers := 0
		for _, n := range nearby {
			if n.Category != aircraft.CategoryTanker && n.DistanceNM <= 10 {
				receivers++
			}
		}
		if receivers >= 1 {
			candidates = append(candidates, candidate{IntentRefueling, 0.8,
				fmt.Sprintf("tanker with %d receiver(s) within 10 nm", receivers)})
		}
	}

	inLoiterPattern := detected == pattern.Orbit || detected == pattern.Racetrack

	if (category == aircraft.CategoryISR || category == aircraft.CategoryAWACS) && inLoiterPattern {
		candidates = append(candidates, candidate{IntentSurveillance, 0.75,
			fmt.Sprintf("%s aircraft flying %s pattern", category, detected)})
	}

	if category == aircraft.CategoryFighter && inLoiterPattern {
		candidates = append(candidates, candidate{IntentPatrol, 0.6,
			fmt.Sprintf("fighter flying %s pattern", detected)})
	}

	if category == aircraft.CategoryTrainer {
		candidates = append(candidates, candidate{IntentTraining, 0.7, "trainer type aircraft"})
	}

	if detected == pattern.Holding && len(candidates) == 0 {
		candidates = append(candidates, candidate{IntentPatrol, 0.55, "holding pattern without a stronger signal"})
	}

	if len(candidates) == 0 {
		candidates = append(candidates, candidate{IntentTransit, 0.5, "no loiter or refueling signal"})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	out := Intent{
		Hex:          hex,
		Intent:       candidates[0].intent,
		Confidence:   candidates[0].confidence,
		Evidence:     []string{candidates[0].evidence},
		ClassifiedAt: now,
	}
	for _, c := range candidates[1:] {
		out.Alternatives = append(out.Alternatives, Alternative{Intent: c.intent, Confidence: c.confidence})
	}
	return out
}
