package intel

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/calibration"
	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/profiler"
)

// Store is the persistence boundary Engine relies on.
type Store interface {
	InsertAnomaly(a Anomaly) error
	InsertIntent(i Intent) error
	InsertThreat(t Threat) error
}

// Calibrator is the slice of the calibration service the engine
// consults: adaptive accept thresholds plus Platt score calibration.
type Calibrator interface {
	Apply(taskType, name string, score float64) (calibration.Decision, error)
	Calibrate(taskType string, raw float64) (float64, error)
}

// Engine turns component outputs into persisted intelligence records.
type Engine struct {
	store      Store
	calibrator Calibrator
	cfg        *config.TuningConfig
}

func NewEngine(store Store, calibrator Calibrator, cfg *config.TuningConfig) *Engine {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Engine{store: store, calibrator: calibrator, cfg: cfg}
}

const taskAnomaly = "anomaly"

// anomalyFactors names the explainability factors attached to each
// anomaly type.
var anomalyFactors = map[string][]string{
	"altitude": {"altitude_deviation"},
	"speed":    {"speed_deviation"},
	"pattern":  {"unusual_pattern"},
	"region":   {"unusual_region"},
	"time":     {"unusual_time"},
	"track":    {"erratic_track"},
}

// DetectAnomalies filters raw profile deviations through the per-type
// adaptive threshold, calibrates the surviving severities, and
// persists each accepted anomaly with its explainability factors.
func (e *Engine) DetectAnomalies(hex string, deviations []profiler.Deviation, now time.Time) ([]Anomaly, error) {
	var out []Anomaly
	for _, dev := range deviations {
		decision, err := e.calibrator.Apply(taskAnomaly, dev.Type, dev.Severity)
		if err != nil {
			return out, err
		}
		if !decision.Exceeds {
			continue
		}
		severity, err := e.calibrator.Calibrate(taskAnomaly, dev.Severity)
		if err != nil {
			return out, err
		}

		a := Anomaly{
			ID:         uuid.NewString(),
			Hex:        hex,
			Type:       dev.Type,
			Severity:   severity,
			Detected:   map[string]float64{"value": dev.Detected},
			Expected:   map[string]float64{"value": dev.Expected},
			DetectedAt: now,
		}
		for _, name := range anomalyFactors[dev.Type] {
			a.Factors = append(a.Factors, Factor{Name: name, Weight: 1, Value: severity})
		}
		if err := e.store.InsertAnomaly(a); err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

// RecordIntent persists one intent classification.
func (e *Engine) RecordIntent(i Intent) (Intent, error) {
	i.ID = uuid.NewString()
	if err := e.store.InsertIntent(i); err != nil {
		return Intent{}, err
	}
	return i, nil
}

// AssessThreat combines the six weighted components into a composite
// score with an explanation, and persists the assessment with the
// configured validity window.
func (e *Engine) AssessThreat(entityType, entityID string, c ThreatComponents, now time.Time) (Threat, error) {
	weights := []Factor{
		{Name: "pattern_anomaly", Weight: e.cfg.GetThreatWeightPatternAnomaly(), Value: c.PatternAnomaly},
		{Name: "regional_tension", Weight: e.cfg.GetThreatWeightRegionalTension(), Value: c.RegionalTension},
		{Name: "news_correlation", Weight: e.cfg.GetThreatWeightNewsCorrelation(), Value: c.NewsCorrelation},
		{Name: "historical_context", Weight: e.cfg.GetThreatWeightHistoricalContext(), Value: c.HistoricalContext},
		{Name: "formation_activity", Weight: e.cfg.GetThreatWeightFormationActivity(), Value: c.FormationActivity},
		{Name: "location_context", Weight: e.cfg.GetThreatWeightLocationContext(), Value: c.LocationContext},
	}

	var score float64
	for _, f := range weights {
		score += f.Weight * f.Value
	}

	validity := time.Duration(e.cfg.GetThreatAssessmentValidityHours() * float64(time.Hour))
	t := Threat{
		ID:          uuid.NewString(),
		EntityType:  entityType,
		EntityID:    entityID,
		Score:       score,
		Level:       ThreatLevel(score),
		Components:  c,
		Explanation: explainThreat(weights, score),
		CreatedAt:   now,
		ExpiresAt:   now.Add(validity),
	}
	if err := e.store.InsertThreat(t); err != nil {
		return Threat{}, err
	}
	return t, nil
}

// explainThreat ranks contributions (weight × value) and writes a
// short summary naming the dominant drivers.
func explainThreat(factors []Factor, score float64) Explanation {
	ranked := make([]Factor, len(factors))
	copy(ranked, factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight*ranked[i].Value > ranked[j].Weight*ranked[j].Value
	})

	var top []string
	for _, f := range ranked {
		if f.Weight*f.Value > 0 && len(top) < 3 {
			top = append(top, f.Name)
		}
	}

	summary := fmt.Sprintf("composite threat %.2f (%s)", score, ThreatLevel(score))
	if len(top) > 0 {
		summary += ", driven by " + joinNames(top)
	}
	return Explanation{Factors: factors, TopFeatures: top, Summary: summary}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
