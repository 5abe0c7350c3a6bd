package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/calibration"
	"github.com/skywatch-oss/fusion-engine/internal/pattern"
	"github.com/skywatch-oss/fusion-engine/internal/profiler"
)

var intelNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestThreatLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "critical", ThreatLevel(0.85))
	assert.Equal(t, "high", ThreatLevel(0.6))
	assert.Equal(t, "elevated", ThreatLevel(0.45))
	assert.Equal(t, "low", ThreatLevel(0.25))
	assert.Equal(t, "minimal", ThreatLevel(0.1))
}

func TestClassifyIntent_TankerRefueling(t *testing.T) {
	t.Parallel()

	nearby := []NearbyAircraft{
		{Hex: "AE0002", Category: aircraft.CategoryFighter, DistanceNM: 3},
	}
	i := ClassifyIntent("AE0001", aircraft.CategoryTanker, pattern.TankerTrack, nearby, intelNow)

	assert.Equal(t, IntentRefueling, i.Intent)
	assert.InDelta(t, 0.8, i.Confidence, 1e-9)
	assert.NotEmpty(t, i.Evidence)
}

func TestClassifyIntent_ISRSurveillance(t *testing.T) {
	t.Parallel()

	i := ClassifyIntent("AE0001", aircraft.CategoryISR, pattern.Racetrack, nil, intelNow)
	assert.Equal(t, IntentSurveillance, i.Intent)
	assert.InDelta(t, 0.75, i.Confidence, 1e-9)
}

func TestClassifyIntent_FighterPatrol(t *testing.T) {
	t.Parallel()

	i := ClassifyIntent("AE0001", aircraft.CategoryFighter, pattern.Orbit, nil, intelNow)
	assert.Equal(t, IntentPatrol, i.Intent)
	assert.InDelta(t, 0.6, i.Confidence, 1e-9)
}

func TestClassifyIntent_HoldingFallsBackToPatrol(t *testing.T) {
	t.Parallel()

	i := ClassifyIntent("AE0001", aircraft.CategoryTransport, pattern.Holding, nil, intelNow)
	assert.Equal(t, IntentPatrol, i.Intent)
	assert.InDelta(t, 0.55, i.Confidence, 1e-9)
}

func TestClassifyIntent_DefaultTransit(t *testing.T) {
	t.Parallel()

	i := ClassifyIntent("AE0001", aircraft.CategoryTransport, pattern.Straight, nil, intelNow)
	assert.Equal(t, IntentTransit, i.Intent)
	assert.Empty(t, i.Alternatives)
}

func TestClassifyIntent_AlternativesRanked(t *testing.T) {
	t.Parallel()

	// A tanker with a nearby receiver in a holding pattern classifies
	// as refueling; the holding fallback to patrol does not apply
	// once the refueling rule has matched.
	nearby := []NearbyAircraft{{Hex: "X", Category: aircraft.CategoryFighter, DistanceNM: 5}}
	i := ClassifyIntent("AE0001", aircraft.CategoryTanker, pattern.Holding, nearby, intelNow)
	assert.Equal(t, IntentRefueling, i.Intent)
}

type memIntelStore struct {
	anomalies []Anomaly
	intents   []Intent
	threats   []Threat
}

func (m *memIntelStore) InsertAnomaly(a Anomaly) error { m.anomalies = append(m.anomalies, a); return nil }
func (m *memIntelStore) InsertIntent(i Intent) error   { m.intents = append(m.intents, i); return nil }
func (m *memIntelStore) InsertThreat(t Threat) error   { m.threats = append(m.threats, t); return nil }

// passCalibrator accepts everything above a fixed cutoff and returns
// scores unchanged.
type passCalibrator struct {
	cutoff float64
}

func (c passCalibrator) Apply(taskType, name string, score float64) (calibration.Decision, error) {
	return calibration.Decision{Exceeds: score >= c.cutoff, Confidence: 1}, nil
}

func (c passCalibrator) Calibrate(taskType string, raw float64) (float64, error) {
	return raw, nil
}

func TestDetectAnomalies_FiltersByThreshold(t *testing.T) {
	t.Parallel()

	store := &memIntelStore{}
	engine := NewEngine(store, passCalibrator{cutoff: 0.6}, nil)

	deviations := []profiler.Deviation{
		{Type: "altitude", Severity: 1.0, Detected: 40000, Expected: 25000},
		{Type: "time", Severity: 0.5, Detected: 0.01, Expected: 0.02},
	}

	anomalies, err := engine.DetectAnomalies("AE0001", deviations, intelNow)
	require.NoError(t, err)

	require.Len(t, anomalies, 1)
	assert.Equal(t, "altitude", anomalies[0].Type)
	assert.Equal(t, 1.0, anomalies[0].Severity)
	assert.Equal(t, []Factor{{Name: "altitude_deviation", Weight: 1, Value: 1.0}}, anomalies[0].Factors)
	assert.Len(t, store.anomalies, 1)
}

func TestAssessThreat_WeightedComposite(t *testing.T) {
	t.Parallel()

	store := &memIntelStore{}
	engine := NewEngine(store, passCalibrator{}, nil)

	th, err := engine.AssessThreat("aircraft", "AE0001", ThreatComponents{
		PatternAnomaly:    1,
		RegionalTension:   1,
		NewsCorrelation:   1,
		HistoricalContext: 1,
		FormationActivity: 1,
		LocationContext:   1,
	}, intelNow)
	require.NoError(t, err)

	// The six weights sum to 1.00.
	assert.InDelta(t, 1.0, th.Score, 1e-9)
	assert.Equal(t, "critical", th.Level)
	assert.Equal(t, intelNow.Add(6*time.Hour), th.ExpiresAt)
	assert.Len(t, th.Explanation.TopFeatures, 3)
	assert.Len(t, store.threats, 1)
}

func TestAssessThreat_ZeroComponents(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&memIntelStore{}, passCalibrator{}, nil)
	th, err := engine.AssessThreat("aircraft", "AE0001", ThreatComponents{}, intelNow)
	require.NoError(t, err)

	assert.Zero(t, th.Score)
	assert.Equal(t, "minimal", th.Level)
	assert.Empty(t, th.Explanation.TopFeatures)
}
