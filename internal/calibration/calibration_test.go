package calibration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

var trainNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCalibrate_IdentityBelowMinSamples(t *testing.T) {
	t.Parallel()

	m := &Model{TaskType: "anomaly", PlattA: -4, PlattB: 2, SampleCount: 49}
	assert.Equal(t, 0.73, m.Calibrate(0.73, nil))

	var nilModel *Model
	assert.Equal(t, 0.5, nilModel.Calibrate(0.5, nil))
}

func TestCalibrate_SigmoidClamped(t *testing.T) {
	t.Parallel()

	m := &Model{TaskType: "anomaly", PlattA: -6, PlattB: 3, SampleCount: 100}
	low := m.Calibrate(0, nil)
	high := m.Calibrate(1, nil)

	assert.GreaterOrEqual(t, low, 0.0)
	assert.LessOrEqual(t, high, 1.0)
	assert.Less(t, low, high)
}

// wellSeparated builds a training set where high raw scores are
// reliably correct and low raw scores are reliably wrong.
func wellSeparated(n int) []Outcome {
	out := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		raw := float64(i) / float64(n-1)
		out = append(out, Outcome{RawScore: raw, Correct: raw > 0.5})
	}
	return out
}

func TestTrain_LearnsMonotoneMapping(t *testing.T) {
	t.Parallel()

	m := Train("anomaly", wellSeparated(100), trainNow, nil)
	require.Equal(t, 100, m.SampleCount)

	// A fitted sigmoid on separable data maps high raw scores above
	// low ones.
	pLow := m.Calibrate(0.1, nil)
	pHigh := m.Calibrate(0.9, nil)
	assert.Greater(t, pHigh, pLow)
	assert.LessOrEqual(t, m.ECE, 0.5)
}

func TestTrain_EmptyOutcomes(t *testing.T) {
	t.Parallel()

	m := Train("anomaly", nil, trainNow, nil)
	assert.Zero(t, m.SampleCount)
	assert.Zero(t, m.PlattA)
}

func TestThreshold_InitWithinBounds(t *testing.T) {
	t.Parallel()

	th := NewThreshold("anomaly", "altitude", nil)
	assert.Equal(t, 2.0, th.Alpha)
	assert.Equal(t, 2.0, th.Beta)
	assert.GreaterOrEqual(t, th.CurrentValue, th.MinValue)
	assert.LessOrEqual(t, th.CurrentValue, th.MaxValue)
}

func TestThreshold_UpdateTalliesAndStaysBounded(t *testing.T) {
	t.Parallel()

	th := NewThreshold("anomaly", "altitude", nil)

	th.Update(true, true)   // TP
	th.Update(true, false)  // FP
	th.Update(false, false) // TN
	th.Update(false, true)  // FN

	assert.Equal(t, 1, th.TPCount)
	assert.Equal(t, 1, th.FPCount)
	assert.Equal(t, 1, th.TNCount)
	assert.Equal(t, 1, th.FNCount)
	assert.Equal(t, 4.0, th.Alpha)
	assert.Equal(t, 4.0, th.Beta)

	// Hammer with one-sided labels: value must stay clamped.
	for i := 0; i < 200; i++ {
		th.Update(true, false)
	}
	assert.GreaterOrEqual(t, th.CurrentValue, th.MinValue)
	assert.LessOrEqual(t, th.CurrentValue, th.MaxValue)
}

func TestThreshold_Apply(t *testing.T) {
	t.Parallel()

	th := NewThreshold("anomaly", "altitude", nil)
	th.CurrentValue = 0.5

	d := th.Apply(0.75)
	assert.True(t, d.Exceeds)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)

	d = th.Apply(0.5)
	assert.True(t, d.Exceeds)
	assert.Zero(t, d.Confidence)

	d = th.Apply(0.2)
	assert.False(t, d.Exceeds)
}

type memCalStore struct {
	models     map[string]Model
	outcomes   map[int64]*storedOutcome
	thresholds map[string]*Threshold
	nextID     int64
}

type storedOutcome struct {
	taskType string
	raw      float64
	verified bool
	correct  bool
}

func newMemCalStore() *memCalStore {
	return &memCalStore{
		models:     make(map[string]Model),
		outcomes:   make(map[int64]*storedOutcome),
		thresholds: make(map[string]*Threshold),
	}
}

func (m *memCalStore) GetModel(taskType string) (*Model, error) {
	mod, ok := m.models[taskType]
	if !ok {
		return nil, nil
	}
	return &mod, nil
}

func (m *memCalStore) SaveModel(mod Model) error {
	m.models[mod.TaskType] = mod
	return nil
}

func (m *memCalStore) ListVerifiedOutcomes(taskType string, limit int) ([]Outcome, error) {
	var out []Outcome
	for _, o := range m.outcomes {
		if o.taskType == taskType && o.verified && len(out) < limit {
			out = append(out, Outcome{RawScore: o.raw, Correct: o.correct})
		}
	}
	return out, nil
}

func (m *memCalStore) InsertOutcome(taskType string, rawScore float64, now time.Time) (int64, error) {
	m.nextID++
	m.outcomes[m.nextID] = &storedOutcome{taskType: taskType, raw: rawScore}
	return m.nextID, nil
}

func (m *memCalStore) VerifyOutcome(id int64, correct bool) error {
	o := m.outcomes[id]
	o.verified = true
	o.correct = correct
	return nil
}

func (m *memCalStore) GetThreshold(taskType, name string) (*Threshold, error) {
	return m.thresholds[taskType+"|"+name], nil
}

func (m *memCalStore) SaveThreshold(t *Threshold) error {
	m.thresholds[t.TaskType+"|"+t.Name] = t
	return nil
}

func TestService_OutcomeRoundTrip(t *testing.T) {
	t.Parallel()

	store := newMemCalStore()
	svc := NewService(store, config.EmptyTuningConfig())

	id, err := svc.RecordOutcome("anomaly", 0.8, trainNow)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOutcome(id, true))

	outcomes, err := store.ListVerifiedOutcomes("anomaly", 10)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Correct)

	m, err := svc.Retrain("anomaly", trainNow)
	require.NoError(t, err)
	assert.Equal(t, 1, m.SampleCount)
}

func TestService_ThresholdCreatedOnFirstUse(t *testing.T) {
	t.Parallel()

	store := newMemCalStore()
	svc := NewService(store, nil)

	d, err := svc.Apply("anomaly", "altitude", 0.9)
	require.NoError(t, err)
	assert.True(t, d.Exceeds)

	th, err := svc.ThresholdFor("anomaly", "altitude")
	require.NoError(t, err)
	assert.Equal(t, "altitude", th.Name)
}
