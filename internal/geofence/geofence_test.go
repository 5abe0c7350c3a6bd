package geofence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
)

var square = Polygon{
	{Lat: 33.0, Lon: 35.0},
	{Lat: 34.0, Lon: 35.0},
	{Lat: 34.0, Lon: 36.0},
	{Lat: 33.0, Lon: 36.0},
}

func TestPolygonContains(t *testing.T) {
	t.Parallel()

	assert.True(t, square.Contains(33.5, 35.5))
	assert.False(t, square.Contains(32.9, 35.5))
	assert.False(t, square.Contains(33.5, 36.1))
	assert.False(t, Polygon{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}.Contains(1.5, 1.5))
}

type memStore struct {
	fences []Fence
	states map[string]map[string]AircraftState // geofenceID -> hex -> state
	alerts []Alert
}

func newMemStore(fences ...Fence) *memStore {
	return &memStore{fences: fences, states: make(map[string]map[string]AircraftState)}
}

func (m *memStore) ListActiveFences() ([]Fence, error) { return m.fences, nil }

func (m *memStore) StatesFor(geofenceID string) (map[string]AircraftState, error) {
	out := make(map[string]AircraftState)
	for hex, s := range m.states[geofenceID] {
		out[hex] = s
	}
	return out, nil
}

func (m *memStore) SaveState(s AircraftState) error {
	if m.states[s.GeofenceID] == nil {
		m.states[s.GeofenceID] = make(map[string]AircraftState)
	}
	m.states[s.GeofenceID][s.Hex] = s
	return nil
}

func (m *memStore) DeleteState(geofenceID, hex string) error {
	delete(m.states[geofenceID], hex)
	return nil
}

func (m *memStore) InsertAlert(a Alert) error {
	m.alerts = append(m.alerts, a)
	return nil
}

func testFence() Fence {
	return Fence{
		ID:                "gf-1",
		Name:              "test area",
		Polygon:           square,
		AlertOnEntry:      true,
		AlertOnExit:       true,
		AlertOnDwell:      true,
		DwellThresholdSec: 300,
		IsActive:          true,
	}
}

func TestMonitor_DwellLifecycle(t *testing.T) {
	t.Parallel()

	store := newMemStore(testFence())
	mon := NewMonitor(store, nil)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	obs := []Observation{{Hex: "AE0001", TypeCode: "C130", Lat: 33.5, Lon: 35.5}}

	// t=0: entry.
	alerts, err := mon.Evaluate(obs, t0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, TransitionEntry, alerts[0].Transition)

	// t=120s: still inside, below the dwell threshold.
	alerts, err = mon.Evaluate(obs, t0.Add(120*time.Second))
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// t=360s: past the 300 s threshold, one dwell alert.
	alerts, err = mon.Evaluate(obs, t0.Add(360*time.Second))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, TransitionDwell, alerts[0].Transition)

	// Dwell fires only once.
	alerts, err = mon.Evaluate(obs, t0.Add(400*time.Second))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestMonitor_RepeatedEvaluationIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore(testFence())
	mon := NewMonitor(store, nil)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	obs := []Observation{{Hex: "AE0001", Lat: 33.5, Lon: 35.5}}

	_, err := mon.Evaluate(obs, t0)
	require.NoError(t, err)
	alerts, err := mon.Evaluate(obs, t0.Add(time.Second))
	require.NoError(t, err)

	assert.Empty(t, alerts)
	assert.Len(t, store.alerts, 1)
}

func TestMonitor_ExitAlert(t *testing.T) {
	t.Parallel()

	store := newMemStore(testFence())
	mon := NewMonitor(store, nil)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := mon.Evaluate([]Observation{{Hex: "AE0001", Lat: 33.5, Lon: 35.5}}, t0)
	require.NoError(t, err)

	alerts, err := mon.Evaluate([]Observation{{Hex: "AE0001", Lat: 32.0, Lon: 35.5}}, t0.Add(time.Minute))
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, TransitionExit, alerts[0].Transition)
	assert.Equal(t, SeverityLow, alerts[0].Severity)
	assert.Equal(t, StateOutside, store.states["gf-1"]["AE0001"].State)
}

func TestMonitor_MissingAircraftDoesNotExitUntilStale(t *testing.T) {
	t.Parallel()

	store := newMemStore(testFence())
	mon := NewMonitor(store, nil)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := mon.Evaluate([]Observation{{Hex: "AE0001", Lat: 33.5, Lon: 35.5}}, t0)
	require.NoError(t, err)

	// Dropped off the feed entirely: no exit alert.
	alerts, err := mon.Evaluate(nil, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, StateInside, store.states["gf-1"]["AE0001"].State)

	// Silent for longer than the stale window: state reverts with no alert.
	alerts, err = mon.Evaluate(nil, t0.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, alerts)
	_, exists := store.states["gf-1"]["AE0001"]
	assert.False(t, exists)
}

func TestMonitor_TypeFilter(t *testing.T) {
	t.Parallel()

	fence := testFence()
	fence.AircraftTypeFilter = []string{"K35R"}
	store := newMemStore(fence)
	mon := NewMonitor(store, nil)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	alerts, err := mon.Evaluate([]Observation{{Hex: "AE0001", TypeCode: "C130", Lat: 33.5, Lon: 35.5}}, t0)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	alerts, err = mon.Evaluate([]Observation{{Hex: "AE0002", TypeCode: "K35R", Lat: 33.5, Lon: 35.5}}, t0)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestSeverity_HighPriorityAndLongDwell(t *testing.T) {
	t.Parallel()

	fighter := Observation{Category: aircraft.CategoryFighter}
	generic := Observation{Category: aircraft.CategoryTransport}

	f := testFence()
	assert.Equal(t, SeverityHigh, severityFor(TransitionDwell, f, fighter, 1800))
	assert.Equal(t, SeverityMedium, severityFor(TransitionDwell, f, generic, 1800))

	longDwell := f
	longDwell.DwellThresholdSec = 3600
	assert.Equal(t, SeverityHigh, severityFor(TransitionDwell, longDwell, generic, 1800))
	assert.Equal(t, SeverityLow, severityFor(TransitionExit, f, generic, 1800))
}
