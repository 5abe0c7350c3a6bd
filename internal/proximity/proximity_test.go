package proximity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func ptrF(v float64) *float64 { return &v }

func state(hex string, lat, lon float64, track, speed, alt float64) AircraftState {
	return AircraftState{
		Hex:            hex,
		Lat:            lat,
		Lon:            lon,
		AltitudeFt:     ptrF(alt),
		TrackDeg:       ptrF(track),
		GroundSpeedKts: ptrF(speed),
	}
}

func TestAnalyzePair_HeadOn(t *testing.T) {
	t.Parallel()

	// Two aircraft at FL350 closing head-on at 500 kts each, 0.5 deg
	// of longitude apart at 32N.
	a := state("AE0001", 32.0, 34.0, 90, 500, 35000)
	b := state("AE0002", 32.0, 34.5, 270, 500, 35000)

	c, ok := AnalyzePair(a, b, nil)
	require.True(t, ok)

	assert.InDelta(t, 1000, c.ClosureRateKts, 50)
	assert.InDelta(t, 1.6, c.TimeToCPAMinutes, 0.3)
	assert.Less(t, c.CPADistanceNM, 0.5)
	assert.Equal(t, SeverityCritical, c.Severity)
	assert.Equal(t, "AE0001", c.Hex1)
	assert.Equal(t, "AE0002", c.Hex2)
}

func TestAnalyzePair_SameAltitudeClassification(t *testing.T) {
	t.Parallel()

	// Crossing geometry but within 500 ft vertically: the vertical
	// band dominates the classification.
	a := state("AE0001", 32.0, 34.0, 90, 400, 35000)
	b := state("AE0002", 32.05, 34.3, 200, 400, 35200)

	c, ok := AnalyzePair(a, b, nil)
	if ok {
		assert.Equal(t, TypeSameAltitude, c.WarningType)
	}
}

func TestAnalyzePair_DivergingPairSkipped(t *testing.T) {
	t.Parallel()

	a := state("AE0001", 32.0, 34.0, 270, 500, 35000)
	b := state("AE0002", 32.0, 34.5, 90, 500, 35000)

	_, ok := AnalyzePair(a, b, nil)
	assert.False(t, ok)
}

func TestAnalyzePair_SlowClosureSkipped(t *testing.T) {
	t.Parallel()

	// Parallel same-speed traffic has zero closure rate.
	a := state("AE0001", 32.0, 34.0, 90, 400, 35000)
	b := state("AE0002", 32.1, 34.0, 90, 400, 35000)

	_, ok := AnalyzePair(a, b, nil)
	assert.False(t, ok)
}

func TestAnalyzePair_DistantPairSkipped(t *testing.T) {
	t.Parallel()

	// Raw separation beyond twice the low-severity threshold is
	// skipped before any CPA math runs.
	a := state("AE0001", 32.0, 34.0, 90, 500, 35000)
	b := state("AE0002", 33.5, 34.0, 270, 500, 35000)

	_, ok := AnalyzePair(a, b, nil)
	assert.False(t, ok)
}

func TestAnalyzePair_MissingDataLowersConfidence(t *testing.T) {
	t.Parallel()

	a := state("AE0001", 32.0, 34.0, 90, 500, 35000)
	b := state("AE0002", 32.0, 34.5, 270, 500, 35000)
	full, ok := AnalyzePair(a, b, nil)
	require.True(t, ok)

	b.AltitudeFt = nil
	partial, ok := AnalyzePair(a, b, nil)
	require.True(t, ok)
	assert.InDelta(t, full.Confidence-0.1, partial.Confidence, 1e-9)
	assert.Nil(t, partial.VerticalSeparationFt)
}

func TestOrderPair(t *testing.T) {
	t.Parallel()

	h1, h2 := orderPair("AE0002", "AE0001")
	assert.Equal(t, "AE0001", h1)
	assert.Equal(t, "AE0002", h2)
}

func TestHeadingDiff(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 20, headingDiff(350, 10), 1e-9)
	assert.InDelta(t, 180, headingDiff(0, 180), 1e-9)
	assert.InDelta(t, 90, headingDiff(45, 315), 1e-9)
}

func TestCombinedSeverity_VerticalDominates(t *testing.T) {
	t.Parallel()

	vs := 400.0
	sev, ok := combinedSeverity(15, &vs)
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, sev)
}

type memStore struct {
	active  map[string]string // "h1|h2" -> id
	next    int
	inserts int
	updates int
}

func newMemStore() *memStore {
	return &memStore{active: make(map[string]string)}
}

func (m *memStore) FindActive(hex1, hex2 string) (string, bool, error) {
	id, ok := m.active[hex1+"|"+hex2]
	return id, ok, nil
}

func (m *memStore) Insert(c Conflict, now time.Time) (string, error) {
	m.next++
	id := fmt.Sprintf("warn-%d", m.next)
	m.active[c.Hex1+"|"+c.Hex2] = id
	m.inserts++
	return id, nil
}

func (m *memStore) UpdateGeometry(id string, c Conflict, now time.Time) error {
	m.updates++
	return nil
}

func (m *memStore) MarkStaleInactive(olderThan time.Time) (int, error) {
	n := len(m.active)
	m.active = make(map[string]string)
	return n, nil
}

func TestService_UpsertConverges(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := NewService(store, nil)

	a := state("AE0001", 32.0, 34.0, 90, 500, 35000)
	b := state("AE0002", 32.0, 34.5, 270, 500, 35000)
	c, ok := AnalyzePair(a, b, nil)
	require.True(t, ok)

	id1, err := svc.Upsert(c, testNow)
	require.NoError(t, err)
	id2, err := svc.Upsert(c, testNow)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, store.updates)
}
