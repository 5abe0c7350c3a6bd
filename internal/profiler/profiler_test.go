package profiler

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/pattern"
)

var profNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func assertDistributionsSum(t *testing.T, p *Profile) {
	t.Helper()

	var patternSum float64
	for _, v := range p.PatternDistribution {
		patternSum += v
	}
	assert.InDelta(t, 1, patternSum, 1e-6)

	var hourlySum, dailySum float64
	for _, v := range p.HourlyActivity {
		hourlySum += v
	}
	for _, v := range p.DailyActivity {
		dailySum += v
	}
	assert.InDelta(t, 1, hourlySum, 1e-6)
	assert.InDelta(t, 1, dailySum, 1e-6)

	if len(p.TypicalRegions) > 0 {
		var regionSum float64
		for _, r := range p.TypicalRegions {
			regionSum += r.Frequency
		}
		assert.InDelta(t, 1, regionSum, 1e-6)
	}
}

func flightStats(lat, lon, alt, speed float64) PositionStats {
	return PositionStats{
		CentroidLat: lat,
		CentroidLon: lon,
		RadiusNM:    10,
		Altitudes:   []float64{alt, alt + 500},
		Speeds:      []float64{speed, speed + 10},
		HourUTC:     12,
		WeekdayUTC:  3,
	}
}

func TestBlank_UniformDistributions(t *testing.T) {
	t.Parallel()

	p := Blank("AE0001")
	assertDistributionsSum(t, p)
	assert.Zero(t, p.SampleCount)
	assert.False(t, p.IsTrained)
}

func TestWithPrior_SeedsPseudoObservations(t *testing.T) {
	t.Parallel()

	p := WithPrior("AE0001", ColdStartPriors["KC135"], nil)
	assert.Equal(t, 3, p.SampleCount)
	assert.InDelta(t, 0.55, p.PatternDistribution[pattern.TankerTrack], 1e-9)
	assertDistributionsSum(t, p)
}

func TestUpdate_DistributionsStayNormalized(t *testing.T) {
	t.Parallel()

	p := Blank("AE0001")
	for i := 0; i < 15; i++ {
		Update(p, flightStats(33.5, 35.5, 25000, 400), pattern.Orbit, profNow, nil)
		assertDistributionsSum(t, p)
	}
	assert.Equal(t, 15, p.SampleCount)
	assert.True(t, p.IsTrained)
	// The repeatedly-observed pattern dominates.
	assert.Greater(t, p.PatternDistribution[pattern.Orbit], 0.5)
}

func TestUpdate_AvgConvergesTowardObserved(t *testing.T) {
	t.Parallel()

	p := Blank("AE0001")
	Update(p, flightStats(33.5, 35.5, 20000, 400), pattern.Straight, profNow, nil)
	initialGap := math.Abs(p.AltitudeAvg - 30250)

	for i := 0; i < 30; i++ {
		Update(p, flightStats(33.5, 35.5, 30000, 400), pattern.Straight, profNow, nil)
	}
	finalGap := math.Abs(p.AltitudeAvg - 30250)
	assert.Less(t, finalGap, initialGap*math.Pow(0.95, 25))
}

func TestUpdate_RegionMergeAndCap(t *testing.T) {
	t.Parallel()

	p := Blank("AE0001")
	// Two nearby flights merge into one region.
	Update(p, flightStats(33.5, 35.5, 25000, 400), "", profNow, nil)
	Update(p, flightStats(33.6, 35.5, 25000, 400), "", profNow, nil)
	assert.Len(t, p.TypicalRegions, 1)

	// Twelve far-apart centroids cap at ten regions.
	for i := 0; i < 12; i++ {
		Update(p, flightStats(10+float64(i)*5, -40, 25000, 400), "", profNow, nil)
	}
	assert.LessOrEqual(t, len(p.TypicalRegions), 10)
	assertDistributionsSum(t, p)
}

func TestCheckDeviation_UntrainedReturnsNil(t *testing.T) {
	t.Parallel()

	p := Blank("AE0001")
	assert.Nil(t, CheckDeviation(p, flightStats(33.5, 35.5, 25000, 400), "", 12, nil))
}

func trainedProfile() *Profile {
	p := Blank("AE0001")
	p.SampleCount = 20
	p.IsTrained = true
	p.AltitudeAvg, p.AltitudeStdDev = 25000, 2000
	p.SpeedAvg, p.SpeedStdDev = 400, 30
	p.TypicalRegions = []Region{{CenterLat: 33.5, CenterLon: 35.5, RadiusNM: 30, Frequency: 1}}
	return p
}

func TestCheckDeviation_Altitude(t *testing.T) {
	t.Parallel()

	p := trainedProfile()
	stats := PositionStats{
		CentroidLat: 33.5, CentroidLon: 35.5,
		Altitudes: []float64{40000}, Speeds: []float64{400},
		HourUTC: 12,
	}

	deviations := CheckDeviation(p, stats, "", 12, nil)
	require.NotEmpty(t, deviations)

	var altitude *Deviation
	for i := range deviations {
		if deviations[i].Type == "altitude" {
			altitude = &deviations[i]
		}
	}
	require.NotNil(t, altitude)
	// z = (40000-25000)/2000 = 7.5; severity saturates at 1.
	assert.InDelta(t, 1.0, altitude.Severity, 1e-9)
	assert.InDelta(t, 40000, altitude.Detected, 1e-9)
	assert.InDelta(t, 25000, altitude.Expected, 1e-9)
}

func TestCheckDeviation_UnusualRegionAndPattern(t *testing.T) {
	t.Parallel()

	p := trainedProfile()
	p.PatternDistribution[pattern.TankerTrack] = 0.01
	renormalize(p.PatternDistribution)

	// Centroid far outside every typical region.
	stats := PositionStats{CentroidLat: 45.0, CentroidLon: 10.0, HourUTC: 12}
	deviations := CheckDeviation(p, stats, pattern.TankerTrack, 12, nil)

	types := make(map[string]Deviation)
	for _, d := range deviations {
		types[d.Type] = d
	}
	require.Contains(t, types, "region")
	assert.InDelta(t, 0.7, types["region"].Severity, 1e-9)
	require.Contains(t, types, "pattern")
}

type memProfileStore struct {
	profiles map[string]*Profile
}

func (m *memProfileStore) GetProfile(hex string) (*Profile, error) {
	if p, ok := m.profiles[hex]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (m *memProfileStore) SaveProfile(p *Profile) error {
	m.profiles[p.Hex] = p
	return nil
}

func TestService_GetOrCreateUsesPrior(t *testing.T) {
	t.Parallel()

	store := &memProfileStore{profiles: make(map[string]*Profile)}
	svc := NewService(store, nil)

	p, err := svc.GetOrCreate("AE0001", "KC135")
	require.NoError(t, err)
	assert.Equal(t, 3, p.SampleCount)

	blank, err := svc.GetOrCreate("AE0002", "ZZZZ")
	require.NoError(t, err)
	assert.Zero(t, blank.SampleCount)

	// Existing profiles are returned as-is.
	again, err := svc.GetOrCreate("AE0001", "F16")
	require.NoError(t, err)
	assert.Equal(t, 3, again.SampleCount)
}
