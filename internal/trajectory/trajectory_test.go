package trajectory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/geo"
)

func ptrF(v float64) *float64 { return &v }

var predNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func straightInput() Input {
	return Input{
		Hex:            "AE0001",
		Lat:            33.5,
		Lon:            35.5,
		AltitudeFt:     ptrF(30000),
		HeadingDeg:     ptrF(90),
		GroundSpeedKts: ptrF(420),
	}
}

func TestPredictAll_NoKinematicsNoPrediction(t *testing.T) {
	t.Parallel()

	in := Input{Hex: "AE0001", Lat: 33.5, Lon: 35.5}
	assert.Nil(t, PredictAll(in, predNow, nil))
}

func TestPredictAll_AllHorizons(t *testing.T) {
	t.Parallel()

	preds := PredictAll(straightInput(), predNow, nil)
	require.Len(t, preds, 3)

	// Distance grows linearly with the horizon along the track.
	d5, err := geo.DistanceNM(33.5, 35.5, preds[0].PredictedLat, preds[0].PredictedLon)
	require.NoError(t, err)
	assert.InDelta(t, 35, d5, 0.5) // 420 kts for 5 min

	d30, err := geo.DistanceNM(33.5, 35.5, preds[2].PredictedLat, preds[2].PredictedLon)
	require.NoError(t, err)
	assert.InDelta(t, 210, d30, 2)

	// Expiry is predicted_at + horizon + 5 min.
	assert.Equal(t, predNow.Add(10*time.Minute), preds[0].ExpiresAt)
	assert.Equal(t, predNow.Add(35*time.Minute), preds[2].ExpiresAt)
}

func TestPredictAll_ConfidenceMonotoneAcrossHorizons(t *testing.T) {
	t.Parallel()

	preds := PredictAll(straightInput(), predNow, nil)
	require.Len(t, preds, 3)
	assert.GreaterOrEqual(t, preds[0].Confidence, preds[1].Confidence)
	assert.GreaterOrEqual(t, preds[1].Confidence, preds[2].Confidence)
}

func TestPredictAll_TrainedProfileRaisesConfidence(t *testing.T) {
	t.Parallel()

	without := PredictAll(straightInput(), predNow, nil)

	in := straightInput()
	in.HasTrainedProfile = true
	in.TypicalRegions = []Region{{CenterLat: 33.5, CenterLon: 36.5, RadiusNM: 100}}
	with := PredictAll(in, predNow, nil)

	require.Len(t, with, 3)
	for i := range with {
		assert.Greater(t, with[i].Confidence, without[i].Confidence)
	}
	// Prediction lands near a typical region: uncertainty shrinks.
	assert.Less(t, with[0].UncertaintyNM, without[0].UncertaintyNM)
}

func TestPredictAll_AltitudeProjection(t *testing.T) {
	t.Parallel()

	in := straightInput()
	in.VerticalRateFpm = ptrF(-1200)
	preds := PredictAll(in, predNow, nil)

	require.NotNil(t, preds[0].PredictedAltitudeFt)
	assert.InDelta(t, 24000, *preds[0].PredictedAltitudeFt, 1e-6) // 30000 - 1200*5

	// A hard descent floors at zero rather than going negative.
	in.VerticalRateFpm = ptrF(-5000)
	preds = PredictAll(in, predNow, nil)
	assert.Zero(t, *preds[2].PredictedAltitudeFt)
}

func TestPredictAll_TurnShortensDistance(t *testing.T) {
	t.Parallel()

	straight := PredictAll(straightInput(), predNow, nil)

	turning := straightInput()
	turning.TurnRateDegPerSec = ptrF(1) // 300 deg over 5 minutes, wrapping
	preds := PredictAll(turning, predNow, nil)

	dStraight, err := geo.DistanceNM(33.5, 35.5, straight[0].PredictedLat, straight[0].PredictedLon)
	require.NoError(t, err)
	dTurn, err := geo.DistanceNM(33.5, 35.5, preds[0].PredictedLat, preds[0].PredictedLon)
	require.NoError(t, err)

	assert.Less(t, dTurn, dStraight)
	assert.InDelta(t, 30, preds[0].PredictedHeadingDeg, 1e-6)
	// A hard turn also inflates uncertainty.
	assert.Greater(t, preds[0].UncertaintyNM, straight[0].UncertaintyNM)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	pred := Prediction{
		Hex:            "AE0001",
		HorizonMinutes: 15,
		PredictedAt:    predNow,
		PredictedLat:   33.5,
		PredictedLon:   35.5,
		UncertaintyNM:  5,
	}

	// Actual within the uncertainty radius.
	v, err := Validate(pred, 33.55, 35.5)
	require.NoError(t, err)
	assert.True(t, v.Accurate)
	assert.InDelta(t, 3, v.ErrorNM, 0.1)
	assert.Equal(t, 15, v.HorizonMinutes)
	assert.Equal(t, "2026-01-01", v.Day)

	// Actual well outside.
	v, err = Validate(pred, 34.5, 35.5)
	require.NoError(t, err)
	assert.False(t, v.Accurate)
}
