// Package trajectory predicts short-horizon aircraft positions by
// great-circle projection from current kinematics, with per-horizon
// uncertainty and confidence.
package trajectory

import (
	"math"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/geo"
)

// Horizons is the fixed set of prediction horizons, in minutes.
var Horizons = [3]int{5, 15, 30}

// Region is a typical-region bound, mirroring profiler.Region's shape
// without importing the profiler package.
type Region struct {
	CenterLat float64
	CenterLon float64
	RadiusNM  float64
}

// Input is one aircraft's current kinematic state plus the profile
// context needed to scale uncertainty and confidence.
type Input struct {
	Hex               string
	Lat               float64
	Lon               float64
	AltitudeFt        *float64
	HeadingDeg        *float64
	GroundSpeedKts    *float64
	VerticalRateFpm   *float64
	TurnRateDegPerSec *float64
	HasTrainedProfile bool
	TypicalRegions    []Region
}

// Prediction is one (aircraft, horizon) projected future position.
type Prediction struct {
	Hex                string
	HorizonMinutes     int
	PredictedAt        time.Time
	PredictedLat       float64
	PredictedLon       float64
	PredictedHeadingDeg float64
	PredictedSpeedKts  float64
	PredictedAltitudeFt *float64
	UncertaintyNM      float64
	Confidence         float64
	Method             string
	ExpiresAt          time.Time
}

var horizonBaseUncertainty = map[int]float64{5: 1.0, 15: 3.0, 30: 6.0}
var horizonDecay = map[int]float64{5: 0.95, 15: 0.85, 30: 0.70}

// PredictAll runs every horizon in Horizons against in.
// Returns nil if both heading and speed are unknown (no trajectory
// prediction possible).
func PredictAll(in Input, now time.Time, cfg *config.TuningConfig) []Prediction {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if in.HeadingDeg == nil && in.GroundSpeedKts == nil {
		return nil
	}

	out := make([]Prediction, 0, len(Horizons))
	for _, h := range Horizons {
		out = append(out, predictOne(in, h, now, cfg))
	}
	return out
}

func predictOne(in Input, horizonMin int, now time.Time, cfg *config.TuningConfig) Prediction {
	speedEff := floatOr(in.GroundSpeedKts, 0)
	headingEff := floatOr(in.HeadingDeg, 0)

	distance := speedEff * (float64(horizonMin) / 60)
	endHeading := headingEff
	projectionHeading := headingEff

	if in.TurnRateDegPerSec != nil && *in.TurnRateDegPerSec != 0 {
		endHeading = math.Mod(headingEff+*in.TurnRateDegPerSec*float64(horizonMin)*60, 360)
		if endHeading < 0 {
			endHeading += 360
		}
		delta := headingDelta(headingEff, endHeading)
		if delta/2 > 10 {
			distance *= math.Cos(deg2rad(delta / 2))
		}
		projectionHeading = averageHeading(headingEff, endHeading)
	}

	predLat, predLon, err := geo.Destination(in.Lat, in.Lon, projectionHeading, distance)
	if err != nil {
		predLat, predLon = in.Lat, in.Lon
	}

	var predAlt *float64
	if in.AltitudeFt != nil && in.VerticalRateFpm != nil {
		v := *in.AltitudeFt + *in.VerticalRateFpm*float64(horizonMin)
		if v < 0 {
			v = 0
		}
		predAlt = &v
	} else if in.AltitudeFt != nil {
		v := *in.AltitudeFt
		predAlt = &v
	}

	uncertainty := horizonBaseUncertainty[horizonMin] + speedEff*0.01*(float64(horizonMin)/30)
	if in.TurnRateDegPerSec != nil && math.Abs(*in.TurnRateDegPerSec) > 0.5 {
		uncertainty += math.Abs(*in.TurnRateDegPerSec) * 0.5 * (float64(horizonMin) / 30)
	}
	if in.HasTrainedProfile && nearTypicalRegion(predLat, predLon, in.TypicalRegions) {
		uncertainty *= 0.8
	} else {
		uncertainty *= 1.2
	}

	base := cfg.GetConfidenceBaseNoProfile()
	if in.HasTrainedProfile {
		base = cfg.GetConfidenceBaseWithProfile()
	}
	confidence := base * horizonDecay[horizonMin]
	if confidence > 0.95 {
		confidence = 0.95
	}

	predictedAt := now
	expiresAt := predictedAt.Add(time.Duration(horizonMin)*time.Minute + 5*time.Minute)

	return Prediction{
		Hex:                 in.Hex,
		HorizonMinutes:      horizonMin,
		PredictedAt:         predictedAt,
		PredictedLat:        predLat,
		PredictedLon:        predLon,
		PredictedHeadingDeg: endHeading,
		PredictedSpeedKts:   speedEff,
		PredictedAltitudeFt: predAlt,
		UncertaintyNM:       uncertainty,
		Confidence:          confidence,
		Method:              "great_circle_projection",
		ExpiresAt:           expiresAt,
	}
}

func nearTypicalRegion(lat, lon float64, regions []Region) bool {
	for _, r := range regions {
		d, err := geo.DistanceNM(lat, lon, r.CenterLat, r.CenterLon)
		if err == nil && d <= r.RadiusNM*1.5 {
			return true
		}
	}
	return false
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func headingDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func averageHeading(a, b float64) float64 {
	x := (math.Cos(deg2rad(a)) + math.Cos(deg2rad(b))) / 2
	y := (math.Sin(deg2rad(a)) + math.Sin(deg2rad(b))) / 2
	avg := math.Mod(rad2deg(math.Atan2(y, x))+360, 360)
	return avg
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// Validation is the outcome of checking one expired prediction against
// the aircraft's actual position.
type Validation struct {
	HorizonMinutes int
	Day            string // YYYY-MM-DD, UTC
	ErrorNM        float64
	Accurate       bool
}

// Validate compares a prediction's target position against the actual
// position observed nearest its target time: error is the great-
// circle distance, accurate iff error <= the prediction's stored
// uncertainty radius.
func Validate(pred Prediction, actualLat, actualLon float64) (Validation, error) {
	errNM, err := geo.DistanceNM(pred.PredictedLat, pred.PredictedLon, actualLat, actualLon)
	if err != nil {
		return Validation{}, err
	}
	target := pred.PredictedAt.Add(time.Duration(pred.HorizonMinutes) * time.Minute)
	return Validation{
		HorizonMinutes: pred.HorizonMinutes,
		Day:            target.UTC().Format("2006-01-02"),
		ErrorNM:        errNM,
		Accurate:       errNM <= pred.UncertaintyNM,
	}, nil
}
