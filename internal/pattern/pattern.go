// Package pattern classifies an ordered track of positions for one
// aircraft against the canonical military flight patterns (orbit,
// racetrack, holding, tanker track), falling back to "straight" when
// none qualify.
package pattern

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/patternmath"
)

// Name identifies one of the pattern distribution keys carried on a
// BehavioralProfile.
type Name string

const (
	Orbit       Name = "orbit"
	Racetrack   Name = "racetrack"
	Holding     Name = "holding"
	TankerTrack Name = "tanker_track"
	Straight    Name = "straight"
)

// Candidate is one ranked pattern match with its confidence and
// pattern-specific metadata.
type Candidate struct {
	Pattern    Name
	Confidence float64
	Metadata   map[string]float64
}

// Detect runs every pattern rule against points (sorted by timestamp
// for a single aircraft) and returns candidates ranked by confidence
// descending; the top entry is the primary classification. Returns nil
// for fewer than 6 points or less than 5 minutes of track duration.
func Detect(points []patternmath.Point, cfg *config.TuningConfig) []Candidate {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if len(points) < 6 || patternmath.Duration(points) < 5*time.Minute {
		return nil
	}

	var candidates []Candidate
	if c, ok := detectOrbit(points, cfg); ok {
		candidates = append(candidates, c)
	}
	if c, ok := detectRacetrack(points, cfg); ok {
		candidates = append(candidates, c)
	}
	if c, ok := detectHolding(points, cfg); ok {
		candidates = append(candidates, c)
	}
	if c, ok := detectTankerTrack(points, cfg); ok {
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// Primary returns the top candidate, or a Straight candidate derived
// from path straightness when no rule qualified.
func Primary(points []patternmath.Point, candidates []Candidate) Candidate {
	if len(candidates) > 0 {
		return candidates[0]
	}
	return Candidate{Pattern: Straight, Confidence: Straightness(points)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func detectOrbit(points []patternmath.Point, cfg *config.TuningConfig) (Candidate, bool) {
	if len(points) < cfg.GetOrbitMinPoints() {
		return Candidate{}, false
	}
	if patternmath.Duration(points).Minutes() < cfg.GetOrbitMinDurationMinutes() {
		return Candidate{}, false
	}

	fit := patternmath.FitCircle(points)
	if fit.Confidence < cfg.GetOrbitMinCircleFitConfidence() {
		return Candidate{}, false
	}
	if fit.RadiusNM < cfg.GetOrbitMinRadiusNM() || fit.RadiusNM > cfg.GetOrbitMaxRadiusNM() {
		return Candidate{}, false
	}

	av := patternmath.CalculateAngularVelocity(points)
	if av.Consistency < cfg.GetOrbitMinAngularConsistency() {
		return Candidate{}, false
	}
	if av.Direction == patternmath.Indeterminate {
		return Candidate{}, false
	}

	circumference := 2 * math.Pi * fit.RadiusNM
	revolutions := 0.0
	if circumference > 0 {
		revolutions = patternmath.TotalPathLength(points) / circumference
	}
	if revolutions < cfg.GetOrbitMinRevolutions() {
		return Candidate{}, false
	}

	confidence := clamp01(fit.Confidence + minFloat(1, revolutions/2)*0.2)

	return Candidate{
		Pattern:    Orbit,
		Confidence: confidence,
		Metadata: map[string]float64{
			"radius_nm":   fit.RadiusNM,
			"revolutions": revolutions,
			"center_lat":  fit.CenterLat,
			"center_lon":  fit.CenterLon,
		},
	}, true
}

func detectRacetrack(points []patternmath.Point, cfg *config.TuningConfig) (Candidate, bool) {
	if len(points) < cfg.GetRacetrackMinPoints() {
		return Candidate{}, false
	}
	rp := patternmath.DetectRacetrackParams(points)
	if !rp.Found {
		return Candidate{}, false
	}
	if rp.LegLengthNM <= cfg.GetRacetrackMinLegLengthNM() {
		return Candidate{}, false
	}
	return Candidate{
		Pattern:    Racetrack,
		Confidence: rp.Confidence,
		Metadata: map[string]float64{
			"heading_1":     rp.Heading1,
			"heading_2":     rp.Heading2,
			"leg_length_nm": rp.LegLengthNM,
			"width_nm":      rp.WidthNM,
		},
	}, true
}

func detectHolding(points []patternmath.Point, cfg *config.TuningConfig) (Candidate, bool) {
	if len(points) < cfg.GetHoldingMinPoints() {
		return Candidate{}, false
	}
	confinement := patternmath.CheckAreaConfinement(points, cfg.GetHoldingMaxAreaNM2())
	if !confinement.Confined {
		return Candidate{}, false
	}
	reversals := patternmath.FindHeadingReversals(points)
	if len(reversals) < cfg.GetHoldingMinReversals() {
		return Candidate{}, false
	}

	maxArea := cfg.GetHoldingMaxAreaNM2()
	areaScore := 1 - confinement.AreaNM2/maxArea
	confidence := 0.6*areaScore + 0.4*minFloat(1, float64(len(reversals))/4)
	if confidence < cfg.GetHoldingMinConfidence() {
		return Candidate{}, false
	}

	return Candidate{
		Pattern:    Holding,
		Confidence: confidence,
		Metadata: map[string]float64{
			"area_nm2":  confinement.AreaNM2,
			"reversals": float64(len(reversals)),
		},
	}, true
}

func detectTankerTrack(points []patternmath.Point, cfg *config.TuningConfig) (Candidate, bool) {
	durationMin := patternmath.Duration(points).Minutes()
	if durationMin < cfg.GetTankerTrackMinDurationMinutes() {
		return Candidate{}, false
	}

	altitudes := altitudesOf(points)
	if len(altitudes) == 0 {
		return Candidate{}, false
	}
	mean, stddev := meanStdDev(altitudes)
	if mean < cfg.GetTankerTrackMinAltitudeFt() || mean > cfg.GetTankerTrackMaxAltitudeFt() {
		return Candidate{}, false
	}
	if stddev >= cfg.GetTankerTrackMaxAltitudeStdDevFt() {
		return Candidate{}, false
	}

	length := patternmath.TotalPathLength(points)
	if length < cfg.GetTankerTrackMinLengthNM() || length > cfg.GetTankerTrackMaxLengthNM() {
		return Candidate{}, false
	}

	straightness := Straightness(points)
	reversals := patternmath.FindHeadingReversals(points)
	hasEndReversals := len(reversals) > 0
	if !hasEndReversals && straightness <= cfg.GetTankerTrackMinStraightness() {
		return Candidate{}, false
	}

	altStability := clamp01(1 - stddev/cfg.GetTankerTrackMaxAltitudeStdDevFt())
	durationScore := minFloat(1, durationMin/60)
	lengthScore := minFloat(1, length/cfg.GetTankerTrackMaxLengthNM())
	bonus := 0.0
	if hasEndReversals {
		bonus = minFloat(1, float64(len(reversals))/4)
	} else {
		bonus = straightness
	}

	confidence := clamp01(0.4*altStability + 0.2*durationScore + 0.2*lengthScore + 0.2*bonus)
	if confidence < cfg.GetTankerTrackMinConfidence() {
		return Candidate{}, false
	}

	return Candidate{
		Pattern:    TankerTrack,
		Confidence: confidence,
		Metadata: map[string]float64{
			"mean_altitude_ft":   mean,
			"altitude_stddev_ft": stddev,
			"length_nm":          length,
			"straightness":       straightness,
		},
	}, true
}

func altitudesOf(points []patternmath.Point) []float64 {
	var out []float64
	for _, p := range points {
		if p.Altitude != nil {
			out = append(out, *p.Altitude)
		}
	}
	return out
}

func meanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.Mean(values, nil), math.Sqrt(stat.PopVariance(values, nil))
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
