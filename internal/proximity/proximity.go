// Package proximity computes pairwise closest-point-of-approach
// conflicts between active military aircraft and manages the resulting
// warning lifecycle.
package proximity

import (
	"math"

	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/geo"
)

// AircraftState is one aircraft's latest kinematic state as fed into
// the pairwise scan. Optional fields reduce the warning confidence
// rather than excluding the pair.
type AircraftState struct {
	Hex            string
	Lat            float64
	Lon            float64
	AltitudeFt     *float64
	TrackDeg       *float64
	GroundSpeedKts *float64
}

// Warning types.
const (
	TypeConvergence      = "convergence"
	TypeSameAltitude     = "same_altitude"
	TypeParallelApproach = "parallel_approach"
	TypeCrossing         = "crossing"
	TypeVerticalConflict = "vertical_conflict"
)

// Severity levels, ordered.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

var severityRank = map[string]int{
	SeverityCritical: 3,
	SeverityHigh:     2,
	SeverityMedium:   1,
	SeverityLow:      0,
}

// Conflict is one detected pair conflict, ready to be upserted as a
// proximity warning. Hex1 < Hex2 always.
type Conflict struct {
	Hex1                 string
	Hex2                 string
	WarningType          string
	Severity             string
	CPADistanceNM        float64
	TimeToCPAMinutes     float64
	ClosureRateKts       float64
	VerticalSeparationFt *float64
	Confidence           float64
}

// AnalyzePair evaluates one unordered pair of aircraft and returns a
// conflict when the pair's closest point of approach crosses the
// warning thresholds. Returns (Conflict{}, false) for diverging,
// slow-closing, distant, or low-confidence pairs.
func AnalyzePair(a, b AircraftState, cfg *config.TuningConfig) (Conflict, bool) {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}

	lowThreshold := cfg.GetProximityLowSeverityThresholdNM()
	rawDist, err := geo.DistanceNM(a.Lat, a.Lon, b.Lat, b.Lon)
	if err != nil || rawDist > 2*lowThreshold {
		return Conflict{}, false
	}

	var vertSep *float64
	if a.AltitudeFt != nil && b.AltitudeFt != nil {
		v := math.Abs(*a.AltitudeFt - *b.AltitudeFt)
		vertSep = &v
	}

	trackA, speedA := floatOr(a.TrackDeg, 0), floatOr(a.GroundSpeedKts, 0)
	trackB, speedB := floatOr(b.TrackDeg, 0), floatOr(b.GroundSpeedKts, 0)

	closureRate := closureRateKts(a, b, trackA, speedA, trackB, speedB)
	if closureRate <= cfg.GetClosureRateThresholdKts() {
		return Conflict{}, false
	}

	tHours, cpaDist, err := geo.CPA(a.Lat, a.Lon, trackA, speedA, b.Lat, b.Lon, trackB, speedB)
	if err != nil {
		return Conflict{}, false
	}
	if tHours <= 0 {
		// Already diverging: CPA is now, no warning.
		return Conflict{}, false
	}
	tMinutes := tHours * 60
	if tMinutes > cfg.GetMaxTimeToCPAMinutes() {
		return Conflict{}, false
	}

	warningType := classifyWarning(a, b, trackA, trackB, vertSep)
	severity, ok := combinedSeverity(cpaDist, vertSep)
	if !ok {
		return Conflict{}, false
	}

	confidence := 1.0
	if a.TrackDeg == nil {
		confidence -= 0.2
	}
	if b.TrackDeg == nil {
		confidence -= 0.2
	}
	if a.GroundSpeedKts == nil {
		confidence -= 0.15
	}
	if b.GroundSpeedKts == nil {
		confidence -= 0.15
	}
	if a.AltitudeFt == nil {
		confidence -= 0.1
	}
	if b.AltitudeFt == nil {
		confidence -= 0.1
	}
	if tMinutes > 20 {
		confidence -= 0.2
	} else if tMinutes > 10 {
		confidence -= 0.1
	}

	if cpaDist >= lowThreshold || confidence < cfg.GetProximityMinConfidence() {
		return Conflict{}, false
	}

	c := Conflict{
		WarningType:          warningType,
		Severity:             severity,
		CPADistanceNM:        cpaDist,
		TimeToCPAMinutes:     tMinutes,
		ClosureRateKts:       closureRate,
		VerticalSeparationFt: vertSep,
		Confidence:           confidence,
	}
	c.Hex1, c.Hex2 = orderPair(a.Hex, b.Hex)
	return c, true
}

// ScanAll iterates every unordered pair in the snapshot and returns
// the surviving conflicts.
func ScanAll(snapshot []AircraftState, cfg *config.TuningConfig) []Conflict {
	var out []Conflict
	for i := 0; i < len(snapshot); i++ {
		for j := i + 1; j < len(snapshot); j++ {
			if c, ok := AnalyzePair(snapshot[i], snapshot[j], cfg); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// closureRateKts projects the relative velocity of b w.r.t. a onto the
// bearing from a to b; positive means the pair is closing.
func closureRateKts(a, b AircraftState, trackA, speedA, trackB, speedB float64) float64 {
	originLat := (a.Lat + b.Lat) / 2
	originLon := (a.Lon + b.Lon) / 2
	xa, ya := geo.ProjectTangent(originLat, originLon, a.Lat, a.Lon)
	xb, yb := geo.ProjectTangent(originLat, originLon, b.Lat, b.Lon)
	vxa, vya := geo.VelocityComponents(trackA, speedA)
	vxb, vyb := geo.VelocityComponents(trackB, speedB)

	px, py := xb-xa, yb-ya
	dist := math.Hypot(px, py)
	if dist < 1e-9 {
		return 0
	}
	// Relative velocity of b toward a, projected on the separation axis.
	rvx, rvy := vxb-vxa, vyb-vya
	return -(rvx*px + rvy*py) / dist
}

func classifyWarning(a, b AircraftState, trackA, trackB float64, vertSep *float64) string {
	// Rule order matters: a co-altitude pair classifies as
	// same_altitude even when the geometry is head-on, so a
	// convergence label here implies the pair is at least 500 ft apart
	// vertically or its vertical separation is unknown.
	if vertSep != nil && *vertSep < 500 {
		return TypeSameAltitude
	}

	dHdg := headingDiff(trackA, trackB)
	switch {
	case dHdg < 30:
		return TypeParallelApproach
	case dHdg > 150:
		return TypeConvergence
	case dHdg > 60 && dHdg < 120:
		return TypeCrossing
	}
	if vertSep != nil && *vertSep < 2000 {
		return TypeVerticalConflict
	}
	return TypeConvergence
}

// headingDiff is the absolute angular difference in [0,180].
func headingDiff(h1, h2 float64) float64 {
	d := math.Mod(math.Abs(h1-h2), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// combinedSeverity grades the lateral CPA distance and the vertical
// separation independently and takes the higher of the two.
func combinedSeverity(cpaDistNM float64, vertSep *float64) (string, bool) {
	lateral := ""
	switch {
	case cpaDistNM < 3:
		lateral = SeverityCritical
	case cpaDistNM < 5:
		lateral = SeverityHigh
	case cpaDistNM < 10:
		lateral = SeverityMedium
	case cpaDistNM < 20:
		lateral = SeverityLow
	}

	vertical := ""
	if vertSep != nil {
		switch {
		case *vertSep < 500:
			vertical = SeverityCritical
		case *vertSep < 1000:
			vertical = SeverityHigh
		case *vertSep < 2000:
			vertical = SeverityMedium
		case *vertSep < 3000:
			vertical = SeverityLow
		}
	}

	if lateral == "" && vertical == "" {
		return "", false
	}
	if lateral == "" {
		return vertical, true
	}
	if vertical == "" {
		return lateral, true
	}
	if severityRank[vertical] > severityRank[lateral] {
		return vertical, true
	}
	return lateral, true
}

func orderPair(h1, h2 string) (string, string) {
	if h2 < h1 {
		return h2, h1
	}
	return h1, h2
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
