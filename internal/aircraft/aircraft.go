// Package aircraft defines the core entities shared across the fusion
// pipeline: the aircraft identity record, its time-stamped positions,
// and contiguous flight activity periods.
package aircraft

import "time"

// MilitaryCategory is the detected sub-type of a military aircraft, set
// by the reclassification rule engine rather than trusted upstream data.
type MilitaryCategory string

const (
	CategoryTanker     MilitaryCategory = "tanker"
	CategoryAWACS      MilitaryCategory = "awacs"
	CategoryISR        MilitaryCategory = "isr"
	CategoryTransport  MilitaryCategory = "transport"
	CategoryFighter    MilitaryCategory = "fighter"
	CategoryHelicopter MilitaryCategory = "helicopter"
	CategoryTrainer    MilitaryCategory = "trainer"
	CategoryOther      MilitaryCategory = "other"
)

// Aircraft is the identity record for one ICAO hex. Hex is always
// stored upper-case. Attributes update monotonically: non-null wins
// unless a later trusted source overwrites, per ApplyUpdate.
type Aircraft struct {
	Hex        string
	TypeCode   string
	Operator   string
	IsMilitary bool
	Category   MilitaryCategory
	Country    string
	Sources    []string
	FirstSeen  time.Time
	LastSeen   time.Time
}

// Position is a single time-stamped sample for an ICAO hex. Altitude,
// GroundSpeedKts, TrackDeg and VerticalRateFpm are optional. Lat/Lon
// are always both present or the position was rejected before
// construction (see Validate).
type Position struct {
	Hex             string
	Lat             float64
	Lon             float64
	AltitudeFt      *float64
	GroundSpeedKts  *float64
	TrackDeg        *float64
	VerticalRateFpm *float64
	Source          string
	SeenAgeSec      float64
	SeenPosAgeSec   float64
	Timestamp       time.Time
}

// Validate enforces the coordinate invariant: both lat and lon
// present and within range, or the position is rejected outright.
func (p Position) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return errInvalidCoord("lat", p.Lat)
	}
	if p.Lon <= -180 || p.Lon > 180 {
		return errInvalidCoord("lon", p.Lon)
	}
	return nil
}

// ApplyUpdate folds a newly observed record into the aircraft identity:
// string attributes are non-null-wins (an empty incoming value never
// overwrites an existing one), while IsMilitary and Category are always
// set to the reclassification rule engine's result, which corrects
// both missing flags and upstream false positives. Sources are
// unioned and LastSeen advances to the later timestamp.
func (a Aircraft) ApplyUpdate(typeCode, operator, country string, isMilitary bool, category MilitaryCategory, sources []string, seenAt time.Time) Aircraft {
	out := a
	if typeCode != "" {
		out.TypeCode = typeCode
	}
	if operator != "" {
		out.Operator = operator
	}
	if country != "" {
		out.Country = country
	}
	out.IsMilitary = isMilitary
	out.Category = category
	out.Sources = unionSources(out.Sources, sources)
	if out.FirstSeen.IsZero() || seenAt.Before(out.FirstSeen) {
		out.FirstSeen = seenAt
	}
	if seenAt.After(out.LastSeen) {
		out.LastSeen = seenAt
	}
	return out
}

// Flight is a contiguous activity period for one aircraft.
type Flight struct {
	ID              string
	Hex             string
	DepartureTime   time.Time
	ArrivalTime     *time.Time
	DetectedPattern string
}
