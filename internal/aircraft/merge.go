package aircraft

// UpstreamRecord is the common shape every upstream provider normalizes
// into before merge, mirroring the bulk/point-radius/by-hex wire record
// (hex, flight, r, t, desc, lat, lon, alt_baro, alt_geom, gs, track,
// baro_rate, squawk, seen, seen_pos, category, ownOp, mil) plus the
// nested "last position" object some providers substitute for a
// top-level lat/lon.
type UpstreamRecord struct {
	Hex            string
	Flight         *string
	Registration   *string
	TypeCode       *string
	Description    *string
	Lat            *float64
	Lon            *float64
	AltBaroFt      *float64
	AltGeomFt      *float64
	GroundSpeedKts *float64
	TrackDeg       *float64
	BaroRateFpm    *float64
	Squawk         *string
	SeenSec        *float64
	SeenPosSec     *float64
	Category       *string
	Country        *string
	OwnOp          *string
	Mil            bool
	Sources        []string
	LastPosition   *NestedPosition
}

// NestedPosition is the "last position" object some bulk providers
// nest a stale position inside instead of setting top-level lat/lon.
type NestedPosition struct {
	Lat        float64
	Lon        float64
	SeenPosSec *float64
}

// PromotePosition copies a record's nested last-position lat/lon (and
// its staleness seconds) up to the top level when the top level is
// absent.
func PromotePosition(r UpstreamRecord) UpstreamRecord {
	if r.Lat != nil || r.Lon != nil || r.LastPosition == nil {
		return r
	}
	lat, lon := r.LastPosition.Lat, r.LastPosition.Lon
	r.Lat = &lat
	r.Lon = &lon
	if r.LastPosition.SeenPosSec != nil {
		r.SeenPosSec = r.LastPosition.SeenPosSec
	}
	return r
}

// MergeAircraft combines two records for the same ICAO hex with the
// merge policy: non-null wins; when both sides carry a value, the left
// (earlier-seen) side is preferred, except seen/seen_pos (minimum) and
// mil (logical OR, ahead of reclassification). The originating source
// names are unioned. Merging a record with itself is the identity.
func MergeAircraft(left, right UpstreamRecord) UpstreamRecord {
	out := UpstreamRecord{
		Hex:            firstNonEmpty(left.Hex, right.Hex),
		Flight:         mergeStringPtr(left.Flight, right.Flight),
		Registration:   mergeStringPtr(left.Registration, right.Registration),
		TypeCode:       mergeStringPtr(left.TypeCode, right.TypeCode),
		Description:    mergeStringPtr(left.Description, right.Description),
		Lat:            mergeFloatPtr(left.Lat, right.Lat),
		Lon:            mergeFloatPtr(left.Lon, right.Lon),
		AltBaroFt:      mergeFloatPtr(left.AltBaroFt, right.AltBaroFt),
		AltGeomFt:      mergeFloatPtr(left.AltGeomFt, right.AltGeomFt),
		GroundSpeedKts: mergeFloatPtr(left.GroundSpeedKts, right.GroundSpeedKts),
		TrackDeg:       mergeFloatPtr(left.TrackDeg, right.TrackDeg),
		BaroRateFpm:    mergeFloatPtr(left.BaroRateFpm, right.BaroRateFpm),
		Squawk:         mergeStringPtr(left.Squawk, right.Squawk),
		SeenSec:        mergeMinFloatPtr(left.SeenSec, right.SeenSec),
		SeenPosSec:     mergeMinFloatPtr(left.SeenPosSec, right.SeenPosSec),
		Category:       mergeStringPtr(left.Category, right.Category),
		Country:        mergeStringPtr(left.Country, right.Country),
		OwnOp:          mergeStringPtr(left.OwnOp, right.OwnOp),
		Mil:            left.Mil || right.Mil,
		Sources:        unionSources(left.Sources, right.Sources),
	}
	return out
}

func firstNonEmpty(left, right string) string {
	if left != "" {
		return left
	}
	return right
}

func mergeStringPtr(left, right *string) *string {
	if left != nil {
		return left
	}
	return right
}

func mergeFloatPtr(left, right *float64) *float64 {
	if left != nil {
		return left
	}
	return right
}

func mergeMinFloatPtr(left, right *float64) *float64 {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if *right < *left {
		return right
	}
	return left
}

func unionSources(left, right []string) []string {
	seen := make(map[string]struct{}, len(left)+len(right))
	var out []string
	for _, s := range append(append([]string{}, left...), right...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
