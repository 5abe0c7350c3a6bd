// Package formation detects multi-aircraft formations (tanker/receiver,
// escort, strike package, combat air patrol) from a snapshot of active
// military aircraft.
package formation

import (
	"math"
	"sort"
	"strconv"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/geo"
	"github.com/skywatch-oss/fusion-engine/internal/pattern"
)

// AircraftState is one aircraft's latest known kinematic state, as
// fed into the detector from a snapshot of positions seen within the
// last 5 minutes.
type AircraftState struct {
	Hex            string
	TypeCode       string
	Category       aircraft.MilitaryCategory
	Lat            float64
	Lon            float64
	AltitudeFt     *float64
	TrackDeg       *float64
	GroundSpeedKts *float64
	RecentPattern  pattern.Name
}

const (
	TypeTankerReceiver = "tanker_receiver"
	TypeEscort         = "escort"
	TypeStrikePackage  = "strike_package"
	TypeCAP            = "cap"
)

// Detection is one formation candidate, ready to be upserted.
type Detection struct {
	FormationType string
	LeadHex       string
	Members       []string
	CenterLat     float64
	CenterLon     float64
	SpreadNM      float64
	AvgHeadingDeg float64
	AltitudeBand  string
	Confidence    float64
}

var tankerTypeCodes = map[string]bool{
	"K35R": true, "KC135": true, "KC10": true, "KC46": true,
}

func isTanker(a AircraftState) bool {
	return a.Category == aircraft.CategoryTanker || tankerTypeCodes[a.TypeCode]
}

func isFighter(a AircraftState) bool {
	return a.Category == aircraft.CategoryFighter
}

func isHighValueAsset(a AircraftState) bool {
	return a.Category == aircraft.CategoryAWACS || a.Category == aircraft.CategoryISR
}

func altOf(a AircraftState) (float64, bool) {
	if a.AltitudeFt == nil {
		return 0, false
	}
	return *a.AltitudeFt, true
}

func headingOf(a AircraftState) (float64, bool) {
	if a.TrackDeg == nil {
		return 0, false
	}
	return *a.TrackDeg, true
}

// headingDelta returns the absolute angular difference in [0,180].
func headingDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func distanceNM(a, b AircraftState) float64 {
	d, _ := geo.DistanceNM(a.Lat, a.Lon, b.Lat, b.Lon)
	return d
}

// DetectAll runs every formation rule against the snapshot and returns
// all qualifying detections, unordered.
func DetectAll(snapshot []AircraftState, cfg *config.TuningConfig) []Detection {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	var out []Detection
	out = append(out, detectTankerReceiver(snapshot, cfg)...)
	out = append(out, detectEscort(snapshot, cfg)...)
	out = append(out, detectStrikePackage(snapshot, cfg)...)
	out = append(out, detectCAP(snapshot, cfg)...)
	return out
}

func detectTankerReceiver(snapshot []AircraftState, cfg *config.TuningConfig) []Detection {
	radius := cfg.GetTankerReceiverRadiusNM()
	hdgTol := cfg.GetTankerReceiverHeadingToleranceDeg()
	var out []Detection

	for _, tanker := range snapshot {
		if !isTanker(tanker) {
			continue
		}
		tAlt, ok := altOf(tanker)
		if !ok || tAlt < 20000 || tAlt > 35000 {
			continue
		}
		var receivers []AircraftState
		for _, other := range snapshot {
			if other.Hex == tanker.Hex || isTanker(other) {
				continue
			}
			oAlt, ok := altOf(other)
			if !ok || oAlt < 20000 || oAlt > 35000 {
				continue
			}
			if distanceNM(tanker, other) > radius {
				continue
			}
			tHdg, tok := headingOf(tanker)
			oHdg, ook := headingOf(other)
			if tok && ook && headingDelta(tHdg, oHdg) > hdgTol {
				continue
			}
			receivers = append(receivers, other)
		}
		if len(receivers) == 0 {
			continue
		}

		confidence := 0.5
		tHdg, tok := headingOf(tanker)
		var altAlign, hdgAlign float64
		for _, r := range receivers {
			rAlt, _ := altOf(r)
			if math.Abs(rAlt-tAlt) < 2000 {
				altAlign++
			}
			if rHdg, rok := headingOf(r); tok && rok {
				if headingDelta(tHdg, rHdg) < 15 {
					hdgAlign++
				}
			}
		}
		if altAlign > 0 {
			confidence += 0.2 * minF(1, altAlign/float64(len(receivers)))
		}
		if hdgAlign > 0 {
			confidence += 0.3 * minF(1, hdgAlign/float64(len(receivers)))
		}

		members := append([]AircraftState{tanker}, receivers...)
		out = append(out, buildDetection(TypeTankerReceiver, tanker.Hex, members, clamp01(confidence)))
	}
	return out
}

func detectEscort(snapshot []AircraftState, cfg *config.TuningConfig) []Detection {
	radius := cfg.GetEscortRadiusNM()
	hdgTol := cfg.GetEscortHeadingToleranceDeg()
	var out []Detection

	for _, asset := range snapshot {
		if !isHighValueAsset(asset) {
			continue
		}
		var escorts []AircraftState
		for _, other := range snapshot {
			if other.Hex == asset.Hex || !isFighter(other) {
				continue
			}
			if distanceNM(asset, other) > radius {
				continue
			}
			aHdg, aok := headingOf(asset)
			oHdg, ook := headingOf(other)
			if aok && ook && headingDelta(aHdg, oHdg) > hdgTol {
				continue
			}
			escorts = append(escorts, other)
		}
		if len(escorts) == 0 {
			continue
		}
		confidence := clamp01(0.5 + 0.15*float64(len(escorts)))
		if confidence > 0.95 {
			confidence = 0.95
		}
		members := append([]AircraftState{asset}, escorts...)
		out = append(out, buildDetection(TypeEscort, asset.Hex, members, confidence))
	}
	return out
}

func detectStrikePackage(snapshot []AircraftState, cfg *config.TuningConfig) []Detection {
	radius := cfg.GetStrikePackageRadiusNM()
	minCount := cfg.GetStrikePackageMinCount()

	var fighters []AircraftState
	for _, a := range snapshot {
		if isFighter(a) {
			fighters = append(fighters, a)
		}
	}
	sort.Slice(fighters, func(i, j int) bool { return fighters[i].Hex < fighters[j].Hex })

	used := make(map[string]bool)
	var out []Detection
	for _, seed := range fighters {
		if used[seed.Hex] {
			continue
		}
		cluster := []AircraftState{seed}
		seedHdg, seedOK := headingOf(seed)
		for _, other := range fighters {
			if other.Hex == seed.Hex || used[other.Hex] {
				continue
			}
			if distanceNM(seed, other) > radius {
				continue
			}
			oHdg, ook := headingOf(other)
			if seedOK && ook && headingDelta(seedHdg, oHdg) > 30 {
				continue
			}
			cluster = append(cluster, other)
		}
		if len(cluster) < minCount {
			continue
		}
		for _, c := range cluster {
			used[c.Hex] = true
		}
		confidence := clamp01(0.5 + 0.1*float64(len(cluster)-3))
		if confidence > 0.9 {
			confidence = 0.9
		}
		out = append(out, buildDetection(TypeStrikePackage, seed.Hex, cluster, confidence))
	}
	return out
}

func detectCAP(snapshot []AircraftState, cfg *config.TuningConfig) []Detection {
	radius := cfg.GetCapRadiusNM()
	minCount := cfg.GetCapMinCount()

	var onStation []AircraftState
	for _, a := range snapshot {
		if !isFighter(a) {
			continue
		}
		if a.RecentPattern == pattern.Orbit || a.RecentPattern == pattern.Racetrack {
			onStation = append(onStation, a)
		}
	}
	sort.Slice(onStation, func(i, j int) bool { return onStation[i].Hex < onStation[j].Hex })

	used := make(map[string]bool)
	var out []Detection
	for _, seed := range onStation {
		if used[seed.Hex] {
			continue
		}
		cluster := []AircraftState{seed}
		for _, other := range onStation {
			if other.Hex == seed.Hex || used[other.Hex] {
				continue
			}
			if distanceNM(seed, other) > radius {
				continue
			}
			cluster = append(cluster, other)
		}
		if len(cluster) < minCount {
			continue
		}
		for _, c := range cluster {
			used[c.Hex] = true
		}
		confidence := clamp01(0.6 + 0.1*float64(len(cluster)-2))
		if confidence > 0.85 {
			confidence = 0.85
		}
		out = append(out, buildDetection(TypeCAP, seed.Hex, cluster, confidence))
	}
	return out
}

func buildDetection(formationType, leadHex string, members []AircraftState, confidence float64) Detection {
	var sumLat, sumLon float64
	var sumHdg, hdgCount float64
	altMin, altMax := math.MaxFloat64, -math.MaxFloat64
	hasAlt := false
	hexes := make([]string, 0, len(members))
	for _, m := range members {
		sumLat += m.Lat
		sumLon += m.Lon
		hexes = append(hexes, m.Hex)
		if hdg, ok := headingOf(m); ok {
			sumHdg += hdg
			hdgCount++
		}
		if alt, ok := altOf(m); ok {
			hasAlt = true
			if alt < altMin {
				altMin = alt
			}
			if alt > altMax {
				altMax = alt
			}
		}
	}
	n := float64(len(members))
	centerLat, centerLon := sumLat/n, sumLon/n

	var spread float64
	for _, m := range members {
		d, _ := geo.DistanceNM(centerLat, centerLon, m.Lat, m.Lon)
		if d > spread {
			spread = d
		}
	}

	avgHeading := 0.0
	if hdgCount > 0 {
		avgHeading = sumHdg / hdgCount
	}

	band := ""
	if hasAlt {
		band = altitudeBandLabel(altMin, altMax)
	}

	return Detection{
		FormationType: formationType,
		LeadHex:       leadHex,
		Members:       hexes,
		CenterLat:     centerLat,
		CenterLon:     centerLon,
		SpreadNM:      spread,
		AvgHeadingDeg: avgHeading,
		AltitudeBand:  band,
		Confidence:    confidence,
	}
}

func altitudeBandLabel(min, max float64) string {
	flMin, flMax := int(min/100), int(max/100)
	if flMin == flMax {
		return "FL" + strconv.Itoa(flMin)
	}
	return "FL" + strconv.Itoa(flMin) + "-FL" + strconv.Itoa(flMax)
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

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// SharesAircraft reports whether two member hex sets overlap.
func SharesAircraft(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, h := range a {
		set[h] = true
	}
	for _, h := range b {
		if set[h] {
			return true
		}
	}
	return false
}
