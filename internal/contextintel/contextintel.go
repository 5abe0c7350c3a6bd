// Package contextintel scores the geographic context of a point: the
// nearest strategic infrastructure, the containing airspace volumes,
// and the containing military activity zone, combined into a single
// intelligence-value grade.
package contextintel

import (
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/geo"
	"github.com/skywatch-oss/fusion-engine/internal/geofence"
)

// Infrastructure is one strategic ground entity (base, port, radar
// site, ...) with a graded importance.
type Infrastructure struct {
	ID         string
	Name       string
	Category   string
	Importance string // critical, high, medium, low
	Lat        float64
	Lon        float64
	IsActive   bool
}

// Airspace is one airspace volume with optional altitude limits.
type Airspace struct {
	ID        string
	Name      string
	Class     string
	Polygon   geofence.Polygon
	FloorFt   *float64
	CeilingFt *float64
}

// ActivityZone is one materialized cluster of recent military
// activity.
type ActivityZone struct {
	ID                  string
	BucketLat           float64
	BucketLon           float64
	ActivityLevel       string // intense, high, moderate, low
	UniqueAircraftCount int
	IsActive            bool
	LastBucketAt        time.Time
}

var importanceScores = map[string]float64{
	"critical": 1.0,
	"high":     0.8,
	"medium":   0.5,
	"low":      0.3,
}

var airspaceClassScores = map[string]float64{
	"prohibited": 1.0,
	"restricted": 0.9,
	"danger":     0.8,
	"moa":        0.7,
	"tfr":        0.7,
	"warning":    0.6,
	"alert":      0.5,
	"class_b":    0.3,
	"class_c":    0.2,
	"class_d":    0.1,
}

var activityLevelScores = map[string]float64{
	"intense":  1.0,
	"high":     0.8,
	"moderate": 0.5,
	"low":      0.2,
}

// Score is the combined geographic-context assessment of a point.
type Score struct {
	InfrastructureScore   float64
	NearestInfrastructure string
	NearestDistanceNM     float64
	AirspaceScore         float64
	ContainingAirspace    string
	ActivityScore         float64
	Combined              float64
	IntelligenceValue     string // critical, high, moderate, low
}

// infrastructureRangeNM is the distance at which an infrastructure
// entity stops contributing to the score.
const infrastructureRangeNM = 100.0

// Evaluate scores (lat, lon, optional altitude) against the provided
// context sets. altitudeFt of nil means altitude limits on airspace
// volumes are ignored.
func Evaluate(lat, lon float64, altitudeFt *float64, infra []Infrastructure, airspaces []Airspace, zones []ActivityZone) Score {
	var s Score

	nearestDist := -1.0
	for _, entity := range infra {
		if !entity.IsActive {
			continue
		}
		d, err := geo.DistanceNM(lat, lon, entity.Lat, entity.Lon)
		if err != nil {
			continue
		}
		if nearestDist < 0 || d < nearestDist {
			nearestDist = d
			s.NearestInfrastructure = entity.Name
			s.NearestDistanceNM = d
			factor := 1 - d/infrastructureRangeNM
			if factor < 0 {
				factor = 0
			}
			s.InfrastructureScore = importanceScores[entity.Importance] * factor
		}
	}

	for _, volume := range airspaces {
		if !volume.Polygon.Contains(lat, lon) {
			continue
		}
		if altitudeFt != nil {
			if volume.FloorFt != nil && *altitudeFt < *volume.FloorFt {
				continue
			}
			if volume.CeilingFt != nil && *altitudeFt > *volume.CeilingFt {
				continue
			}
		}
		if score := airspaceClassScores[volume.Class]; score > s.AirspaceScore {
			s.AirspaceScore = score
			s.ContainingAirspace = volume.Name
		}
	}

	for _, zone := range zones {
		if !zone.IsActive {
			continue
		}
		if containsPoint(zone, lat, lon) {
			if score := activityLevelScores[zone.ActivityLevel]; score > s.ActivityScore {
				s.ActivityScore = score
			}
		}
	}

	s.Combined = 0.35*s.InfrastructureScore + 0.35*s.AirspaceScore + 0.30*s.ActivityScore
	switch {
	case s.Combined >= 0.8:
		s.IntelligenceValue = "critical"
	case s.Combined >= 0.6:
		s.IntelligenceValue = "high"
	case s.Combined >= 0.3:
		s.IntelligenceValue = "moderate"
	default:
		s.IntelligenceValue = "low"
	}
	return s
}

// containsPoint treats an activity zone as a disc of the clustering
// radius around its bucket centre.
func containsPoint(zone ActivityZone, lat, lon float64) bool {
	d, err := geo.DistanceNM(lat, lon, zone.BucketLat, zone.BucketLon)
	if err != nil {
		return false
	}
	return d <= defaultZoneRadiusNM
}

const defaultZoneRadiusNM = 30.0
