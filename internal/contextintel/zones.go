package contextintel

import (
	"fmt"
	"math"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// PositionSample is the minimal slice of a recorded position the zone
// clustering needs.
type PositionSample struct {
	Hex        string
	Lat        float64
	Lon        float64
	RecordedAt time.Time
}

// RefreshZones clusters the given position history (typically the past
// 24 hours of military traffic) into fixed-size lat/lon buckets and
// materializes an activity zone for every bucket that saw at least the
// configured number of unique aircraft. Zone activity level grades by
// unique-aircraft count.
func RefreshZones(samples []PositionSample, now time.Time, cfg *config.TuningConfig) []ActivityZone {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	bucketDeg := cfg.GetActivityZoneBucketDeg()
	minAircraft := cfg.GetActivityZoneMinAircraft()

	type bucket struct {
		lat, lon float64
		hexes    map[string]bool
		latest   time.Time
	}
	buckets := make(map[string]*bucket)

	for _, sample := range samples {
		bLat := math.Floor(sample.Lat/bucketDeg) * bucketDeg
		bLon := math.Floor(sample.Lon/bucketDeg) * bucketDeg
		key := fmt.Sprintf("%.4f:%.4f", bLat, bLon)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{lat: bLat + bucketDeg/2, lon: bLon + bucketDeg/2, hexes: make(map[string]bool)}
			buckets[key] = b
		}
		b.hexes[sample.Hex] = true
		if sample.RecordedAt.After(b.latest) {
			b.latest = sample.RecordedAt
		}
	}

	staleCutoff := now.Add(-time.Duration(cfg.GetActivityZoneStaleHours() * float64(time.Hour)))

	var zones []ActivityZone
	for key, b := range buckets {
		if len(b.hexes) < minAircraft {
			continue
		}
		zones = append(zones, ActivityZone{
			ID:                  "zone-" + key,
			BucketLat:           b.lat,
			BucketLon:           b.lon,
			ActivityLevel:       levelFor(len(b.hexes)),
			UniqueAircraftCount: len(b.hexes),
			IsActive:            b.latest.After(staleCutoff),
			LastBucketAt:        b.latest,
		})
	}
	return zones
}

func levelFor(uniqueAircraft int) string {
	switch {
	case uniqueAircraft >= 10:
		return "intense"
	case uniqueAircraft >= 6:
		return "high"
	case uniqueAircraft >= 4:
		return "moderate"
	default:
		return "low"
	}
}
