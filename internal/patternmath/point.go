// Package patternmath provides pure functions over ordered position
// sequences used to recognise canonical military flight patterns:
// circle fitting, heading-reversal detection, angular velocity and
// direction, area confinement, and racetrack parameter extraction.
package patternmath

import (
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/geo"
)

// Point is a single sample in an ordered track used by the pattern
// math routines. Heading and Altitude are optional (nil when unknown).
type Point struct {
	Lat       float64
	Lon       float64
	Timestamp time.Time
	Heading   *float64 // degrees [0,360)
	Altitude  *float64 // feet
}

// Direction classifies the sense of rotation of a sequence of points.
type Direction string

const (
	Clockwise        Direction = "clockwise"
	CounterClockwise Direction = "counter-clockwise"
	Indeterminate    Direction = "indeterminate"
)

// Duration returns the elapsed time between the first and last point.
// Returns zero for fewer than two points.
func Duration(points []Point) time.Duration {
	if len(points) < 2 {
		return 0
	}
	return points[len(points)-1].Timestamp.Sub(points[0].Timestamp)
}

// TotalPathLength sums the haversine great-circle distance (nm)
// between consecutive points, as computed by geo.DistanceNM; a pair
// with an out-of-range coordinate contributes nothing.
func TotalPathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		d, err := geo.DistanceNM(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		if err != nil {
			continue
		}
		total += d
	}
	return total
}
