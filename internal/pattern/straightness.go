package pattern

import (
	"github.com/skywatch-oss/fusion-engine/internal/geo"
	"github.com/skywatch-oss/fusion-engine/internal/patternmath"
)

// Straightness returns displacement/path-length in [0, 1]: 1.0 for a
// perfectly straight track, close to 0 for tracks that loop back near
// their origin.
func Straightness(points []patternmath.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	length := patternmath.TotalPathLength(points)
	if length <= 0 {
		return 0
	}
	first, last := points[0], points[len(points)-1]
	displacement, err := geo.DistanceNM(first.Lat, first.Lon, last.Lat, last.Lon)
	if err != nil {
		return 0
	}
	return clamp01(displacement / length)
}
