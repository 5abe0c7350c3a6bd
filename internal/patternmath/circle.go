package patternmath

import (
	"math"

	"github.com/skywatch-oss/fusion-engine/internal/geo"
)

// CircleFit is the result of fitting a circle to a sequence of points
// on a local tangent plane.
type CircleFit struct {
	CenterLat    float64
	CenterLon    float64
	RadiusNM     float64
	MeanErrorNM  float64 // mean absolute deviation of points from RadiusNM
	Confidence   float64 // derived from mean error relative to radius
}

// FitCircle fits a circle (Kasa algebraic fit) to points projected onto
// a local tangent plane centred at their mean position, then reports
// the fit quality as a function of mean radial error relative to the
// radius. Returns the zero value if fewer than 3 points are given.
func FitCircle(points []Point) CircleFit {
	if len(points) < 3 {
		return CircleFit{}
	}

	var meanLat, meanLon float64
	for _, p := range points {
		meanLat += p.Lat
		meanLon += p.Lon
	}
	n := float64(len(points))
	meanLat /= n
	meanLon /= n

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = geo.ProjectTangent(meanLat, meanLon, p.Lat, p.Lon)
	}

	// Kasa algebraic circle fit: minimise sum((x-a)^2+(y-b)^2-r^2)^2
	// via the linear system derived from centring the data.
	var sumX, sumY, sumXX, sumYY, sumXY, sumXXX, sumYYY, sumXYY, sumXXY float64
	for i := range xs {
		x, y := xs[i], ys[i]
		sumX += x
		sumY += y
		sumXX += x * x
		sumYY += y * y
		sumXY += x * y
		sumXXX += x * x * x
		sumYYY += y * y * y
		sumXYY += x * y * y
		sumXXY += x * x * y
	}

	c1 := n*sumXX - sumX*sumX
	c2 := n*sumXY - sumX*sumY
	c3 := n*sumYY - sumY*sumY
	c4 := 0.5 * (n*sumXYY - sumX*sumYY + n*sumXXX - sumX*sumXX)
	c5 := 0.5 * (n*sumXXY - sumY*sumXX + n*sumYYY - sumY*sumYY)

	det := c1*c3 - c2*c2
	if math.Abs(det) < 1e-9 {
		return CircleFit{}
	}
	a := (c4*c3 - c2*c5) / det
	b := (c1*c5 - c2*c4) / det
	a += sumX / n
	b += sumY / n

	radius := 0.0
	for i := range xs {
		radius += math.Hypot(xs[i]-(a-sumX/n), ys[i]-(b-sumY/n))
	}
	// Recompute centred-coordinate radius properly below; the above
	// pass used un-centred a/b so redo distances against the final
	// centre in tangent-plane coordinates directly.
	centerX, centerY := a, b
	radius = 0
	for i := range xs {
		radius += math.Hypot(xs[i]-centerX, ys[i]-centerY)
	}
	radius /= n

	meanErr := 0.0
	for i := range xs {
		d := math.Hypot(xs[i]-centerX, ys[i]-centerY)
		meanErr += math.Abs(d - radius)
	}
	meanErr /= n

	confidence := 0.0
	if radius > 0 {
		confidence = 1 - meanErr/radius
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
	}

	centerLat := meanLat + centerY/geo.NMPerDegreeLat
	centerLon := meanLon + centerX/(geo.NMPerDegreeLat*math.Cos(meanLat*math.Pi/180))

	return CircleFit{
		CenterLat:   centerLat,
		CenterLon:   centerLon,
		RadiusNM:    radius,
		MeanErrorNM: meanErr,
		Confidence:  confidence,
	}
}
