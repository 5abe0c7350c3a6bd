package patternmath

import "math"

// RacetrackParams describes the two dominant legs of a racetrack
// pattern: two headings 150-210 degrees apart, an estimated leg length
// and turn width, and a confidence derived from how cleanly the track
// splits into two heading clusters.
type RacetrackParams struct {
	Heading1, Heading2 float64
	LegLengthNM        float64
	WidthNM            float64
	Confidence         float64
	Found              bool
}

// DetectRacetrackParams clusters the headings present in points into
// two dominant groups 150-210 degrees apart and derives racetrack
// geometry. Returns Found=false if no clean two-heading pattern exists.
func DetectRacetrackParams(points []Point) RacetrackParams {
	var headings []float64
	for _, p := range points {
		if p.Heading != nil {
			headings = append(headings, *p.Heading)
		}
	}
	if len(headings) < 4 {
		return RacetrackParams{}
	}

	// Seed cluster 1 with the first heading, then greedily assign each
	// heading to whichever of the two evolving cluster means it is
	// closer to (in angular terms), growing cluster 2 on first
	// divergence of more than 90 degrees from cluster 1's mean.
	c1 := []float64{headings[0]}
	var c2 []float64
	for _, h := range headings[1:] {
		mean1 := circularMean(c1)
		if len(c2) == 0 {
			if math.Abs(angularDiff(mean1, h)) > 90 {
				c2 = append(c2, h)
				continue
			}
			c1 = append(c1, h)
			continue
		}
		mean2 := circularMean(c2)
		if math.Abs(angularDiff(mean1, h)) <= math.Abs(angularDiff(mean2, h)) {
			c1 = append(c1, h)
		} else {
			c2 = append(c2, h)
		}
	}

	if len(c1) == 0 || len(c2) == 0 {
		return RacetrackParams{}
	}

	h1 := circularMean(c1)
	h2 := circularMean(c2)
	sep := math.Abs(angularDiff(h1, h2))
	if sep < 150 || sep > 210 {
		return RacetrackParams{}
	}

	totalLen := TotalPathLength(points)
	legLength := totalLen / 2

	box := CheckAreaConfinement(points, math.MaxFloat64)
	width := math.Min(box.Box.MaxLat-box.Box.MinLat, box.Box.MaxLon-box.Box.MinLon) * 60

	// Confidence: how tightly each cluster hugs its mean heading, and
	// how close the separation is to the ideal 180 degrees.
	purity := (headingPurity(c1, h1) + headingPurity(c2, h2)) / 2
	sepScore := 1 - math.Abs(sep-180)/30
	confidence := 0.6*purity + 0.4*math.Max(0, sepScore)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return RacetrackParams{
		Heading1:    h1,
		Heading2:    h2,
		LegLengthNM: legLength,
		WidthNM:     math.Abs(width),
		Confidence:  confidence,
		Found:       true,
	}
}

func circularMean(headings []float64) float64 {
	var sx, sy float64
	for _, h := range headings {
		r := h * math.Pi / 180
		sx += math.Cos(r)
		sy += math.Sin(r)
	}
	return math.Mod(math.Atan2(sy, sx)*180/math.Pi+360, 360)
}

func headingPurity(headings []float64, mean float64) float64 {
	if len(headings) == 0 {
		return 0
	}
	var sumDev float64
	for _, h := range headings {
		sumDev += math.Abs(angularDiff(mean, h))
	}
	meanDev := sumDev / float64(len(headings))
	return math.Max(0, 1-meanDev/45)
}
