package patternmath

import "math"

// angularDiff returns the signed shortest-path difference a2-a1 in
// degrees, wrapped into [-180,180).
func angularDiff(a1, a2 float64) float64 {
	d := math.Mod(a2-a1+540, 360) - 180
	return d
}

// HeadingReversal marks a point index where the track heading changed
// by more than 120 degrees since the previous sample with a known
// heading.
type HeadingReversal struct {
	Index int
	DeltaDeg float64
}

// FindHeadingReversals scans points with a known heading for reversals
// greater than 120 degrees between consecutive samples.
func FindHeadingReversals(points []Point) []HeadingReversal {
	var reversals []HeadingReversal
	var prevHeading *float64
	var prevIndex int
	for i, p := range points {
		if p.Heading == nil {
			continue
		}
		if prevHeading != nil {
			d := math.Abs(angularDiff(*prevHeading, *p.Heading))
			if d > 120 {
				reversals = append(reversals, HeadingReversal{Index: i, DeltaDeg: d})
			}
		}
		prevHeading = p.Heading
		prevIndex = i
	}
	_ = prevIndex
	return reversals
}

// AngularVelocity summarises the rotational motion of a track: mean
// degrees/minute, a consistency score in [0,1] (1 = perfectly steady
// rotation rate and sign), and the dominant rotation direction.
type AngularVelocity struct {
	MeanDegPerMin float64
	Consistency   float64
	Direction     Direction
}

// CalculateAngularVelocity derives rotation rate/consistency/direction
// from the bearing swept between consecutive points (not the reported
// heading, which may be noisy or absent) about the path's centroid.
func CalculateAngularVelocity(points []Point) AngularVelocity {
	if len(points) < 3 {
		return AngularVelocity{Direction: Indeterminate}
	}

	var meanLat, meanLon float64
	for _, p := range points {
		meanLat += p.Lat
		meanLon += p.Lon
	}
	n := float64(len(points))
	meanLat /= n
	meanLon /= n

	// Angle of each point about the centroid, in degrees.
	angles := make([]float64, len(points))
	for i, p := range points {
		dy := p.Lat - meanLat
		dx := (p.Lon - meanLon) * math.Cos(meanLat*math.Pi/180)
		angles[i] = math.Atan2(dx, dy) * 180 / math.Pi
	}

	var rates []float64
	for i := 1; i < len(points); i++ {
		dtMin := points[i].Timestamp.Sub(points[i-1].Timestamp).Minutes()
		if dtMin <= 0 {
			continue
		}
		d := angularDiff(angles[i-1], angles[i])
		rates = append(rates, d/dtMin)
	}
	if len(rates) == 0 {
		return AngularVelocity{Direction: Indeterminate}
	}

	var sum float64
	for _, r := range rates {
		sum += r
	}
	mean := sum / float64(len(rates))

	// Consistency: fraction of rates that share the sign of the mean,
	// scaled by how tightly clustered the magnitudes are.
	sameSign := 0
	var varSum float64
	for _, r := range rates {
		if (r >= 0) == (mean >= 0) {
			sameSign++
		}
		varSum += (r - mean) * (r - mean)
	}
	signConsistency := float64(sameSign) / float64(len(rates))
	stddev := math.Sqrt(varSum / float64(len(rates)))
	magnitudeConsistency := 1.0
	if math.Abs(mean) > 1e-6 {
		magnitudeConsistency = 1 - math.Min(1, stddev/math.Abs(mean))
	}
	consistency := signConsistency * math.Max(0, magnitudeConsistency)
	if consistency < 0 {
		consistency = 0
	}
	if consistency > 1 {
		consistency = 1
	}

	direction := Indeterminate
	if consistency >= 0.3 {
		if mean > 0 {
			direction = Clockwise
		} else if mean < 0 {
			direction = CounterClockwise
		}
	}

	return AngularVelocity{
		MeanDegPerMin: mean,
		Consistency:   consistency,
		Direction:     direction,
	}
}
