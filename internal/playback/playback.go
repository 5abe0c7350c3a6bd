// Package playback drives smooth replay between recorded position
// frames: aircraft are matched by hex across adjacent frames and
// lazily interpolated (great-circle for position, linear for altitude
// and speed, shortest-path angular for track) at the requested wall
// time.
package playback

import (
	"sort"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/geo"
)

// Frame is one recorded snapshot of positions at a single timestamp.
type Frame struct {
	Timestamp time.Time           `json:"timestamp"`
	Positions []aircraft.Position `json:"positions"`
}

// Interpolate produces a synthetic snapshot for wall time t between
// two ordered frames. t outside [f1.Timestamp, f2.Timestamp] clamps to
// the nearer frame. Aircraft present in only one frame are carried
// with a fade rule: the early half of the span keeps the f1-only set,
// the late half keeps the f2-only set.
func Interpolate(f1, f2 Frame, t time.Time) []aircraft.Position {
	span := f2.Timestamp.Sub(f1.Timestamp)
	if span <= 0 {
		return f2.Positions
	}
	frac := float64(t.Sub(f1.Timestamp)) / float64(span)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	byHex2 := make(map[string]aircraft.Position, len(f2.Positions))
	for _, p := range f2.Positions {
		byHex2[p.Hex] = p
	}

	var out []aircraft.Position
	matched := make(map[string]bool)

	for _, p1 := range f1.Positions {
		p2, ok := byHex2[p1.Hex]
		if !ok {
			// f1-only aircraft survive through the early half.
			if frac <= 0.5 {
				out = append(out, p1)
			}
			continue
		}
		matched[p1.Hex] = true
		out = append(out, interpolatePair(p1, p2, frac, t))
	}

	for _, p2 := range f2.Positions {
		if matched[p2.Hex] {
			continue
		}
		// f2-only aircraft appear in the late half.
		if frac > 0.5 {
			out = append(out, p2)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Hex < out[j].Hex })
	return out
}

func interpolatePair(p1, p2 aircraft.Position, frac float64, t time.Time) aircraft.Position {
	out := p1
	out.Timestamp = t

	lat, lon, err := geo.SphericalInterpolate(p1.Lat, p1.Lon, p2.Lat, p2.Lon, frac)
	if err == nil {
		out.Lat, out.Lon = lat, lon
	}

	out.AltitudeFt = lerpPtr(p1.AltitudeFt, p2.AltitudeFt, frac)
	out.GroundSpeedKts = lerpPtr(p1.GroundSpeedKts, p2.GroundSpeedKts, frac)
	out.VerticalRateFpm = lerpPtr(p1.VerticalRateFpm, p2.VerticalRateFpm, frac)

	if p1.TrackDeg != nil && p2.TrackDeg != nil {
		track := geo.InterpolateAngle(*p1.TrackDeg, *p2.TrackDeg, frac)
		out.TrackDeg = &track
	} else if p2.TrackDeg != nil {
		out.TrackDeg = p2.TrackDeg
	}
	return out
}

// lerpPtr linearly interpolates two optional values, carrying the one
// present when the other is missing.
func lerpPtr(a, b *float64, frac float64) *float64 {
	switch {
	case a != nil && b != nil:
		v := *a + (*b-*a)*frac
		return &v
	case a != nil:
		return a
	default:
		return b
	}
}

// FindFrames binary-searches the ordered frame list for the pair
// bracketing t, returning their indices. Times before the first frame
// return (0, 0); after the last, (len-1, len-1).
func FindFrames(frames []Frame, t time.Time) (i, j int) {
	n := len(frames)
	if n == 0 {
		return 0, 0
	}
	idx := sort.Search(n, func(k int) bool {
		return !frames[k].Timestamp.Before(t)
	})
	switch {
	case idx == 0:
		return 0, 0
	case idx >= n:
		return n - 1, n - 1
	default:
		return idx - 1, idx
	}
}

// Snapshot interpolates the ordered frame list at wall time t.
func Snapshot(frames []Frame, t time.Time) []aircraft.Position {
	i, j := FindFrames(frames, t)
	if len(frames) == 0 {
		return nil
	}
	if i == j {
		return frames[i].Positions
	}
	return Interpolate(frames[i], frames[j], t)
}
