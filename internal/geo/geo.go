// Package geo provides great-circle geometry primitives used throughout
// the fusion engine: distance, bearing, destination projection, angular
// interpolation, and a closest-point-of-approach solver on a local
// tangent plane. All functions are pure and allocation-free.
package geo

import (
	"math"

	"github.com/skywatch-oss/fusion-engine/internal/fusionerr"
)

// EarthRadiusNM is the spherical Earth radius in nautical miles, used by
// every haversine/great-circle computation in this package.
const EarthRadiusNM = 3440.065

// NMPerDegreeLat is the local tangent-plane scale factor: one degree of
// latitude is ~60 nm everywhere; longitude is scaled by cos(avg_lat).
const NMPerDegreeLat = 60.0

func validateLatLon(op string, lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fusionerr.Policy(op, "latitude out of range [-90,90]")
	}
	if lon <= -180 || lon > 180 {
		return fusionerr.Policy(op, "longitude out of range (-180,180]")
	}
	return nil
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// DistanceNM returns the great-circle distance in nautical miles between
// two points using the haversine formula on a spherical Earth.
func DistanceNM(lat1, lon1, lat2, lon2 float64) (float64, error) {
	if err := validateLatLon("geo.DistanceNM", lat1, lon1); err != nil {
		return 0, err
	}
	if err := validateLatLon("geo.DistanceNM", lat2, lon2); err != nil {
		return 0, err
	}
	phi1, phi2 := deg2rad(lat1), deg2rad(lat2)
	dPhi := deg2rad(lat2 - lat1)
	dLambda := deg2rad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusNM * c, nil
}

// Bearing returns the initial great-circle bearing in degrees [0,360)
// from point a to point b.
func Bearing(lat1, lon1, lat2, lon2 float64) (float64, error) {
	if err := validateLatLon("geo.Bearing", lat1, lon1); err != nil {
		return 0, err
	}
	if err := validateLatLon("geo.Bearing", lat2, lon2); err != nil {
		return 0, err
	}
	phi1, phi2 := deg2rad(lat1), deg2rad(lat2)
	dLambda := deg2rad(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)
	return math.Mod(rad2deg(theta)+360, 360), nil
}

// Destination returns the point reached by travelling distanceNM along
// the given initial bearing (degrees) from (lat, lon).
func Destination(lat, lon, bearingDeg, distanceNM float64) (destLat, destLon float64, err error) {
	if err := validateLatLon("geo.Destination", lat, lon); err != nil {
		return 0, 0, err
	}
	if distanceNM < 0 {
		return 0, 0, fusionerr.Policy("geo.Destination", "distance must be non-negative")
	}
	delta := distanceNM / EarthRadiusNM
	theta := deg2rad(bearingDeg)
	phi1 := deg2rad(lat)
	lambda1 := deg2rad(lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)
	destLat = rad2deg(phi2)
	destLon = math.Mod(rad2deg(lambda2)+540, 360) - 180
	return destLat, destLon, nil
}

// InterpolateAngle returns the shortest-path angular linear
// interpolation between a1 and a2 (degrees) at fraction t in [0,1],
// wrapped into [0,360).
func InterpolateAngle(a1, a2, t float64) float64 {
	diff := math.Mod(a2-a1+540, 360) - 180
	result := math.Mod(a1+diff*t+360, 360)
	return result
}

// SphericalInterpolate returns the great-circle point a fraction t
// between two points, falling back to linear interpolation when the
// angular distance between them is below 0.0001 rad (effectively
// collocated, where slerp's sin(angle) denominator would blow up).
func SphericalInterpolate(lat1, lon1, lat2, lon2, t float64) (lat, lon float64, err error) {
	if err := validateLatLon("geo.SphericalInterpolate", lat1, lon1); err != nil {
		return 0, 0, err
	}
	if err := validateLatLon("geo.SphericalInterpolate", lat2, lon2); err != nil {
		return 0, 0, err
	}
	phi1, lambda1 := deg2rad(lat1), deg2rad(lon1)
	phi2, lambda2 := deg2rad(lat2), deg2rad(lon2)

	x1, y1, z1 := math.Cos(phi1)*math.Cos(lambda1), math.Cos(phi1)*math.Sin(lambda1), math.Sin(phi1)
	x2, y2, z2 := math.Cos(phi2)*math.Cos(lambda2), math.Cos(phi2)*math.Sin(lambda2), math.Sin(phi2)

	cosAngle := x1*x2 + y1*y2 + z1*z2
	if cosAngle > 1 {
		cosAngle = 1
	} else if cosAngle < -1 {
		cosAngle = -1
	}
	angle := math.Acos(cosAngle)

	if angle < 0.0001 {
		// Effectively collocated: fall back to plain linear interpolation.
		lat = lat1 + (lat2-lat1)*t
		lon = lon1 + (lon2-lon1)*t
		return lat, lon, nil
	}

	sinAngle := math.Sin(angle)
	a := math.Sin((1-t)*angle) / sinAngle
	b := math.Sin(t*angle) / sinAngle

	x := a*x1 + b*x2
	y := a*y1 + b*y2
	z := a*z1 + b*z2

	lat = rad2deg(math.Atan2(z, math.Sqrt(x*x+y*y)))
	lon = rad2deg(math.Atan2(y, x))
	return lat, lon, nil
}

// TangentPoint is a 2D position on a local tangent-plane projection, in
// nautical miles from an arbitrary origin, with velocity components
// (knots) derived from track and ground speed.
type TangentPoint struct {
	X, Y   float64 // nm east, nm north of the projection origin
	Vx, Vy float64 // knots east, knots north
}

// ProjectTangent projects (lat, lon) onto a local tangent plane centred
// at (originLat, originLon): 60 nm per degree latitude, longitude
// scaled by cos(avg_lat) of the two points.
func ProjectTangent(originLat, originLon, lat, lon float64) (x, y float64) {
	avgLat := deg2rad((originLat + lat) / 2)
	y = (lat - originLat) * NMPerDegreeLat
	x = (lon - originLon) * NMPerDegreeLat * math.Cos(avgLat)
	return x, y
}

// VelocityComponents decomposes a track (degrees, 0=north, clockwise)
// and ground speed (knots) into east/north knot components.
func VelocityComponents(trackDeg, speedKts float64) (vx, vy float64) {
	theta := deg2rad(trackDeg)
	vx = speedKts * math.Sin(theta)
	vy = speedKts * math.Cos(theta)
	return vx, vy
}

// CPA computes the closest point of approach between two moving points
// given as (lat, lon, track degrees, ground speed knots) tuples. It
// projects both onto a shared local tangent plane centred at the
// midpoint, and returns the time to CPA in hours and the CPA distance
// in nautical miles. A negative relative-geometry time (already
// diverging) is reported as a non-positive timeToCPAHours with the
// current distance as cpaDistanceNM.
func CPA(lat1, lon1, track1, speed1, lat2, lon2, track2, speed2 float64) (timeToCPAHours, cpaDistanceNM float64, err error) {
	if err := validateLatLon("geo.CPA", lat1, lon1); err != nil {
		return 0, 0, err
	}
	if err := validateLatLon("geo.CPA", lat2, lon2); err != nil {
		return 0, 0, err
	}
	originLat := (lat1 + lat2) / 2
	originLon := (lon1 + lon2) / 2

	x1, y1 := ProjectTangent(originLat, originLon, lat1, lon1)
	x2, y2 := ProjectTangent(originLat, originLon, lat2, lon2)
	vx1, vy1 := VelocityComponents(track1, speed1)
	vx2, vy2 := VelocityComponents(track2, speed2)

	// Relative position and velocity of 2 w.r.t. 1.
	px, py := x2-x1, y2-y1
	vx, vy := vx2-vx1, vy2-vy1

	speedSq := vx*vx + vy*vy
	currentDist := math.Hypot(px, py)
	if speedSq < 1e-9 {
		// No relative motion: CPA is now, forever.
		return 0, currentDist, nil
	}

	// t (hours) minimizing |p + v*t|^2; v is in knots (nm/hour).
	tHours := -(px*vx + py*vy) / speedSq

	if tHours <= 0 {
		return tHours, currentDist, nil
	}

	cpaX := px + vx*tHours
	cpaY := py + vy*tHours
	cpaDistanceNM = math.Hypot(cpaX, cpaY)
	return tHours, cpaDistanceNM, nil
}
