package patternmath

import "github.com/skywatch-oss/fusion-engine/internal/geo"

// BoundingBox is a lat/lon rectangle, used to report area confinement.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// AreaConfinement reports whether a track stays within a maximum
// bounding-box area, along with the box itself.
type AreaConfinement struct {
	Box       BoundingBox
	AreaNM2   float64
	Confined  bool
}

// CheckAreaConfinement computes the point sequence's bounding box area
// (nm^2, via a local tangent-plane projection) and whether it is below
// maxAreaNM2.
func CheckAreaConfinement(points []Point, maxAreaNM2 float64) AreaConfinement {
	if len(points) == 0 {
		return AreaConfinement{}
	}
	box := BoundingBox{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		if p.Lat < box.MinLat {
			box.MinLat = p.Lat
		}
		if p.Lat > box.MaxLat {
			box.MaxLat = p.Lat
		}
		if p.Lon < box.MinLon {
			box.MinLon = p.Lon
		}
		if p.Lon > box.MaxLon {
			box.MaxLon = p.Lon
		}
	}

	widthX, _ := geo.ProjectTangent(box.MinLat, box.MinLon, box.MinLat, box.MaxLon)
	_, widthY := geo.ProjectTangent(box.MinLat, box.MinLon, box.MaxLat, box.MinLon)
	areaNM2 := widthX * widthY
	if areaNM2 < 0 {
		areaNM2 = -areaNM2
	}

	return AreaConfinement{
		Box:      box,
		AreaNM2:  areaNM2,
		Confined: areaNM2 < maxAreaNM2,
	}
}
