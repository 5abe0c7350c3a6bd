package upstream

import "github.com/skywatch-oss/fusion-engine/internal/aircraft"

// wireRecord is the common bulk/point-radius/by-hex JSON record shape
// shared by the bulk providers: { hex, flight?, r?, t?, desc?, lat?, lon?, alt_baro?,
// alt_geom?, gs?, track?, baro_rate?, squawk?, seen?, seen_pos?,
// category?, ownOp?, mil? }.
type wireRecord struct {
	Hex         string   `json:"hex"`
	Flight      *string  `json:"flight,omitempty"`
	Registration *string `json:"r,omitempty"`
	TypeCode    *string  `json:"t,omitempty"`
	Description *string  `json:"desc,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	AltBaro     *float64 `json:"alt_baro,omitempty"`
	AltGeom     *float64 `json:"alt_geom,omitempty"`
	GroundSpeed *float64 `json:"gs,omitempty"`
	Track       *float64 `json:"track,omitempty"`
	BaroRate    *float64 `json:"baro_rate,omitempty"`
	Squawk      *string  `json:"squawk,omitempty"`
	Seen        *float64 `json:"seen,omitempty"`
	SeenPos     *float64 `json:"seen_pos,omitempty"`
	Category    *string  `json:"category,omitempty"`
	OwnOp       *string  `json:"ownOp,omitempty"`
	Mil         *bool    `json:"mil,omitempty"`
}

// wireBulkResponse is the `{ac: [...]}` envelope shared by the bulk
// military and point-radius/by-hex endpoints.
type wireBulkResponse struct {
	Aircraft []wireRecord `json:"ac"`
}

func (r wireRecord) toUpstreamRecord(source string) aircraft.UpstreamRecord {
	mil := false
	if r.Mil != nil {
		mil = *r.Mil
	}
	return aircraft.PromotePosition(aircraft.UpstreamRecord{
		Hex:            r.Hex,
		Flight:         r.Flight,
		Registration:   r.Registration,
		TypeCode:       r.TypeCode,
		Description:    r.Description,
		Lat:            r.Lat,
		Lon:            r.Lon,
		AltBaroFt:      r.AltBaro,
		AltGeomFt:      r.AltGeom,
		GroundSpeedKts: r.GroundSpeed,
		TrackDeg:       r.Track,
		BaroRateFpm:    r.BaroRate,
		Squawk:         r.Squawk,
		SeenSec:        r.Seen,
		SeenPosSec:     r.SeenPos,
		Category:       r.Category,
		OwnOp:          r.OwnOp,
		Mil:            mil,
		Sources:        []string{source},
	})
}

func wireRecordsToUpstream(records []wireRecord, source string) []aircraft.UpstreamRecord {
	out := make([]aircraft.UpstreamRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r.toUpstreamRecord(source))
	}
	return out
}
