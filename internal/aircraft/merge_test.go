package aircraft

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrF(v float64) *float64 { return &v }
func ptrS(v string) *string   { return &v }

func TestMergeAircraft_MultiSourceScenario(t *testing.T) {
	t.Parallel()

	// record X from source S1 with alt_baro=null, lat=33.1,
	// flight="ABC123"; record X from S2 with alt_baro=35000, lat=33.1,
	// flight=null.
	s1 := UpstreamRecord{
		Hex:     "ABCDEF",
		Lat:     ptrF(33.1),
		Flight:  ptrS("ABC123"),
		Sources: []string{"S1"},
	}
	s2 := UpstreamRecord{
		Hex:       "ABCDEF",
		Lat:       ptrF(33.1),
		AltBaroFt: ptrF(35000),
		Sources:   []string{"S2"},
	}

	merged := MergeAircraft(s1, s2)

	assert.Equal(t, 33.1, *merged.Lat)
	assert.Equal(t, 35000.0, *merged.AltBaroFt)
	assert.Equal(t, "ABC123", *merged.Flight)
	assert.ElementsMatch(t, []string{"S1", "S2"}, merged.Sources)
}

func TestMergeAircraft_SelfMergeIsIdentity(t *testing.T) {
	t.Parallel()

	rec := UpstreamRecord{
		Hex:        "ABCDEF",
		Lat:        ptrF(33.1),
		Lon:        ptrF(35.2),
		AltBaroFt:  ptrF(12000),
		SeenSec:    ptrF(4),
		SeenPosSec: ptrF(4),
		Mil:        true,
		Sources:    []string{"S1"},
	}

	merged := MergeAircraft(rec, rec)

	assert.Equal(t, rec.Hex, merged.Hex)
	assert.Equal(t, *rec.Lat, *merged.Lat)
	assert.Equal(t, *rec.Lon, *merged.Lon)
	assert.Equal(t, *rec.AltBaroFt, *merged.AltBaroFt)
	assert.Equal(t, *rec.SeenSec, *merged.SeenSec)
	assert.Equal(t, rec.Mil, merged.Mil)
	assert.Equal(t, rec.Sources, merged.Sources)
}

func TestMergeAircraft_SeenTakesMinimum(t *testing.T) {
	t.Parallel()

	left := UpstreamRecord{Hex: "A", SeenSec: ptrF(30), SeenPosSec: ptrF(60)}
	right := UpstreamRecord{Hex: "A", SeenSec: ptrF(5), SeenPosSec: ptrF(90)}

	merged := MergeAircraft(left, right)

	assert.Equal(t, 5.0, *merged.SeenSec)
	assert.Equal(t, 60.0, *merged.SeenPosSec)
}

func TestMergeAircraft_MilIsLogicalOr(t *testing.T) {
	t.Parallel()

	left := UpstreamRecord{Hex: "A", Mil: false}
	right := UpstreamRecord{Hex: "A", Mil: true}

	assert.True(t, MergeAircraft(left, right).Mil)
	assert.True(t, MergeAircraft(right, left).Mil)
	assert.False(t, MergeAircraft(left, left).Mil)
}

func TestPromotePosition(t *testing.T) {
	t.Parallel()

	rec := UpstreamRecord{
		Hex:          "A",
		LastPosition: &NestedPosition{Lat: 10, Lon: 20, SeenPosSec: ptrF(45)},
	}
	promoted := PromotePosition(rec)
	assert.Equal(t, 10.0, *promoted.Lat)
	assert.Equal(t, 20.0, *promoted.Lon)
	assert.Equal(t, 45.0, *promoted.SeenPosSec)
}

func TestPromotePosition_NoOpWhenTopLevelPresent(t *testing.T) {
	t.Parallel()

	rec := UpstreamRecord{
		Hex:          "A",
		Lat:          ptrF(1),
		Lon:          ptrF(2),
		LastPosition: &NestedPosition{Lat: 10, Lon: 20},
	}
	promoted := PromotePosition(rec)
	assert.Equal(t, 1.0, *promoted.Lat)
	assert.Equal(t, 2.0, *promoted.Lon)
}

func TestPositionValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Position{Lat: 10, Lon: 20}.Validate())
	assert.Error(t, Position{Lat: 91, Lon: 20}.Validate())
	assert.Error(t, Position{Lat: 10, Lon: -180}.Validate())
	assert.NoError(t, Position{Lat: 10, Lon: 180}.Validate())
}
