package upstream

import (
	"context"
	"net/http"
	"testing"

	"github.com/skywatch-oss/fusion-engine/internal/httputil"
	"github.com/skywatch-oss/fusion-engine/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSkyProvider_UnitConversions(t *testing.T) {
	t.Parallel()

	client := httputil.NewMockHTTPClient()
	client.AddResponse(http.StatusOK, `{
		"time": 1700000000,
		"states": [
			["abc123","TEST1   ","United States",1700000000,1700000000,35.5,33.9,10000,false,250,90,5,null,null,"1234",false,0,0]
		]
	}`)

	p := NewOpenSkyProvider(OpenSkyConfig{Name: "opensky", BaseURL: "https://example.test"}, client)
	records, err := p.FetchBulkMilitary(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "abc123", rec.Hex)
	assert.InDelta(t, units.FeetFromMeters(10000), *rec.AltBaroFt, 0.01)
	assert.InDelta(t, units.KnotsFromMPS(250), *rec.GroundSpeedKts, 0.01)
	assert.InDelta(t, units.FpmFromMPS(5), *rec.BaroRateFpm, 0.01)
	assert.Equal(t, 90.0, *rec.TrackDeg)
	assert.Equal(t, []string{"opensky"}, rec.Sources)
}

func TestOpenSkyProvider_SkipsMalformedStateWithoutFailingBatch(t *testing.T) {
	t.Parallel()

	client := httputil.NewMockHTTPClient()
	client.AddResponse(http.StatusOK, `{
		"time": 1700000000,
		"states": [
			[],
			["abc123","TEST1   ","United States",1700000000,1700000000,35.5,33.9,10000,false,250,90,5]
		]
	}`)

	p := NewOpenSkyProvider(OpenSkyConfig{Name: "opensky", BaseURL: "https://example.test"}, client)
	records, err := p.FetchBulkMilitary(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "abc123", records[0].Hex)
}

func TestOpenSkyProvider_DoesNotSupportPointRadiusOrByHex(t *testing.T) {
	t.Parallel()

	p := NewOpenSkyProvider(OpenSkyConfig{Name: "opensky"}, httputil.NewMockHTTPClient())
	assert.False(t, p.SupportsPointRadius())

	_, err := p.FetchPointRadius(context.Background(), 1, 2, 3)
	assert.Error(t, err)

	_, err = p.FetchByHex(context.Background(), "ABCDEF")
	assert.Error(t, err)
}
