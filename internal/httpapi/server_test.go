package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/alerts"
	"github.com/skywatch-oss/fusion-engine/internal/db"
	"github.com/skywatch-oss/fusion-engine/internal/intel"
	"github.com/skywatch-oss/fusion-engine/internal/testutil"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

var apiNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func ptrF(v float64) *float64 { return &v }

func testServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()

	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	migrations, err := db.MigrationsFS()
	require.NoError(t, err)
	require.NoError(t, database.MigrateUp(migrations))

	clock := timeutil.NewMockClock(apiNow)
	return NewServer(database, nil, clock, "kts", "UTC"), database
}

func seedAircraft(t *testing.T, database *db.DB) {
	t.Helper()
	require.NoError(t, database.UpsertAircraft(aircraft.Aircraft{
		Hex: "AE0001", TypeCode: "F16", IsMilitary: true,
		Category: aircraft.CategoryFighter, FirstSeen: apiNow, LastSeen: apiNow,
	}))
	require.NoError(t, database.RecordPosition(aircraft.Position{
		Hex: "AE0001", Lat: 33.5, Lon: 35.5,
		AltitudeFt: ptrF(25000), GroundSpeedKts: ptrF(400),
		Timestamp: apiNow.Add(-time.Minute),
	}))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)
	req := testutil.NewTestRequest("GET", "/api/health")
	rec := testutil.NewTestRecorder()
	server.ServeMux().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, 200)
}

func TestListAircraft_ConvertsUnits(t *testing.T) {
	t.Parallel()

	server, database := testServer(t)
	seedAircraft(t, database)

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/aircraft?units=kmh", nil))
	testutil.AssertStatusCode(t, rec.Code, 200)

	var body struct {
		Aircraft []struct {
			Hex         string   `json:"hex"`
			GroundSpeed *float64 `json:"ground_speed"`
			SpeedUnits  string   `json:"speed_units"`
			IsMilitary  bool     `json:"is_military"`
		} `json:"aircraft"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "AE0001", body.Aircraft[0].Hex)
	assert.True(t, body.Aircraft[0].IsMilitary)
	assert.Equal(t, "kmh", body.Aircraft[0].SpeedUnits)
	require.NotNil(t, body.Aircraft[0].GroundSpeed)
	assert.InDelta(t, 740.8, *body.Aircraft[0].GroundSpeed, 0.1)
}

func TestListAircraft_RejectsBadUnits(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/aircraft?units=furlongs", nil))
	testutil.AssertStatusCode(t, rec.Code, 400)
}

func TestAircraftProfile_NotFound(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/aircraft/AE9999/profile", nil))
	testutil.AssertStatusCode(t, rec.Code, 404)
}

func TestListAlerts(t *testing.T) {
	t.Parallel()

	server, database := testServer(t)
	require.NoError(t, db.NewAlertStore(database).InsertAlert(alerts.Alert{
		ID: "a1", AlertType: alerts.TypeFormation, Severity: alerts.SeverityHigh,
		Title: "tanker formation", CreatedAt: apiNow.Add(-time.Hour),
	}))

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/alerts", nil))
	testutil.AssertStatusCode(t, rec.Code, 200)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestThreatEndpoint(t *testing.T) {
	t.Parallel()

	server, database := testServer(t)
	require.NoError(t, db.NewIntelStore(database).InsertThreat(intel.Threat{
		ID: "t1", EntityType: "aircraft", EntityID: "AE0001",
		Score: 0.7, Level: "high",
		CreatedAt: apiNow.Add(-time.Hour), ExpiresAt: apiNow.Add(5 * time.Hour),
	}))

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/intel/threats/aircraft/AE0001", nil))
	testutil.AssertStatusCode(t, rec.Code, 200)

	rec = httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/intel/threats/aircraft/AE0002", nil))
	testutil.AssertStatusCode(t, rec.Code, 404)
}
