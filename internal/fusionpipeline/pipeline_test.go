package fusionpipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatch-oss/fusion-engine/internal/aggregator"
	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/alerts"
	"github.com/skywatch-oss/fusion-engine/internal/calibration"
	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/db"
	"github.com/skywatch-oss/fusion-engine/internal/formation"
	"github.com/skywatch-oss/fusion-engine/internal/geofence"
	"github.com/skywatch-oss/fusion-engine/internal/intel"
	"github.com/skywatch-oss/fusion-engine/internal/profiler"
	"github.com/skywatch-oss/fusion-engine/internal/proximity"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

func ptrF(v float64) *float64 { return &v }
func ptrS(v string) *string   { return &v }

// stubProvider serves a fixed record set as the bulk endpoint.
type stubProvider struct {
	name    string
	records []aircraft.UpstreamRecord
}

func (s *stubProvider) Name() string               { return s.name }
func (s *stubProvider) RateLimitPerMinute() int    { return 60 }
func (s *stubProvider) SupportsPointRadius() bool  { return false }

func (s *stubProvider) FetchBulkMilitary(ctx context.Context) ([]aircraft.UpstreamRecord, error) {
	return s.records, nil
}

func (s *stubProvider) FetchPointRadius(ctx context.Context, lat, lon, radiusNM float64) ([]aircraft.UpstreamRecord, error) {
	return nil, nil
}

func (s *stubProvider) FetchByHex(ctx context.Context, hex string) (*aircraft.UpstreamRecord, error) {
	return nil, nil
}

func testPipeline(t *testing.T, records []aircraft.UpstreamRecord) (*Pipeline, *db.DB, *timeutil.MockClock) {
	t.Helper()

	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	migrations, err := db.MigrationsFS()
	require.NoError(t, err)
	require.NoError(t, database.MigrateUp(migrations))

	cfg := config.EmptyTuningConfig()
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	provider := &stubProvider{name: "stub", records: records}
	region := aggregator.BoundingBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	agg := aggregator.New([]aggregator.ProviderEntry{{Provider: provider}}, nil, region, cfg, clock)

	calSvc := calibration.NewService(db.NewCalibrationStore(database), cfg)
	deps := Deps{
		DB:          database,
		Aggregator:  agg,
		Profiles:    profiler.NewService(db.NewProfilerStore(database), cfg),
		Formations:  formation.NewService(db.NewFormationStore(database), cfg),
		Proximities: proximity.NewService(db.NewProximityStore(database), cfg),
		Geofences:   geofence.NewMonitor(db.NewGeofenceStore(database), cfg),
		Calibration: calSvc,
		Intel:       intel.NewEngine(db.NewIntelStore(database), calSvc, cfg),
		Alerts:      alerts.NewGenerator(db.NewAlertStore(database), cfg),
		Prompts:     db.NewPromptStore(database),
		Cfg:         cfg,
		Clock:       clock,
	}
	return New(deps), database, clock
}

func milRecord(hex string, lat, lon float64) aircraft.UpstreamRecord {
	return aircraft.UpstreamRecord{
		Hex:            hex,
		TypeCode:       ptrS("F16"),
		Lat:            ptrF(lat),
		Lon:            ptrF(lon),
		AltBaroFt:      ptrF(25000),
		GroundSpeedKts: ptrF(400),
		TrackDeg:       ptrF(90),
		Mil:            true,
		Sources:        []string{"stub"},
	}
}

func TestAggregatorTick_PersistsAircraftAndOpensFlight(t *testing.T) {
	pipeline, database, _ := testPipeline(t, []aircraft.UpstreamRecord{
		milRecord("ae0001", 33.5, 35.5),
	})

	require.NoError(t, pipeline.runAggregatorTick(context.Background()))

	got, err := database.GetAircraft("AE0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsMilitary)

	pos, err := database.GetLatestPosition("AE0001")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 33.5, pos.Lat)

	flight, err := database.GetOpenFlight("AE0001")
	require.NoError(t, err)
	require.NotNil(t, flight)

	// A second tick reuses the open flight.
	require.NoError(t, pipeline.runAggregatorTick(context.Background()))
	again, err := database.GetOpenFlight("AE0001")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, flight.ID, again.ID)
}

func TestProximityScan_EmitsWarningForHeadOnPair(t *testing.T) {
	pipeline, database, clock := testPipeline(t, nil)

	now := clock.Now().UTC()
	for _, rec := range []aircraft.Position{
		{Hex: "AE0001", Lat: 32.0, Lon: 34.0, AltitudeFt: ptrF(35000), GroundSpeedKts: ptrF(500), TrackDeg: ptrF(90), Timestamp: now},
		{Hex: "AE0002", Lat: 32.0, Lon: 34.5, AltitudeFt: ptrF(35000), GroundSpeedKts: ptrF(500), TrackDeg: ptrF(270), Timestamp: now},
	} {
		require.NoError(t, database.UpsertAircraft(aircraft.Aircraft{
			Hex: rec.Hex, IsMilitary: true, Category: aircraft.CategoryFighter,
			FirstSeen: now, LastSeen: now,
		}))
		require.NoError(t, database.RecordPosition(rec))
	}

	require.NoError(t, pipeline.runProximityScan(context.Background()))

	warnings, err := db.NewProximityStore(database).ListActiveWarnings()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, proximity.SeverityCritical, warnings[0].Conflict.Severity)
	assert.Equal(t, "AE0001", warnings[0].Conflict.Hex1)
}

func TestStaleResolve_ClosesIdleFlights(t *testing.T) {
	pipeline, database, clock := testPipeline(t, nil)

	old := clock.Now().UTC().Add(-time.Hour)
	require.NoError(t, database.UpsertAircraft(aircraft.Aircraft{Hex: "AE0001", FirstSeen: old, LastSeen: old}))
	_, err := database.OpenFlight("AE0001", old)
	require.NoError(t, err)

	require.NoError(t, pipeline.runStaleResolve(context.Background()))

	flight, err := database.GetOpenFlight("AE0001")
	require.NoError(t, err)
	assert.Nil(t, flight)
}

func TestPipeline_StartAndStop(t *testing.T) {
	pipeline, _, _ := testPipeline(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pipeline.Start(ctx)
	cancel()
	pipeline.Stop()
}
