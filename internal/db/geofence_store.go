package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/geofence"
)

// GeofenceStore adapts *DB to geofence.Store.
type GeofenceStore struct {
	DB *DB
}

func NewGeofenceStore(db *DB) *GeofenceStore {
	return &GeofenceStore{DB: db}
}

// InsertFence persists a new fence definition, assigning an ID when
// absent.
func (s *GeofenceStore) InsertFence(f geofence.Fence) (string, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	polygon, err := json.Marshal(f.Polygon)
	if err != nil {
		return "", err
	}
	filter, err := json.Marshal(f.AircraftTypeFilter)
	if err != nil {
		return "", err
	}
	_, err = s.DB.Exec(`
		INSERT INTO geofences (id, owner, name, polygon, alert_on_entry, alert_on_exit, alert_on_dwell, dwell_threshold_sec, aircraft_type_filter, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.Owner, f.Name, string(polygon), boolToInt(f.AlertOnEntry), boolToInt(f.AlertOnExit),
		boolToInt(f.AlertOnDwell), f.DwellThresholdSec, string(filter), boolToInt(f.IsActive))
	return f.ID, err
}

func (s *GeofenceStore) ListActiveFences() ([]geofence.Fence, error) {
	rows, err := s.DB.Query(`
		SELECT id, owner, name, polygon, alert_on_entry, alert_on_exit, alert_on_dwell, dwell_threshold_sec, aircraft_type_filter, is_active
		FROM geofences WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []geofence.Fence
	for rows.Next() {
		var f geofence.Fence
		var polygon, filter string
		var entry, exit, dwell, active int
		if err := rows.Scan(&f.ID, &f.Owner, &f.Name, &polygon, &entry, &exit, &dwell, &f.DwellThresholdSec, &filter, &active); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(polygon), &f.Polygon); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(filter), &f.AircraftTypeFilter); err != nil {
			return nil, err
		}
		f.AlertOnEntry, f.AlertOnExit, f.AlertOnDwell, f.IsActive = entry != 0, exit != 0, dwell != 0, active != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *GeofenceStore) StatesFor(geofenceID string) (map[string]geofence.AircraftState, error) {
	rows, err := s.DB.Query(`
		SELECT geofence_id, hex, state, entry_lat, entry_lon, entered_at, last_lat, last_lon, last_seen_at, dwell_alerted
		FROM geofence_aircraft_state WHERE geofence_id = ?`, geofenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]geofence.AircraftState)
	for rows.Next() {
		var st geofence.AircraftState
		var entryLat, entryLon, lastLat, lastLon sql.NullFloat64
		var enteredAt, lastSeenAt sql.NullString
		var dwellAlerted int
		if err := rows.Scan(&st.GeofenceID, &st.Hex, &st.State, &entryLat, &entryLon, &enteredAt, &lastLat, &lastLon, &lastSeenAt, &dwellAlerted); err != nil {
			return nil, err
		}
		st.EntryLat, st.EntryLon = entryLat.Float64, entryLon.Float64
		st.LastLat, st.LastLon = lastLat.Float64, lastLon.Float64
		if enteredAt.Valid {
			st.EnteredAt, _ = time.Parse(timeLayout, enteredAt.String)
		}
		if lastSeenAt.Valid {
			st.LastSeenAt, _ = time.Parse(timeLayout, lastSeenAt.String)
		}
		st.DwellAlerted = dwellAlerted != 0
		out[st.Hex] = st
	}
	return out, rows.Err()
}

func (s *GeofenceStore) SaveState(st geofence.AircraftState) error {
	_, err := s.DB.Exec(`
		INSERT INTO geofence_aircraft_state (geofence_id, hex, state, entry_lat, entry_lon, entered_at, last_lat, last_lon, last_seen_at, dwell_alerted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(geofence_id, hex) DO UPDATE SET
			state = excluded.state,
			entry_lat = excluded.entry_lat,
			entry_lon = excluded.entry_lon,
			entered_at = excluded.entered_at,
			last_lat = excluded.last_lat,
			last_lon = excluded.last_lon,
			last_seen_at = excluded.last_seen_at,
			dwell_alerted = excluded.dwell_alerted
	`, st.GeofenceID, st.Hex, st.State, st.EntryLat, st.EntryLon, st.EnteredAt.Format(timeLayout),
		st.LastLat, st.LastLon, st.LastSeenAt.Format(timeLayout), boolToInt(st.DwellAlerted))
	return err
}

func (s *GeofenceStore) DeleteState(geofenceID, hex string) error {
	_, err := s.DB.Exec(`DELETE FROM geofence_aircraft_state WHERE geofence_id = ? AND hex = ?`, geofenceID, hex)
	return err
}

func (s *GeofenceStore) InsertAlert(a geofence.Alert) error {
	_, err := s.DB.Exec(`
		INSERT INTO geofence_alerts (id, geofence_id, hex, transition, severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), a.GeofenceID, a.Hex, a.Transition, a.Severity, a.CreatedAt.Format(timeLayout))
	return err
}

// ListAlerts returns the fence's alerts newest first, up to limit.
func (s *GeofenceStore) ListAlerts(geofenceID string, limit int) ([]geofence.Alert, error) {
	rows, err := s.DB.Query(`
		SELECT geofence_id, hex, transition, severity, created_at
		FROM geofence_alerts WHERE geofence_id = ?
		ORDER BY created_at DESC LIMIT ?`, geofenceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []geofence.Alert
	for rows.Next() {
		var a geofence.Alert
		var createdAt string
		if err := rows.Scan(&a.GeofenceID, &a.Hex, &a.Transition, &a.Severity, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
