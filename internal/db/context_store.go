package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/contextintel"
)

// ContextStore persists the context-intelligence reference sets:
// infrastructure, airspace volumes, and materialized activity zones.
type ContextStore struct {
	DB *DB
}

func NewContextStore(db *DB) *ContextStore {
	return &ContextStore{DB: db}
}

func (s *ContextStore) InsertInfrastructure(e contextintel.Infrastructure) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.DB.Exec(`
		INSERT INTO infrastructure (id, name, category, importance, lat, lon, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Category, e.Importance, e.Lat, e.Lon, boolToInt(e.IsActive))
	return e.ID, err
}

func (s *ContextStore) ListActiveInfrastructure() ([]contextintel.Infrastructure, error) {
	rows, err := s.DB.Query(`SELECT id, name, category, importance, lat, lon, is_active FROM infrastructure WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contextintel.Infrastructure
	for rows.Next() {
		var e contextintel.Infrastructure
		var active int
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Importance, &e.Lat, &e.Lon, &active); err != nil {
			return nil, err
		}
		e.IsActive = active != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *ContextStore) InsertAirspace(a contextintel.Airspace) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	polygon, err := json.Marshal(a.Polygon)
	if err != nil {
		return "", err
	}
	_, err = s.DB.Exec(`
		INSERT INTO airspace (id, name, class, polygon, floor_ft, ceiling_ft)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Class, string(polygon), nullableFloat(a.FloorFt), nullableFloat(a.CeilingFt))
	return a.ID, err
}

func (s *ContextStore) ListAirspace() ([]contextintel.Airspace, error) {
	rows, err := s.DB.Query(`SELECT id, name, class, polygon, floor_ft, ceiling_ft FROM airspace`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contextintel.Airspace
	for rows.Next() {
		var a contextintel.Airspace
		var polygon string
		var floor, ceiling *float64
		if err := rows.Scan(&a.ID, &a.Name, &a.Class, &polygon, &floor, &ceiling); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(polygon), &a.Polygon); err != nil {
			return nil, err
		}
		a.FloorFt, a.CeilingFt = floor, ceiling
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReplaceZones swaps the activity-zone set for a freshly clustered
// one in a single transaction.
func (s *ContextStore) ReplaceZones(zones []contextintel.ActivityZone) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM activity_zones`); err != nil {
		return err
	}
	for _, z := range zones {
		if _, err := tx.Exec(`
			INSERT INTO activity_zones (id, bucket_lat, bucket_lon, activity_level, unique_aircraft_count, is_active, last_bucket_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, z.ID, z.BucketLat, z.BucketLon, z.ActivityLevel, z.UniqueAircraftCount, boolToInt(z.IsActive), z.LastBucketAt.Format(timeLayout)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *ContextStore) ListActiveZones() ([]contextintel.ActivityZone, error) {
	rows, err := s.DB.Query(`SELECT id, bucket_lat, bucket_lon, activity_level, unique_aircraft_count, is_active, last_bucket_at FROM activity_zones WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contextintel.ActivityZone
	for rows.Next() {
		var z contextintel.ActivityZone
		var active int
		var lastBucket string
		if err := rows.Scan(&z.ID, &z.BucketLat, &z.BucketLon, &z.ActivityLevel, &z.UniqueAircraftCount, &active, &lastBucket); err != nil {
			return nil, err
		}
		z.IsActive = active != 0
		z.LastBucketAt, _ = time.Parse(timeLayout, lastBucket)
		out = append(out, z)
	}
	return out, rows.Err()
}

// ListPositionSamples returns the minimal position fields the zone
// clustering consumes, for military aircraft recorded since the given
// time.
func (s *ContextStore) ListPositionSamples(since time.Time) ([]contextintel.PositionSample, error) {
	rows, err := s.DB.Query(`
		SELECT p.hex, p.lat, p.lon, p.recorded_at
		FROM positions p
		JOIN aircraft a ON a.hex = p.hex
		WHERE a.is_military = 1 AND p.recorded_at >= ?`, since.Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contextintel.PositionSample
	for rows.Next() {
		var sample contextintel.PositionSample
		var recordedAt string
		if err := rows.Scan(&sample.Hex, &sample.Lat, &sample.Lon, &recordedAt); err != nil {
			return nil, err
		}
		sample.RecordedAt, _ = time.Parse(timeLayout, recordedAt)
		out = append(out, sample)
	}
	return out, rows.Err()
}
