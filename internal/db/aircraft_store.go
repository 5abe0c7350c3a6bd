package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
)

const timeLayout = time.RFC3339Nano

// UpsertAircraft inserts or updates the identity row for a.Hex. The
// caller is expected to have already folded the update with
// aircraft.Aircraft.ApplyUpdate and pass the resulting record.
func (db *DB) UpsertAircraft(a aircraft.Aircraft) error {
	sources, err := json.Marshal(a.Sources)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO aircraft (hex, type_code, operator, is_military, category, country, sources, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hex) DO UPDATE SET
			type_code = excluded.type_code,
			operator = excluded.operator,
			is_military = excluded.is_military,
			category = excluded.category,
			country = excluded.country,
			sources = excluded.sources,
			last_seen_at = excluded.last_seen_at
	`, a.Hex, a.TypeCode, a.Operator, boolToInt(a.IsMilitary), string(a.Category), a.Country, string(sources),
		a.FirstSeen.Format(timeLayout), a.LastSeen.Format(timeLayout))
	return err
}

// GetAircraft returns the identity record for hex, or nil if unseen.
func (db *DB) GetAircraft(hex string) (*aircraft.Aircraft, error) {
	row := db.QueryRow(`SELECT hex, type_code, operator, is_military, category, country, sources, first_seen_at, last_seen_at FROM aircraft WHERE hex = ?`, hex)
	var a aircraft.Aircraft
	var isMil int
	var category, sources, firstSeen, lastSeen string
	if err := row.Scan(&a.Hex, &a.TypeCode, &a.Operator, &isMil, &category, &a.Country, &sources, &firstSeen, &lastSeen); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	a.IsMilitary = isMil != 0
	a.Category = aircraft.MilitaryCategory(category)
	_ = json.Unmarshal([]byte(sources), &a.Sources)
	a.FirstSeen, _ = time.Parse(timeLayout, firstSeen)
	a.LastSeen, _ = time.Parse(timeLayout, lastSeen)
	return &a, nil
}

// RecordPosition appends a time-series sample and overwrites
// positions_latest for p.Hex.
func (db *DB) RecordPosition(p aircraft.Position) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := p.Timestamp.Format(timeLayout)
	if _, err := tx.Exec(`
		INSERT INTO positions (hex, lat, lon, altitude_ft, ground_speed_kts, track_deg, vertical_rate_fpm, source, seen_age_sec, seen_pos_age_sec, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Hex, p.Lat, p.Lon, p.AltitudeFt, p.GroundSpeedKts, p.TrackDeg, p.VerticalRateFpm, p.Source, p.SeenAgeSec, p.SeenPosAgeSec, ts); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO positions_latest (hex, lat, lon, altitude_ft, ground_speed_kts, track_deg, vertical_rate_fpm, source, seen_age_sec, seen_pos_age_sec, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hex) DO UPDATE SET
			lat = excluded.lat, lon = excluded.lon, altitude_ft = excluded.altitude_ft,
			ground_speed_kts = excluded.ground_speed_kts, track_deg = excluded.track_deg,
			vertical_rate_fpm = excluded.vertical_rate_fpm, source = excluded.source,
			seen_age_sec = excluded.seen_age_sec, seen_pos_age_sec = excluded.seen_pos_age_sec,
			recorded_at = excluded.recorded_at
	`, p.Hex, p.Lat, p.Lon, p.AltitudeFt, p.GroundSpeedKts, p.TrackDeg, p.VerticalRateFpm, p.Source, p.SeenAgeSec, p.SeenPosAgeSec, ts); err != nil {
		return err
	}

	return tx.Commit()
}

func scanPosition(row scanner) (aircraft.Position, error) {
	var p aircraft.Position
	var altitude, gs, track, vr sql.NullFloat64
	var ts string
	if err := row.Scan(&p.Hex, &p.Lat, &p.Lon, &altitude, &gs, &track, &vr, &p.Source, &p.SeenAgeSec, &p.SeenPosAgeSec, &ts); err != nil {
		return p, err
	}
	if altitude.Valid {
		p.AltitudeFt = &altitude.Float64
	}
	if gs.Valid {
		p.GroundSpeedKts = &gs.Float64
	}
	if track.Valid {
		p.TrackDeg = &track.Float64
	}
	if vr.Valid {
		p.VerticalRateFpm = &vr.Float64
	}
	p.Timestamp, _ = time.Parse(timeLayout, ts)
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// GetLatestPosition returns the most recent sample for hex, or nil.
func (db *DB) GetLatestPosition(hex string) (*aircraft.Position, error) {
	row := db.QueryRow(`SELECT hex, lat, lon, altitude_ft, ground_speed_kts, track_deg, vertical_rate_fpm, source, seen_age_sec, seen_pos_age_sec, recorded_at FROM positions_latest WHERE hex = ?`, hex)
	p, err := scanPosition(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListActivePositions returns positions_latest rows recorded at or
// after since and, if militaryOnly, whose aircraft is_military,
// optionally filtered to ground speed > minSpeedKts (pass -1 to skip).
func (db *DB) ListActivePositions(since time.Time, militaryOnly bool, minSpeedKts float64) ([]aircraft.Position, error) {
	query := `
		SELECT pl.hex, pl.lat, pl.lon, pl.altitude_ft, pl.ground_speed_kts, pl.track_deg, pl.vertical_rate_fpm,
		       pl.source, pl.seen_age_sec, pl.seen_pos_age_sec, pl.recorded_at
		FROM positions_latest pl
		JOIN aircraft a ON a.hex = pl.hex
		WHERE pl.recorded_at >= ?`
	args := []any{since.Format(timeLayout)}
	if militaryOnly {
		query += ` AND a.is_military = 1`
	}
	if minSpeedKts >= 0 {
		query += ` AND pl.ground_speed_kts > ?`
		args = append(args, minSpeedKts)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aircraft.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPositionHistory returns time-series samples for hex recorded at or
// after since, ordered by time ascending.
func (db *DB) GetPositionHistory(hex string, since time.Time) ([]aircraft.Position, error) {
	rows, err := db.Query(`
		SELECT hex, lat, lon, altitude_ft, ground_speed_kts, track_deg, vertical_rate_fpm, source, seen_age_sec, seen_pos_age_sec, recorded_at
		FROM positions WHERE hex = ? AND recorded_at >= ? ORDER BY recorded_at ASC
	`, hex, since.Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aircraft.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
