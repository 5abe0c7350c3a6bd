package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
)

// GetOpenFlight returns the aircraft's current open flight (no
// arrival time yet), or nil.
func (db *DB) GetOpenFlight(hex string) (*aircraft.Flight, error) {
	row := db.QueryRow(`
		SELECT id, hex, departure_time, arrival_time, detected_pattern
		FROM flights WHERE hex = ? AND arrival_time IS NULL
		ORDER BY departure_time DESC LIMIT 1`, hex)
	return scanFlight(row)
}

// OpenFlight starts a new activity period for hex.
func (db *DB) OpenFlight(hex string, departure time.Time) (*aircraft.Flight, error) {
	f := aircraft.Flight{ID: uuid.NewString(), Hex: hex, DepartureTime: departure}
	_, err := db.Exec(`
		INSERT INTO flights (id, hex, departure_time, detected_pattern) VALUES (?, ?, ?, '')`,
		f.ID, f.Hex, f.DepartureTime.Format(timeLayout))
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFlightPattern tags the flight with its detected pattern.
func (db *DB) UpdateFlightPattern(flightID, detectedPattern string) error {
	_, err := db.Exec(`UPDATE flights SET detected_pattern = ? WHERE id = ?`, detectedPattern, flightID)
	return err
}

// CloseStaleFlights sets an arrival time on open flights whose
// aircraft has not been seen since the cutoff, and returns how many
// were closed.
func (db *DB) CloseStaleFlights(cutoff, arrival time.Time) (int, error) {
	res, err := db.Exec(`
		UPDATE flights SET arrival_time = ?
		WHERE arrival_time IS NULL AND hex IN (
			SELECT hex FROM aircraft WHERE last_seen_at < ?
		)`, arrival.Format(timeLayout), cutoff.Format(timeLayout))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// LatestFlightPattern returns the most recent non-empty detected
// pattern for hex, or "".
func (db *DB) LatestFlightPattern(hex string) (string, error) {
	row := db.QueryRow(`
		SELECT detected_pattern FROM flights
		WHERE hex = ? AND detected_pattern != ''
		ORDER BY departure_time DESC LIMIT 1`, hex)
	var pattern string
	if err := row.Scan(&pattern); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return pattern, nil
}

func scanFlight(row *sql.Row) (*aircraft.Flight, error) {
	var f aircraft.Flight
	var departure string
	var arrival sql.NullString
	if err := row.Scan(&f.ID, &f.Hex, &departure, &arrival, &f.DetectedPattern); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	f.DepartureTime, _ = time.Parse(timeLayout, departure)
	if arrival.Valid {
		t, _ := time.Parse(timeLayout, arrival.String)
		f.ArrivalTime = &t
	}
	return &f, nil
}
