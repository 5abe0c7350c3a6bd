package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/proximity"
)

// ProximityStore adapts *DB to proximity.Store.
type ProximityStore struct {
	DB *DB
}

func NewProximityStore(db *DB) *ProximityStore {
	return &ProximityStore{DB: db}
}

func (s *ProximityStore) FindActive(hex1, hex2 string) (string, bool, error) {
	row := s.DB.QueryRow(`SELECT id FROM proximity_warnings WHERE hex_1 = ? AND hex_2 = ? AND active = 1`, hex1, hex2)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

func (s *ProximityStore) Insert(c proximity.Conflict, now time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.Exec(`
		INSERT INTO proximity_warnings (
			id, hex_1, hex_2, warning_type, severity, cpa_distance_nm, cpa_time_minutes,
			closure_rate_kts, vertical_separation_ft, confidence, active, acknowledged, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)
		ON CONFLICT(hex_1, hex_2) DO UPDATE SET
			warning_type = excluded.warning_type,
			severity = excluded.severity,
			cpa_distance_nm = excluded.cpa_distance_nm,
			cpa_time_minutes = excluded.cpa_time_minutes,
			closure_rate_kts = excluded.closure_rate_kts,
			vertical_separation_ft = excluded.vertical_separation_ft,
			confidence = excluded.confidence,
			active = 1,
			updated_at = excluded.updated_at
	`, id, c.Hex1, c.Hex2, c.WarningType, c.Severity, c.CPADistanceNM, c.TimeToCPAMinutes,
		c.ClosureRateKts, nullableFloat(c.VerticalSeparationFt), c.Confidence,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return "", err
	}
	// The pair may have an inactive historical row whose id the
	// conflict-clause kept; report the id actually stored.
	row := s.DB.QueryRow(`SELECT id FROM proximity_warnings WHERE hex_1 = ? AND hex_2 = ?`, c.Hex1, c.Hex2)
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *ProximityStore) UpdateGeometry(id string, c proximity.Conflict, now time.Time) error {
	_, err := s.DB.Exec(`
		UPDATE proximity_warnings SET
			warning_type = ?, severity = ?, cpa_distance_nm = ?, cpa_time_minutes = ?,
			closure_rate_kts = ?, vertical_separation_ft = ?, confidence = ?, updated_at = ?
		WHERE id = ?
	`, c.WarningType, c.Severity, c.CPADistanceNM, c.TimeToCPAMinutes,
		c.ClosureRateKts, nullableFloat(c.VerticalSeparationFt), c.Confidence, now.Format(timeLayout), id)
	return err
}

func (s *ProximityStore) MarkStaleInactive(olderThan time.Time) (int, error) {
	res, err := s.DB.Exec(`UPDATE proximity_warnings SET active = 0 WHERE active = 1 AND updated_at < ?`,
		olderThan.Format(timeLayout))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ActiveWarning is one active proximity warning row as served by the
// read API.
type ActiveWarning struct {
	ID                   string
	Conflict             proximity.Conflict
	Acknowledged         bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ListActiveWarnings returns every active warning, most recently
// updated first; severity does not affect the order.
func (s *ProximityStore) ListActiveWarnings() ([]ActiveWarning, error) {
	rows, err := s.DB.Query(`
		SELECT id, hex_1, hex_2, warning_type, severity, cpa_distance_nm, cpa_time_minutes,
		       closure_rate_kts, vertical_separation_ft, confidence, acknowledged, created_at, updated_at
		FROM proximity_warnings WHERE active = 1
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveWarning
	for rows.Next() {
		var w ActiveWarning
		var vertSep sql.NullFloat64
		var acknowledged int
		var createdAt, updatedAt string
		if err := rows.Scan(&w.ID, &w.Conflict.Hex1, &w.Conflict.Hex2, &w.Conflict.WarningType,
			&w.Conflict.Severity, &w.Conflict.CPADistanceNM, &w.Conflict.TimeToCPAMinutes,
			&w.Conflict.ClosureRateKts, &vertSep, &w.Conflict.Confidence, &acknowledged, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if vertSep.Valid {
			v := vertSep.Float64
			w.Conflict.VerticalSeparationFt = &v
		}
		w.Acknowledged = acknowledged != 0
		w.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		w.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		out = append(out, w)
	}
	return out, rows.Err()
}

// Acknowledge marks a warning acknowledged.
func (s *ProximityStore) Acknowledge(id string) error {
	_, err := s.DB.Exec(`UPDATE proximity_warnings SET acknowledged = 1 WHERE id = ?`, id)
	return err
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
