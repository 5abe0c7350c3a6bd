package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/formation"
)

// FormationStore adapts *DB to formation.Store.
type FormationStore struct {
	DB *DB
}

func NewFormationStore(db *DB) *FormationStore {
	return &FormationStore{DB: db}
}

func (s *FormationStore) FindActiveOverlap(formationType string, hexes []string) (*formation.Stored, error) {
	rows, err := s.DB.Query(`SELECT id FROM formation_detections WHERE formation_type = ? AND active = 1`, formationType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		members, err := s.membersOf(id)
		if err != nil {
			return nil, err
		}
		if formation.SharesAircraft(members, hexes) {
			return &formation.Stored{ID: id, Type: formationType, Members: members}, nil
		}
	}
	return nil, nil
}

func (s *FormationStore) membersOf(formationID string) ([]string, error) {
	rows, err := s.DB.Query(`SELECT hex FROM formation_members WHERE formation_id = ?`, formationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var hex string
		if err := rows.Scan(&hex); err != nil {
			return nil, err
		}
		out = append(out, hex)
	}
	return out, rows.Err()
}

func (s *FormationStore) Insert(d formation.Detection, now time.Time) (string, error) {
	id := uuid.NewString()
	ts := now.Format(timeLayout)
	tx, err := s.DB.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO formation_detections (
			id, formation_type, lead_hex, center_lat, center_lon, spread_nm,
			avg_heading_deg, altitude_band, confidence, first_detected_at, last_seen_at, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, id, d.FormationType, d.LeadHex, d.CenterLat, d.CenterLon, d.SpreadNM,
		d.AvgHeadingDeg, d.AltitudeBand, d.Confidence, ts, ts); err != nil {
		return "", err
	}
	if err := insertMembers(tx, id, d.Members); err != nil {
		return "", err
	}
	return id, tx.Commit()
}

func (s *FormationStore) UpdateGeometry(id string, d formation.Detection, now time.Time) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		UPDATE formation_detections SET
			lead_hex = ?, center_lat = ?, center_lon = ?, spread_nm = ?,
			avg_heading_deg = ?, altitude_band = ?, confidence = ?, last_seen_at = ?, active = 1
		WHERE id = ?
	`, d.LeadHex, d.CenterLat, d.CenterLon, d.SpreadNM, d.AvgHeadingDeg, d.AltitudeBand, d.Confidence,
		now.Format(timeLayout), id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM formation_members WHERE formation_id = ?`, id); err != nil {
		return err
	}
	if err := insertMembers(tx, id, d.Members); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMembers(tx *sql.Tx, formationID string, hexes []string) error {
	for _, hex := range hexes {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO formation_members (formation_id, hex) VALUES (?, ?)`, formationID, hex); err != nil {
			return err
		}
	}
	return nil
}

func (s *FormationStore) MarkStaleInactive(olderThan time.Time) (int, error) {
	res, err := s.DB.Exec(`UPDATE formation_detections SET active = 0 WHERE active = 1 AND last_seen_at < ?`, olderThan.Format(timeLayout))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ActiveFormation is one active formation row with its member set, as
// served by the read API.
type ActiveFormation struct {
	ID              string
	FormationType   string
	LeadHex         string
	Members         []string
	CenterLat       float64
	CenterLon       float64
	SpreadNM        float64
	AvgHeadingDeg   float64
	AltitudeBand    string
	Confidence      float64
	FirstDetectedAt time.Time
	LastSeenAt      time.Time
}

// ListActive returns every active formation newest-seen first.
func (s *FormationStore) ListActive() ([]ActiveFormation, error) {
	rows, err := s.DB.Query(`
		SELECT id, formation_type, lead_hex, center_lat, center_lon, spread_nm,
		       avg_heading_deg, altitude_band, confidence, first_detected_at, last_seen_at
		FROM formation_detections WHERE active = 1
		ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveFormation
	for rows.Next() {
		var f ActiveFormation
		var firstDetected, lastSeen string
		if err := rows.Scan(&f.ID, &f.FormationType, &f.LeadHex, &f.CenterLat, &f.CenterLon, &f.SpreadNM,
			&f.AvgHeadingDeg, &f.AltitudeBand, &f.Confidence, &firstDetected, &lastSeen); err != nil {
			return nil, err
		}
		f.FirstDetectedAt, _ = time.Parse(timeLayout, firstDetected)
		f.LastSeenAt, _ = time.Parse(timeLayout, lastSeen)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		members, err := s.membersOf(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}
