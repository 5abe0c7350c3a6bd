package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/intel"
)

// IntelStore adapts *DB to intel.Store.
type IntelStore struct {
	DB *DB
}

func NewIntelStore(db *DB) *IntelStore {
	return &IntelStore{DB: db}
}

func (s *IntelStore) InsertAnomaly(a intel.Anomaly) error {
	detected, err := json.Marshal(a.Detected)
	if err != nil {
		return err
	}
	expected, err := json.Marshal(a.Expected)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO anomaly_detections (id, hex, anomaly_type, severity, detected_json, expected_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Hex, a.Type, a.Severity, string(detected), string(expected), a.DetectedAt.Format(timeLayout))
	return err
}

func (s *IntelStore) InsertIntent(i intel.Intent) error {
	evidence, err := json.Marshal(i.Evidence)
	if err != nil {
		return err
	}
	alternatives, err := json.Marshal(i.Alternatives)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO intent_classifications (id, hex, intent, confidence, evidence, alternatives, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, i.ID, i.Hex, i.Intent, i.Confidence, string(evidence), string(alternatives), i.ClassifiedAt.Format(timeLayout))
	return err
}

func (s *IntelStore) InsertThreat(t intel.Threat) error {
	components, err := json.Marshal(t.Components)
	if err != nil {
		return err
	}
	explanation, err := json.Marshal(t.Explanation)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO threat_assessments (id, entity_type, entity_id, score, level, components_json, explanation_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.EntityType, t.EntityID, t.Score, t.Level, string(components), string(explanation),
		t.CreatedAt.Format(timeLayout), t.ExpiresAt.Format(timeLayout))
	return err
}

// LatestThreat returns the newest unexpired assessment for the
// entity, or nil.
func (s *IntelStore) LatestThreat(entityType, entityID string, now time.Time) (*intel.Threat, error) {
	row := s.DB.QueryRow(`
		SELECT id, entity_type, entity_id, score, level, components_json, explanation_json, created_at, expires_at
		FROM threat_assessments
		WHERE entity_type = ? AND entity_id = ? AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`, entityType, entityID, now.Format(timeLayout))

	var t intel.Threat
	var components, explanation, createdAt, expiresAt string
	if err := row.Scan(&t.ID, &t.EntityType, &t.EntityID, &t.Score, &t.Level, &components, &explanation, &createdAt, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(components), &t.Components); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(explanation), &t.Explanation); err != nil {
		return nil, err
	}
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	t.ExpiresAt, _ = time.Parse(timeLayout, expiresAt)
	return &t, nil
}

// ListRecentAnomalies returns anomalies detected since the given
// time, newest first.
func (s *IntelStore) ListRecentAnomalies(since time.Time, limit int) ([]intel.Anomaly, error) {
	rows, err := s.DB.Query(`
		SELECT id, hex, anomaly_type, severity, detected_json, expected_json, created_at
		FROM anomaly_detections WHERE created_at >= ?
		ORDER BY created_at DESC LIMIT ?`, since.Format(timeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []intel.Anomaly
	for rows.Next() {
		var a intel.Anomaly
		var detected, expected, createdAt string
		if err := rows.Scan(&a.ID, &a.Hex, &a.Type, &a.Severity, &detected, &expected, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(detected), &a.Detected); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(expected), &a.Expected); err != nil {
			return nil, err
		}
		a.DetectedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
