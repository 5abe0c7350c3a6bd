package db

import (
	"encoding/json"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/alerts"
)

// AlertStore adapts *DB to alerts.Store.
type AlertStore struct {
	DB *DB
}

func NewAlertStore(db *DB) *AlertStore {
	return &AlertStore{DB: db}
}

func (s *AlertStore) InsertAlert(a alerts.Alert) error {
	hexes, err := json.Marshal(a.AircraftHexes)
	if err != nil {
		return err
	}
	regions, err := json.Marshal(a.Regions)
	if err != nil {
		return err
	}
	newsRefs, err := json.Marshal(a.NewsRefs)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO alerts (id, alert_type, severity, title, description, aircraft_hexes, regions, news_refs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.AlertType, a.Severity, a.Title, a.Description, string(hexes), string(regions), string(newsRefs),
		a.CreatedAt.Format(timeLayout))
	return err
}

func (s *AlertStore) RecentExists(alertType, title string, since time.Time) (bool, error) {
	row := s.DB.QueryRow(`
		SELECT COUNT(1) FROM alerts WHERE alert_type = ? AND title = ? AND created_at >= ?`,
		alertType, title, since.Format(timeLayout))
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRecent returns alerts created since the given time, newest
// first.
func (s *AlertStore) ListRecent(since time.Time, limit int) ([]alerts.Alert, error) {
	rows, err := s.DB.Query(`
		SELECT id, alert_type, severity, title, description, aircraft_hexes, regions, news_refs, created_at
		FROM alerts WHERE created_at >= ?
		ORDER BY created_at DESC LIMIT ?`, since.Format(timeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alerts.Alert
	for rows.Next() {
		var a alerts.Alert
		var hexes, regions, newsRefs, createdAt string
		if err := rows.Scan(&a.ID, &a.AlertType, &a.Severity, &a.Title, &a.Description, &hexes, &regions, &newsRefs, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hexes), &a.AircraftHexes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(regions), &a.Regions); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(newsRefs), &a.NewsRefs); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
