package db

import (
	"encoding/json"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/news"
)

// NewsStore persists normalized news events.
type NewsStore struct {
	DB *DB
}

func NewNewsStore(db *DB) *NewsStore {
	return &NewsStore{DB: db}
}

// UpsertEvent inserts or refreshes a news event keyed by its URL-based
// ID.
func (s *NewsStore) UpsertEvent(e news.Event) error {
	countries, err := json.Marshal(e.Countries)
	if err != nil {
		return err
	}
	places, err := json.Marshal(e.Places)
	if err != nil {
		return err
	}
	entities, err := json.Marshal(e.Entities)
	if err != nil {
		return err
	}
	categories, err := json.Marshal(e.Categories)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO news_events (id, title, published_at, url, source_domain, countries, places, entities, categories, tone, credibility)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			countries = excluded.countries,
			places = excluded.places,
			entities = excluded.entities,
			categories = excluded.categories,
			tone = excluded.tone,
			credibility = excluded.credibility
	`, e.ID, e.Title, e.PublishedAt.Format(timeLayout), e.URL, e.SourceDomain,
		string(countries), string(places), string(entities), string(categories), e.Tone, e.Credibility)
	return err
}

// ListWindow returns events published inside [from, to], newest
// first.
func (s *NewsStore) ListWindow(from, to time.Time, limit int) ([]news.Event, error) {
	rows, err := s.DB.Query(`
		SELECT id, title, published_at, url, source_domain, countries, places, entities, categories, tone, credibility
		FROM news_events WHERE published_at >= ? AND published_at <= ?
		ORDER BY published_at DESC LIMIT ?`, from.Format(timeLayout), to.Format(timeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []news.Event
	for rows.Next() {
		var e news.Event
		var publishedAt, countries, places, entities, categories string
		if err := rows.Scan(&e.ID, &e.Title, &publishedAt, &e.URL, &e.SourceDomain,
			&countries, &places, &entities, &categories, &e.Tone, &e.Credibility); err != nil {
			return nil, err
		}
		e.PublishedAt, _ = time.Parse(timeLayout, publishedAt)
		if err := json.Unmarshal([]byte(countries), &e.Countries); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(places), &e.Places); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(entities), &e.Entities); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(categories), &e.Categories); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
