package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PromptVersion is one versioned generation prompt template.
type PromptVersion struct {
	ID        string
	Name      string
	Version   int
	Template  string
	CreatedAt time.Time
}

// PromptStore persists prompt templates and per-call execution logs
// for the generative-model provider.
type PromptStore struct {
	DB *DB
}

func NewPromptStore(db *DB) *PromptStore {
	return &PromptStore{DB: db}
}

// SavePromptVersion inserts the next version of a named template and
// returns it.
func (s *PromptStore) SavePromptVersion(name, template string, now time.Time) (PromptVersion, error) {
	row := s.DB.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM prompt_versions WHERE name = ?`, name)
	var latest int
	if err := row.Scan(&latest); err != nil {
		return PromptVersion{}, err
	}
	pv := PromptVersion{
		ID:        uuid.NewString(),
		Name:      name,
		Version:   latest + 1,
		Template:  template,
		CreatedAt: now,
	}
	_, err := s.DB.Exec(`
		INSERT INTO prompt_versions (id, name, version, template, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, pv.ID, pv.Name, pv.Version, pv.Template, pv.CreatedAt.Format(timeLayout))
	return pv, err
}

// LatestPromptVersion returns the newest version of a named template,
// or nil when the name is unknown.
func (s *PromptStore) LatestPromptVersion(name string) (*PromptVersion, error) {
	row := s.DB.QueryRow(`
		SELECT id, name, version, template, created_at FROM prompt_versions
		WHERE name = ? ORDER BY version DESC LIMIT 1`, name)
	var pv PromptVersion
	var createdAt string
	if err := row.Scan(&pv.ID, &pv.Name, &pv.Version, &pv.Template, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	pv.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &pv, nil
}

// LogExecution records one generation call against a prompt version.
func (s *PromptStore) LogExecution(promptVersionID, inputJSON, outputText string, latency time.Duration, now time.Time) error {
	_, err := s.DB.Exec(`
		INSERT INTO execution_logs (prompt_version_id, input_json, output_text, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, nullableString(promptVersionID), inputJSON, outputText, float64(latency)/float64(time.Millisecond), now.Format(timeLayout))
	return err
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
