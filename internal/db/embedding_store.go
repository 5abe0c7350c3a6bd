package db

import (
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/genai"
)

// EmbeddingStore persists entity embeddings as JSON float arrays and
// answers nearest-neighbour queries with in-Go cosine similarity, the
// SQLite stand-in for a vector-extension index.
type EmbeddingStore struct {
	DB *DB
}

func NewEmbeddingStore(db *DB) *EmbeddingStore {
	return &EmbeddingStore{DB: db}
}

func (s *EmbeddingStore) SaveEmbedding(entityType, entityID string, vector []float64, now time.Time) error {
	encoded, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO embeddings (id, entity_type, entity_id, vector_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), entityType, entityID, string(encoded), now.Format(timeLayout))
	return err
}

// Neighbour is one nearest-embedding match.
type Neighbour struct {
	EntityType string
	EntityID   string
	Similarity float64
}

// NearestByCosine ranks stored embeddings of the given type by cosine
// similarity to the query vector and returns the top k.
func (s *EmbeddingStore) NearestByCosine(entityType string, query []float64, k int) ([]Neighbour, error) {
	rows, err := s.DB.Query(`SELECT entity_type, entity_id, vector_json FROM embeddings WHERE entity_type = ?`, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Neighbour
	for rows.Next() {
		var n Neighbour
		var encoded string
		if err := rows.Scan(&n.EntityType, &n.EntityID, &encoded); err != nil {
			return nil, err
		}
		var vector []float64
		if err := json.Unmarshal([]byte(encoded), &vector); err != nil {
			continue
		}
		n.Similarity = genai.Cosine(query, vector)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// SaveEnhancedMetadata upserts the enrichment metadata bag for an
// entity. Unknown keys written by earlier enrichment passes are
// preserved: incoming keys merge over the stored document.
func (s *EmbeddingStore) SaveEnhancedMetadata(entityType, entityID string, metadata map[string]any, now time.Time) error {
	existing, err := s.GetEnhancedMetadata(entityType, entityID)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range metadata {
		existing[k] = v
	}
	encoded, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO enhanced_entities (id, entity_type, entity_id, metadata_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			metadata_json = excluded.metadata_json,
			updated_at = excluded.updated_at
	`, entityType+":"+entityID, entityType, entityID, string(encoded), now.Format(timeLayout))
	return err
}

// GetEnhancedMetadata returns the stored metadata bag for an entity,
// or nil when none exists.
func (s *EmbeddingStore) GetEnhancedMetadata(entityType, entityID string) (map[string]any, error) {
	row := s.DB.QueryRow(`SELECT metadata_json FROM enhanced_entities WHERE entity_type = ? AND entity_id = ?`, entityType, entityID)
	var encoded string
	if err := row.Scan(&encoded); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(encoded), &out); err != nil {
		return nil, err
	}
	return out, nil
}
