package proximity

import (
	"sync"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// Store is the persistence boundary Service relies on; the concrete
// implementation is internal/db's proximity store.
type Store interface {
	// FindActive returns the id of the active warning for the
	// normalized pair, with found false when none exists.
	FindActive(hex1, hex2 string) (id string, found bool, err error)
	Insert(c Conflict, now time.Time) (id string, err error)
	UpdateGeometry(id string, c Conflict, now time.Time) error
	MarkStaleInactive(olderThan time.Time) (int, error)
}

// Service upserts conflicts by normalized pair so concurrent scans
// converge on one warning row per pair.
type Service struct {
	store Store
	cfg   *config.TuningConfig

	mu sync.Mutex
}

func NewService(store Store, cfg *config.TuningConfig) *Service {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Service{store: store, cfg: cfg}
}

// Scan runs ScanAll against snapshot and upserts every surviving
// conflict, returning the warning IDs touched.
func (s *Service) Scan(snapshot []AircraftState, now time.Time) ([]string, error) {
	conflicts := ScanAll(snapshot, s.cfg)
	var touched []string
	for _, c := range conflicts {
		id, err := s.Upsert(c, now)
		if err != nil {
			return touched, err
		}
		touched = append(touched, id)
	}
	return touched, nil
}

// Upsert updates the geometry of an existing active warning for the
// pair, or inserts a new one.
func (s *Service) Upsert(c Conflict, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, found, err := s.store.FindActive(c.Hex1, c.Hex2)
	if err != nil {
		return "", err
	}
	if found {
		if err := s.store.UpdateGeometry(id, c, now); err != nil {
			return "", err
		}
		return id, nil
	}
	return s.store.Insert(c, now)
}

// ResolveStale deactivates warnings not refreshed within the stale
// window.
func (s *Service) ResolveStale(now time.Time) (int, error) {
	cutoff := now.Add(-time.Duration(s.cfg.GetProximityStaleMinutes() * float64(time.Minute)))
	return s.store.MarkStaleInactive(cutoff)
}
