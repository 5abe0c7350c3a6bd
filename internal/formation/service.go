package formation

import (
	"sync"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// Stored is a persisted formation detection as returned by Store.
type Stored struct {
	ID      string
	Type    string
	Members []string
}

// Store is the persistence boundary Service relies on.
type Store interface {
	// FindActiveOverlap returns the active formation of formationType
	// that shares at least one aircraft with hexes, or nil.
	FindActiveOverlap(formationType string, hexes []string) (*Stored, error)
	Insert(d Detection, now time.Time) (id string, err error)
	UpdateGeometry(id string, d Detection, now time.Time) error
	MarkStaleInactive(olderThan time.Time) (int, error)
}

// Service upserts formation detections per (formation_type, overlapping
// aircraft set) and serializes updates per formation type so two scans
// of the same type never race on the same upsert.
type Service struct {
	store Store
	cfg   *config.TuningConfig

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewService(store Store, cfg *config.TuningConfig) *Service {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Service{store: store, cfg: cfg, locks: make(map[string]*sync.Mutex)}
}

func (s *Service) lockFor(formationType string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[formationType]
	if !ok {
		l = &sync.Mutex{}
		s.locks[formationType] = l
	}
	return l
}

// Scan runs DetectAll against snapshot and upserts every resulting
// detection, returning the IDs touched.
func (s *Service) Scan(snapshot []AircraftState, now time.Time) ([]string, error) {
	detections := DetectAll(snapshot, s.cfg)
	var touched []string
	for _, d := range detections {
		id, err := s.Upsert(d, now)
		if err != nil {
			return touched, err
		}
		touched = append(touched, id)
	}
	return touched, nil
}

// Upsert applies one detection: if an active formation of the same
// type shares any aircraft, its geometry/confidence/last-seen are
// updated; otherwise a new row is inserted.
func (s *Service) Upsert(d Detection, now time.Time) (string, error) {
	lock := s.lockFor(d.FormationType)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.FindActiveOverlap(d.FormationType, d.Members)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if err := s.store.UpdateGeometry(existing.ID, d, now); err != nil {
			return "", err
		}
		return existing.ID, nil
	}
	return s.store.Insert(d, now)
}

// ResolveStale marks formations with no update in the configured stale
// window as inactive.
func (s *Service) ResolveStale(now time.Time) (int, error) {
	cutoff := now.Add(-time.Duration(s.cfg.GetFormationStaleMinutes() * float64(time.Minute)))
	return s.store.MarkStaleInactive(cutoff)
}
