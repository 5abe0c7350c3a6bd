package profiler

import (
	"sync"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// Store is the persistence boundary profiler.Service relies on; the
// concrete implementation is internal/db's profile store methods.
type Store interface {
	GetProfile(hex string) (*Profile, error)
	SaveProfile(p *Profile) error
}

// Service owns all profile mutation
// and serializes updates per aircraft so EMA semantics hold while
// letting different aircraft update concurrently.
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

func (s *Service) lockFor(hex string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[hex]
	if !ok {
		l = &sync.Mutex{}
		s.locks[hex] = l
	}
	return l
}

// GetOrCreate returns the existing profile for hex, or seeds one from a
// cold-start prior keyed by typeCode (3 pseudo-observations) when a
// prior exists for the type code, a blank profile otherwise.
func (s *Service) GetOrCreate(hex, typeCode string) (*Profile, error) {
	lock := s.lockFor(hex)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.GetProfile(hex)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var p *Profile
	if prior, ok := ColdStartPriors[typeCode]; ok {
		p = WithPrior(hex, prior, s.cfg)
	} else {
		p = Blank(hex)
	}
	if err := s.store.SaveProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update serializes a mutation of hex's profile (typically a call to
// the package-level Update function) against concurrent updates for
// the same aircraft, and persists the result.
func (s *Service) Update(hex string, mutate func(*Profile) *Profile) (*Profile, error) {
	lock := s.lockFor(hex)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.store.GetProfile(hex)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = Blank(hex)
	}
	p = mutate(p)
	if err := s.store.SaveProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}
