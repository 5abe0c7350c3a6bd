package calibration

import (
	"sync"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// Store is the persistence boundary Service relies on.
type Store interface {
	GetModel(taskType string) (*Model, error)
	SaveModel(m Model) error
	// ListVerifiedOutcomes returns up to limit most-recent outcomes
	// for the task that carry a ground-truth label.
	ListVerifiedOutcomes(taskType string, limit int) ([]Outcome, error)
	InsertOutcome(taskType string, rawScore float64, now time.Time) (id int64, err error)
	VerifyOutcome(id int64, correct bool) error
	GetThreshold(taskType, name string) (*Threshold, error)
	SaveThreshold(t *Threshold) error
}

// Service coordinates calibration models and adaptive thresholds
// against the store, serializing writes per (task, name) key.
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

// Calibrate maps a raw score through the task's fitted model; with no
// model or too few samples, the raw score passes through unchanged.
func (s *Service) Calibrate(taskType string, raw float64) (float64, error) {
	m, err := s.store.GetModel(taskType)
	if err != nil {
		return raw, err
	}
	return m.Calibrate(raw, s.cfg), nil
}

// Retrain refits the task's Platt parameters from its most recent
// verified outcomes and persists the updated model.
func (s *Service) Retrain(taskType string, now time.Time) (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes, err := s.store.ListVerifiedOutcomes(taskType, s.cfg.GetCalibrationMaxOutcomes())
	if err != nil {
		return Model{}, err
	}
	m := Train(taskType, outcomes, now, s.cfg)
	if err := s.store.SaveModel(m); err != nil {
		return Model{}, err
	}
	return m, nil
}

// RecordOutcome inserts an unverified outcome row for later labeling.
func (s *Service) RecordOutcome(taskType string, rawScore float64, now time.Time) (int64, error) {
	return s.store.InsertOutcome(taskType, rawScore, now)
}

// VerifyOutcome sets the ground-truth boolean on a recorded outcome.
func (s *Service) VerifyOutcome(id int64, correct bool) error {
	return s.store.VerifyOutcome(id, correct)
}

// ThresholdFor returns the persisted threshold for (task, name),
// creating it from the configured prior on first use.
func (s *Service) ThresholdFor(taskType, name string) (*Threshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetThreshold(taskType, name)
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	t = NewThreshold(taskType, name, s.cfg)
	if err := s.store.SaveThreshold(t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateThreshold tallies one labeled decision and persists the moved
// cutoff.
func (s *Service) UpdateThreshold(taskType, name string, predictedPositive, actuallyPositive bool) (*Threshold, error) {
	t, err := s.ThresholdFor(taskType, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t.Update(predictedPositive, actuallyPositive)
	if err := s.store.SaveThreshold(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Apply fetches the (task, name) threshold and applies it to score.
func (s *Service) Apply(taskType, name string, score float64) (Decision, error) {
	t, err := s.ThresholdFor(taskType, name)
	if err != nil {
		return Decision{}, err
	}
	return t.Apply(score), nil
}
