package geofence

import (
	"sync"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// Store is the persistence boundary Monitor relies on.
type Store interface {
	ListActiveFences() ([]Fence, error)
	// StatesFor returns every persisted state row for the fence,
	// keyed by hex.
	StatesFor(geofenceID string) (map[string]AircraftState, error)
	SaveState(s AircraftState) error
	DeleteState(geofenceID, hex string) error
	InsertAlert(a Alert) error
}

// Monitor drives every fence's state machine against a batch of
// current positions. Transitions for a given (geofence, hex) pair are
// linearized: Evaluate serializes per fence, and each fence's hexes
// are walked sequentially, so entry/dwell/exit can never interleave
// and duplicate.
type Monitor struct {
	store Store
	cfg   *config.TuningConfig

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMonitor(store Store, cfg *config.TuningConfig) *Monitor {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Monitor{store: store, cfg: cfg, locks: make(map[string]*sync.Mutex)}
}

func (m *Monitor) lockFor(geofenceID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[geofenceID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[geofenceID] = l
	}
	return l
}

// Evaluate runs one evaluation pass: for each active fence, determine
// the aircraft currently inside, advance each (fence, hex) state
// machine, and emit alerts for configured transitions. Repeated calls
// with the same inside-set produce no duplicate alerts.
func (m *Monitor) Evaluate(observations []Observation, now time.Time) ([]Alert, error) {
	fences, err := m.store.ListActiveFences()
	if err != nil {
		return nil, err
	}

	var emitted []Alert
	for _, fence := range fences {
		alerts, err := m.evaluateFence(fence, observations, now)
		if err != nil {
			return emitted, err
		}
		emitted = append(emitted, alerts...)
	}
	return emitted, nil
}

func (m *Monitor) evaluateFence(fence Fence, observations []Observation, now time.Time) ([]Alert, error) {
	lock := m.lockFor(fence.ID)
	lock.Lock()
	defer lock.Unlock()

	states, err := m.store.StatesFor(fence.ID)
	if err != nil {
		return nil, err
	}

	inside := make(map[string]Observation)
	observed := make(map[string]Observation)
	for _, o := range observations {
		if !fence.matchesFilter(o.TypeCode) {
			continue
		}
		observed[o.Hex] = o
		if fence.Polygon.Contains(o.Lat, o.Lon) {
			inside[o.Hex] = o
		}
	}

	var emitted []Alert

	for hex, o := range inside {
		state, known := states[hex]
		switch {
		case !known || state.State == StateOutside:
			state = AircraftState{
				GeofenceID: fence.ID,
				Hex:        hex,
				State:      StateInside,
				EntryLat:   o.Lat,
				EntryLon:   o.Lon,
				EnteredAt:  now,
			}
			if fence.AlertOnEntry {
				a := Alert{GeofenceID: fence.ID, Hex: hex, Transition: TransitionEntry, Severity: severityFor(TransitionEntry, fence, o, m.cfg.GetGeofenceHighPriorityDwellSecs()), CreatedAt: now}
				if err := m.store.InsertAlert(a); err != nil {
					return emitted, err
				}
				emitted = append(emitted, a)
			}

		case state.State == StateInside:
			if now.Sub(state.EnteredAt).Seconds() >= fence.DwellThresholdSec {
				state.State = StateDwelling
				if fence.AlertOnDwell && !state.DwellAlerted {
					a := Alert{GeofenceID: fence.ID, Hex: hex, Transition: TransitionDwell, Severity: severityFor(TransitionDwell, fence, o, m.cfg.GetGeofenceHighPriorityDwellSecs()), CreatedAt: now}
					if err := m.store.InsertAlert(a); err != nil {
						return emitted, err
					}
					emitted = append(emitted, a)
					state.DwellAlerted = true
				}
			}
		}

		state.LastLat = o.Lat
		state.LastLon = o.Lon
		state.LastSeenAt = now
		if err := m.store.SaveState(state); err != nil {
			return emitted, err
		}
	}

	staleCutoff := now.Add(-time.Duration(m.cfg.GetGeofenceStaleMinutesDefault() * float64(time.Minute)))
	for hex, state := range states {
		if _, still := inside[hex]; still {
			continue
		}
		switch state.State {
		case StateInside, StateDwelling:
			if _, seenThisBatch := observed[hex]; !seenThisBatch {
				// The aircraft dropped off the feed rather than
				// leaving the fence; only a long silence reverts it.
				if state.LastSeenAt.Before(staleCutoff) {
					if err := m.store.DeleteState(fence.ID, hex); err != nil {
						return emitted, err
					}
				}
				continue
			}
			if fence.AlertOnExit {
				o := observed[hex]
				a := Alert{GeofenceID: fence.ID, Hex: hex, Transition: TransitionExit, Severity: severityFor(TransitionExit, fence, o, m.cfg.GetGeofenceHighPriorityDwellSecs()), CreatedAt: now}
				if err := m.store.InsertAlert(a); err != nil {
					return emitted, err
				}
				emitted = append(emitted, a)
			}
			state.State = StateOutside
			state.DwellAlerted = false
			if err := m.store.SaveState(state); err != nil {
				return emitted, err
			}
		}
	}

	return emitted, nil
}
