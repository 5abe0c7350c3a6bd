package calibration

import (
	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// Threshold is one adaptive decision cutoff per (task_type, name),
// backed by a Beta(α,β) belief over the correct operating point.
type Threshold struct {
	TaskType     string
	Name         string
	Alpha        float64
	Beta         float64
	CurrentValue float64
	MinValue     float64
	MaxValue     float64
	TPCount      int
	FPCount      int
	TNCount      int
	FNCount      int
}

// NewThreshold initializes a threshold with the configured Beta prior
// and a current value at the prior's mode.
func NewThreshold(taskType, name string, cfg *config.TuningConfig) *Threshold {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	t := &Threshold{
		TaskType: taskType,
		Name:     name,
		Alpha:    cfg.GetAdaptiveThresholdInitAlpha(),
		Beta:     cfg.GetAdaptiveThresholdInitBeta(),
		MinValue: cfg.GetAdaptiveThresholdMin(),
		MaxValue: cfg.GetAdaptiveThresholdMax(),
	}
	t.CurrentValue = t.clamp(t.mode())
	return t
}

func (t *Threshold) mode() float64 {
	denom := t.Alpha + t.Beta - 2
	if denom <= 0 {
		return 0.5
	}
	return (t.Alpha - 1) / denom
}

func (t *Threshold) clamp(v float64) float64 {
	if v < t.MinValue {
		return t.MinValue
	}
	if v > t.MaxValue {
		return t.MaxValue
	}
	return v
}

// Update tallies one labeled decision into the confusion counters,
// advances the Beta belief (a correct call strengthens α, an incorrect
// one strengthens β), and moves the current value toward the updated
// Beta mode within [min,max].
func (t *Threshold) Update(predictedPositive, actuallyPositive bool) {
	switch {
	case predictedPositive && actuallyPositive:
		t.TPCount++
	case predictedPositive && !actuallyPositive:
		t.FPCount++
	case !predictedPositive && !actuallyPositive:
		t.TNCount++
	default:
		t.FNCount++
	}

	if predictedPositive == actuallyPositive {
		t.Alpha++
	} else {
		t.Beta++
	}

	const adjustRate = 0.1
	target := t.clamp(t.mode())
	t.CurrentValue = t.clamp(t.CurrentValue + adjustRate*(target-t.CurrentValue))
}

// Decision is the result of applying a threshold to a score.
type Decision struct {
	Exceeds    bool
	Confidence float64
}

// Apply compares a score against the current cutoff. Confidence grows
// with the score's distance from the cutoff, normalized by the larger
// side of the decision boundary.
func (t *Threshold) Apply(score float64) Decision {
	margin := score - t.CurrentValue
	if margin < 0 {
		margin = -margin
	}
	denom := t.CurrentValue
	if 1-t.CurrentValue > denom {
		denom = 1 - t.CurrentValue
	}
	var confidence float64
	if denom > 0 {
		confidence = margin / denom
	}
	return Decision{Exceeds: score >= t.CurrentValue, Confidence: confidence}
}
