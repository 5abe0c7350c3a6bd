// Package calibration adjusts raw component scores before anything
// downstream trusts them: Platt scaling maps raw confidences to
// calibrated probabilities using verified outcomes, and per-(task,
// name) adaptive thresholds learn decision cutoffs from labeled
// confusion counts.
package calibration

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/skywatch-oss/fusion-engine/internal/config"
)

// Model holds the Platt parameters for one task type.
type Model struct {
	TaskType    string
	PlattA      float64
	PlattB      float64
	SampleCount int
	ECE         float64
	UpdatedAt   time.Time
}

// Calibrate maps a raw score through the fitted sigmoid
// 1/(1+exp(A·raw+B)), clamped to [0,1]. Until the model has seen the
// configured minimum number of verified outcomes, the raw score is
// returned unchanged (the calibrator is the identity).
func (m *Model) Calibrate(raw float64, cfg *config.TuningConfig) float64 {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if m == nil || m.SampleCount < cfg.GetCalibrationMinSamples() {
		return raw
	}
	p := 1 / (1 + math.Exp(m.PlattA*raw+m.PlattB))
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Outcome is one verified prediction outcome used as a training label.
type Outcome struct {
	RawScore float64
	Correct  bool
}

// Train fits Platt parameters by batch gradient descent on logistic
// loss over the given verified outcomes and records a binned
// expected-calibration-error as the quality measure. Models trained on
// fewer outcomes than the identity threshold still store their
// parameters; Calibrate keeps returning raw until the threshold is
// met.
func Train(taskType string, outcomes []Outcome, now time.Time, cfg *config.TuningConfig) Model {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}

	m := Model{TaskType: taskType, SampleCount: len(outcomes), UpdatedAt: now}
	if len(outcomes) == 0 {
		return m
	}

	lr := cfg.GetCalibrationLearningRate()
	iterations := cfg.GetCalibrationTrainingIterations()
	n := float64(len(outcomes))

	var a, b float64
	for iter := 0; iter < iterations; iter++ {
		var gradA, gradB float64
		for _, o := range outcomes {
			p := 1 / (1 + math.Exp(a*o.RawScore+b))
			y := 0.0
			if o.Correct {
				y = 1.0
			}
			// d(logloss)/dA and /dB for p = sigmoid(-(A·x+B)).
			gradA += (y - p) * o.RawScore
			gradB += y - p
		}
		a -= lr * gradA / n
		b -= lr * gradB / n
	}
	m.PlattA = a
	m.PlattB = b
	m.ECE = expectedCalibrationError(m, outcomes, cfg)
	return m
}

// expectedCalibrationError bins calibrated scores and averages the
// per-bin |accuracy - mean confidence| weighted by bin population.
func expectedCalibrationError(m Model, outcomes []Outcome, cfg *config.TuningConfig) float64 {
	bins := cfg.GetCalibrationECEBins()
	if bins <= 0 || len(outcomes) == 0 {
		return 0
	}

	confidences := make([][]float64, bins)
	labels := make([][]float64, bins)
	// Force the full-sample path through Calibrate regardless of the
	// identity threshold.
	fitted := m
	fitted.SampleCount = math.MaxInt32

	for _, o := range outcomes {
		p := fitted.Calibrate(o.RawScore, cfg)
		idx := int(p * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		y := 0.0
		if o.Correct {
			y = 1.0
		}
		confidences[idx] = append(confidences[idx], p)
		labels[idx] = append(labels[idx], y)
	}

	var ece float64
	total := float64(len(outcomes))
	for i := 0; i < bins; i++ {
		if len(confidences[i]) == 0 {
			continue
		}
		meanConf := stat.Mean(confidences[i], nil)
		accuracy := stat.Mean(labels[i], nil)
		ece += float64(len(confidences[i])) / total * math.Abs(accuracy-meanConf)
	}
	return ece
}
