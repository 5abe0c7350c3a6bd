package db

import (
	"database/sql"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/calibration"
)

// CalibrationStore adapts *DB to calibration.Store.
type CalibrationStore struct {
	DB *DB
}

func NewCalibrationStore(db *DB) *CalibrationStore {
	return &CalibrationStore{DB: db}
}

func (s *CalibrationStore) GetModel(taskType string) (*calibration.Model, error) {
	row := s.DB.QueryRow(`SELECT task_type, platt_a, platt_b, sample_count, ece, updated_at FROM calibration_models WHERE task_type = ?`, taskType)
	var m calibration.Model
	var updatedAt string
	if err := row.Scan(&m.TaskType, &m.PlattA, &m.PlattB, &m.SampleCount, &m.ECE, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &m, nil
}

func (s *CalibrationStore) SaveModel(m calibration.Model) error {
	_, err := s.DB.Exec(`
		INSERT INTO calibration_models (task_type, platt_a, platt_b, sample_count, ece, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_type) DO UPDATE SET
			platt_a = excluded.platt_a,
			platt_b = excluded.platt_b,
			sample_count = excluded.sample_count,
			ece = excluded.ece,
			updated_at = excluded.updated_at
	`, m.TaskType, m.PlattA, m.PlattB, m.SampleCount, m.ECE, m.UpdatedAt.Format(timeLayout))
	return err
}

func (s *CalibrationStore) ListVerifiedOutcomes(taskType string, limit int) ([]calibration.Outcome, error) {
	rows, err := s.DB.Query(`
		SELECT raw_score, outcome FROM prediction_outcomes
		WHERE task_type = ? AND verified = 1
		ORDER BY created_at DESC LIMIT ?`, taskType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calibration.Outcome
	for rows.Next() {
		var o calibration.Outcome
		var outcome int
		if err := rows.Scan(&o.RawScore, &outcome); err != nil {
			return nil, err
		}
		o.Correct = outcome != 0
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *CalibrationStore) InsertOutcome(taskType string, rawScore float64, now time.Time) (int64, error) {
	res, err := s.DB.Exec(`
		INSERT INTO prediction_outcomes (task_type, raw_score, created_at) VALUES (?, ?, ?)`,
		taskType, rawScore, now.Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *CalibrationStore) VerifyOutcome(id int64, correct bool) error {
	_, err := s.DB.Exec(`UPDATE prediction_outcomes SET verified = 1, outcome = ? WHERE id = ?`, boolToInt(correct), id)
	return err
}

func (s *CalibrationStore) GetThreshold(taskType, name string) (*calibration.Threshold, error) {
	row := s.DB.QueryRow(`
		SELECT task_type, name, alpha, beta, current_value, min_value, max_value, tp_count, fp_count, tn_count, fn_count
		FROM adaptive_thresholds WHERE task_type = ? AND name = ?`, taskType, name)
	var t calibration.Threshold
	if err := row.Scan(&t.TaskType, &t.Name, &t.Alpha, &t.Beta, &t.CurrentValue, &t.MinValue, &t.MaxValue,
		&t.TPCount, &t.FPCount, &t.TNCount, &t.FNCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *CalibrationStore) SaveThreshold(t *calibration.Threshold) error {
	_, err := s.DB.Exec(`
		INSERT INTO adaptive_thresholds (task_type, name, alpha, beta, current_value, min_value, max_value, tp_count, fp_count, tn_count, fn_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_type, name) DO UPDATE SET
			alpha = excluded.alpha,
			beta = excluded.beta,
			current_value = excluded.current_value,
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			tp_count = excluded.tp_count,
			fp_count = excluded.fp_count,
			tn_count = excluded.tn_count,
			fn_count = excluded.fn_count
	`, t.TaskType, t.Name, t.Alpha, t.Beta, t.CurrentValue, t.MinValue, t.MaxValue,
		t.TPCount, t.FPCount, t.TNCount, t.FNCount)
	return err
}
