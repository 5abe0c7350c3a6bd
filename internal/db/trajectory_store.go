package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/trajectory"
)

// TrajectoryStore persists trajectory predictions and validation rollups.
type TrajectoryStore struct {
	DB *DB
}

func NewTrajectoryStore(db *DB) *TrajectoryStore {
	return &TrajectoryStore{DB: db}
}

// InsertPredictions stores a batch of predictions for one aircraft tick.
func (s *TrajectoryStore) InsertPredictions(preds []trajectory.Prediction) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range preds {
		if _, err := tx.Exec(`
			INSERT INTO trajectory_predictions (
				id, hex, horizon_minutes, predicted_at, predicted_lat, predicted_lon,
				predicted_heading_deg, predicted_speed_kts, predicted_altitude_ft,
				uncertainty_nm, confidence, method, expires_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), p.Hex, p.HorizonMinutes, p.PredictedAt.Format(timeLayout),
			p.PredictedLat, p.PredictedLon, p.PredictedHeadingDeg, p.PredictedSpeedKts,
			p.PredictedAltitudeFt, p.UncertaintyNM, p.Confidence, p.Method, p.ExpiresAt.Format(timeLayout)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PendingPrediction is a prediction whose target time has elapsed and
// has not yet been validated.
type PendingPrediction struct {
	ID   string
	Pred trajectory.Prediction
}

// ListDueForValidation returns predictions whose (predicted_at +
// horizon) has already elapsed as of now.
func (s *TrajectoryStore) ListDueForValidation(now time.Time, limit int) ([]PendingPrediction, error) {
	rows, err := s.DB.Query(`
		SELECT id, hex, horizon_minutes, predicted_at, predicted_lat, predicted_lon,
		       predicted_heading_deg, predicted_speed_kts, predicted_altitude_ft,
		       uncertainty_nm, confidence, method, expires_at
		FROM trajectory_predictions
		ORDER BY predicted_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingPrediction
	for rows.Next() {
		var pp PendingPrediction
		var predictedAt, expiresAt string
		var predAlt sql.NullFloat64
		if err := rows.Scan(&pp.ID, &pp.Pred.Hex, &pp.Pred.HorizonMinutes, &predictedAt,
			&pp.Pred.PredictedLat, &pp.Pred.PredictedLon, &pp.Pred.PredictedHeadingDeg,
			&pp.Pred.PredictedSpeedKts, &predAlt, &pp.Pred.UncertaintyNM, &pp.Pred.Confidence,
			&pp.Pred.Method, &expiresAt); err != nil {
			return nil, err
		}
		pp.Pred.PredictedAt, _ = time.Parse(timeLayout, predictedAt)
		pp.Pred.ExpiresAt, _ = time.Parse(timeLayout, expiresAt)
		if predAlt.Valid {
			pp.Pred.PredictedAltitudeFt = &predAlt.Float64
		}
		target := pp.Pred.PredictedAt.Add(time.Duration(pp.Pred.HorizonMinutes) * time.Minute)
		if !target.Before(now) {
			continue
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}

// ListActivePredictions returns the unexpired predictions for hex,
// ordered by horizon.
func (s *TrajectoryStore) ListActivePredictions(hex string, now time.Time) ([]trajectory.Prediction, error) {
	rows, err := s.DB.Query(`
		SELECT hex, horizon_minutes, predicted_at, predicted_lat, predicted_lon,
		       predicted_heading_deg, predicted_speed_kts, predicted_altitude_ft,
		       uncertainty_nm, confidence, method, expires_at
		FROM trajectory_predictions
		WHERE hex = ? AND expires_at > ?
		ORDER BY predicted_at DESC, horizon_minutes ASC
	`, hex, now.Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trajectory.Prediction
	for rows.Next() {
		var p trajectory.Prediction
		var predictedAt, expiresAt string
		var predAlt sql.NullFloat64
		if err := rows.Scan(&p.Hex, &p.HorizonMinutes, &predictedAt, &p.PredictedLat, &p.PredictedLon,
			&p.PredictedHeadingDeg, &p.PredictedSpeedKts, &predAlt, &p.UncertaintyNM,
			&p.Confidence, &p.Method, &expiresAt); err != nil {
			return nil, err
		}
		p.PredictedAt, _ = time.Parse(timeLayout, predictedAt)
		p.ExpiresAt, _ = time.Parse(timeLayout, expiresAt)
		if predAlt.Valid {
			alt := predAlt.Float64
			p.PredictedAltitudeFt = &alt
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePrediction removes a prediction row once it has been validated
// (or expired past validity).
func (s *TrajectoryStore) DeletePrediction(id string) error {
	_, err := s.DB.Exec(`DELETE FROM trajectory_predictions WHERE id = ?`, id)
	return err
}

// DeleteExpired removes predictions past their expires_at with no
// matching actual position to validate against.
func (s *TrajectoryStore) DeleteExpired(now time.Time) (int, error) {
	res, err := s.DB.Exec(`DELETE FROM trajectory_predictions WHERE expires_at < ?`, now.Format(timeLayout))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RecordValidation rolls a validation outcome into the per-horizon,
// per-day stats row.
func (s *TrajectoryStore) RecordValidation(v trajectory.Validation) error {
	accurateInc := 0
	if v.Accurate {
		accurateInc = 1
	}
	_, err := s.DB.Exec(`
		INSERT INTO prediction_validation_stats (horizon_minutes, day, accurate_count, total_count, mean_error_nm)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(horizon_minutes, day) DO UPDATE SET
			accurate_count = accurate_count + ?,
			total_count = total_count + 1,
			mean_error_nm = (mean_error_nm * total_count + ?) / (total_count + 1)
	`, v.HorizonMinutes, v.Day, accurateInc, v.ErrorNM, accurateInc, v.ErrorNM)
	return err
}
