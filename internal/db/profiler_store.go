package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/pattern"
	"github.com/skywatch-oss/fusion-engine/internal/profiler"
)

// ProfilerStore adapts *DB to profiler.Store.
type ProfilerStore struct {
	DB *DB
}

func NewProfilerStore(db *DB) *ProfilerStore {
	return &ProfilerStore{DB: db}
}

// GetProfile returns the persisted behavioral profile for hex, or nil
// if none has been saved yet.
func (s *ProfilerStore) GetProfile(hex string) (*profiler.Profile, error) {
	row := s.DB.QueryRow(`
		SELECT hex, pattern_distribution, typical_regions,
		       altitude_min, altitude_max, altitude_avg, altitude_stddev,
		       speed_min, speed_max, speed_avg, speed_stddev,
		       hourly_distribution, daily_distribution, sample_count, is_trained, last_flight_at
		FROM behavioral_profiles WHERE hex = ?`, hex)

	var p profiler.Profile
	var patternDist, regions, hourly, daily string
	var altMin, altMax, altAvg, altStd, spMin, spMax, spAvg, spStd sql.NullFloat64
	var isTrained int
	var lastFlight sql.NullString

	if err := row.Scan(&p.Hex, &patternDist, &regions, &altMin, &altMax, &altAvg, &altStd,
		&spMin, &spMax, &spAvg, &spStd, &hourly, &daily, &p.SampleCount, &isTrained, &lastFlight); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rawDist := make(map[string]float64)
	if err := json.Unmarshal([]byte(patternDist), &rawDist); err != nil {
		return nil, err
	}
	p.PatternDistribution = make(map[pattern.Name]float64, len(rawDist))
	for k, v := range rawDist {
		p.PatternDistribution[pattern.Name(k)] = v
	}

	var rawRegions []profiler.Region
	if err := json.Unmarshal([]byte(regions), &rawRegions); err != nil {
		return nil, err
	}
	p.TypicalRegions = rawRegions

	p.AltitudeMin, p.AltitudeMax, p.AltitudeAvg, p.AltitudeStdDev = altMin.Float64, altMax.Float64, altAvg.Float64, altStd.Float64
	p.SpeedMin, p.SpeedMax, p.SpeedAvg, p.SpeedStdDev = spMin.Float64, spMax.Float64, spAvg.Float64, spStd.Float64

	var hourlySlice []float64
	if err := json.Unmarshal([]byte(hourly), &hourlySlice); err != nil {
		return nil, err
	}
	for i := 0; i < len(hourlySlice) && i < 24; i++ {
		p.HourlyActivity[i] = hourlySlice[i]
	}
	var dailySlice []float64
	if err := json.Unmarshal([]byte(daily), &dailySlice); err != nil {
		return nil, err
	}
	for i := 0; i < len(dailySlice) && i < 7; i++ {
		p.DailyActivity[i] = dailySlice[i]
	}

	p.IsTrained = isTrained != 0
	if lastFlight.Valid {
		p.LastFlightAt, _ = time.Parse(timeLayout, lastFlight.String)
	}
	return &p, nil
}

// SaveProfile upserts the full profile row for p.Hex.
func (s *ProfilerStore) SaveProfile(p *profiler.Profile) error {
	rawDist := make(map[string]float64, len(p.PatternDistribution))
	for k, v := range p.PatternDistribution {
		rawDist[string(k)] = v
	}
	patternDist, err := json.Marshal(rawDist)
	if err != nil {
		return err
	}
	regions, err := json.Marshal(p.TypicalRegions)
	if err != nil {
		return err
	}
	hourly, err := json.Marshal(p.HourlyActivity[:])
	if err != nil {
		return err
	}
	daily, err := json.Marshal(p.DailyActivity[:])
	if err != nil {
		return err
	}

	var lastFlight any
	if !p.LastFlightAt.IsZero() {
		lastFlight = p.LastFlightAt.Format(timeLayout)
	}

	_, err = s.DB.Exec(`
		INSERT INTO behavioral_profiles (
			hex, pattern_distribution, typical_regions,
			altitude_min, altitude_max, altitude_avg, altitude_stddev,
			speed_min, speed_max, speed_avg, speed_stddev,
			hourly_distribution, daily_distribution, sample_count, is_trained, last_flight_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hex) DO UPDATE SET
			pattern_distribution = excluded.pattern_distribution,
			typical_regions = excluded.typical_regions,
			altitude_min = excluded.altitude_min,
			altitude_max = excluded.altitude_max,
			altitude_avg = excluded.altitude_avg,
			altitude_stddev = excluded.altitude_stddev,
			speed_min = excluded.speed_min,
			speed_max = excluded.speed_max,
			speed_avg = excluded.speed_avg,
			speed_stddev = excluded.speed_stddev,
			hourly_distribution = excluded.hourly_distribution,
			daily_distribution = excluded.daily_distribution,
			sample_count = excluded.sample_count,
			is_trained = excluded.is_trained,
			last_flight_at = excluded.last_flight_at
	`, p.Hex, string(patternDist), string(regions),
		p.AltitudeMin, p.AltitudeMax, p.AltitudeAvg, p.AltitudeStdDev,
		p.SpeedMin, p.SpeedMax, p.SpeedAvg, p.SpeedStdDev,
		string(hourly), string(daily), p.SampleCount, boolToInt(p.IsTrained), lastFlight)
	return err
}
