package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for every tunable named across
// the pipeline components. Every field is optional; the Get* accessor
// methods supply the named default when a field is nil, so partial
// JSON documents are always safe to load.
type TuningConfig struct {
	// Periodic loop intervals (duration strings, e.g. "30s").
	AggregatorTickInterval       *string `json:"aggregator_tick_interval,omitempty"`
	ProximityScanInterval        *string `json:"proximity_scan_interval,omitempty"`
	FormationScanInterval        *string `json:"formation_scan_interval,omitempty"`
	TrajectoryPredictionInterval *string `json:"trajectory_prediction_interval,omitempty"`
	TrajectoryValidationInterval *string `json:"trajectory_validation_interval,omitempty"`
	ActivityZoneRefreshInterval  *string `json:"activity_zone_refresh_interval,omitempty"`
	CalibrationRetrainInterval   *string `json:"calibration_retrain_interval,omitempty"`
	ThresholdDecayInterval       *string `json:"threshold_decay_interval,omitempty"`
	NewsFetchInterval            *string `json:"news_fetch_interval,omitempty"`

	// Aggregator.
	UpstreamTimeoutSeconds     *float64 `json:"upstream_timeout_seconds,omitempty"`
	SlowUpstreamTimeoutSeconds *float64 `json:"slow_upstream_timeout_seconds,omitempty"`
	AggregatorCacheTTLSeconds  *float64 `json:"aggregator_cache_ttl_seconds,omitempty"`

	// Pattern detector.
	OrbitMinPoints              *int     `json:"orbit_min_points,omitempty"`
	OrbitMinDurationMinutes     *float64 `json:"orbit_min_duration_minutes,omitempty"`
	OrbitMinCircleFitConfidence *float64 `json:"orbit_min_circle_fit_confidence,omitempty"`
	OrbitMinRadiusNM            *float64 `json:"orbit_min_radius_nm,omitempty"`
	OrbitMaxRadiusNM            *float64 `json:"orbit_max_radius_nm,omitempty"`
	OrbitMinAngularConsistency  *float64 `json:"orbit_min_angular_consistency,omitempty"`
	OrbitMinRevolutions         *float64 `json:"orbit_min_revolutions,omitempty"`

	RacetrackMinPoints      *int     `json:"racetrack_min_points,omitempty"`
	RacetrackMinLegLengthNM *float64 `json:"racetrack_min_leg_length_nm,omitempty"`

	HoldingMinPoints     *int     `json:"holding_min_points,omitempty"`
	HoldingMaxAreaNM2    *float64 `json:"holding_max_area_nm2,omitempty"`
	HoldingMinReversals  *int     `json:"holding_min_reversals,omitempty"`
	HoldingMinConfidence *float64 `json:"holding_min_confidence,omitempty"`

	TankerTrackMinDurationMinutes  *float64 `json:"tanker_track_min_duration_minutes,omitempty"`
	TankerTrackMinAltitudeFt       *float64 `json:"tanker_track_min_altitude_ft,omitempty"`
	TankerTrackMaxAltitudeFt       *float64 `json:"tanker_track_max_altitude_ft,omitempty"`
	TankerTrackMaxAltitudeStdDevFt *float64 `json:"tanker_track_max_altitude_stddev_ft,omitempty"`
	TankerTrackMinLengthNM         *float64 `json:"tanker_track_min_length_nm,omitempty"`
	TankerTrackMaxLengthNM         *float64 `json:"tanker_track_max_length_nm,omitempty"`
	TankerTrackMinStraightness     *float64 `json:"tanker_track_min_straightness,omitempty"`
	TankerTrackMinConfidence       *float64 `json:"tanker_track_min_confidence,omitempty"`

	// Behavioral profiler.
	ColdStartPseudoCount           *int     `json:"cold_start_pseudo_count,omitempty"`
	TrainedSampleThreshold         *int     `json:"trained_sample_threshold,omitempty"`
	EMALowSampleLearningRate       *float64 `json:"ema_low_sample_learning_rate,omitempty"`
	EMALearningRate                *float64 `json:"ema_learning_rate,omitempty"`
	EMALowSampleThreshold          *int     `json:"ema_low_sample_threshold,omitempty"`
	RegionMatchRadiusNM            *float64 `json:"region_match_radius_nm,omitempty"`
	MaxTypicalRegions              *int     `json:"max_typical_regions,omitempty"`
	AltSpeedEMADecay               *float64 `json:"alt_speed_ema_decay,omitempty"`
	DeviationZScoreThreshold       *float64 `json:"deviation_zscore_threshold,omitempty"`
	DeviationPatternFreqThreshold  *float64 `json:"deviation_pattern_freq_threshold,omitempty"`
	DeviationRegionBufferNM        *float64 `json:"deviation_region_buffer_nm,omitempty"`
	DeviationHourActivityThreshold *float64 `json:"deviation_hour_activity_threshold,omitempty"`

	// Formation detector.
	TankerReceiverRadiusNM            *float64 `json:"tanker_receiver_radius_nm,omitempty"`
	TankerReceiverHeadingToleranceDeg *float64 `json:"tanker_receiver_heading_tolerance_deg,omitempty"`
	EscortRadiusNM                    *float64 `json:"escort_radius_nm,omitempty"`
	EscortHeadingToleranceDeg         *float64 `json:"escort_heading_tolerance_deg,omitempty"`
	StrikePackageRadiusNM             *float64 `json:"strike_package_radius_nm,omitempty"`
	StrikePackageMinCount             *int     `json:"strike_package_min_count,omitempty"`
	CapRadiusNM                       *float64 `json:"cap_radius_nm,omitempty"`
	CapMinCount                       *int     `json:"cap_min_count,omitempty"`
	FormationStaleMinutes             *float64 `json:"formation_stale_minutes,omitempty"`
	FormationSnapshotWindowMinutes    *float64 `json:"formation_snapshot_window_minutes,omitempty"`

	// Trajectory predictor.
	MinGroundSpeedKts         *float64 `json:"min_ground_speed_kts,omitempty"`
	ConfidenceBaseNoProfile   *float64 `json:"confidence_base_no_profile,omitempty"`
	ConfidenceBaseWithProfile *float64 `json:"confidence_base_with_profile,omitempty"`

	// Proximity analyzer.
	ProximityLowSeverityThresholdNM *float64 `json:"proximity_low_severity_threshold_nm,omitempty"`
	ClosureRateThresholdKts         *float64 `json:"closure_rate_threshold_kts,omitempty"`
	MaxTimeToCPAMinutes             *float64 `json:"max_time_to_cpa_minutes,omitempty"`
	ProximityStaleMinutes           *float64 `json:"proximity_stale_minutes,omitempty"`
	ProximityMinConfidence          *float64 `json:"proximity_min_confidence,omitempty"`

	// Geofence monitor.
	GeofenceStaleMinutesDefault   *float64 `json:"geofence_stale_minutes_default,omitempty"`
	GeofenceHighPriorityDwellSecs *float64 `json:"geofence_high_priority_dwell_seconds,omitempty"`

	// Context intelligence.
	ActivityZoneBucketDeg   *float64 `json:"activity_zone_bucket_deg,omitempty"`
	ActivityZoneMinAircraft *int     `json:"activity_zone_min_aircraft,omitempty"`
	ActivityZoneRadiusNM    *float64 `json:"activity_zone_radius_nm,omitempty"`
	ActivityZoneStaleHours  *float64 `json:"activity_zone_stale_hours,omitempty"`
	ActivityZoneWindowHours *float64 `json:"activity_zone_window_hours,omitempty"`

	// Confidence calibrator / adaptive thresholds.
	CalibrationMinSamples         *int     `json:"calibration_min_samples,omitempty"`
	CalibrationTrainingIterations *int     `json:"calibration_training_iterations,omitempty"`
	CalibrationLearningRate       *float64 `json:"calibration_learning_rate,omitempty"`
	CalibrationMaxOutcomes        *int     `json:"calibration_max_outcomes,omitempty"`
	CalibrationECEBins            *int     `json:"calibration_ece_bins,omitempty"`
	AdaptiveThresholdInitAlpha    *float64 `json:"adaptive_threshold_init_alpha,omitempty"`
	AdaptiveThresholdInitBeta     *float64 `json:"adaptive_threshold_init_beta,omitempty"`
	AdaptiveThresholdMin          *float64 `json:"adaptive_threshold_min,omitempty"`
	AdaptiveThresholdMax          *float64 `json:"adaptive_threshold_max,omitempty"`

	// Intelligence engine.
	ThreatWeightPatternAnomaly    *float64 `json:"threat_weight_pattern_anomaly,omitempty"`
	ThreatWeightRegionalTension   *float64 `json:"threat_weight_regional_tension,omitempty"`
	ThreatWeightNewsCorrelation   *float64 `json:"threat_weight_news_correlation,omitempty"`
	ThreatWeightHistoricalContext *float64 `json:"threat_weight_historical_context,omitempty"`
	ThreatWeightFormationActivity *float64 `json:"threat_weight_formation_activity,omitempty"`
	ThreatWeightLocationContext   *float64 `json:"threat_weight_location_context,omitempty"`
	ThreatAssessmentValidityHours *float64 `json:"threat_assessment_validity_hours,omitempty"`

	// Alert generator.
	ActivitySpikeWindowMinutes      *float64 `json:"activity_spike_window_minutes,omitempty"`
	ActivitySpikeCriticalMultiplier *float64 `json:"activity_spike_critical_multiplier,omitempty"`
	ActivitySpikeCriticalMinCount   *int     `json:"activity_spike_critical_min_count,omitempty"`
	ActivitySpikeHighMultiplier     *float64 `json:"activity_spike_high_multiplier,omitempty"`
	ActivitySpikeHighMinCount       *int     `json:"activity_spike_high_min_count,omitempty"`
	StrategicMovementWindowMinutes  *float64 `json:"strategic_movement_window_minutes,omitempty"`
	FighterHighCount                *int     `json:"fighter_high_count,omitempty"`
	FighterCriticalCount            *int     `json:"fighter_critical_count,omitempty"`
	NewsCorrelationWindowHours      *float64 `json:"news_correlation_window_hours,omitempty"`
	AlertDedupWindowMinutes         *float64 `json:"alert_dedup_window_minutes,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields nil. Use
// LoadTuningConfig to populate it from a defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under the max size; fields omitted
// from the document retain their accessor-method defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching common parent directories. Panics if the
// file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func validateDuration(name string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if _, err := time.ParseDuration(*v); err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *v, err)
	}
	return nil
}

func validateUnitInterval(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

// Validate checks every set field against its declared range or
// duration-string parseability.
func (c *TuningConfig) Validate() error {
	durations := map[string]*string{
		"aggregator_tick_interval":       c.AggregatorTickInterval,
		"proximity_scan_interval":        c.ProximityScanInterval,
		"formation_scan_interval":        c.FormationScanInterval,
		"trajectory_prediction_interval": c.TrajectoryPredictionInterval,
		"trajectory_validation_interval": c.TrajectoryValidationInterval,
		"activity_zone_refresh_interval": c.ActivityZoneRefreshInterval,
		"calibration_retrain_interval":   c.CalibrationRetrainInterval,
		"threshold_decay_interval":       c.ThresholdDecayInterval,
		"news_fetch_interval":            c.NewsFetchInterval,
	}
	for name, v := range durations {
		if err := validateDuration(name, v); err != nil {
			return err
		}
	}

	unitIntervals := map[string]*float64{
		"orbit_min_circle_fit_confidence":  c.OrbitMinCircleFitConfidence,
		"orbit_min_angular_consistency":    c.OrbitMinAngularConsistency,
		"holding_min_confidence":           c.HoldingMinConfidence,
		"tanker_track_min_straightness":    c.TankerTrackMinStraightness,
		"tanker_track_min_confidence":      c.TankerTrackMinConfidence,
		"ema_low_sample_learning_rate":     c.EMALowSampleLearningRate,
		"ema_learning_rate":                c.EMALearningRate,
		"alt_speed_ema_decay":              c.AltSpeedEMADecay,
		"proximity_min_confidence":         c.ProximityMinConfidence,
		"confidence_base_no_profile":       c.ConfidenceBaseNoProfile,
		"confidence_base_with_profile":     c.ConfidenceBaseWithProfile,
		"threat_weight_pattern_anomaly":    c.ThreatWeightPatternAnomaly,
		"threat_weight_regional_tension":   c.ThreatWeightRegionalTension,
		"threat_weight_news_correlation":   c.ThreatWeightNewsCorrelation,
		"threat_weight_historical_context": c.ThreatWeightHistoricalContext,
		"threat_weight_formation_activity": c.ThreatWeightFormationActivity,
		"threat_weight_location_context":   c.ThreatWeightLocationContext,
	}
	for name, v := range unitIntervals {
		if err := validateUnitInterval(name, v); err != nil {
			return err
		}
	}

	if c.OrbitMinRadiusNM != nil && c.OrbitMaxRadiusNM != nil && *c.OrbitMinRadiusNM > *c.OrbitMaxRadiusNM {
		return fmt.Errorf("orbit_min_radius_nm must not exceed orbit_max_radius_nm")
	}
	if c.AdaptiveThresholdMin != nil && c.AdaptiveThresholdMax != nil && *c.AdaptiveThresholdMin > *c.AdaptiveThresholdMax {
		return fmt.Errorf("adaptive_threshold_min must not exceed adaptive_threshold_max")
	}

	return nil
}
