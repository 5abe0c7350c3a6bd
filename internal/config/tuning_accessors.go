package config

import "time"

func (c *TuningConfig) getDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

func (c *TuningConfig) getFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func (c *TuningConfig) getInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// Periodic loop intervals.
func (c *TuningConfig) GetAggregatorTickInterval() time.Duration {
	return c.getDuration(c.AggregatorTickInterval, 30*time.Second)
}
func (c *TuningConfig) GetProximityScanInterval() time.Duration {
	return c.getDuration(c.ProximityScanInterval, 30*time.Second)
}
func (c *TuningConfig) GetFormationScanInterval() time.Duration {
	return c.getDuration(c.FormationScanInterval, 30*time.Second)
}
func (c *TuningConfig) GetTrajectoryPredictionInterval() time.Duration {
	return c.getDuration(c.TrajectoryPredictionInterval, 60*time.Second)
}
func (c *TuningConfig) GetTrajectoryValidationInterval() time.Duration {
	return c.getDuration(c.TrajectoryValidationInterval, 5*time.Minute)
}
func (c *TuningConfig) GetActivityZoneRefreshInterval() time.Duration {
	return c.getDuration(c.ActivityZoneRefreshInterval, 10*time.Minute)
}
func (c *TuningConfig) GetCalibrationRetrainInterval() time.Duration {
	return c.getDuration(c.CalibrationRetrainInterval, 24*time.Hour)
}
func (c *TuningConfig) GetThresholdDecayInterval() time.Duration {
	return c.getDuration(c.ThresholdDecayInterval, time.Hour)
}
func (c *TuningConfig) GetNewsFetchInterval() time.Duration {
	return c.getDuration(c.NewsFetchInterval, 15*time.Minute)
}

// Aggregator.
func (c *TuningConfig) GetUpstreamTimeoutSeconds() float64 {
	return c.getFloat(c.UpstreamTimeoutSeconds, 10)
}
func (c *TuningConfig) GetSlowUpstreamTimeoutSeconds() float64 {
	return c.getFloat(c.SlowUpstreamTimeoutSeconds, 15)
}
func (c *TuningConfig) GetAggregatorCacheTTLSeconds() float64 {
	return c.getFloat(c.AggregatorCacheTTLSeconds, 60)
}

// Pattern detector.
func (c *TuningConfig) GetOrbitMinPoints() int { return c.getInt(c.OrbitMinPoints, 10) }
func (c *TuningConfig) GetOrbitMinDurationMinutes() float64 {
	return c.getFloat(c.OrbitMinDurationMinutes, 5)
}
func (c *TuningConfig) GetOrbitMinCircleFitConfidence() float64 {
	return c.getFloat(c.OrbitMinCircleFitConfidence, 0.5)
}
func (c *TuningConfig) GetOrbitMinRadiusNM() float64 { return c.getFloat(c.OrbitMinRadiusNM, 2) }
func (c *TuningConfig) GetOrbitMaxRadiusNM() float64 { return c.getFloat(c.OrbitMaxRadiusNM, 50) }
func (c *TuningConfig) GetOrbitMinAngularConsistency() float64 {
	return c.getFloat(c.OrbitMinAngularConsistency, 0.3)
}
func (c *TuningConfig) GetOrbitMinRevolutions() float64 {
	return c.getFloat(c.OrbitMinRevolutions, 0.5)
}

func (c *TuningConfig) GetRacetrackMinPoints() int { return c.getInt(c.RacetrackMinPoints, 8) }
func (c *TuningConfig) GetRacetrackMinLegLengthNM() float64 {
	return c.getFloat(c.RacetrackMinLegLengthNM, 5)
}

func (c *TuningConfig) GetHoldingMinPoints() int { return c.getInt(c.HoldingMinPoints, 6) }
func (c *TuningConfig) GetHoldingMaxAreaNM2() float64 {
	return c.getFloat(c.HoldingMaxAreaNM2, 50)
}
func (c *TuningConfig) GetHoldingMinReversals() int { return c.getInt(c.HoldingMinReversals, 2) }
func (c *TuningConfig) GetHoldingMinConfidence() float64 {
	return c.getFloat(c.HoldingMinConfidence, 0.5)
}

func (c *TuningConfig) GetTankerTrackMinDurationMinutes() float64 {
	return c.getFloat(c.TankerTrackMinDurationMinutes, 20)
}
func (c *TuningConfig) GetTankerTrackMinAltitudeFt() float64 {
	return c.getFloat(c.TankerTrackMinAltitudeFt, 18000)
}
func (c *TuningConfig) GetTankerTrackMaxAltitudeFt() float64 {
	return c.getFloat(c.TankerTrackMaxAltitudeFt, 40000)
}
func (c *TuningConfig) GetTankerTrackMaxAltitudeStdDevFt() float64 {
	return c.getFloat(c.TankerTrackMaxAltitudeStdDevFt, 3000)
}
func (c *TuningConfig) GetTankerTrackMinLengthNM() float64 {
	return c.getFloat(c.TankerTrackMinLengthNM, 30)
}
func (c *TuningConfig) GetTankerTrackMaxLengthNM() float64 {
	return c.getFloat(c.TankerTrackMaxLengthNM, 200)
}
func (c *TuningConfig) GetTankerTrackMinStraightness() float64 {
	return c.getFloat(c.TankerTrackMinStraightness, 0.7)
}
func (c *TuningConfig) GetTankerTrackMinConfidence() float64 {
	return c.getFloat(c.TankerTrackMinConfidence, 0.5)
}

// Behavioral profiler.
func (c *TuningConfig) GetColdStartPseudoCount() int { return c.getInt(c.ColdStartPseudoCount, 3) }
func (c *TuningConfig) GetTrainedSampleThreshold() int {
	return c.getInt(c.TrainedSampleThreshold, 10)
}
func (c *TuningConfig) GetEMALowSampleLearningRate() float64 {
	return c.getFloat(c.EMALowSampleLearningRate, 0.3)
}
func (c *TuningConfig) GetEMALearningRate() float64 { return c.getFloat(c.EMALearningRate, 0.1) }
func (c *TuningConfig) GetEMALowSampleThreshold() int {
	return c.getInt(c.EMALowSampleThreshold, 5)
}
func (c *TuningConfig) GetRegionMatchRadiusNM() float64 {
	return c.getFloat(c.RegionMatchRadiusNM, 50)
}
func (c *TuningConfig) GetMaxTypicalRegions() int { return c.getInt(c.MaxTypicalRegions, 10) }
func (c *TuningConfig) GetAltSpeedEMADecay() float64 {
	return c.getFloat(c.AltSpeedEMADecay, 0.95)
}
func (c *TuningConfig) GetDeviationZScoreThreshold() float64 {
	return c.getFloat(c.DeviationZScoreThreshold, 2)
}
func (c *TuningConfig) GetDeviationPatternFreqThreshold() float64 {
	return c.getFloat(c.DeviationPatternFreqThreshold, 0.1)
}
func (c *TuningConfig) GetDeviationRegionBufferNM() float64 {
	return c.getFloat(c.DeviationRegionBufferNM, 20)
}
func (c *TuningConfig) GetDeviationHourActivityThreshold() float64 {
	return c.getFloat(c.DeviationHourActivityThreshold, 0.02)
}

// Formation detector.
func (c *TuningConfig) GetTankerReceiverRadiusNM() float64 {
	return c.getFloat(c.TankerReceiverRadiusNM, 5)
}
func (c *TuningConfig) GetTankerReceiverHeadingToleranceDeg() float64 {
	return c.getFloat(c.TankerReceiverHeadingToleranceDeg, 30)
}
func (c *TuningConfig) GetEscortRadiusNM() float64 { return c.getFloat(c.EscortRadiusNM, 10) }
func (c *TuningConfig) GetEscortHeadingToleranceDeg() float64 {
	return c.getFloat(c.EscortHeadingToleranceDeg, 45)
}
func (c *TuningConfig) GetStrikePackageRadiusNM() float64 {
	return c.getFloat(c.StrikePackageRadiusNM, 20)
}
func (c *TuningConfig) GetStrikePackageMinCount() int {
	return c.getInt(c.StrikePackageMinCount, 3)
}
func (c *TuningConfig) GetCapRadiusNM() float64 { return c.getFloat(c.CapRadiusNM, 30) }
func (c *TuningConfig) GetCapMinCount() int      { return c.getInt(c.CapMinCount, 2) }
func (c *TuningConfig) GetFormationStaleMinutes() float64 {
	return c.getFloat(c.FormationStaleMinutes, 10)
}
func (c *TuningConfig) GetFormationSnapshotWindowMinutes() float64 {
	return c.getFloat(c.FormationSnapshotWindowMinutes, 5)
}

// Trajectory predictor.
func (c *TuningConfig) GetMinGroundSpeedKts() float64 {
	return c.getFloat(c.MinGroundSpeedKts, 50)
}
func (c *TuningConfig) GetConfidenceBaseNoProfile() float64 {
	return c.getFloat(c.ConfidenceBaseNoProfile, 0.7)
}
func (c *TuningConfig) GetConfidenceBaseWithProfile() float64 {
	return c.getFloat(c.ConfidenceBaseWithProfile, 0.85)
}

// Proximity analyzer.
func (c *TuningConfig) GetProximityLowSeverityThresholdNM() float64 {
	return c.getFloat(c.ProximityLowSeverityThresholdNM, 20)
}
func (c *TuningConfig) GetClosureRateThresholdKts() float64 {
	return c.getFloat(c.ClosureRateThresholdKts, 50)
}
func (c *TuningConfig) GetMaxTimeToCPAMinutes() float64 {
	return c.getFloat(c.MaxTimeToCPAMinutes, 30)
}
func (c *TuningConfig) GetProximityStaleMinutes() float64 {
	return c.getFloat(c.ProximityStaleMinutes, 10)
}
func (c *TuningConfig) GetProximityMinConfidence() float64 {
	return c.getFloat(c.ProximityMinConfidence, 0.5)
}

// Geofence monitor.
func (c *TuningConfig) GetGeofenceStaleMinutesDefault() float64 {
	return c.getFloat(c.GeofenceStaleMinutesDefault, 30)
}
func (c *TuningConfig) GetGeofenceHighPriorityDwellSecs() float64 {
	return c.getFloat(c.GeofenceHighPriorityDwellSecs, 1800)
}

// Context intelligence.
func (c *TuningConfig) GetActivityZoneBucketDeg() float64 {
	return c.getFloat(c.ActivityZoneBucketDeg, 0.1)
}
func (c *TuningConfig) GetActivityZoneMinAircraft() int {
	return c.getInt(c.ActivityZoneMinAircraft, 3)
}
func (c *TuningConfig) GetActivityZoneRadiusNM() float64 {
	return c.getFloat(c.ActivityZoneRadiusNM, 30)
}
func (c *TuningConfig) GetActivityZoneStaleHours() float64 {
	return c.getFloat(c.ActivityZoneStaleHours, 2)
}
func (c *TuningConfig) GetActivityZoneWindowHours() float64 {
	return c.getFloat(c.ActivityZoneWindowHours, 24)
}

// Confidence calibrator / adaptive thresholds.
func (c *TuningConfig) GetCalibrationMinSamples() int {
	return c.getInt(c.CalibrationMinSamples, 50)
}
func (c *TuningConfig) GetCalibrationTrainingIterations() int {
	return c.getInt(c.CalibrationTrainingIterations, 1000)
}
func (c *TuningConfig) GetCalibrationLearningRate() float64 {
	return c.getFloat(c.CalibrationLearningRate, 0.1)
}
func (c *TuningConfig) GetCalibrationMaxOutcomes() int {
	return c.getInt(c.CalibrationMaxOutcomes, 1000)
}
func (c *TuningConfig) GetCalibrationECEBins() int { return c.getInt(c.CalibrationECEBins, 10) }
func (c *TuningConfig) GetAdaptiveThresholdInitAlpha() float64 {
	return c.getFloat(c.AdaptiveThresholdInitAlpha, 2)
}
func (c *TuningConfig) GetAdaptiveThresholdInitBeta() float64 {
	return c.getFloat(c.AdaptiveThresholdInitBeta, 2)
}
func (c *TuningConfig) GetAdaptiveThresholdMin() float64 {
	return c.getFloat(c.AdaptiveThresholdMin, 0.1)
}
func (c *TuningConfig) GetAdaptiveThresholdMax() float64 {
	return c.getFloat(c.AdaptiveThresholdMax, 0.9)
}

// Intelligence engine. The six threat weights sum to 1.00
// including location context.
func (c *TuningConfig) GetThreatWeightPatternAnomaly() float64 {
	return c.getFloat(c.ThreatWeightPatternAnomaly, 0.20)
}
func (c *TuningConfig) GetThreatWeightRegionalTension() float64 {
	return c.getFloat(c.ThreatWeightRegionalTension, 0.15)
}
func (c *TuningConfig) GetThreatWeightNewsCorrelation() float64 {
	return c.getFloat(c.ThreatWeightNewsCorrelation, 0.20)
}
func (c *TuningConfig) GetThreatWeightHistoricalContext() float64 {
	return c.getFloat(c.ThreatWeightHistoricalContext, 0.15)
}
func (c *TuningConfig) GetThreatWeightFormationActivity() float64 {
	return c.getFloat(c.ThreatWeightFormationActivity, 0.10)
}
func (c *TuningConfig) GetThreatWeightLocationContext() float64 {
	return c.getFloat(c.ThreatWeightLocationContext, 0.20)
}
func (c *TuningConfig) GetThreatAssessmentValidityHours() float64 {
	return c.getFloat(c.ThreatAssessmentValidityHours, 6)
}

// Alert generator.
func (c *TuningConfig) GetActivitySpikeWindowMinutes() float64 {
	return c.getFloat(c.ActivitySpikeWindowMinutes, 10)
}
func (c *TuningConfig) GetActivitySpikeCriticalMultiplier() float64 {
	return c.getFloat(c.ActivitySpikeCriticalMultiplier, 3)
}
func (c *TuningConfig) GetActivitySpikeCriticalMinCount() int {
	return c.getInt(c.ActivitySpikeCriticalMinCount, 6)
}
func (c *TuningConfig) GetActivitySpikeHighMultiplier() float64 {
	return c.getFloat(c.ActivitySpikeHighMultiplier, 2)
}
func (c *TuningConfig) GetActivitySpikeHighMinCount() int {
	return c.getInt(c.ActivitySpikeHighMinCount, 4)
}
func (c *TuningConfig) GetStrategicMovementWindowMinutes() float64 {
	return c.getFloat(c.StrategicMovementWindowMinutes, 10)
}
func (c *TuningConfig) GetFighterHighCount() int     { return c.getInt(c.FighterHighCount, 6) }
func (c *TuningConfig) GetFighterCriticalCount() int { return c.getInt(c.FighterCriticalCount, 10) }
func (c *TuningConfig) GetNewsCorrelationWindowHours() float64 {
	return c.getFloat(c.NewsCorrelationWindowHours, 6)
}
func (c *TuningConfig) GetAlertDedupWindowMinutes() float64 {
	return c.getFloat(c.AlertDedupWindowMinutes, 30)
}
