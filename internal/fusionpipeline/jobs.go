package fusionpipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/alerts"
	"github.com/skywatch-oss/fusion-engine/internal/contextintel"
	"github.com/skywatch-oss/fusion-engine/internal/db"
	"github.com/skywatch-oss/fusion-engine/internal/formation"
	"github.com/skywatch-oss/fusion-engine/internal/genai"
	"github.com/skywatch-oss/fusion-engine/internal/geo"
	"github.com/skywatch-oss/fusion-engine/internal/geofence"
	"github.com/skywatch-oss/fusion-engine/internal/intel"
	"github.com/skywatch-oss/fusion-engine/internal/monitoring"
	"github.com/skywatch-oss/fusion-engine/internal/pattern"
	"github.com/skywatch-oss/fusion-engine/internal/patternmath"
	"github.com/skywatch-oss/fusion-engine/internal/profiler"
	"github.com/skywatch-oss/fusion-engine/internal/proximity"
	"github.com/skywatch-oss/fusion-engine/internal/trajectory"
)

// patternHistoryWindow bounds how much track history the per-tick
// pattern classification reads back.
const patternHistoryWindow = 30 * time.Minute

// runAggregatorTick is the central loop: fetch and merge upstream
// records, persist identities and positions, open flights, evaluate
// geofences, and drive the pattern → profile → anomaly → intent chain
// for each military aircraft seen this tick.
func (p *Pipeline) runAggregatorTick(ctx context.Context) error {
	result, err := p.deps.Aggregator.FetchTick(ctx)
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return nil
	}
	now := p.deps.Clock.Now().UTC()

	var observations []geofence.Observation
	type chainTarget struct {
		hex      string
		typeCode string
		category aircraft.MilitaryCategory
	}
	var chain []chainTarget

	for _, rec := range result.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		identity, position, err := p.persistRecord(rec, now)
		if err != nil {
			// One bad record never fails the batch.
			monitoring.Logf("pipeline: record %s skipped: %v", rec.Hex, err)
			continue
		}
		if position == nil {
			continue
		}
		observations = append(observations, geofence.Observation{
			Hex:      identity.Hex,
			TypeCode: identity.TypeCode,
			Category: identity.Category,
			Lat:      position.Lat,
			Lon:      position.Lon,
		})
		if identity.IsMilitary {
			chain = append(chain, chainTarget{hex: identity.Hex, typeCode: identity.TypeCode, category: identity.Category})
		}
	}

	if _, err := p.deps.Geofences.Evaluate(observations, now); err != nil {
		monitoring.Logf("pipeline: geofence evaluation failed: %v", err)
	}

	for _, target := range chain {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runIntelChain(target.hex, target.typeCode, target.category, now); err != nil {
			monitoring.Logf("pipeline: intel chain for %s failed: %v", target.hex, err)
		}
	}
	return nil
}

// persistRecord folds one merged upstream record into the aircraft and
// position tables, opening a flight when none is active.
func (p *Pipeline) persistRecord(rec aircraft.UpstreamRecord, now time.Time) (aircraft.Aircraft, *aircraft.Position, error) {
	existing, err := p.deps.DB.GetAircraft(rec.Hex)
	if err != nil {
		return aircraft.Aircraft{}, nil, err
	}
	var identity aircraft.Aircraft
	if existing != nil {
		identity = *existing
	} else {
		identity = aircraft.Aircraft{Hex: rec.Hex}
	}

	category := aircraft.MilitaryCategory("")
	if rec.Category != nil {
		category = aircraft.MilitaryCategory(*rec.Category)
	}
	identity = identity.ApplyUpdate(stringOf(rec.TypeCode), stringOf(rec.OwnOp), stringOf(rec.Country),
		rec.Mil, category, rec.Sources, now)
	if err := p.deps.DB.UpsertAircraft(identity); err != nil {
		return aircraft.Aircraft{}, nil, err
	}

	if rec.Lat == nil || rec.Lon == nil {
		return identity, nil, nil
	}
	position := aircraft.Position{
		Hex:             rec.Hex,
		Lat:             *rec.Lat,
		Lon:             *rec.Lon,
		AltitudeFt:      rec.AltBaroFt,
		GroundSpeedKts:  rec.GroundSpeedKts,
		TrackDeg:        rec.TrackDeg,
		VerticalRateFpm: rec.BaroRateFpm,
		Source:          firstSource(rec.Sources),
		SeenAgeSec:      floatOf(rec.SeenSec),
		SeenPosAgeSec:   floatOf(rec.SeenPosSec),
		Timestamp:       now,
	}
	if err := position.Validate(); err != nil {
		return identity, nil, err
	}
	if err := p.deps.DB.RecordPosition(position); err != nil {
		return identity, nil, err
	}

	open, err := p.deps.DB.GetOpenFlight(rec.Hex)
	if err != nil {
		return identity, nil, err
	}
	if open == nil {
		if _, err := p.deps.DB.OpenFlight(rec.Hex, now); err != nil {
			return identity, nil, err
		}
	}
	return identity, &position, nil
}

// runIntelChain classifies the aircraft's recent track, folds it into
// the behavioral profile, scores deviations, and records anomalies and
// intent.
func (p *Pipeline) runIntelChain(hex, typeCode string, category aircraft.MilitaryCategory, now time.Time) error {
	history, err := p.deps.DB.GetPositionHistory(hex, now.Add(-patternHistoryWindow))
	if err != nil {
		return err
	}
	if len(history) < 2 {
		return nil
	}

	points := toPatternPoints(history)
	candidates := pattern.Detect(points, p.cfg)
	primary := pattern.Primary(points, candidates)

	if primary.Confidence > 0 && len(candidates) > 0 {
		if open, err := p.deps.DB.GetOpenFlight(hex); err == nil && open != nil {
			if err := p.deps.DB.UpdateFlightPattern(open.ID, string(primary.Pattern)); err != nil {
				monitoring.Logf("pipeline: flight pattern update for %s failed: %v", hex, err)
			}
		}
	}

	stats := positionStats(history, now)
	detected := pattern.Name("")
	if len(candidates) > 0 {
		detected = primary.Pattern
	}

	if _, err := p.deps.Profiles.GetOrCreate(hex, typeCode); err != nil {
		return err
	}
	updated, err := p.deps.Profiles.Update(hex, func(prof *profiler.Profile) *profiler.Profile {
		return profiler.Update(prof, stats, detected, now, p.cfg)
	})
	if err != nil {
		return err
	}

	deviations := profiler.CheckDeviation(updated, stats, detected, now.Hour(), p.cfg)
	if len(deviations) > 0 {
		if _, err := p.deps.Intel.DetectAnomalies(hex, deviations, now); err != nil {
			return err
		}
	}

	nearby, err := p.nearbyAircraft(hex, now)
	if err != nil {
		return err
	}
	classified := intel.ClassifyIntent(hex, category, detected, nearby, now)
	if _, err := p.deps.Intel.RecordIntent(classified); err != nil {
		return err
	}
	return nil
}

// nearbyAircraft lists other active military aircraft with their
// distance from hex's latest position.
func (p *Pipeline) nearbyAircraft(hex string, now time.Time) ([]intel.NearbyAircraft, error) {
	self, err := p.deps.DB.GetLatestPosition(hex)
	if err != nil || self == nil {
		return nil, err
	}
	window := time.Duration(p.cfg.GetFormationSnapshotWindowMinutes() * float64(time.Minute))
	active, err := p.deps.DB.ListActivePositions(now.Add(-window), true, -1)
	if err != nil {
		return nil, err
	}

	var out []intel.NearbyAircraft
	for _, pos := range active {
		if pos.Hex == hex {
			continue
		}
		d, err := geo.DistanceNM(self.Lat, self.Lon, pos.Lat, pos.Lon)
		if err != nil {
			continue
		}
		identity, err := p.deps.DB.GetAircraft(pos.Hex)
		if err != nil || identity == nil {
			continue
		}
		out = append(out, intel.NearbyAircraft{Hex: pos.Hex, Category: identity.Category, DistanceNM: d})
	}
	return out, nil
}

func (p *Pipeline) runProximityScan(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()
	window := time.Duration(p.cfg.GetFormationSnapshotWindowMinutes() * float64(time.Minute))
	positions, err := p.deps.DB.ListActivePositions(now.Add(-window), true, p.cfg.GetMinGroundSpeedKts())
	if err != nil {
		return err
	}

	snapshot := make([]proximity.AircraftState, 0, len(positions))
	for _, pos := range positions {
		snapshot = append(snapshot, proximity.AircraftState{
			Hex:            pos.Hex,
			Lat:            pos.Lat,
			Lon:            pos.Lon,
			AltitudeFt:     pos.AltitudeFt,
			TrackDeg:       pos.TrackDeg,
			GroundSpeedKts: pos.GroundSpeedKts,
		})
	}

	if _, err := p.deps.Proximities.Scan(snapshot, now); err != nil {
		return err
	}
	_, err = p.deps.Proximities.ResolveStale(now)
	return err
}

func (p *Pipeline) runFormationScan(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()
	window := time.Duration(p.cfg.GetFormationSnapshotWindowMinutes() * float64(time.Minute))
	positions, err := p.deps.DB.ListActivePositions(now.Add(-window), true, -1)
	if err != nil {
		return err
	}

	snapshot := make([]formation.AircraftState, 0, len(positions))
	for _, pos := range positions {
		identity, err := p.deps.DB.GetAircraft(pos.Hex)
		if err != nil {
			return err
		}
		if identity == nil {
			continue
		}
		recentPattern, err := p.deps.DB.LatestFlightPattern(pos.Hex)
		if err != nil {
			return err
		}
		snapshot = append(snapshot, formation.AircraftState{
			Hex:            pos.Hex,
			TypeCode:       identity.TypeCode,
			Category:       identity.Category,
			Lat:            pos.Lat,
			Lon:            pos.Lon,
			AltitudeFt:     pos.AltitudeFt,
			TrackDeg:       pos.TrackDeg,
			GroundSpeedKts: pos.GroundSpeedKts,
			RecentPattern:  pattern.Name(recentPattern),
		})
	}

	newsWindow, err := p.newsWindow(now)
	if err != nil {
		monitoring.Logf("pipeline: news window load failed: %v", err)
	}

	detections := formation.DetectAll(snapshot, p.cfg)
	for _, d := range detections {
		if _, err := p.deps.Formations.Upsert(d, now); err != nil {
			return err
		}
		if _, _, err := p.deps.Alerts.FormationAlert(d, newsWindow, now); err != nil {
			monitoring.Logf("pipeline: formation alert failed: %v", err)
		}
	}

	if err := p.runSpikeAndStrategicAlerts(positions, newsWindow, now); err != nil {
		monitoring.Logf("pipeline: movement alerts failed: %v", err)
	}
	if err := p.runFlashAlert(now); err != nil {
		monitoring.Logf("pipeline: flash alert failed: %v", err)
	}
	_, err = p.deps.Formations.ResolveStale(now)
	return err
}

// strategicBomberTypes are type codes always treated as bombers.
var strategicBomberTypes = map[string]bool{
	"B52": true, "B1": true, "B2": true, "B21": true,
}

func strategicClassFor(typeCode string, category aircraft.MilitaryCategory) (alerts.StrategicClass, bool) {
	if strategicBomberTypes[typeCode] {
		return alerts.ClassBomber, true
	}
	switch category {
	case aircraft.CategoryTanker:
		return alerts.ClassTanker, true
	case aircraft.CategoryISR, aircraft.CategoryAWACS:
		return alerts.ClassISR, true
	case aircraft.CategoryFighter:
		return alerts.ClassFighter, true
	}
	return "", false
}

// runSpikeAndStrategicAlerts counts the recent distinct military
// traffic per monitored region against its EMA baseline, and groups
// strategic types currently in flight.
func (p *Pipeline) runSpikeAndStrategicAlerts(positions []aircraft.Position, newsWindow []alerts.NewsItem, now time.Time) error {
	spikeWindow := time.Duration(p.cfg.GetActivitySpikeWindowMinutes() * float64(time.Minute))
	recent, err := p.deps.DB.ListActivePositions(now.Add(-spikeWindow), true, -1)
	if err != nil {
		return err
	}

	for _, region := range p.deps.MonitoredRegions {
		seen := make(map[string]bool)
		for _, pos := range recent {
			d, err := geo.DistanceNM(region.Lat, region.Lon, pos.Lat, pos.Lon)
			if err != nil || d > region.RadiusNM {
				continue
			}
			seen[pos.Hex] = true
		}
		count := len(seen)

		p.baselineMu.Lock()
		baseline, known := p.spikeBaselines[region.Name]
		if !known {
			baseline = float64(count)
		}
		p.spikeBaselines[region.Name] = baseline*0.95 + float64(count)*0.05
		p.baselineMu.Unlock()

		if !known {
			continue
		}
		activity := alerts.RegionActivity{Region: region.Name, Count: count, Baseline: baseline, Hexes: sortedHexes(seen)}
		if _, _, err := p.deps.Alerts.ActivitySpikeAlert(activity, newsWindow, now); err != nil {
			return err
		}
	}

	byType := make(map[string]*alerts.StrategicSighting)
	for _, pos := range positions {
		identity, err := p.deps.DB.GetAircraft(pos.Hex)
		if err != nil || identity == nil || identity.TypeCode == "" {
			continue
		}
		class, ok := strategicClassFor(identity.TypeCode, identity.Category)
		if !ok {
			continue
		}
		s, exists := byType[identity.TypeCode]
		if !exists {
			s = &alerts.StrategicSighting{TypeCode: identity.TypeCode, Class: class}
			byType[identity.TypeCode] = s
		}
		s.Count++
		s.Hexes = append(s.Hexes, pos.Hex)
	}
	for _, s := range byType {
		if _, _, err := p.deps.Alerts.StrategicMovementAlert(*s, newsWindow, now); err != nil {
			return err
		}
	}
	return nil
}

// runFlashAlert checks the recent alert stream for concurrent
// elevated alerts and, when the generative provider is enabled,
// replaces the mechanical summary with a generated one.
func (p *Pipeline) runFlashAlert(now time.Time) error {
	alertStore := db.NewAlertStore(p.deps.DB)
	dedupWindow := time.Duration(p.cfg.GetAlertDedupWindowMinutes() * float64(time.Minute))
	standing, err := alertStore.ListRecent(now.Add(-dedupWindow), 100)
	if err != nil {
		return err
	}
	flash, emitted, err := p.deps.Alerts.FlashAlert(standing, now)
	if err != nil || !emitted {
		return err
	}
	p.enrichFlashSummary(flash, now)
	return nil
}

// enrichFlashSummary asks the generative provider for a terse analyst
// summary of the flash alert and logs the execution; a disabled
// provider degrades to the mechanical description.
func (p *Pipeline) enrichFlashSummary(flash alerts.Alert, now time.Time) {
	prompt := fmt.Sprintf("Summarize for an intelligence analyst in two sentences: %s. Aircraft: %v. Regions: %v.",
		flash.Description, flash.AircraftHexes, flash.Regions)

	start := p.deps.Clock.Now()
	summary, err := p.deps.Generator.Generate(context.Background(), prompt, genai.GenerateOptions{Temperature: 0.3, MaxOutputTokens: 256})
	if err != nil || summary == "" {
		return
	}

	if p.deps.Prompts != nil {
		versionID := ""
		if pv, err := p.deps.Prompts.LatestPromptVersion("flash_summary"); err == nil && pv != nil {
			versionID = pv.ID
		}
		input, _ := json.Marshal(map[string]any{"alert_id": flash.ID, "prompt": prompt})
		if err := p.deps.Prompts.LogExecution(versionID, string(input), summary, p.deps.Clock.Since(start), now); err != nil {
			monitoring.Logf("pipeline: execution log failed: %v", err)
		}
	}
}

func (p *Pipeline) runTrajectoryPrediction(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()
	window := time.Duration(p.cfg.GetFormationSnapshotWindowMinutes() * float64(time.Minute))
	positions, err := p.deps.DB.ListActivePositions(now.Add(-window), true, p.cfg.GetMinGroundSpeedKts())
	if err != nil {
		return err
	}

	store := db.NewTrajectoryStore(p.deps.DB)
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return err
		}
		identity, err := p.deps.DB.GetAircraft(pos.Hex)
		if err != nil {
			return err
		}
		typeCode := ""
		if identity != nil {
			typeCode = identity.TypeCode
		}
		prof, err := p.deps.Profiles.GetOrCreate(pos.Hex, typeCode)
		if err != nil {
			return err
		}

		in := trajectory.Input{
			Hex:               pos.Hex,
			Lat:               pos.Lat,
			Lon:               pos.Lon,
			AltitudeFt:        pos.AltitudeFt,
			HeadingDeg:        pos.TrackDeg,
			GroundSpeedKts:    pos.GroundSpeedKts,
			VerticalRateFpm:   pos.VerticalRateFpm,
			TurnRateDegPerSec: p.turnRateFor(pos.Hex, now),
			HasTrainedProfile: prof.IsTrained,
			TypicalRegions:    toTrajectoryRegions(prof.TypicalRegions),
		}
		preds := trajectory.PredictAll(in, now, p.cfg)
		if len(preds) == 0 {
			continue
		}
		if err := store.InsertPredictions(preds); err != nil {
			return err
		}
	}
	return nil
}

// turnRateFor estimates the aircraft's turn rate (deg/sec) from its
// two most recent track samples; nil when unknown.
func (p *Pipeline) turnRateFor(hex string, now time.Time) *float64 {
	history, err := p.deps.DB.GetPositionHistory(hex, now.Add(-5*time.Minute))
	if err != nil || len(history) < 2 {
		return nil
	}
	last := history[len(history)-1]
	prev := history[len(history)-2]
	if last.TrackDeg == nil || prev.TrackDeg == nil {
		return nil
	}
	dt := last.Timestamp.Sub(prev.Timestamp).Seconds()
	if dt <= 0 {
		return nil
	}
	delta := math.Mod(*last.TrackDeg-*prev.TrackDeg+540, 360) - 180
	rate := delta / dt
	return &rate
}

const taskTrajectory = "trajectory"

func (p *Pipeline) runTrajectoryValidation(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()
	store := db.NewTrajectoryStore(p.deps.DB)

	pending, err := store.ListDueForValidation(now, 500)
	if err != nil {
		return err
	}

	for _, pp := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := pp.Pred.PredictedAt.Add(time.Duration(pp.Pred.HorizonMinutes) * time.Minute)
		actual, found, err := p.actualPositionNear(pp.Pred.Hex, target)
		if err != nil {
			return err
		}
		if !found {
			// No sample near the target time; leave it for expiry.
			continue
		}

		v, err := trajectory.Validate(pp.Pred, actual.Lat, actual.Lon)
		if err != nil {
			return err
		}
		if err := store.RecordValidation(v); err != nil {
			return err
		}

		// Feed the outcome back into calibration and the per-horizon
		// adaptive threshold.
		horizonName := fmt.Sprintf("h%d", pp.Pred.HorizonMinutes)
		if id, err := p.deps.Calibration.RecordOutcome(taskTrajectory, pp.Pred.Confidence, now); err == nil {
			if err := p.deps.Calibration.VerifyOutcome(id, v.Accurate); err != nil {
				monitoring.Logf("pipeline: outcome verify failed: %v", err)
			}
		}
		if dec, err := p.deps.Calibration.Apply(taskTrajectory, horizonName, pp.Pred.Confidence); err == nil {
			if _, err := p.deps.Calibration.UpdateThreshold(taskTrajectory, horizonName, dec.Exceeds, v.Accurate); err != nil {
				monitoring.Logf("pipeline: threshold update failed: %v", err)
			}
		}

		if err := store.DeletePrediction(pp.ID); err != nil {
			return err
		}
	}

	_, err = store.DeleteExpired(now)
	return err
}

// actualPositionNear returns the recorded position nearest the target
// time within ±1 minute.
func (p *Pipeline) actualPositionNear(hex string, target time.Time) (aircraft.Position, bool, error) {
	history, err := p.deps.DB.GetPositionHistory(hex, target.Add(-time.Minute))
	if err != nil {
		return aircraft.Position{}, false, err
	}
	best := aircraft.Position{}
	bestDelta := time.Duration(math.MaxInt64)
	found := false
	for _, pos := range history {
		delta := pos.Timestamp.Sub(target)
		if delta < 0 {
			delta = -delta
		}
		if delta <= time.Minute && delta < bestDelta {
			best, bestDelta, found = pos, delta, true
		}
	}
	return best, found, nil
}

func (p *Pipeline) runActivityZoneRefresh(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()
	store := db.NewContextStore(p.deps.DB)

	window := time.Duration(p.cfg.GetActivityZoneWindowHours() * float64(time.Hour))
	samples, err := store.ListPositionSamples(now.Add(-window))
	if err != nil {
		return err
	}
	zones := contextintel.RefreshZones(samples, now, p.cfg)
	return store.ReplaceZones(zones)
}

// calibratedTasks is the set of task types retrained daily.
var calibratedTasks = []string{"anomaly", taskTrajectory, "formation", "proximity", "pattern"}

func (p *Pipeline) runCalibrationRetrain(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()
	for _, task := range calibratedTasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := p.deps.Calibration.Retrain(task, now)
		if err != nil {
			monitoring.Logf("pipeline: retrain %s failed: %v", task, err)
			continue
		}
		if m.SampleCount > 0 {
			monitoring.Logf("pipeline: retrained %s on %d outcomes, ece %.3f", task, m.SampleCount, m.ECE)
		}
	}
	return nil
}

func (p *Pipeline) runStaleResolve(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()

	if _, err := p.deps.Formations.ResolveStale(now); err != nil {
		return err
	}
	if _, err := p.deps.Proximities.ResolveStale(now); err != nil {
		return err
	}
	if _, err := p.deps.DB.CloseStaleFlights(now.Add(-15*time.Minute), now); err != nil {
		return err
	}
	store := db.NewTrajectoryStore(p.deps.DB)
	_, err := store.DeleteExpired(now)
	return err
}

func (p *Pipeline) runNewsFetch(ctx context.Context) error {
	now := p.deps.Clock.Now().UTC()
	window := time.Duration(p.cfg.GetNewsCorrelationWindowHours() * float64(time.Hour))

	events, err := p.deps.News.FetchRecent(ctx, "military OR airspace OR airforce", now.Add(-window))
	if err != nil {
		return err
	}
	store := db.NewNewsStore(p.deps.DB)
	for _, e := range events {
		if err := store.UpsertEvent(e); err != nil {
			// One bad event never fails the fetch.
			monitoring.Logf("pipeline: news upsert failed: %v", err)
		}
	}
	return nil
}

// newsWindow loads the persisted news events inside the correlation
// window around now, mapped to the alert generator's shape.
func (p *Pipeline) newsWindow(now time.Time) ([]alerts.NewsItem, error) {
	window := time.Duration(p.cfg.GetNewsCorrelationWindowHours() * float64(time.Hour))
	store := db.NewNewsStore(p.deps.DB)
	events, err := store.ListWindow(now.Add(-window), now.Add(window), 200)
	if err != nil {
		return nil, err
	}
	out := make([]alerts.NewsItem, 0, len(events))
	for _, e := range events {
		out = append(out, alerts.NewsItem{ID: e.ID, Title: e.Title, URL: e.URL, PublishedAt: e.PublishedAt})
	}
	return out, nil
}

func toPatternPoints(history []aircraft.Position) []patternmath.Point {
	points := make([]patternmath.Point, 0, len(history))
	for _, pos := range history {
		points = append(points, patternmath.Point{
			Lat:       pos.Lat,
			Lon:       pos.Lon,
			Timestamp: pos.Timestamp,
			Heading:   pos.TrackDeg,
			Altitude:  pos.AltitudeFt,
		})
	}
	return points
}

// positionStats summarizes a history batch for the profiler: centroid,
// max radius, altitude and speed lists, and the batch hour/weekday.
func positionStats(history []aircraft.Position, now time.Time) profiler.PositionStats {
	stats := profiler.PositionStats{HourUTC: now.UTC().Hour(), WeekdayUTC: int(now.UTC().Weekday())}
	if len(history) == 0 {
		return stats
	}

	var sumLat, sumLon float64
	for _, pos := range history {
		sumLat += pos.Lat
		sumLon += pos.Lon
		if pos.AltitudeFt != nil {
			stats.Altitudes = append(stats.Altitudes, *pos.AltitudeFt)
		}
		if pos.GroundSpeedKts != nil {
			stats.Speeds = append(stats.Speeds, *pos.GroundSpeedKts)
		}
	}
	stats.CentroidLat = sumLat / float64(len(history))
	stats.CentroidLon = sumLon / float64(len(history))

	for _, pos := range history {
		if d, err := geo.DistanceNM(stats.CentroidLat, stats.CentroidLon, pos.Lat, pos.Lon); err == nil && d > stats.RadiusNM {
			stats.RadiusNM = d
		}
	}
	return stats
}

func toTrajectoryRegions(regions []profiler.Region) []trajectory.Region {
	out := make([]trajectory.Region, 0, len(regions))
	for _, r := range regions {
		out = append(out, trajectory.Region{CenterLat: r.CenterLat, CenterLon: r.CenterLon, RadiusNM: r.RadiusNM})
	}
	return out
}

func sortedHexes(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for hex := range set {
		out = append(out, hex)
	}
	sort.Strings(out)
	return out
}

func stringOf(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func firstSource(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	return sources[0]
}
