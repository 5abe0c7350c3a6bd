// Package fusionpipeline schedules the periodic intelligence jobs:
// the aggregator tick (which drives pattern classification, profiling,
// geofence evaluation and anomaly detection), the proximity and
// formation scans, trajectory prediction and validation, activity-zone
// refresh, calibration retraining, and stale-state resolution. Each
// job runs as an independent ticker-driven loop with its own
// cancellable context; a failed tick is logged and the loop continues.
package fusionpipeline

import (
	"context"
	"sync"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/aggregator"
	"github.com/skywatch-oss/fusion-engine/internal/alerts"
	"github.com/skywatch-oss/fusion-engine/internal/calibration"
	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/db"
	"github.com/skywatch-oss/fusion-engine/internal/formation"
	"github.com/skywatch-oss/fusion-engine/internal/genai"
	"github.com/skywatch-oss/fusion-engine/internal/geofence"
	"github.com/skywatch-oss/fusion-engine/internal/intel"
	"github.com/skywatch-oss/fusion-engine/internal/monitoring"
	"github.com/skywatch-oss/fusion-engine/internal/news"
	"github.com/skywatch-oss/fusion-engine/internal/profiler"
	"github.com/skywatch-oss/fusion-engine/internal/proximity"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
	"github.com/skywatch-oss/fusion-engine/internal/upstream"
)

// Deps carries every service a Pipeline composes. All fields are
// required unless noted; News and Generator may be the package's
// Disabled implementations.
type Deps struct {
	DB          *db.DB
	Aggregator  *aggregator.Aggregator
	Profiles    *profiler.Service
	Formations  *formation.Service
	Proximities *proximity.Service
	Geofences   *geofence.Monitor
	Calibration *calibration.Service
	Intel       *intel.Engine
	Alerts      *alerts.Generator
	News        news.Source
	Generator   genai.Generator
	Prompts     *db.PromptStore
	Cfg         *config.TuningConfig
	Clock       timeutil.Clock

	// MonitoredRegions are the named areas the activity-spike job
	// counts traffic over; typically the aggregator's focus areas.
	MonitoredRegions []upstream.FocusArea
}

// Pipeline owns the running periodic jobs.
type Pipeline struct {
	deps Deps
	cfg  *config.TuningConfig

	wg     sync.WaitGroup
	cancel context.CancelFunc

	// spikeBaselines carries the per-region EMA of distinct military
	// counts the spike detector compares against.
	baselineMu     sync.Mutex
	spikeBaselines map[string]float64
}

func New(deps Deps) *Pipeline {
	if deps.Cfg == nil {
		deps.Cfg = config.EmptyTuningConfig()
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}
	if deps.News == nil {
		deps.News = news.Disabled{}
	}
	if deps.Generator == nil {
		deps.Generator = genai.Disabled{}
	}
	return &Pipeline{deps: deps, cfg: deps.Cfg, spikeBaselines: make(map[string]float64)}
}

// Start launches every periodic job. Stop cancels them and waits.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.startLoop(ctx, "aggregator_tick", p.cfg.GetAggregatorTickInterval(), p.runAggregatorTick)
	p.startLoop(ctx, "proximity_scan", p.cfg.GetProximityScanInterval(), p.runProximityScan)
	p.startLoop(ctx, "formation_scan", p.cfg.GetFormationScanInterval(), p.runFormationScan)
	p.startLoop(ctx, "trajectory_prediction", p.cfg.GetTrajectoryPredictionInterval(), p.runTrajectoryPrediction)
	p.startLoop(ctx, "trajectory_validation", p.cfg.GetTrajectoryValidationInterval(), p.runTrajectoryValidation)
	p.startLoop(ctx, "activity_zone_refresh", p.cfg.GetActivityZoneRefreshInterval(), p.runActivityZoneRefresh)
	p.startLoop(ctx, "calibration_retrain", p.cfg.GetCalibrationRetrainInterval(), p.runCalibrationRetrain)
	p.startLoop(ctx, "stale_resolve", p.cfg.GetThresholdDecayInterval(), p.runStaleResolve)
	p.startLoop(ctx, "news_fetch", p.cfg.GetNewsFetchInterval(), p.runNewsFetch)
}

// Stop cancels every job and blocks until the loops exit.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// startLoop runs job immediately and then on every tick until ctx is
// cancelled. Job errors are logged and never kill the loop.
func (p *Pipeline) startLoop(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		runOnce := func() {
			if err := job(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				monitoring.Logf("pipeline: %s failed: %v", name, err)
			}
		}
		runOnce()

		ticker := p.deps.Clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				runOnce()
			}
		}
	}()
}
