package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skywatch-oss/fusion-engine/internal/aggregator"
	"github.com/skywatch-oss/fusion-engine/internal/alerts"
	"github.com/skywatch-oss/fusion-engine/internal/calibration"
	"github.com/skywatch-oss/fusion-engine/internal/db"
	"github.com/skywatch-oss/fusion-engine/internal/formation"
	"github.com/skywatch-oss/fusion-engine/internal/fusionpipeline"
	"github.com/skywatch-oss/fusion-engine/internal/genai"
	"github.com/skywatch-oss/fusion-engine/internal/geofence"
	"github.com/skywatch-oss/fusion-engine/internal/httpapi"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
	"github.com/skywatch-oss/fusion-engine/internal/intel"
	"github.com/skywatch-oss/fusion-engine/internal/monitoring"
	"github.com/skywatch-oss/fusion-engine/internal/news"
	"github.com/skywatch-oss/fusion-engine/internal/profiler"
	"github.com/skywatch-oss/fusion-engine/internal/proximity"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
	"github.com/skywatch-oss/fusion-engine/internal/upstream"
)

func newServeCmd(tuningPath *string) *cobra.Command {
	var (
		listenAddr   string
		displayUnits string
		timezone     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the fusion pipeline and query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTuning(*tuningPath)
			if err != nil {
				return err
			}

			database, err := db.Open(dbPath())
			if err != nil {
				return err
			}
			defer database.Close()

			migrations, err := db.MigrationsFS()
			if err != nil {
				return err
			}
			if err := database.MigrateUp(migrations); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			clock := timeutil.RealClock{}
			httpClient := httputil.NewStandardClient(nil)

			providers := buildProviders(clock, httpClient)
			if len(providers) == 0 {
				monitoring.Logf("serve: no upstream providers configured; the aggregator will idle")
			}
			focusAreas := defaultFocusAreas()
			region := regionOfInterest()

			agg := aggregator.New(providers, focusAreas, region, cfg, clock)

			calSvc := calibration.NewService(db.NewCalibrationStore(database), cfg)
			deps := fusionpipeline.Deps{
				DB:               database,
				Aggregator:       agg,
				Profiles:         profiler.NewService(db.NewProfilerStore(database), cfg),
				Formations:       formation.NewService(db.NewFormationStore(database), cfg),
				Proximities:      proximity.NewService(db.NewProximityStore(database), cfg),
				Geofences:        geofence.NewMonitor(db.NewGeofenceStore(database), cfg),
				Calibration:      calSvc,
				Intel:            intel.NewEngine(db.NewIntelStore(database), calSvc, cfg),
				Alerts:           alerts.NewGenerator(db.NewAlertStore(database), cfg),
				News:             buildNewsSource(httpClient),
				Generator:        buildGenerator(httpClient),
				Prompts:          db.NewPromptStore(database),
				Cfg:              cfg,
				Clock:            clock,
				MonitoredRegions: focusAreas,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipeline := fusionpipeline.New(deps)
			pipeline.Start(ctx)
			defer pipeline.Stop()

			server := httpapi.NewServer(database, cfg, clock, displayUnits, timezone)
			return server.Start(ctx, listenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "query API listen address")
	cmd.Flags().StringVar(&displayUnits, "units", "kts", "default ground-speed display units")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "default display timezone")
	return cmd
}

// buildProviders assembles the upstream set from environment
// configuration. Credentials are captured once here, never re-read
// per request.
func buildProviders(clock timeutil.Clock, client httputil.HTTPClient) []aggregator.ProviderEntry {
	var out []aggregator.ProviderEntry

	if base := viper.GetString("adsb_base_url"); base != "" {
		p := upstream.NewHTTPProvider(upstream.HTTPProviderConfig{
			Name:                "adsb",
			BaseURL:             base,
			RateLimitPerMinute:  viper.GetInt("adsb_rate_per_minute"),
			SupportsPointRadius: true,
			BearerToken:         viper.GetString("adsb_token"),
		}, client)
		out = append(out, aggregator.ProviderEntry{
			Provider: p,
			Limiter:  upstream.NewTokenBucket(clock, p.RateLimitPerMinute()),
			Priority: 0,
		})
	}

	if base := viper.GetString("market_base_url"); base != "" {
		p := upstream.NewHTTPProvider(upstream.HTTPProviderConfig{
			Name:                "market",
			BaseURL:             base,
			RateLimitPerMinute:  viper.GetInt("market_rate_per_minute"),
			SupportsPointRadius: true,
			APIKeyHeader:        "x-api-key",
			APIKey:              viper.GetString("market_api_key"),
			HostHeader:          viper.GetString("market_host"),
		}, client)
		out = append(out, aggregator.ProviderEntry{
			Provider: p,
			Limiter:  upstream.NewTokenBucket(clock, p.RateLimitPerMinute()),
			Priority: 1,
		})
	}

	if base := viper.GetString("opensky_base_url"); base != "" {
		box := regionOfInterest()
		p := upstream.NewOpenSkyProvider(upstream.OpenSkyConfig{
			Name:               "opensky",
			BaseURL:            base,
			BearerToken:        viper.GetString("opensky_token"),
			RateLimitPerMinute: viper.GetInt("opensky_rate_per_minute"),
			LaMin:              box.MinLat,
			LoMin:              box.MinLon,
			LaMax:              box.MaxLat,
			LoMax:              box.MaxLon,
		}, client)
		out = append(out, aggregator.ProviderEntry{
			Provider: p,
			Limiter:  upstream.NewTokenBucket(clock, p.RateLimitPerMinute()),
			Priority: 2,
		})
	}
	return out
}

func buildNewsSource(client httputil.HTTPClient) news.Source {
	base := viper.GetString("news_base_url")
	if base == "" {
		return news.Disabled{}
	}
	return news.NewClient(news.ClientConfig{
		BaseURL:  base,
		Language: viper.GetString("news_language"),
	}, client)
}

func buildGenerator(client httputil.HTTPClient) genai.Generator {
	base := viper.GetString("genai_base_url")
	key := viper.GetString("genai_api_key")
	if base == "" || key == "" {
		return genai.Disabled{}
	}
	return genai.NewClient(genai.ClientConfig{
		BaseURL: base,
		APIKey:  key,
	}, client)
}

// regionOfInterest is the geographic filter applied after merge,
// overridable through the environment.
func regionOfInterest() aggregator.BoundingBox {
	box := aggregator.BoundingBox{MinLat: 25, MaxLat: 45, MinLon: 20, MaxLon: 45}
	if viper.IsSet("region_min_lat") {
		box.MinLat = viper.GetFloat64("region_min_lat")
		box.MaxLat = viper.GetFloat64("region_max_lat")
		box.MinLon = viper.GetFloat64("region_min_lon")
		box.MaxLon = viper.GetFloat64("region_max_lon")
	}
	return box
}

// defaultFocusAreas is the fixed list of point-radius query targets
// issued through the highest-priority provider each tick.
func defaultFocusAreas() []upstream.FocusArea {
	return []upstream.FocusArea{
		{Name: "eastern_mediterranean", Lat: 33.9, Lon: 33.0, RadiusNM: 250},
		{Name: "black_sea", Lat: 43.5, Lon: 34.0, RadiusNM: 250},
		{Name: "persian_gulf", Lat: 26.5, Lon: 52.0, RadiusNM: 250},
	}
}
