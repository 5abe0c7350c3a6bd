// Package httpapi serves the engine's read-shaped query endpoints:
// current aircraft, behavioral profiles, formations, proximity
// warnings, trajectory predictions, geofence state, alerts, and threat
// assessments. Every route is a GET; it exposes no mutation surface,
// and the presentation layer is an external collaborator.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/db"
	"github.com/skywatch-oss/fusion-engine/internal/monitoring"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

// Server hosts the query API over a stdlib ServeMux with injected
// store dependencies.
type Server struct {
	database *db.DB
	cfg      *config.TuningConfig
	clock    timeutil.Clock

	units    string
	timezone string

	limiter *rate.Limiter
	mux     *http.ServeMux
}

func NewServer(database *db.DB, cfg *config.TuningConfig, clock timeutil.Clock, displayUnits, timezone string) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if displayUnits == "" {
		displayUnits = "kts"
	}
	if timezone == "" {
		timezone = "UTC"
	}
	return &Server{
		database: database,
		cfg:      cfg,
		clock:    clock,
		units:    displayUnits,
		timezone: timezone,
		// Polling map clients refresh aggressively; cap the whole
		// surface rather than tracking per-client buckets.
		limiter: rate.NewLimiter(rate.Limit(100), 200),
	}
}

// ServeMux returns the route table, building it on first use so
// callers can register additional admin routes before Start.
func (s *Server) ServeMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/aircraft", s.handleListAircraft)
	mux.HandleFunc("GET /api/aircraft/{hex}/profile", s.handleAircraftProfile)
	mux.HandleFunc("GET /api/aircraft/{hex}/predictions", s.handleAircraftPredictions)
	mux.HandleFunc("GET /api/formations", s.handleListFormations)
	mux.HandleFunc("GET /api/proximity", s.handleListProximity)
	mux.HandleFunc("GET /api/geofences/{id}/state", s.handleGeofenceState)
	mux.HandleFunc("GET /api/geofences/{id}/alerts", s.handleGeofenceAlerts)
	mux.HandleFunc("GET /api/alerts", s.handleListAlerts)
	mux.HandleFunc("GET /api/intel/threats/{entityType}/{entityID}", s.handleThreat)
	mux.HandleFunc("GET /api/intel/anomalies", s.handleListAnomalies)

	s.mux = mux
	return mux
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.logRequests(s.ServeMux()),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	monitoring.Logf("httpapi: listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		start := s.clock.Now()
		next.ServeHTTP(w, r)
		monitoring.Logf("httpapi: %s %s (%s)", r.Method, r.URL.Path, s.clock.Since(start))
	})
}
