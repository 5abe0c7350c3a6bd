package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/db"
	"github.com/skywatch-oss/fusion-engine/internal/httputil"
	"github.com/skywatch-oss/fusion-engine/internal/units"
	"github.com/skywatch-oss/fusion-engine/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":     "ok",
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

// displayUnits resolves the ?units= override against the server
// default, rejecting unknown values.
func (s *Server) displayUnits(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, true
	}
	if !units.IsValid(u) {
		httputil.BadRequest(w, "invalid units; valid values: "+units.GetValidUnitsString())
		return "", false
	}
	return u, true
}

// displayTime renders a timestamp in the ?tz= timezone (falling back
// to the server default) as RFC 3339.
func (s *Server) displayTime(r *http.Request, t time.Time) string {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		tz = s.timezone
	}
	converted, err := units.ConvertTime(t, tz)
	if err != nil {
		converted = t.UTC()
	}
	return converted.Format(time.RFC3339)
}

type aircraftResponse struct {
	Hex             string   `json:"hex"`
	TypeCode        string   `json:"type_code,omitempty"`
	Operator        string   `json:"operator,omitempty"`
	IsMilitary      bool     `json:"is_military"`
	Category        string   `json:"category,omitempty"`
	Country         string   `json:"country,omitempty"`
	Lat             float64  `json:"lat"`
	Lon             float64  `json:"lon"`
	AltitudeFt      *float64 `json:"altitude_ft,omitempty"`
	GroundSpeed     *float64 `json:"ground_speed,omitempty"`
	SpeedUnits      string   `json:"speed_units"`
	TrackDeg        *float64 `json:"track_deg,omitempty"`
	VerticalRateFpm *float64 `json:"vertical_rate_fpm,omitempty"`
	Seen            string   `json:"seen"`
}

func (s *Server) handleListAircraft(w http.ResponseWriter, r *http.Request) {
	targetUnits, ok := s.displayUnits(w, r)
	if !ok {
		return
	}
	militaryOnly := r.URL.Query().Get("military") != "false"
	windowMinutes := 5.0
	if raw := r.URL.Query().Get("window_minutes"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(w, "invalid window_minutes")
			return
		}
		windowMinutes = parsed
	}

	since := s.clock.Now().UTC().Add(-time.Duration(windowMinutes * float64(time.Minute)))
	positions, err := s.database.ListActivePositions(since, militaryOnly, -1)
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}

	out := make([]aircraftResponse, 0, len(positions))
	for _, pos := range positions {
		resp := aircraftResponse{
			Hex:             pos.Hex,
			Lat:             pos.Lat,
			Lon:             pos.Lon,
			AltitudeFt:      pos.AltitudeFt,
			TrackDeg:        pos.TrackDeg,
			VerticalRateFpm: pos.VerticalRateFpm,
			SpeedUnits:      targetUnits,
			Seen:            s.displayTime(r, pos.Timestamp),
		}
		if pos.GroundSpeedKts != nil {
			converted := units.ConvertSpeed(*pos.GroundSpeedKts, targetUnits)
			resp.GroundSpeed = &converted
		}
		if identity, err := s.database.GetAircraft(pos.Hex); err == nil && identity != nil {
			resp.TypeCode = identity.TypeCode
			resp.Operator = identity.Operator
			resp.IsMilitary = identity.IsMilitary
			resp.Category = string(identity.Category)
			resp.Country = identity.Country
		}
		out = append(out, resp)
	}
	httputil.WriteJSONOK(w, map[string]any{"aircraft": out, "count": len(out)})
}

func (s *Server) handleAircraftProfile(w http.ResponseWriter, r *http.Request) {
	hex := r.PathValue("hex")
	profile, err := db.NewProfilerStore(s.database).GetProfile(hex)
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	if profile == nil {
		httputil.NotFound(w, "no profile for "+hex)
		return
	}
	httputil.WriteJSONOK(w, profile)
}

func (s *Server) handleAircraftPredictions(w http.ResponseWriter, r *http.Request) {
	hex := r.PathValue("hex")
	now := s.clock.Now().UTC()

	predictions, err := db.NewTrajectoryStore(s.database).ListActivePredictions(hex, now)
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"predictions": predictions})
}

func (s *Server) handleListFormations(w http.ResponseWriter, r *http.Request) {
	active, err := db.NewFormationStore(s.database).ListActive()
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"formations": active, "count": len(active)})
}

func (s *Server) handleListProximity(w http.ResponseWriter, r *http.Request) {
	warnings, err := db.NewProximityStore(s.database).ListActiveWarnings()
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"warnings": warnings, "count": len(warnings)})
}

func (s *Server) handleGeofenceState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	states, err := db.NewGeofenceStore(s.database).StatesFor(id)
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"geofence_id": id, "states": states})
}

func (s *Server) handleGeofenceAlerts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	alerts, err := db.NewGeofenceStore(s.database).ListAlerts(id, 100)
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"geofence_id": id, "alerts": alerts})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	hours := 24.0
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(w, "invalid window_hours")
			return
		}
		hours = parsed
	}
	now := s.clock.Now().UTC()
	alertRows, err := db.NewAlertStore(s.database).ListRecent(now.Add(-time.Duration(hours*float64(time.Hour))), 200)
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}

	type alertResponse struct {
		ID            string   `json:"id"`
		AlertType     string   `json:"alert_type"`
		Severity      string   `json:"severity"`
		Title         string   `json:"title"`
		Description   string   `json:"description"`
		AircraftHexes []string `json:"aircraft_hexes,omitempty"`
		Regions       []string `json:"regions,omitempty"`
		NewsRefs      []string `json:"news_refs,omitempty"`
		CreatedAt     string   `json:"created_at"`
	}
	out := make([]alertResponse, 0, len(alertRows))
	for _, a := range alertRows {
		out = append(out, alertResponse{
			ID:            a.ID,
			AlertType:     a.AlertType,
			Severity:      a.Severity,
			Title:         a.Title,
			Description:   a.Description,
			AircraftHexes: a.AircraftHexes,
			Regions:       a.Regions,
			NewsRefs:      a.NewsRefs,
			CreatedAt:     s.displayTime(r, a.CreatedAt),
		})
	}
	httputil.WriteJSONOK(w, map[string]any{"alerts": out, "count": len(out)})
}

func (s *Server) handleThreat(w http.ResponseWriter, r *http.Request) {
	entityType := r.PathValue("entityType")
	entityID := r.PathValue("entityID")

	threat, err := db.NewIntelStore(s.database).LatestThreat(entityType, entityID, s.clock.Now().UTC())
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	if threat == nil {
		httputil.NotFound(w, "no current assessment")
		return
	}
	httputil.WriteJSONOK(w, threat)
}

func (s *Server) handleListAnomalies(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now().UTC()
	anomalies, err := db.NewIntelStore(s.database).ListRecentAnomalies(now.Add(-24*time.Hour), 200)
	if err != nil {
		httputil.InternalServerError(w, "query failed")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"anomalies": anomalies, "count": len(anomalies)})
}
