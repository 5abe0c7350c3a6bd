// Package alerts produces prioritized intelligence alerts from the
// detector outputs: formation alerts, regional activity spikes,
// strategic movement, news-correlated context, and composite flash
// summaries, with sliding-window duplicate suppression.
package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/formation"
)

// Alert types.
const (
	TypeFormation         = "formation"
	TypeActivitySpike     = "activity_spike"
	TypeStrategicMovement = "strategic_movement"
	TypeFlash             = "flash"
)

// Severity grades, ordered.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Alert is one emitted intelligence alert.
type Alert struct {
	ID            string
	AlertType     string
	Severity      string
	Title         string
	Description   string
	AircraftHexes []string
	Regions       []string
	NewsRefs      []string
	CreatedAt     time.Time
}

// Store is the persistence boundary Generator relies on.
type Store interface {
	InsertAlert(a Alert) error
	// RecentExists reports whether an alert with the same (type,
	// title) was emitted at or after since.
	RecentExists(alertType, title string, since time.Time) (bool, error)
}

// NewsItem is one news event considered for correlation.
type NewsItem struct {
	ID          string
	Title       string
	URL         string
	PublishedAt time.Time
}

// Generator emits alerts through the store with duplicate
// suppression.
type Generator struct {
	store Store
	cfg   *config.TuningConfig
}

func NewGenerator(store Store, cfg *config.TuningConfig) *Generator {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Generator{store: store, cfg: cfg}
}

// emit inserts the alert unless an identical (type, title) stands
// within the dedup window. Returns the alert and whether it was
// actually inserted.
func (g *Generator) emit(a Alert, now time.Time) (Alert, bool, error) {
	window := time.Duration(g.cfg.GetAlertDedupWindowMinutes() * float64(time.Minute))
	exists, err := g.store.RecentExists(a.AlertType, a.Title, now.Add(-window))
	if err != nil {
		return Alert{}, false, err
	}
	if exists {
		return Alert{}, false, nil
	}
	a.ID = uuid.NewString()
	a.CreatedAt = now
	if err := g.store.InsertAlert(a); err != nil {
		return Alert{}, false, err
	}
	return a, true, nil
}

// FormationAlert grades one formation detection. Strike packages of
// four or more are critical; any strike package, six-plus ship
// formations, and tanker/receiver pairs are high; the rest medium.
func (g *Generator) FormationAlert(d formation.Detection, news []NewsItem, now time.Time) (Alert, bool, error) {
	severity := SeverityMedium
	switch {
	case d.FormationType == formation.TypeStrikePackage && len(d.Members) >= 4:
		severity = SeverityCritical
	case d.FormationType == formation.TypeStrikePackage || len(d.Members) >= 6:
		severity = SeverityHigh
	case d.FormationType == formation.TypeTankerReceiver:
		severity = SeverityHigh
	}

	a := Alert{
		AlertType:     TypeFormation,
		Severity:      severity,
		Title:         fmt.Sprintf("%s formation, %d aircraft", d.FormationType, len(d.Members)),
		Description:   fmt.Sprintf("%s detected near %.2f, %.2f with confidence %.2f", d.FormationType, d.CenterLat, d.CenterLon, d.Confidence),
		AircraftHexes: d.Members,
	}
	g.attachNews(&a, news, now)
	return g.emit(a, now)
}

// RegionActivity summarizes one monitored region's recent distinct
// military aircraft count against its baseline.
type RegionActivity struct {
	Region   string
	Count    int
	Baseline float64
	Hexes    []string
}

// ActivitySpikeAlert emits when a region's distinct military count
// spikes past its baseline multiples.
func (g *Generator) ActivitySpikeAlert(r RegionActivity, news []NewsItem, now time.Time) (Alert, bool, error) {
	count := float64(r.Count)
	var severity string
	switch {
	case r.Baseline > 0 && count >= g.cfg.GetActivitySpikeCriticalMultiplier()*r.Baseline && r.Count >= g.cfg.GetActivitySpikeCriticalMinCount():
		severity = SeverityCritical
	case r.Baseline > 0 && count >= g.cfg.GetActivitySpikeHighMultiplier()*r.Baseline && r.Count >= g.cfg.GetActivitySpikeHighMinCount():
		severity = SeverityHigh
	default:
		return Alert{}, false, nil
	}

	a := Alert{
		AlertType:     TypeActivitySpike,
		Severity:      severity,
		Title:         fmt.Sprintf("activity spike over %s", r.Region),
		Description:   fmt.Sprintf("%d distinct military aircraft over %s against a baseline of %.1f", r.Count, r.Region, r.Baseline),
		AircraftHexes: r.Hexes,
		Regions:       []string{r.Region},
	}
	g.attachNews(&a, news, now)
	return g.emit(a, now)
}

// StrategicClass buckets strategic aircraft types for movement
// alerting.
type StrategicClass string

const (
	ClassBomber  StrategicClass = "bomber"
	ClassTanker  StrategicClass = "tanker"
	ClassISR     StrategicClass = "isr"
	ClassFighter StrategicClass = "fighter"
)

// StrategicSighting is the count of one strategic type code currently
// in flight.
type StrategicSighting struct {
	TypeCode string
	Class    StrategicClass
	Count    int
	Hexes    []string
	Region   string
}

// StrategicMovementAlert emits when multiples of a strategic type are
// airborne at once: any two-plus bomber sighting is critical, tankers
// and ISR high; fighters alert only at the configured surge counts.
func (g *Generator) StrategicMovementAlert(s StrategicSighting, news []NewsItem, now time.Time) (Alert, bool, error) {
	var severity string
	switch s.Class {
	case ClassBomber:
		if s.Count >= 2 {
			severity = SeverityCritical
		}
	case ClassTanker, ClassISR:
		if s.Count >= 2 {
			severity = SeverityHigh
		}
	case ClassFighter:
		if s.Count >= g.cfg.GetFighterCriticalCount() {
			severity = SeverityCritical
		} else if s.Count >= g.cfg.GetFighterHighCount() {
			severity = SeverityHigh
		}
	}
	if severity == "" {
		return Alert{}, false, nil
	}

	a := Alert{
		AlertType:     TypeStrategicMovement,
		Severity:      severity,
		Title:         fmt.Sprintf("%d× %s in flight", s.Count, s.TypeCode),
		Description:   fmt.Sprintf("%d %s aircraft of type %s airborne simultaneously", s.Count, s.Class, s.TypeCode),
		AircraftHexes: s.Hexes,
	}
	if s.Region != "" {
		a.Regions = []string{s.Region}
	}
	g.attachNews(&a, news, now)
	return g.emit(a, now)
}

// FlashAlert emits one composite summary when two or more
// critical/high alerts stand at the same time, unioning their
// aircraft, regions and news references.
func (g *Generator) FlashAlert(standing []Alert, now time.Time) (Alert, bool, error) {
	var elevated []Alert
	for _, a := range standing {
		if a.Severity == SeverityCritical || a.Severity == SeverityHigh {
			elevated = append(elevated, a)
		}
	}
	if len(elevated) < 2 {
		return Alert{}, false, nil
	}

	hexes := make(map[string]bool)
	regions := make(map[string]bool)
	newsRefs := make(map[string]bool)
	var titles []string
	severity := SeverityHigh
	for _, a := range elevated {
		titles = append(titles, a.Title)
		if a.Severity == SeverityCritical {
			severity = SeverityCritical
		}
		for _, h := range a.AircraftHexes {
			hexes[h] = true
		}
		for _, r := range a.Regions {
			regions[r] = true
		}
		for _, n := range a.NewsRefs {
			newsRefs[n] = true
		}
	}

	flash := Alert{
		AlertType:     TypeFlash,
		Severity:      severity,
		Title:         fmt.Sprintf("flash: %d concurrent elevated alerts", len(elevated)),
		Description:   "concurrent: " + strings.Join(titles, "; "),
		AircraftHexes: sortedKeys(hexes),
		Regions:       sortedKeys(regions),
		NewsRefs:      sortedKeys(newsRefs),
	}
	return g.emit(flash, now)
}

// attachNews links news items published within the correlation window
// whose titles mention one of the alert's regions or a watch keyword,
// elevating the description.
func (g *Generator) attachNews(a *Alert, news []NewsItem, now time.Time) {
	window := time.Duration(g.cfg.GetNewsCorrelationWindowHours() * float64(time.Hour))
	var matched []NewsItem
	for _, n := range news {
		if n.PublishedAt.Before(now.Add(-window)) || n.PublishedAt.After(now.Add(window)) {
			continue
		}
		if newsMatches(n.Title, a.Regions) {
			matched = append(matched, n)
		}
	}
	if len(matched) == 0 {
		return
	}
	for _, n := range matched {
		a.NewsRefs = append(a.NewsRefs, n.ID)
	}
	a.Description += fmt.Sprintf(" (%d related news event(s), e.g. %q)", len(matched), matched[0].Title)
}

// eventKeywords are the title keywords that correlate a news event to
// military air activity regardless of region naming.
var eventKeywords = []string{
	"airspace", "air force", "military", "jets", "strike", "bomber",
	"intercept", "drill", "exercise",
}

func newsMatches(title string, regions []string) bool {
	lower := strings.ToLower(title)
	for _, r := range regions {
		if r != "" && strings.Contains(lower, strings.ToLower(r)) {
			return true
		}
	}
	for _, kw := range eventKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
