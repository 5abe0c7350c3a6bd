// Package profiler maintains the per-aircraft behavioral baseline:
// an exponential-moving-average
// profile seeded from cold-start priors, updated from new position
// batches, and consulted to score deviations from the learned baseline.
//
// Updates for a given aircraft are serialized (one update
// completes before the next from the same aircraft starts) to preserve
// EMA semantics, while different aircraft update in parallel; Service
// enforces this with one mutex per hex.
package profiler

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/skywatch-oss/fusion-engine/internal/config"
	"github.com/skywatch-oss/fusion-engine/internal/pattern"
)

const numPatterns = 5

var patternOrder = [numPatterns]pattern.Name{
	pattern.Orbit, pattern.Racetrack, pattern.Holding, pattern.TankerTrack, pattern.Straight,
}

// Region is one of a profile's up-to-10 typical regions.
type Region struct {
	CenterLat float64
	CenterLon float64
	RadiusNM  float64
	Frequency float64
}

// Profile is the per-aircraft behavioral baseline.
type Profile struct {
	Hex                 string
	PatternDistribution map[pattern.Name]float64
	TypicalRegions      []Region
	AltitudeMin         float64
	AltitudeMax         float64
	AltitudeAvg         float64
	AltitudeStdDev      float64
	SpeedMin            float64
	SpeedMax            float64
	SpeedAvg            float64
	SpeedStdDev         float64
	HourlyActivity      [24]float64
	DailyActivity       [7]float64
	SampleCount         int
	IsTrained           bool
	LastFlightAt        time.Time

	hasAltitude bool
	hasSpeed    bool
}

// Blank returns a freshly-initialized profile with uniform pattern and
// activity distributions (each slot summing to 1), sample_count 0.
func Blank(hex string) *Profile {
	p := &Profile{Hex: hex, PatternDistribution: uniformPatterns()}
	for i := range p.HourlyActivity {
		p.HourlyActivity[i] = 1.0 / 24
	}
	for i := range p.DailyActivity {
		p.DailyActivity[i] = 1.0 / 7
	}
	return p
}

func uniformPatterns() map[pattern.Name]float64 {
	m := make(map[pattern.Name]float64, numPatterns)
	for _, name := range patternOrder {
		m[name] = 1.0 / numPatterns
	}
	return m
}

// ColdStartPrior is a seed pattern distribution for a type code, used
// to initialize a profile as if it had already made 3 pseudo-
// observations.
type ColdStartPrior struct {
	TypeCode            string
	PatternDistribution map[pattern.Name]float64
}

// ColdStartPriors is the built-in table of per-type-code priors. A
// tanker type code starts biased toward tanker_track, a fighter type
// code toward orbit/racetrack, and so on; unlisted type codes get a
// blank profile instead.
var ColdStartPriors = map[string]map[pattern.Name]float64{
	"KC135": {pattern.TankerTrack: 0.55, pattern.Racetrack: 0.2, pattern.Straight: 0.15, pattern.Orbit: 0.05, pattern.Holding: 0.05},
	"KC10":  {pattern.TankerTrack: 0.55, pattern.Racetrack: 0.2, pattern.Straight: 0.15, pattern.Orbit: 0.05, pattern.Holding: 0.05},
	"KC46":  {pattern.TankerTrack: 0.55, pattern.Racetrack: 0.2, pattern.Straight: 0.15, pattern.Orbit: 0.05, pattern.Holding: 0.05},
	"F15":   {pattern.Orbit: 0.3, pattern.Racetrack: 0.3, pattern.Straight: 0.25, pattern.Holding: 0.1, pattern.TankerTrack: 0.05},
	"F16":   {pattern.Orbit: 0.3, pattern.Racetrack: 0.3, pattern.Straight: 0.25, pattern.Holding: 0.1, pattern.TankerTrack: 0.05},
	"F22":   {pattern.Orbit: 0.3, pattern.Racetrack: 0.3, pattern.Straight: 0.25, pattern.Holding: 0.1, pattern.TankerTrack: 0.05},
	"RC135": {pattern.Racetrack: 0.4, pattern.Orbit: 0.3, pattern.Straight: 0.2, pattern.Holding: 0.05, pattern.TankerTrack: 0.05},
	"E3TF":  {pattern.Racetrack: 0.4, pattern.Orbit: 0.3, pattern.Straight: 0.2, pattern.Holding: 0.05, pattern.TankerTrack: 0.05},
}

// WithPrior applies a cold-start prior to a blank profile and sets
// sample_count to cfg's pseudo-observation count.
func WithPrior(hex string, prior map[pattern.Name]float64, cfg *config.TuningConfig) *Profile {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	p := Blank(hex)
	dist := make(map[pattern.Name]float64, numPatterns)
	var sum float64
	for _, name := range patternOrder {
		v := prior[name]
		dist[name] = v
		sum += v
	}
	if sum > 0 {
		for k := range dist {
			dist[k] /= sum
		}
	} else {
		dist = uniformPatterns()
	}
	p.PatternDistribution = dist
	p.SampleCount = cfg.GetColdStartPseudoCount()
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func renormalize(m map[pattern.Name]float64) {
	var sum float64
	for _, v := range m {
		sum += v
	}
	if sum <= 0 {
		for k := range m {
			m[k] = 1.0 / float64(len(m))
		}
		return
	}
	for k, v := range m {
		m[k] = v / sum
	}
}

func renormalizeSlice(s []float64) {
	var sum float64
	for _, v := range s {
		sum += v
	}
	if sum <= 0 {
		for i := range s {
			s[i] = 1.0 / float64(len(s))
		}
		return
	}
	for i, v := range s {
		s[i] = v / sum
	}
}

// PositionStats summarizes a batch of new positions, computed by the
// caller from raw aircraft.Position samples before calling Update.
type PositionStats struct {
	CentroidLat float64
	CentroidLon float64
	RadiusNM    float64 // max distance from centroid to any sample
	Altitudes   []float64
	Speeds      []float64
	HourUTC     int // 0-23, hour of the batch
	WeekdayUTC  int // 0-6, day of week of the batch
}

// Update folds a new batch of two or more positions into the
// profile, returning the mutated profile (Update mutates in
// place and returns the same pointer for chaining convenience).
func Update(p *Profile, stats PositionStats, detectedPattern pattern.Name, departureTime time.Time, cfg *config.TuningConfig) *Profile {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}

	lr := cfg.GetEMALearningRate()
	if p.SampleCount < cfg.GetEMALowSampleThreshold() {
		lr = cfg.GetEMALowSampleLearningRate()
	}
	if detectedPattern != "" {
		for name, prob := range p.PatternDistribution {
			if name == detectedPattern {
				p.PatternDistribution[name] = prob*(1-lr) + lr
			} else {
				p.PatternDistribution[name] = prob * (1 - lr)
			}
		}
		renormalize(p.PatternDistribution)
	}

	updateRegions(p, stats, cfg)

	decay := cfg.GetAltSpeedEMADecay()
	updateMinMaxAvgStdDev(&p.AltitudeMin, &p.AltitudeMax, &p.AltitudeAvg, &p.AltitudeStdDev, &p.hasAltitude, stats.Altitudes, decay)
	updateMinMaxAvgStdDev(&p.SpeedMin, &p.SpeedMax, &p.SpeedAvg, &p.SpeedStdDev, &p.hasSpeed, stats.Speeds, decay)

	activityLR := cfg.GetEMALearningRate()
	if stats.HourUTC >= 0 && stats.HourUTC < 24 {
		for i := range p.HourlyActivity {
			if i == stats.HourUTC {
				p.HourlyActivity[i] = p.HourlyActivity[i]*(1-activityLR) + activityLR
			} else {
				p.HourlyActivity[i] = p.HourlyActivity[i] * (1 - activityLR)
			}
		}
		renormalizeSlice(p.HourlyActivity[:])
	}
	if stats.WeekdayUTC >= 0 && stats.WeekdayUTC < 7 {
		for i := range p.DailyActivity {
			if i == stats.WeekdayUTC {
				p.DailyActivity[i] = p.DailyActivity[i]*(1-activityLR) + activityLR
			} else {
				p.DailyActivity[i] = p.DailyActivity[i] * (1 - activityLR)
			}
		}
		renormalizeSlice(p.DailyActivity[:])
	}

	p.SampleCount++
	p.IsTrained = p.SampleCount >= cfg.GetTrainedSampleThreshold()
	if !departureTime.IsZero() {
		p.LastFlightAt = departureTime
	} else {
		p.LastFlightAt = time.Now().UTC()
	}
	return p
}

func updateRegions(p *Profile, stats PositionStats, cfg *config.TuningConfig) {
	matchRadius := cfg.GetRegionMatchRadiusNM()
	maxRegions := cfg.GetMaxTypicalRegions()

	bestIdx := -1
	bestDist := math.MaxFloat64
	for i, r := range p.TypicalRegions {
		d := haversineApprox(r.CenterLat, r.CenterLon, stats.CentroidLat, stats.CentroidLon)
		if d <= matchRadius && d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}

	if bestIdx >= 0 {
		r := p.TypicalRegions[bestIdx]
		totalFreq := r.Frequency + 1
		r.CenterLat = (r.CenterLat*r.Frequency + stats.CentroidLat) / totalFreq
		r.CenterLon = (r.CenterLon*r.Frequency + stats.CentroidLon) / totalFreq
		if stats.RadiusNM > r.RadiusNM {
			r.RadiusNM = stats.RadiusNM
		}
		r.Frequency = totalFreq
		p.TypicalRegions[bestIdx] = r
	} else if len(p.TypicalRegions) < maxRegions {
		p.TypicalRegions = append(p.TypicalRegions, Region{
			CenterLat: stats.CentroidLat, CenterLon: stats.CentroidLon, RadiusNM: stats.RadiusNM, Frequency: 1,
		})
	} else {
		lowestIdx := 0
		for i, r := range p.TypicalRegions {
			if r.Frequency < p.TypicalRegions[lowestIdx].Frequency {
				lowestIdx = i
			}
		}
		p.TypicalRegions[lowestIdx] = Region{
			CenterLat: stats.CentroidLat, CenterLon: stats.CentroidLon, RadiusNM: stats.RadiusNM, Frequency: 1,
		}
	}

	var total float64
	for _, r := range p.TypicalRegions {
		total += r.Frequency
	}
	if total > 0 {
		for i := range p.TypicalRegions {
			p.TypicalRegions[i].Frequency /= total
		}
	}
}

// haversineApprox is a fast equirectangular approximation adequate for
// the 50 nm region-matching radius this package uses; unlike
// internal/geo's validated haversine it never returns an error.
func haversineApprox(lat1, lon1, lat2, lon2 float64) float64 {
	const nmPerDegLat = 60.0
	dLat := (lat2 - lat1) * nmPerDegLat
	avgLat := (lat1 + lat2) / 2 * math.Pi / 180
	dLon := (lon2 - lon1) * nmPerDegLat * math.Cos(avgLat)
	return math.Hypot(dLat, dLon)
}

func updateMinMaxAvgStdDev(min, max, avg, stddev *float64, has *bool, values []float64, decay float64) {
	if len(values) == 0 {
		return
	}
	for _, v := range values {
		if !*has || v < *min {
			*min = v
		}
		if !*has || v > *max {
			*max = v
		}
		*has = true
	}
	batchMean := stat.Mean(values, nil)
	batchStdDev := math.Sqrt(stat.PopVariance(values, nil))

	if *avg == 0 && *stddev == 0 {
		*avg = batchMean
		*stddev = batchStdDev
		return
	}
	*avg = *avg*decay + batchMean*(1-decay)
	*stddev = *stddev*decay + batchStdDev*(1-decay)
}

// Deviation is one flagged departure from the learned baseline.
type Deviation struct {
	Type      string
	Severity  float64
	Detected  float64
	Expected  float64
}

// CheckDeviation scores a new observation batch against the trained
// profile. Returns nil if the profile is not yet trained.
func CheckDeviation(p *Profile, stats PositionStats, detectedPattern pattern.Name, nowHourUTC int, cfg *config.TuningConfig) []Deviation {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if !p.IsTrained {
		return nil
	}

	zThreshold := cfg.GetDeviationZScoreThreshold()
	var out []Deviation

	if len(stats.Altitudes) > 0 && p.AltitudeStdDev > 0 {
		mean := meanOf(stats.Altitudes)
		z := math.Abs(mean-p.AltitudeAvg) / p.AltitudeStdDev
		if z > zThreshold {
			out = append(out, Deviation{Type: "altitude", Severity: clamp01(z / 5), Detected: mean, Expected: p.AltitudeAvg})
		}
	}

	if len(stats.Speeds) > 0 && p.SpeedStdDev > 0 {
		mean := meanOf(stats.Speeds)
		z := math.Abs(mean-p.SpeedAvg) / p.SpeedStdDev
		if z > zThreshold {
			out = append(out, Deviation{Type: "speed", Severity: clamp01(z / 5), Detected: mean, Expected: p.SpeedAvg})
		}
	}

	if detectedPattern != "" {
		freq := p.PatternDistribution[detectedPattern]
		if freq < cfg.GetDeviationPatternFreqThreshold() {
			out = append(out, Deviation{Type: "pattern", Severity: clamp01(1 - freq), Detected: 1, Expected: freq})
		}
	}

	if len(p.TypicalRegions) > 0 {
		buffer := cfg.GetDeviationRegionBufferNM()
		inAny := false
		for _, r := range p.TypicalRegions {
			if haversineApprox(r.CenterLat, r.CenterLon, stats.CentroidLat, stats.CentroidLon) <= r.RadiusNM+buffer {
				inAny = true
				break
			}
		}
		if !inAny {
			out = append(out, Deviation{Type: "region", Severity: 0.7, Detected: 1, Expected: 0})
		}
	}

	if nowHourUTC >= 0 && nowHourUTC < 24 {
		activity := p.HourlyActivity[nowHourUTC]
		if activity < cfg.GetDeviationHourActivityThreshold() {
			out = append(out, Deviation{Type: "time", Severity: 0.5, Detected: activity, Expected: cfg.GetDeviationHourActivityThreshold()})
		}
	}

	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
