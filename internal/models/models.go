package models

import "time"

// Domain identifies which scoring table applies to a location.
type Domain string

const (
	DomainSurf Domain = "surf"
	DomainSki  Domain = "ski"
)

// Canonical metric names used in Reading.Metrics. Values are SI: meters for
// heights and depths, seconds for periods, m/s for speeds, degrees Celsius
// for temperatures, hPa for pressure.
const (
	MetricWaveHeight     = "waveHeight"
	MetricDominantPeriod = "dominantPeriod"
	MetricAvgPeriod      = "avgPeriod"
	MetricWindSpeed      = "windSpeed"
	MetricWindGust       = "windGust"
	MetricWaterTemp      = "waterTemp"
	MetricAirTemp        = "airTemp"
	MetricTemperature    = "temperature"
	MetricSnowfall24h    = "snowfall24h"
	MetricBaseDepth      = "baseDepth"
	MetricPressure       = "pressure"
)

// Location is an immutable reference entity describing one monitored spot.
// The per-provider identifiers tell adapters how to address it; an empty
// identifier means that provider does not cover the location.
type Location struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Domain    Domain
	Region    string

	NDBCStation  string
	BOMProductID string
	BOMAreaAAC   string
}

// Reading is one normalized observation for one location from one source.
// Constructed by a source adapter and never mutated afterwards; the Metrics
// map must not be written to once the Reading leaves the adapter.
type Reading struct {
	LocationID string
	SourceID   string
	ObservedAt time.Time
	Metrics    map[string]float64
}

// Valid reports whether the reading carries at least one parsed metric.
// Invalid readings must never reach the cache.
func (r Reading) Valid() bool {
	return len(r.Metrics) > 0
}

// Metric returns the named metric and whether it is present.
func (r Reading) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// ScoredReading is a Reading plus its quality score. A new value replaces the
// previous one for the same location on each successful refresh.
type ScoredReading struct {
	Reading

	Domain   Domain
	Score    int
	IsStrike bool
	Flags    []string
	ScoredAt time.Time
}

// StrikeEvent is a contiguous interval during which a location's score stayed
// at or above the strike threshold. EndedAt is nil while the interval is open;
// at most one open event exists per location.
type StrikeEvent struct {
	LocationID string
	Domain     Domain
	StartedAt  time.Time
	EndedAt    *time.Time
	PeakScore  int
	PeakAt     time.Time
}

// Open reports whether the event is still in progress.
func (e StrikeEvent) Open() bool {
	return e.EndedAt == nil
}

// CycleState describes where a refresh cycle is in its lifecycle.
type CycleState int

const (
	CycleIdle CycleState = iota
	CycleRunning
	CycleCompleted
	CyclePartiallyFailed
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "idle"
	case CycleRunning:
		return "running"
	case CycleCompleted:
		return "completed"
	case CyclePartiallyFailed:
		return "partially_failed"
	default:
		return "unknown"
	}
}

// CycleResult summarizes one completed refresh cycle.
type CycleResult struct {
	State      CycleState
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// Duration returns the wall time the cycle took.
func (r CycleResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
