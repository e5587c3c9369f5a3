package sources

import (
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

const (
	FlagWaveHeightNegative = "wave_height_negative"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPeriodUnlikely     = "period_unlikely"
	FlagSnowfallNegative   = "snowfall_negative"
	FlagObservationFuture  = "observation_in_future"
	FlagObservationStale   = "observation_stale"
)

// staleAfter is how old an observation can be before it gets flagged. Buoys
// report hourly at worst; forecasts refresh far more often.
const staleAfter = 6 * time.Hour

// QualityFlags annotates a reading with anything physically implausible or
// suspiciously timed. Flagged readings still score and cache normally; the
// flags ride along for consumers and metrics.
func QualityFlags(r models.Reading, now time.Time) []string {
	var flags []string

	if v, ok := r.Metric(models.MetricWaveHeight); ok && v < 0 {
		flags = append(flags, FlagWaveHeightNegative)
	}

	if v, ok := r.Metric(models.MetricWindSpeed); ok {
		if v < 0 || v > 75 {
			flags = append(flags, FlagWindSpeedUnlikely)
		}
	}

	if v, ok := r.Metric(models.MetricDominantPeriod); ok {
		if v < 0 || v > 30 {
			flags = append(flags, FlagPeriodUnlikely)
		}
	}

	if v, ok := r.Metric(models.MetricSnowfall24h); ok && v < 0 {
		flags = append(flags, FlagSnowfallNegative)
	}

	if r.ObservedAt.After(now.Add(10 * time.Minute)) {
		flags = append(flags, FlagObservationFuture)
	} else if !r.ObservedAt.IsZero() && now.Sub(r.ObservedAt) > staleAfter {
		flags = append(flags, FlagObservationStale)
	}

	return flags
}
