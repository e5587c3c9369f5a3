// Package scoring maps normalized readings onto 0-100 quality scores using
// banded point tables. Tables are data: regional recalibration means another
// Table value, never a fork of the scoring code.
package scoring

import (
	"github.com/clb9/swellstrike/internal/models"
)

// DefaultThreshold is the score at or above which a location counts as a
// strike.
const DefaultThreshold = 70

// Band awards Points when a metric value falls inside [Lo, Hi]. OpenLo and
// OpenHi make the respective bound exclusive, which is how adjacent bands
// tile without overlapping. Use math.Inf for unbounded sides.
type Band struct {
	Lo, Hi         float64
	OpenLo, OpenHi bool
	Points         int
}

func (b Band) contains(v float64) bool {
	if v < b.Lo || (b.OpenLo && v == b.Lo) {
		return false
	}
	if v > b.Hi || (b.OpenHi && v == b.Hi) {
		return false
	}
	return true
}

// MetricBands is the ordered band list for one metric. The first band
// containing the value wins; a metric never contributes twice.
type MetricBands struct {
	Metric string
	Bands  []Band
}

// Table is one domain's complete scoring function.
type Table struct {
	Domain    models.Domain
	Threshold int
	Metrics   []MetricBands
}

// Score sums the per-metric band contributions and clamps to [0,100]. Metrics
// absent from the reading contribute nothing. Pure: identical readings always
// produce identical scores.
func (t Table) Score(r models.Reading) int {
	sum := 0
	for _, mb := range t.Metrics {
		v, ok := r.Metric(mb.Metric)
		if !ok {
			continue
		}
		for _, b := range mb.Bands {
			if b.contains(v) {
				sum += b.Points
				break
			}
		}
	}
	if sum < 0 {
		return 0
	}
	if sum > 100 {
		return 100
	}
	return sum
}

// IsStrike reports whether a score meets the table's strike threshold.
func (t Table) IsStrike(score int) bool {
	return score >= t.Threshold
}

// ForDomain returns the scoring table for a location's domain.
func ForDomain(d models.Domain) Table {
	if d == models.DomainSki {
		return skiTable
	}
	return surfTable
}
