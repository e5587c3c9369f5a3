package scoring

import (
	"testing"
	"time"

	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/units"
)

func reading(domain models.Domain, metrics map[string]float64) models.Reading {
	return models.Reading{
		LocationID: "test",
		SourceID:   "test",
		ObservedAt: time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC),
		Metrics:    metrics,
	}
}

func TestSurfScoreScenarios(t *testing.T) {
	tests := []struct {
		name    string
		metrics map[string]float64
		want    int
	}{
		{
			// 6.56 ft wave, long period, light wind: the perfect day.
			name: "firing conditions score 100",
			metrics: map[string]float64{
				models.MetricWaveHeight:     2.0,
				models.MetricDominantPeriod: 14,
				models.MetricAvgPeriod:      10,
				models.MetricWindSpeed:      2.0,
			},
			want: 100,
		},
		{
			// 1.6 ft windslop: negative sum clamps to zero.
			name: "blown out small day clamps to 0",
			metrics: map[string]float64{
				models.MetricWaveHeight:     0.5,
				models.MetricDominantPeriod: 6,
				models.MetricWindSpeed:      10.0,
			},
			want: 0,
		},
		{
			name: "mid band day",
			metrics: map[string]float64{
				models.MetricWaveHeight:     units.FeetToMeters(3), // +25
				models.MetricDominantPeriod: 11,                    // +20
				models.MetricAvgPeriod:      9,                     // +10
				models.MetricWindSpeed:      units.MphToMetersPerSecond(12), // +10
			},
			want: 65,
		},
		{
			name: "oversize swell takes the lower band",
			metrics: map[string]float64{
				models.MetricWaveHeight:     units.FeetToMeters(12), // +30
				models.MetricDominantPeriod: 15,                     // +30
				models.MetricWindSpeed:      1.0,                    // +20
			},
			want: 80,
		},
		{
			name:    "empty metrics score 0",
			metrics: map[string]float64{},
			want:    0,
		},
		{
			name: "wind only caps low",
			metrics: map[string]float64{
				models.MetricWindSpeed: 1.0,
			},
			want: 20,
		},
		{
			name: "pathological values stay in range",
			metrics: map[string]float64{
				models.MetricWaveHeight:     -4.0,
				models.MetricDominantPeriod: -1,
				models.MetricWindSpeed:      500,
			},
			want: 0,
		},
	}

	table := ForDomain(models.DomainSurf)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Score(reading(models.DomainSurf, tt.metrics))
			if got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("Score = %d outside [0,100]", got)
			}
		})
	}
}

func TestSkiScoreScenarios(t *testing.T) {
	tests := []struct {
		name    string
		metrics map[string]float64
		want    int
	}{
		{
			name: "deep day scores 100",
			metrics: map[string]float64{
				models.MetricSnowfall24h: units.InchesToMeters(12), // +40
				models.MetricBaseDepth:   units.InchesToMeters(65), // +30
				models.MetricWindSpeed:   2.0,                      // +20
				models.MetricTemperature: -5,                       // +10
			},
			want: 100,
		},
		{
			name: "marginal early season",
			metrics: map[string]float64{
				models.MetricSnowfall24h: units.InchesToMeters(5),  // +25
				models.MetricBaseDepth:   units.InchesToMeters(30), // +10
				models.MetricWindSpeed:   units.MphToMetersPerSecond(12), // +10
				models.MetricTemperature: 3,                        // 0
			},
			want: 45,
		},
		{
			name: "storm burying the mountain takes the lower band",
			metrics: map[string]float64{
				models.MetricSnowfall24h: units.InchesToMeters(25), // +30
				models.MetricBaseDepth:   units.InchesToMeters(80), // +30
				models.MetricWindSpeed:   units.MphToMetersPerSecond(20), // -10
				models.MetricTemperature: -8,                       // +10
			},
			want: 60,
		},
		{
			name: "no snow metrics means forecast-only fallback",
			metrics: map[string]float64{
				models.MetricTemperature: -2, // +10
				models.MetricWindSpeed:   3,  // +20
			},
			want: 30,
		},
	}

	table := ForDomain(models.DomainSki)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Score(reading(models.DomainSki, tt.metrics))
			if got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

// Exactly one wave height band may match any value, including at the shared
// edges between bands.
func TestWaveBandExclusivity(t *testing.T) {
	var waveBands []Band
	for _, mb := range surfTable.Metrics {
		if mb.Metric == models.MetricWaveHeight {
			waveBands = mb.Bands
		}
	}
	if waveBands == nil {
		t.Fatal("surf table missing wave height bands")
	}

	heightsFt := []float64{0, 1.9, 2, 3.99, 4, 6.5, 9.99, 10, 10.01, 14, 15, 15.01, 40}
	for _, ft := range heightsFt {
		h := units.FeetToMeters(ft)
		matches := 0
		for _, b := range waveBands {
			if b.contains(h) {
				matches++
			}
		}
		if matches > 1 {
			t.Errorf("wave height %.2fft matches %d bands, want at most 1", ft, matches)
		}
	}

	// Edge ownership: 10ft belongs to the 4-10 band, not the >10-15 band.
	tenFt := units.FeetToMeters(10)
	if !waveBands[0].contains(tenFt) {
		t.Error("10ft should be inside the 4-10 band")
	}
	if waveBands[2].contains(tenFt) {
		t.Error("10ft should be outside the >10-15 band")
	}
}

func TestWindBandEdges(t *testing.T) {
	table := ForDomain(models.DomainSurf)
	base := map[string]float64{models.MetricWaveHeight: 2.0} // +40 baseline

	tests := []struct {
		mph  float64
		want int
	}{
		{5, 60},     // +20
		{9.99, 60},  // +20
		{10, 50},    // +10
		{14.99, 50}, // +10
		{15, 30},    // -10
		{40, 30},    // -10
	}
	for _, tt := range tests {
		m := map[string]float64{
			models.MetricWaveHeight: base[models.MetricWaveHeight],
			models.MetricWindSpeed:  units.MphToMetersPerSecond(tt.mph),
		}
		if got := table.Score(reading(models.DomainSurf, m)); got != tt.want {
			t.Errorf("wind %.2fmph: Score = %d, want %d", tt.mph, got, tt.want)
		}
	}
}

func TestScoreIdempotent(t *testing.T) {
	table := ForDomain(models.DomainSurf)
	r := reading(models.DomainSurf, map[string]float64{
		models.MetricWaveHeight:     1.5,
		models.MetricDominantPeriod: 11,
		models.MetricWindSpeed:      3,
	})

	first := table.Score(r)
	for i := 0; i < 10; i++ {
		if got := table.Score(r); got != first {
			t.Fatalf("run %d: Score = %d, want %d", i, got, first)
		}
	}
}

func TestIsStrike(t *testing.T) {
	table := ForDomain(models.DomainSurf)
	if table.IsStrike(69) {
		t.Error("69 should not be a strike")
	}
	if !table.IsStrike(70) {
		t.Error("70 should be a strike")
	}
	if !table.IsStrike(100) {
		t.Error("100 should be a strike")
	}
}
