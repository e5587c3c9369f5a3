package scoring

import (
	"math"

	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/units"
)

// Band edges are written in the units the surf and snow communities actually
// talk in (feet, mph, inches) and converted to SI once here, so the scorer
// never converts at scoring time and readings stay SI end to end.

var surfTable = Table{
	Domain:    models.DomainSurf,
	Threshold: DefaultThreshold,
	Metrics: []MetricBands{
		{Metric: models.MetricWaveHeight, Bands: []Band{
			{Lo: units.FeetToMeters(4), Hi: units.FeetToMeters(10), Points: 40},
			{Lo: units.FeetToMeters(2), Hi: units.FeetToMeters(4), OpenHi: true, Points: 25},
			{Lo: units.FeetToMeters(10), OpenLo: true, Hi: units.FeetToMeters(15), Points: 30},
		}},
		{Metric: models.MetricDominantPeriod, Bands: []Band{
			{Lo: 12, Hi: math.Inf(1), Points: 30},
			{Lo: 10, Hi: 12, OpenHi: true, Points: 20},
			{Lo: 8, Hi: 10, OpenHi: true, Points: 10},
		}},
		{Metric: models.MetricWindSpeed, Bands: []Band{
			{Lo: math.Inf(-1), Hi: units.MphToMetersPerSecond(10), OpenHi: true, Points: 20},
			{Lo: units.MphToMetersPerSecond(10), Hi: units.MphToMetersPerSecond(15), OpenHi: true, Points: 10},
			{Lo: units.MphToMetersPerSecond(15), Hi: math.Inf(1), Points: -10},
		}},
		{Metric: models.MetricAvgPeriod, Bands: []Band{
			{Lo: 8, Hi: math.Inf(1), Points: 10},
		}},
	},
}

// skiTable mirrors the surf table's shape: a 40/25/30 magnitude split, a
// 30/20/10 depth ladder, the shared wind bands, and a single +10 sweetener.
var skiTable = Table{
	Domain:    models.DomainSki,
	Threshold: DefaultThreshold,
	Metrics: []MetricBands{
		{Metric: models.MetricSnowfall24h, Bands: []Band{
			{Lo: units.InchesToMeters(8), Hi: units.InchesToMeters(20), Points: 40},
			{Lo: units.InchesToMeters(4), Hi: units.InchesToMeters(8), OpenHi: true, Points: 25},
			{Lo: units.InchesToMeters(20), OpenLo: true, Hi: units.InchesToMeters(30), Points: 30},
		}},
		{Metric: models.MetricBaseDepth, Bands: []Band{
			{Lo: units.InchesToMeters(60), Hi: math.Inf(1), Points: 30},
			{Lo: units.InchesToMeters(40), Hi: units.InchesToMeters(60), OpenHi: true, Points: 20},
			{Lo: units.InchesToMeters(24), Hi: units.InchesToMeters(40), OpenHi: true, Points: 10},
		}},
		{Metric: models.MetricWindSpeed, Bands: []Band{
			{Lo: math.Inf(-1), Hi: units.MphToMetersPerSecond(10), OpenHi: true, Points: 20},
			{Lo: units.MphToMetersPerSecond(10), Hi: units.MphToMetersPerSecond(15), OpenHi: true, Points: 10},
			{Lo: units.MphToMetersPerSecond(15), Hi: math.Inf(1), Points: -10},
		}},
		{Metric: models.MetricTemperature, Bands: []Band{
			{Lo: -12, Hi: 0, Points: 10},
		}},
	},
}
