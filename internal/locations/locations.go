// Package locations holds the built-in location set and builds each
// location's source fallback chain.
package locations

import (
	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/sources"
)

// Defaults returns the built-in locations: five US buoy breaks, one
// Australian coastal waters area, and three ski resorts.
func Defaults() []models.Location {
	return []models.Location{
		{
			ID:          "mavericks",
			Name:        "Mavericks, Half Moon Bay CA",
			Latitude:    37.4956,
			Longitude:   -122.4997,
			Domain:      models.DomainSurf,
			Region:      "us-west",
			NDBCStation: "46012",
		},
		{
			ID:          "ocean-beach",
			Name:        "Ocean Beach, San Francisco CA",
			Latitude:    37.7594,
			Longitude:   -122.5107,
			Domain:      models.DomainSurf,
			Region:      "us-west",
			NDBCStation: "46026",
		},
		{
			ID:          "huntington-pier",
			Name:        "Huntington Beach Pier CA",
			Latitude:    33.6553,
			Longitude:   -118.0031,
			Domain:      models.DomainSurf,
			Region:      "us-west",
			NDBCStation: "46222",
		},
		{
			ID:          "pipeline",
			Name:        "Banzai Pipeline, Oahu HI",
			Latitude:    21.6654,
			Longitude:   -158.0521,
			Domain:      models.DomainSurf,
			Region:      "hawaii",
			NDBCStation: "51201",
		},
		{
			ID:          "montauk-point",
			Name:        "Montauk Point NY",
			Latitude:    41.0719,
			Longitude:   -71.8573,
			Domain:      models.DomainSurf,
			Region:      "us-east",
			NDBCStation: "44017",
		},
		{
			ID:           "sydney-coast",
			Name:         "Sydney Coastal Waters NSW",
			Latitude:     -33.8688,
			Longitude:    151.2093,
			Domain:       models.DomainSurf,
			Region:       "au-east",
			BOMProductID: "IDN11001",
			BOMAreaAAC:   "NSW_MW009",
		},
		{
			ID:        "palisades-tahoe",
			Name:      "Palisades Tahoe CA",
			Latitude:  39.1969,
			Longitude: -120.2358,
			Domain:    models.DomainSki,
			Region:    "us-west",
		},
		{
			ID:        "alta",
			Name:      "Alta UT",
			Latitude:  40.5883,
			Longitude: -111.6358,
			Domain:    models.DomainSki,
			Region:    "us-west",
		},
		{
			ID:        "jackson-hole",
			Name:      "Jackson Hole WY",
			Latitude:  43.5875,
			Longitude: -110.8279,
			Domain:    models.DomainSki,
			Region:    "us-west",
		},
	}
}

// preferredOrder is each location's source preference, best first. Buoy and
// marine-forecast sources outrank the general-purpose weather API because
// they carry real swell figures; the weather API only ever backfills.
func preferredOrder(loc models.Location) []string {
	switch {
	case loc.Domain == models.DomainSurf && loc.BOMProductID != "":
		return []string{"bom-marine", "openweather"}
	case loc.Domain == models.DomainSurf:
		return []string{"ndbc", "openweather"}
	default:
		return []string{"nws", "openweather"}
	}
}

// Chains maps each location ID to its ordered fallback chain, keeping only
// adapters that support the location. A chain may come back empty, for
// example a buoy-less surf spot with no API key configured; the caller
// decides whether that is fatal.
func Chains(locs []models.Location, adapters []sources.Adapter) map[string][]sources.Adapter {
	byID := make(map[string]sources.Adapter, len(adapters))
	for _, a := range adapters {
		byID[a.ID()] = a
	}

	chains := make(map[string][]sources.Adapter, len(locs))
	for _, loc := range locs {
		var chain []sources.Adapter
		for _, id := range preferredOrder(loc) {
			a, ok := byID[id]
			if !ok || !a.Supports(loc) {
				continue
			}
			chain = append(chain, a)
		}
		chains[loc.ID] = chain
	}
	return chains
}
