package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clb9/swellstrike/internal/httputil"
	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/units"
)

const nwsBaseURL = "https://api.weather.gov"

// NWS resolves a location in two steps: the points endpoint maps lat/lon to
// that office's grid, then the grid resource carries quantitative forecast
// layers. No API key, but the service rejects requests without a User-Agent.
type NWS struct {
	client  *http.Client
	baseURL string
}

func NewNWS() *NWS {
	return &NWS{
		client:  httputil.NewClient(),
		baseURL: nwsBaseURL,
	}
}

func (n *NWS) ID() string { return "nws" }

func (n *NWS) Supports(loc models.Location) bool {
	return strings.HasPrefix(loc.Region, "us") || loc.Region == "hawaii"
}

type nwsPointsResponse struct {
	Properties struct {
		ForecastGridData string `json:"forecastGridData"`
	} `json:"properties"`
}

type nwsGridLayer struct {
	UOM    string `json:"uom"`
	Values []struct {
		ValidTime string   `json:"validTime"`
		Value     *float64 `json:"value"`
	} `json:"values"`
}

type nwsGridResponse struct {
	Properties struct {
		UpdateTime     string       `json:"updateTime"`
		Temperature    nwsGridLayer `json:"temperature"`
		WindSpeed      nwsGridLayer `json:"windSpeed"`
		WindGust       nwsGridLayer `json:"windGust"`
		SnowfallAmount nwsGridLayer `json:"snowfallAmount"`
	} `json:"properties"`
}

func (n *NWS) Fetch(ctx context.Context, loc models.Location) (models.Reading, error) {
	// The points endpoint 301s coordinates with more than four decimals.
	pointsURL := fmt.Sprintf("%s/points/%s,%s", n.baseURL,
		strconv.FormatFloat(loc.Latitude, 'f', 4, 64),
		strconv.FormatFloat(loc.Longitude, 'f', 4, 64))

	var points nwsPointsResponse
	if err := httputil.GetJSON(ctx, n.client, pointsURL, &points); err != nil {
		return models.Reading{}, n.classify(err)
	}
	gridURL := points.Properties.ForecastGridData
	if gridURL == "" {
		return models.Reading{}, fmt.Errorf("nws: %w: points response missing forecastGridData", ErrUnavailable)
	}

	var grid nwsGridResponse
	if err := httputil.GetJSON(ctx, n.client, gridURL, &grid); err != nil {
		return models.Reading{}, n.classify(err)
	}

	now := time.Now().UTC()
	metrics := make(map[string]float64)

	if v, ok := firstLayerValue(grid.Properties.Temperature); ok {
		metrics[models.MetricTemperature] = v // wmoUnit:degC
	}
	if v, ok := firstLayerValue(grid.Properties.WindSpeed); ok {
		metrics[models.MetricWindSpeed] = units.KmhToMetersPerSecond(v)
	}
	if v, ok := firstLayerValue(grid.Properties.WindGust); ok {
		metrics[models.MetricWindGust] = units.KmhToMetersPerSecond(v)
	}
	if mm, ok := sumLayerWindow(grid.Properties.SnowfallAmount, now, 24*time.Hour); ok {
		metrics[models.MetricSnowfall24h] = units.MillimetersToMeters(mm)
	}

	if len(metrics) == 0 {
		return models.Reading{}, NewPayloadError(n.ID(), "grid response has no usable layers", nil)
	}

	observedAt := now
	if t, err := time.Parse(time.RFC3339, grid.Properties.UpdateTime); err == nil {
		observedAt = t.UTC()
	}

	return models.Reading{
		LocationID: loc.ID,
		SourceID:   n.ID(),
		ObservedAt: observedAt,
		Metrics:    metrics,
	}, nil
}

// classify folds transport-level failures from the two-step fetch into the
// shared taxonomy: undecodable JSON is a payload problem, everything else is
// the provider being unavailable.
func (n *NWS) classify(err error) error {
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("nws: %w: status %d", ErrRateLimited, statusErr.Code)
		}
		return fmt.Errorf("nws: %w: status %d", ErrUnavailable, statusErr.Code)
	}
	var decodeErr *httputil.DecodeError
	if errors.As(err, &decodeErr) {
		return NewPayloadError(n.ID(), decodeErr.Err.Error(), decodeErr.Body)
	}
	return fmt.Errorf("nws: %w: %v", ErrUnavailable, err)
}

// firstLayerValue returns the first non-null value in a grid layer.
func firstLayerValue(layer nwsGridLayer) (float64, bool) {
	for _, v := range layer.Values {
		if v.Value != nil {
			return *v.Value, true
		}
	}
	return 0, false
}

// sumLayerWindow totals the layer values whose validTime start falls inside
// [now-6h, now+window); the lookback keeps a span that is already underway
// in the total. validTime is an ISO interval such as
// "2026-01-05T06:00:00+00:00/PT6H"; entries with unparseable starts are
// skipped.
func sumLayerWindow(layer nwsGridLayer, now time.Time, window time.Duration) (float64, bool) {
	sum := 0.0
	found := false
	end := now.Add(window)
	for _, v := range layer.Values {
		if v.Value == nil {
			continue
		}
		startRaw, _, _ := strings.Cut(v.ValidTime, "/")
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			continue
		}
		if start.Before(now.Add(-6*time.Hour)) || !start.Before(end) {
			continue
		}
		sum += *v.Value
		found = true
	}
	return sum, found
}
