package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/clb9/swellstrike/internal/httputil"
	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/units"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeather is the global fallback provider. It needs an API key; without
// one the adapter reports itself unsupported everywhere and the process keeps
// running on the domestic providers alone.
type OpenWeather struct {
	apiKey     string
	client     *http.Client
	baseURL    string
	maxElapsed time.Duration
}

func NewOpenWeather(apiKey string) *OpenWeather {
	return &OpenWeather{
		apiKey:     apiKey,
		client:     httputil.NewClient(),
		baseURL:    openWeatherBaseURL,
		maxElapsed: 30 * time.Second,
	}
}

func (o *OpenWeather) ID() string { return "openweather" }

func (o *OpenWeather) Supports(loc models.Location) bool {
	return o.apiKey != ""
}

type openWeatherResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Snow map[string]float64 `json:"snow"`
}

// Fetch retrieves current conditions. Throttling statuses are retried with
// exponential backoff before surfacing as ErrRateLimited; other failures are
// permanent within the attempt and retried naturally on the next cycle.
func (o *OpenWeather) Fetch(ctx context.Context, loc models.Location) (models.Reading, error) {
	if o.apiKey == "" {
		return models.Reading{}, fmt.Errorf("openweather: disabled, no API key: %w", ErrUnavailable)
	}

	url := fmt.Sprintf("%s/weather?lat=%.4f&lon=%.4f&units=metric&appid=%s",
		o.baseURL, loc.Latitude, loc.Longitude, o.apiKey)

	var body []byte
	operation := func() error {
		req, err := httputil.NewRequest(ctx, url)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("openweather: %w: %v", ErrUnavailable, err))
		}
		resp, err := o.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("openweather: %w: %v", ErrUnavailable, err))
		}
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusForbidden, http.StatusServiceUnavailable:
			resp.Body.Close()
			return fmt.Errorf("openweather: %w: status %d", ErrRateLimited, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return backoff.Permanent(fmt.Errorf("openweather: %w: status %d", ErrUnavailable, resp.StatusCode))
		}
		body, err = httputil.ReadBody(resp)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("openweather: %w: read body: %v", ErrUnavailable, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = o.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return models.Reading{}, err
	}

	var data openWeatherResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.Reading{}, NewPayloadError(o.ID(), "undecodable JSON", body)
	}

	metrics := make(map[string]float64)
	if data.Main.Temp != nil {
		metrics[models.MetricTemperature] = *data.Main.Temp
	}
	if data.Main.Pressure != nil {
		metrics[models.MetricPressure] = *data.Main.Pressure
	}
	if data.Wind.Speed != nil {
		metrics[models.MetricWindSpeed] = *data.Wind.Speed
	}
	if data.Wind.Gust != nil {
		metrics[models.MetricWindGust] = *data.Wind.Gust
	}
	if depth, ok := snowfall24hEstimate(data.Snow); ok {
		metrics[models.MetricSnowfall24h] = depth
	}

	if len(metrics) == 0 {
		return models.Reading{}, NewPayloadError(o.ID(), "no usable fields", body)
	}

	observedAt := time.Unix(data.Dt, 0).UTC()
	if data.Dt == 0 {
		observedAt = time.Now().UTC()
	}

	return models.Reading{
		LocationID: loc.ID,
		SourceID:   o.ID(),
		ObservedAt: observedAt,
		Metrics:    metrics,
	}, nil
}

// snowfall24hEstimate extrapolates a 24h accumulation in meters from the
// instantaneous snowfall rate the endpoint reports ("1h" or "3h" in mm).
// Crude, but only the fallback path ever relies on it.
func snowfall24hEstimate(snow map[string]float64) (float64, bool) {
	if mm, ok := snow["1h"]; ok {
		return units.MillimetersToMeters(mm * 24), true
	}
	if mm, ok := snow["3h"]; ok {
		return units.MillimetersToMeters(mm / 3 * 24), true
	}
	return 0, false
}
