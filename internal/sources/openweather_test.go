package sources

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

func testOpenWeather(srv *httptest.Server) *OpenWeather {
	return &OpenWeather{
		apiKey:     "test-key",
		client:     srv.Client(),
		baseURL:    srv.URL,
		maxElapsed: 50 * time.Millisecond,
	}
}

func TestOpenWeatherFetch(t *testing.T) {
	loc := models.Location{ID: "alta", Domain: models.DomainSki, Latitude: 40.5883, Longitude: -111.6387}

	t.Run("success with snow", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("appid"); got != "test-key" {
				t.Errorf("appid = %q, want test-key", got)
			}
			if got := r.URL.Query().Get("units"); got != "metric" {
				t.Errorf("units = %q, want metric", got)
			}
			w.Write([]byte(`{
				"dt": 1756123200,
				"main": {"temp": -5.2, "pressure": 1021},
				"wind": {"speed": 3.1, "gust": 6.0},
				"snow": {"1h": 2.5}
			}`))
		}))
		defer srv.Close()

		reading, err := testOpenWeather(srv).Fetch(context.Background(), loc)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if got := reading.Metrics[models.MetricTemperature]; got != -5.2 {
			t.Errorf("temperature = %v, want -5.2", got)
		}
		if got := reading.Metrics[models.MetricWindSpeed]; got != 3.1 {
			t.Errorf("windSpeed = %v, want 3.1", got)
		}
		// 2.5 mm/h extrapolated to 24h and converted to meters.
		if got := reading.Metrics[models.MetricSnowfall24h]; math.Abs(got-0.06) > 1e-9 {
			t.Errorf("snowfall24h = %v, want 0.06", got)
		}
		if want := time.Unix(1756123200, 0).UTC(); !reading.ObservedAt.Equal(want) {
			t.Errorf("ObservedAt = %v, want %v", reading.ObservedAt, want)
		}
	})

	t.Run("persistent throttling is rate limited", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := testOpenWeather(srv).Fetch(context.Background(), loc)
		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("err = %v, want ErrRateLimited", err)
		}
		if calls.Load() == 0 {
			t.Error("server should have been called")
		}
	})

	t.Run("server error is permanent and unavailable", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := testOpenWeather(srv).Fetch(context.Background(), loc)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("err = %v, want ErrUnavailable", err)
		}
		if calls.Load() != 1 {
			t.Errorf("got %d calls, want 1 (no retry on permanent failure)", calls.Load())
		}
	})

	t.Run("garbage body is malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>maintenance</html>"))
		}))
		defer srv.Close()

		_, err := testOpenWeather(srv).Fetch(context.Background(), loc)
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("err = %v, want ErrMalformedPayload", err)
		}
		var pe *PayloadError
		if !errors.As(err, &pe) {
			t.Fatal("err should carry a *PayloadError")
		}
		if pe.Excerpt == "" {
			t.Error("PayloadError should keep an excerpt of the body")
		}
	})

	t.Run("disabled without key", func(t *testing.T) {
		o := NewOpenWeather("")
		if o.Supports(loc) {
			t.Error("Supports should be false without an API key")
		}
		_, err := o.Fetch(context.Background(), loc)
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestSnowfall24hEstimate(t *testing.T) {
	tests := []struct {
		name string
		snow map[string]float64
		want float64
		ok   bool
	}{
		{"1h rate", map[string]float64{"1h": 2.5}, 0.06, true},
		{"3h total", map[string]float64{"3h": 7.5}, 0.06, true},
		{"1h preferred over 3h", map[string]float64{"1h": 1.0, "3h": 30.0}, 0.024, true},
		{"no snow", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snowfall24hEstimate(tt.snow)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
