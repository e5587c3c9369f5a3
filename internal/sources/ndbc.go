package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clb9/swellstrike/internal/httputil"
	"github.com/clb9/swellstrike/internal/models"
)

const ndbcBaseURL = "https://www.ndbc.noaa.gov"

// ndbcMissing is the sentinel NDBC prints for a metric the buoy did not
// report.
const ndbcMissing = "MM"

// ndbcColumns maps realtime2 header tokens to canonical metric names. The
// feed is already SI (m, s, m/s, degC, hPa), so no conversion happens here.
var ndbcColumns = map[string]string{
	"WVHT": models.MetricWaveHeight,
	"DPD":  models.MetricDominantPeriod,
	"APD":  models.MetricAvgPeriod,
	"WSPD": models.MetricWindSpeed,
	"GST":  models.MetricWindGust,
	"WTMP": models.MetricWaterTemp,
	"ATMP": models.MetricAirTemp,
	"PRES": models.MetricPressure,
}

// NDBC fetches the latest observation from a NOAA buoy's realtime2 feed, a
// fixed-width text file where the first line is a header row, a second
// #-prefixed line carries units, and the first data line is the newest
// observation.
type NDBC struct {
	client  *http.Client
	baseURL string
}

func NewNDBC() *NDBC {
	return &NDBC{
		client:  httputil.NewClient(),
		baseURL: ndbcBaseURL,
	}
}

func (n *NDBC) ID() string { return "ndbc" }

func (n *NDBC) Supports(loc models.Location) bool {
	return loc.NDBCStation != ""
}

func (n *NDBC) Fetch(ctx context.Context, loc models.Location) (models.Reading, error) {
	url := fmt.Sprintf("%s/data/realtime2/%s.txt", n.baseURL, loc.NDBCStation)

	req, err := httputil.NewRequest(ctx, url)
	if err != nil {
		return models.Reading{}, fmt.Errorf("ndbc: %w: %v", ErrUnavailable, err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return models.Reading{}, fmt.Errorf("ndbc: %w: %v", ErrUnavailable, err)
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return models.Reading{}, fmt.Errorf("ndbc: %w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Reading{}, fmt.Errorf("ndbc: %w: status %d for station %s", ErrUnavailable, resp.StatusCode, loc.NDBCStation)
	}

	observedAt, metrics, err := parseRealtime2(body, time.Now().UTC())
	if err != nil {
		return models.Reading{}, err
	}

	return models.Reading{
		LocationID: loc.ID,
		SourceID:   n.ID(),
		ObservedAt: observedAt,
		Metrics:    metrics,
	}, nil
}

// parseRealtime2 extracts the newest observation from a realtime2 text file.
// Header tokens bind positionally to data columns; the MM sentinel and values
// that fail to parse leave that metric absent rather than failing the whole
// reading. now is the fallback observation time when the date columns are
// unusable.
func parseRealtime2(body []byte, now time.Time) (time.Time, map[string]float64, error) {
	var header []string
	var data []string

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if header == nil {
				header = strings.Fields(strings.TrimPrefix(line, "#"))
			}
			// Subsequent #-lines are the units row; positional
			// binding makes them redundant.
			continue
		}
		data = strings.Fields(line)
		break
	}

	if header == nil {
		return time.Time{}, nil, NewPayloadError("ndbc", "no header row", body)
	}
	hasWave := false
	for _, tok := range header {
		if tok == "WVHT" {
			hasWave = true
			break
		}
	}
	if !hasWave {
		return time.Time{}, nil, NewPayloadError("ndbc", "header has no wave height column", body)
	}
	if data == nil {
		return time.Time{}, nil, NewPayloadError("ndbc", "no data rows", body)
	}

	metrics := make(map[string]float64)
	dateParts := make(map[string]int)

	for i, tok := range header {
		if i >= len(data) {
			break
		}
		raw := data[i]
		if raw == ndbcMissing {
			continue
		}
		switch tok {
		case "YY", "MM", "DD", "hh", "mm":
			if v, err := strconv.Atoi(raw); err == nil {
				dateParts[tok] = v
			}
		default:
			name, ok := ndbcColumns[tok]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			metrics[name] = v
		}
	}

	if len(metrics) == 0 {
		return time.Time{}, nil, NewPayloadError("ndbc", "no parseable metrics in latest row", body)
	}

	observedAt := now
	if y, ok := dateParts["YY"]; ok && len(dateParts) == 5 {
		observedAt = time.Date(y, time.Month(dateParts["MM"]), dateParts["DD"],
			dateParts["hh"], dateParts["mm"], 0, 0, time.UTC)
	}

	return observedAt, metrics, nil
}
