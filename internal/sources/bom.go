package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/units"
)

const (
	bomFTPHost  = "ftp.bom.gov.au:21"
	bomFTPDir   = "/anon/gen/fwo"
	bomFTPLogin = "anonymous"
)

// BOMMarine pulls a coastal-waters forecast product off the BOM anonymous FTP
// server and reads the first forecast period for the location's area. Wave
// figures arrive as prose ranges ("1 to 1.5 metres") and winds in knots, so
// everything is normalized here.
type BOMMarine struct {
	host        string
	dialTimeout time.Duration
}

func NewBOMMarine() *BOMMarine {
	return &BOMMarine{
		host:        bomFTPHost,
		dialTimeout: 30 * time.Second,
	}
}

func (b *BOMMarine) ID() string { return "bom-marine" }

func (b *BOMMarine) Supports(loc models.Location) bool {
	return loc.BOMProductID != "" && loc.BOMAreaAAC != ""
}

type coastalProduct struct {
	XMLName  xml.Name `xml:"product"`
	Amoc     struct {
		IssueTime string `xml:"issue-time-utc"`
	} `xml:"amoc"`
	Forecast struct {
		Areas []coastalArea `xml:"area"`
	} `xml:"forecast"`
}

type coastalArea struct {
	AAC         string          `xml:"aac,attr"`
	Description string          `xml:"description,attr"`
	Periods     []coastalPeriod `xml:"forecast-period"`
}

type coastalPeriod struct {
	Index     int              `xml:"index,attr"`
	StartTime string           `xml:"start-time-utc,attr"`
	Elements  []coastalElement `xml:"element"`
	Texts     []coastalText    `xml:"text"`
}

type coastalElement struct {
	Type  string `xml:"type,attr"`
	Units string `xml:"units,attr"`
	Value string `xml:",chardata"`
}

type coastalText struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

func (b *BOMMarine) Fetch(ctx context.Context, loc models.Location) (models.Reading, error) {
	body, err := b.retrieve(ctx, loc.BOMProductID)
	if err != nil {
		return models.Reading{}, err
	}

	observedAt, metrics, err := parseCoastalWaters(body, loc.BOMAreaAAC, time.Now().UTC())
	if err != nil {
		return models.Reading{}, err
	}

	return models.Reading{
		LocationID: loc.ID,
		SourceID:   b.ID(),
		ObservedAt: observedAt,
		Metrics:    metrics,
	}, nil
}

func (b *BOMMarine) retrieve(ctx context.Context, productID string) ([]byte, error) {
	conn, err := ftp.Dial(b.host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(b.dialTimeout))
	if err != nil {
		return nil, fmt.Errorf("bom-marine: %w: ftp dial: %v", ErrUnavailable, err)
	}
	defer conn.Quit()

	if err := conn.Login(bomFTPLogin, bomFTPLogin); err != nil {
		return nil, fmt.Errorf("bom-marine: %w: ftp login: %v", ErrUnavailable, err)
	}

	resp, err := conn.Retr(fmt.Sprintf("%s/%s.xml", bomFTPDir, productID))
	if err != nil {
		return nil, fmt.Errorf("bom-marine: %w: ftp retr %s: %v", ErrUnavailable, productID, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("bom-marine: %w: read body: %v", ErrUnavailable, err)
	}
	return body, nil
}

// parseCoastalWaters extracts the current-period marine metrics for one area
// of a coastal-waters product. Per-element parse failures skip that element;
// only a reading with nothing usable at all is malformed.
func parseCoastalWaters(body []byte, aac string, now time.Time) (time.Time, map[string]float64, error) {
	var product coastalProduct
	if err := xml.Unmarshal(body, &product); err != nil {
		return time.Time{}, nil, NewPayloadError("bom-marine", fmt.Sprintf("unmarshal xml: %v", err), body)
	}

	var area *coastalArea
	for i := range product.Forecast.Areas {
		if product.Forecast.Areas[i].AAC == aac {
			area = &product.Forecast.Areas[i]
			break
		}
	}
	if area == nil {
		return time.Time{}, nil, NewPayloadError("bom-marine", fmt.Sprintf("area %s not in product", aac), body)
	}

	var period *coastalPeriod
	for i := range area.Periods {
		if area.Periods[i].Index == 0 {
			period = &area.Periods[i]
			break
		}
	}
	if period == nil && len(area.Periods) > 0 {
		period = &area.Periods[0]
	}
	if period == nil {
		return time.Time{}, nil, NewPayloadError("bom-marine", fmt.Sprintf("area %s has no forecast periods", aac), body)
	}

	metrics := make(map[string]float64)
	var seasMin, seasMax *float64

	for _, elem := range period.Elements {
		v, err := strconv.ParseFloat(strings.TrimSpace(elem.Value), 64)
		if err != nil {
			continue
		}
		switch elem.Type {
		case "forecast_seas_min":
			seasMin = &v
		case "forecast_seas_max":
			seasMax = &v
		case "forecast_swell_period", "forecast_swell1_period":
			metrics[models.MetricDominantPeriod] = v
		}
	}
	switch {
	case seasMin != nil && seasMax != nil:
		metrics[models.MetricWaveHeight] = (*seasMin + *seasMax) / 2
	case seasMax != nil:
		metrics[models.MetricWaveHeight] = *seasMax
	case seasMin != nil:
		metrics[models.MetricWaveHeight] = *seasMin
	}

	for _, text := range period.Texts {
		switch text.Type {
		case "forecast_winds":
			if kn, ok := proseRange(text.Value, "knot"); ok {
				metrics[models.MetricWindSpeed] = units.KnotsToMetersPerSecond(kn)
			}
		case "forecast_seas":
			if _, have := metrics[models.MetricWaveHeight]; !have {
				if m, ok := proseRange(text.Value, "metre"); ok {
					metrics[models.MetricWaveHeight] = m
				}
			}
		}
	}

	if len(metrics) == 0 {
		return time.Time{}, nil, NewPayloadError("bom-marine", fmt.Sprintf("area %s period has no usable figures", aac), body)
	}

	observedAt := now
	if t, err := time.Parse(time.RFC3339, product.Amoc.IssueTime); err == nil {
		observedAt = t.UTC()
	} else if t, err := time.Parse(time.RFC3339, period.StartTime); err == nil {
		observedAt = t.UTC()
	}

	return observedAt, metrics, nil
}

// proseRange averages the numbers leading up to the first token containing
// unit, so "Southerly 15 to 20 knots, reaching 30 knots offshore" yields 17.5
// and the trailing clause is ignored.
func proseRange(s, unit string) (float64, bool) {
	var nums []float64
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, ".,;")
		if strings.Contains(strings.ToLower(tok), unit) {
			break
		}
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			nums = append(nums, v)
		}
	}
	if len(nums) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range nums {
		sum += v
	}
	return sum / float64(len(nums)), true
}
