package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// UserAgent identifies us to upstream providers. api.weather.gov rejects
// requests without one.
const UserAgent = "swellstrike/1.0 (github.com/clb9/swellstrike)"

// MaxBodyBytes caps how much of an upstream response we will read. Feeds here
// are small; anything bigger is a broken upstream.
const MaxBodyBytes = 4 << 20

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// NewRequest builds a GET request with the standard User-Agent and JSON accept
// headers applied.
func NewRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	return req, nil
}

// ReadBody drains a response body up to MaxBodyBytes and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
}

// GetJSON fetches url and decodes the response into v. Non-2xx statuses are
// returned as an error carrying the status code; the caller classifies them.
func GetJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := NewRequest(ctx, url)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	body, err := ReadBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, URL: url}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{URL: url, Body: body, Err: err}
	}
	return nil
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// DecodeError reports a 2xx response whose body was not the expected JSON.
type DecodeError struct {
	URL  string
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
