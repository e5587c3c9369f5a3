// Package sources fetches raw condition data from upstream providers and
// normalizes it into readings. One adapter per wire format; a resolver walks
// each location's preference-ordered adapter chain.
package sources

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Failure taxonomy. Unavailable, RateLimited and MalformedPayload are
// absorbed by the resolver (it tries the next source); NoSourceAvailable
// means the whole chain was exhausted and the location keeps its stale cache
// entry for this cycle.
var (
	ErrUnavailable       = errors.New("source unavailable")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrRateLimited       = errors.New("rate limited")
	ErrNoSourceAvailable = errors.New("no source available")
)

const maxExcerptBytes = 512

// PayloadError is a malformed-payload failure carrying enough of the
// offending body to debug the upstream. errors.Is(err, ErrMalformedPayload)
// matches it.
type PayloadError struct {
	Source  string
	Reason  string
	Excerpt string
}

// NewPayloadError builds a PayloadError, truncating the payload excerpt.
func NewPayloadError(source, reason string, payload []byte) *PayloadError {
	excerpt := payload
	if len(excerpt) > maxExcerptBytes {
		excerpt = excerpt[:maxExcerptBytes]
	}
	return &PayloadError{Source: source, Reason: reason, Excerpt: string(excerpt)}
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %s", e.Source, e.Reason)
}

func (e *PayloadError) Unwrap() error {
	return ErrMalformedPayload
}

// Attempt records one adapter call made while resolving a location. Err is
// nil for the attempt that produced the returned reading.
type Attempt struct {
	Source   string
	Err      error
	Duration time.Duration
}

// Outcome maps the attempt's error onto a short label for logs and metrics.
func (a Attempt) Outcome() string {
	switch {
	case a.Err == nil:
		return "success"
	case errors.Is(a.Err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(a.Err, ErrMalformedPayload):
		return "malformed"
	default:
		return "unavailable"
	}
}

// SummarizeAttempts renders a chain's failures for a log line, e.g.
// "ndbc: unexpected status 404; openweather: rate limited".
func SummarizeAttempts(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		if a.Err == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", a.Source, a.Err))
	}
	return strings.Join(parts, "; ")
}
