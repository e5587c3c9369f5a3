package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

// Adapter is one upstream provider. Fetch must be free of side effects beyond
// the network call itself; it never touches shared state.
type Adapter interface {
	ID() string
	Supports(loc models.Location) bool
	Fetch(ctx context.Context, loc models.Location) (models.Reading, error)
}

// Resolve tries each adapter in the chain in preference order and returns the
// first valid reading. Attempts records every call made, including the
// successful one, for logging and metrics; earlier failures are never part of
// the returned error. When the whole chain fails the error wraps
// ErrNoSourceAvailable and the caller leaves the location's cache entry
// alone.
func Resolve(ctx context.Context, loc models.Location, chain []Adapter) (models.Reading, []Attempt, error) {
	var attempts []Attempt

	for _, a := range chain {
		if !a.Supports(loc) {
			continue
		}

		start := time.Now()
		reading, err := a.Fetch(ctx, loc)
		dur := time.Since(start)

		if err != nil {
			attempts = append(attempts, Attempt{Source: a.ID(), Err: err, Duration: dur})
			continue
		}
		if !reading.Valid() {
			attempts = append(attempts, Attempt{
				Source:   a.ID(),
				Err:      NewPayloadError(a.ID(), "reading carries no metrics", nil),
				Duration: dur,
			})
			continue
		}

		attempts = append(attempts, Attempt{Source: a.ID(), Duration: dur})
		return reading, attempts, nil
	}

	if len(attempts) == 0 {
		return models.Reading{}, nil, fmt.Errorf("%w: no adapter covers location %s", ErrNoSourceAvailable, loc.ID)
	}
	return models.Reading{}, attempts, fmt.Errorf("%w: location %s: %s", ErrNoSourceAvailable, loc.ID, SummarizeAttempts(attempts))
}
