package conditions

import (
	"sort"
	"sync"
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

// Transition labels what Observe did with a score.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionOnset
	TransitionPeak
	TransitionClosed
)

func (t Transition) String() string {
	switch t {
	case TransitionOnset:
		return "onset"
	case TransitionPeak:
		return "peak"
	case TransitionClosed:
		return "closed"
	default:
		return "none"
	}
}

// strikeState is one location's detector state. A nil event means NoStrike.
type strikeState struct {
	event     *models.StrikeEvent
	lastScore int
	lastSeen  time.Time
}

type strikeShard struct {
	mu     sync.Mutex
	states map[string]*strikeState
}

// Detector tracks, per location, whether the score currently sits at or above
// the strike threshold, turning score sequences into open/close events. It
// enforces the core invariant of at most one open event per location. Sharded
// like the cache so one location's transition never blocks another's readers.
type Detector struct {
	threshold int
	silence   time.Duration
	shards    [shardCount]strikeShard
}

// NewDetector builds a detector. silence is how long an Active location may
// go without a successful reading before its open event is force-closed.
func NewDetector(threshold int, silence time.Duration) *Detector {
	d := &Detector{threshold: threshold, silence: silence}
	for i := range d.shards {
		d.shards[i].states = make(map[string]*strikeState)
	}
	return d
}

// Observe feeds one successful score into the state machine. The returned
// event is a copy the caller can persist: the open event at onset, the
// updated open event on a new peak, or the closed event when the score falls
// below threshold. Locations that produced no reading this cycle are simply
// not observed and keep their state; absence of data is not evidence of
// resolution.
func (d *Detector) Observe(loc models.Location, score int, at time.Time) (models.StrikeEvent, Transition) {
	sh := &d.shards[shardIndex(loc.ID)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st := sh.states[loc.ID]
	if st == nil {
		st = &strikeState{}
		sh.states[loc.ID] = st
	}
	st.lastScore = score
	st.lastSeen = at

	switch {
	case st.event == nil && score >= d.threshold:
		st.event = &models.StrikeEvent{
			LocationID: loc.ID,
			Domain:     loc.Domain,
			StartedAt:  at,
			PeakScore:  score,
			PeakAt:     at,
		}
		return *st.event, TransitionOnset

	case st.event != nil && score >= d.threshold:
		if score > st.event.PeakScore {
			st.event.PeakScore = score
			st.event.PeakAt = at
			return *st.event, TransitionPeak
		}
		return models.StrikeEvent{}, TransitionNone

	case st.event != nil && score < d.threshold:
		ended := at
		st.event.EndedAt = &ended
		closed := *st.event
		st.event = nil
		return closed, TransitionClosed
	}

	return models.StrikeEvent{}, TransitionNone
}

// Sweep force-closes open events whose location has been silent longer than
// the configured limit, so a permanently dead source cannot hold a strike
// open forever. The interval ends at lastSeen+silence: the close reflects the
// data we had, not when the sweep happened to run.
func (d *Detector) Sweep(now time.Time) []models.StrikeEvent {
	var closed []models.StrikeEvent
	for i := range d.shards {
		sh := &d.shards[i]
		sh.mu.Lock()
		for _, st := range sh.states {
			if st.event == nil {
				continue
			}
			if now.Sub(st.lastSeen) <= d.silence {
				continue
			}
			ended := st.lastSeen.Add(d.silence)
			st.event.EndedAt = &ended
			closed = append(closed, *st.event)
			st.event = nil
		}
		sh.mu.Unlock()
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].LocationID < closed[j].LocationID })
	return closed
}

// ActiveStrikes returns copies of the open events in a domain, best score
// first. An empty domain matches everything.
func (d *Detector) ActiveStrikes(domain models.Domain) []models.StrikeEvent {
	type ranked struct {
		event models.StrikeEvent
		score int
	}
	var open []ranked

	for i := range d.shards {
		sh := &d.shards[i]
		sh.mu.Lock()
		for _, st := range sh.states {
			if st.event == nil {
				continue
			}
			if domain != "" && st.event.Domain != domain {
				continue
			}
			open = append(open, ranked{event: *st.event, score: st.lastScore})
		}
		sh.mu.Unlock()
	}

	sort.Slice(open, func(i, j int) bool {
		if open[i].score != open[j].score {
			return open[i].score > open[j].score
		}
		return open[i].event.LocationID < open[j].event.LocationID
	})

	events := make([]models.StrikeEvent, len(open))
	for i, r := range open {
		events[i] = r.event
	}
	return events
}

// CurrentScore reports the last observed score for a location, if any.
func (d *Detector) CurrentScore(locationID string) (int, bool) {
	sh := &d.shards[shardIndex(locationID)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.states[locationID]
	if !ok {
		return 0, false
	}
	return st.lastScore, true
}

// Restore seeds the detector with events that were open when the process
// last stopped. lastSeen starts at asOf, giving each restored event one full
// silence window to produce fresh data before the sweep may close it.
func (d *Detector) Restore(events []models.StrikeEvent, asOf time.Time) {
	for _, evt := range events {
		if !evt.Open() {
			continue
		}
		sh := &d.shards[shardIndex(evt.LocationID)]
		sh.mu.Lock()
		e := evt
		sh.states[evt.LocationID] = &strikeState{
			event:     &e,
			lastScore: evt.PeakScore,
			lastSeen:  asOf,
		}
		sh.mu.Unlock()
	}
}
