// Package ingest drives the refresh loop: resolve each location through its
// source chain, score the reading, update the cache and strike detector, and
// persist the results.
package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/clb9/swellstrike/internal/conditions"
	"github.com/clb9/swellstrike/internal/metrics"
	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/scoring"
	"github.com/clb9/swellstrike/internal/sources"
	"github.com/clb9/swellstrike/internal/store"
)

// ErrCycleInProgress is returned by RunCycle when the previous cycle has not
// finished. The ticker path counts these as skips instead of queueing work.
var ErrCycleInProgress = errors.New("ingest: refresh cycle already in progress")

const (
	DefaultInterval     = 15 * time.Minute
	DefaultConcurrency  = 4
	DefaultFetchTimeout = 15 * time.Second

	snapshotRetention = 30 * 24 * time.Hour
	payloadRetention  = 7 * 24 * time.Hour
)

// Config wires a Scheduler. Locations and Chains describe what to refresh;
// everything else has a default.
type Config struct {
	Store     *store.Store
	Cache     *conditions.Cache
	Detector  *conditions.Detector
	Locations []models.Location
	// Chains maps location ID to its ordered source fallback chain.
	Chains map[string][]sources.Adapter

	Interval     time.Duration
	Concurrency  int
	FetchTimeout time.Duration
}

type Scheduler struct {
	store        *store.Store
	cache        *conditions.Cache
	detector     *conditions.Detector
	locations    []models.Location
	chains       map[string][]sources.Adapter
	interval     time.Duration
	concurrency  int
	fetchTimeout time.Duration

	mu         sync.Mutex
	running    bool
	lastResult models.CycleResult
	hasResult  bool
}

func NewScheduler(cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Scheduler{
		store:        cfg.Store,
		cache:        cfg.Cache,
		detector:     cfg.Detector,
		locations:    cfg.Locations,
		chains:       cfg.Chains,
		interval:     cfg.Interval,
		concurrency:  cfg.Concurrency,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// State reports whether a cycle is currently executing.
func (s *Scheduler) State() models.CycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return models.CycleRunning
	}
	if s.hasResult {
		return s.lastResult.State
	}
	return models.CycleIdle
}

// LastResult returns the most recent cycle outcome, if any cycle has run.
func (s *Scheduler) LastResult() (models.CycleResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.hasResult
}

// Run executes one cycle immediately, then one per interval until the
// context is cancelled. A tick that lands while the previous cycle is still
// running is skipped, never queued.
func (s *Scheduler) Run(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("scheduler: initial cycle: %v", err)
	}

	ticker := clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ticker.Chan():
			if _, err := s.RunCycle(ctx); err != nil {
				if errors.Is(err, ErrCycleInProgress) {
					metrics.CyclesSkipped.Inc()
					log.Println("scheduler: previous cycle still running, skipping tick")
					continue
				}
				if !errors.Is(err, context.Canceled) {
					log.Printf("scheduler: cycle: %v", err)
				}
			}
		}
	}
}

// RunCycle refreshes every location once and blocks until the cycle reaches
// a terminal state. Locations run concurrently, bounded by the configured
// limit; one location's failure never aborts the others.
func (s *Scheduler) RunCycle(ctx context.Context) (models.CycleResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return models.CycleResult{}, ErrCycleInProgress
	}
	s.running = true
	s.mu.Unlock()

	started := clock.Now().UTC()
	log.Printf("scheduler: starting refresh cycle for %d locations", len(s.locations))

	errs := make([]error, len(s.locations))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, loc := range s.locations {
		wg.Add(1)
		go func(i int, loc models.Location) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[i] = s.processLocation(ctx, loc)
		}(i, loc)
	}
	wg.Wait()

	now := clock.Now().UTC()
	res := models.CycleResult{
		StartedAt:  started,
		FinishedAt: now,
	}
	for i, err := range errs {
		if err == nil {
			res.Succeeded++
			continue
		}
		res.Failed++
		log.Printf("scheduler: %s: %v", s.locations[i].ID, err)
	}
	if res.Failed > 0 {
		res.State = models.CyclePartiallyFailed
	} else {
		res.State = models.CycleCompleted
	}

	s.sweepSilent(now)
	s.updateStrikeGauges()
	s.cache.SetLastCycleCompleted(now)

	if err := s.store.RecordCycle(res); err != nil {
		log.Printf("scheduler: record cycle: %v", err)
	}
	s.prune(now)

	metrics.CyclesTotal.WithLabelValues(res.State.String()).Inc()
	metrics.CycleDuration.Observe(res.Duration().Seconds())
	log.Printf("scheduler: cycle %s in %s (%d ok, %d failed)",
		res.State, res.Duration().Round(time.Millisecond), res.Succeeded, res.Failed)

	s.mu.Lock()
	s.running = false
	s.lastResult = res
	s.hasResult = true
	s.mu.Unlock()

	return res, nil
}

// processLocation resolves one location through its chain and feeds the
// result through scoring, the cache, and the strike detector.
func (s *Scheduler) processLocation(ctx context.Context, loc models.Location) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	reading, attempts, err := sources.Resolve(fetchCtx, loc, s.chains[loc.ID])
	s.recordAttempts(loc, attempts)

	if err != nil {
		// The cache keeps its previous entry; stale data stays served.
		return err
	}

	now := clock.Now().UTC()
	flags := sources.QualityFlags(reading, now)
	for _, flag := range flags {
		metrics.QualityFlagsTotal.WithLabelValues(flag).Inc()
	}

	table := scoring.ForDomain(loc.Domain)
	score := table.Score(reading)
	sr := models.ScoredReading{
		Reading:  reading,
		Domain:   loc.Domain,
		Score:    score,
		IsStrike: table.IsStrike(score),
		Flags:    flags,
		ScoredAt: now,
	}

	s.cache.Put(sr)
	metrics.LocationScore.WithLabelValues(loc.ID, string(loc.Domain)).Set(float64(score))

	evt, tr := s.detector.Observe(loc, score, now)
	if tr != conditions.TransitionNone {
		metrics.StrikeTransitionsTotal.WithLabelValues(string(loc.Domain), tr.String()).Inc()
		log.Printf("scheduler: %s: strike %s (score %d, peak %d)", loc.ID, tr, score, evt.PeakScore)
		if err := s.store.UpsertStrikeEvent(evt, now); err != nil {
			log.Printf("scheduler: persist strike event %s: %v", loc.ID, err)
		}
	}

	if err := s.store.SaveSnapshot(sr); err != nil {
		log.Printf("scheduler: save snapshot %s: %v", loc.ID, err)
	}

	log.Printf("scheduler: %s: score %d via %s", loc.ID, score, reading.SourceID)
	return nil
}

// recordAttempts emits per-source metrics and persists payload excerpts from
// malformed responses so they can be inspected later.
func (s *Scheduler) recordAttempts(loc models.Location, attempts []sources.Attempt) {
	now := clock.Now().UTC()
	for _, att := range attempts {
		metrics.FetchesTotal.WithLabelValues(att.Source, att.Outcome()).Inc()
		metrics.FetchLatency.WithLabelValues(att.Source).Observe(att.Duration.Seconds())

		var perr *sources.PayloadError
		if errors.As(att.Err, &perr) {
			if err := s.store.SavePayloadFailure(loc.ID, perr.Source, perr.Reason, perr.Excerpt, now); err != nil {
				log.Printf("scheduler: save payload failure %s: %v", loc.ID, err)
			}
		}
	}
}

// sweepSilent force-closes strike events for locations that have gone quiet
// longer than the detector's silence window.
func (s *Scheduler) sweepSilent(now time.Time) {
	for _, evt := range s.detector.Sweep(now) {
		metrics.StrikeTransitionsTotal.WithLabelValues(string(evt.Domain), "closed").Inc()
		log.Printf("scheduler: %s: strike closed after silence (peak %d)", evt.LocationID, evt.PeakScore)
		if err := s.store.UpsertStrikeEvent(evt, now); err != nil {
			log.Printf("scheduler: persist swept strike %s: %v", evt.LocationID, err)
		}
	}
}

func (s *Scheduler) updateStrikeGauges() {
	for _, domain := range []models.Domain{models.DomainSurf, models.DomainSki} {
		open := s.detector.ActiveStrikes(domain)
		metrics.ActiveStrikes.WithLabelValues(string(domain)).Set(float64(len(open)))
	}
}

func (s *Scheduler) prune(now time.Time) {
	if n, err := s.store.PruneSnapshots(snapshotRetention, now); err != nil {
		log.Printf("scheduler: prune snapshots: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: pruned %d old snapshots", n)
	}
	if n, err := s.store.PrunePayloadFailures(payloadRetention, now); err != nil {
		log.Printf("scheduler: prune payload failures: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: pruned %d old payload failures", n)
	}
}
