package api_test

import (
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clb9/swellstrike/internal/api"
	"github.com/clb9/swellstrike/internal/conditions"
	"github.com/clb9/swellstrike/internal/ingest"
	"github.com/clb9/swellstrike/internal/locations"
	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/store"
)

type testEnv struct {
	server   *api.Server
	cache    *conditions.Cache
	detector *conditions.Detector
	store    *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}

	cache := conditions.NewCache()
	detector := conditions.NewDetector(70, 45*time.Minute)
	scheduler := ingest.NewScheduler(ingest.Config{
		Store:    st,
		Cache:    cache,
		Detector: detector,
	})

	server := api.NewServer(api.Config{
		Cache:     cache,
		Detector:  detector,
		Store:     st,
		Scheduler: scheduler,
		Locations: locations.Defaults(),
		Interval:  15 * time.Minute,
	})
	return &testEnv{server: server, cache: cache, detector: detector, store: st}
}

func findLocation(t *testing.T, id string) models.Location {
	t.Helper()
	for _, loc := range locations.Defaults() {
		if loc.ID == id {
			return loc
		}
	}
	t.Fatalf("no default location %q", id)
	return models.Location{}
}

func cachedReading(id string, domain models.Domain, score int, at time.Time) models.ScoredReading {
	return models.ScoredReading{
		Reading: models.Reading{
			LocationID: id,
			SourceID:   "ndbc",
			ObservedAt: at,
			Metrics:    map[string]float64{models.MetricWaveHeight: 2.0},
		},
		Domain:   domain,
		Score:    score,
		IsStrike: score >= 70,
		ScoredAt: at,
	}
}

func (env *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	return w
}

func TestConditionsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	now := time.Now().UTC()

	env.cache.Put(cachedReading("mavericks", models.DomainSurf, 85, now))
	env.cache.Put(cachedReading("pipeline", models.DomainSurf, 40, now))
	env.cache.Put(cachedReading("alta", models.DomainSki, 95, now))

	w := env.get(t, "/api/conditions")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var views []api.ConditionView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len(views) = %d, want 3", len(views))
	}
	// Best score first.
	if views[0].LocationID != "alta" || views[1].LocationID != "mavericks" {
		t.Errorf("order = %s, %s, %s", views[0].LocationID, views[1].LocationID, views[2].LocationID)
	}
	if views[0].Name == "" {
		t.Error("location name not joined into view")
	}

	w = env.get(t, "/api/conditions?domain=ski")
	var skiViews []api.ConditionView
	if err := json.Unmarshal(w.Body.Bytes(), &skiViews); err != nil {
		t.Fatalf("unmarshal ski: %v", err)
	}
	if len(skiViews) != 1 || skiViews[0].LocationID != "alta" {
		t.Errorf("ski views = %+v", skiViews)
	}

	if w := env.get(t, "/api/conditions?domain=golf"); w.Code != 400 {
		t.Errorf("bogus domain status = %d, want 400", w.Code)
	}
}

func TestConditionsEndpointEmpty(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.get(t, "/api/conditions")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty cache body = %q, want []", body)
	}
}

func TestConditionEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	now := time.Now().UTC()
	env.cache.Put(cachedReading("mavericks", models.DomainSurf, 85, now))

	w := env.get(t, "/api/conditions/mavericks")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var view api.ConditionView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if view.Score != 85 || !view.IsStrike || view.Source != "ndbc" {
		t.Errorf("view = %+v", view)
	}

	if w := env.get(t, "/api/conditions/atlantis"); w.Code != 404 {
		t.Errorf("unknown location status = %d, want 404", w.Code)
	}
	// Known location with no data yet is also a 404, not an empty object.
	if w := env.get(t, "/api/conditions/pipeline"); w.Code != 404 {
		t.Errorf("no-data location status = %d, want 404", w.Code)
	}
}

func TestStrikesEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	now := time.Now().UTC()

	// One open strike via the detector.
	env.detector.Observe(findLocation(t, "pipeline"), 85, now)

	// One closed strike in the store.
	ended := now.Add(-time.Hour)
	if err := env.store.UpsertStrikeEvent(models.StrikeEvent{
		LocationID: "mavericks",
		Domain:     models.DomainSurf,
		StartedAt:  now.Add(-3 * time.Hour),
		EndedAt:    &ended,
		PeakScore:  92,
		PeakAt:     now.Add(-2 * time.Hour),
	}, now); err != nil {
		t.Fatalf("UpsertStrikeEvent: %v", err)
	}

	w := env.get(t, "/api/strikes")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var data api.StrikesData
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(data.Active) != 1 || data.Active[0].LocationID != "pipeline" {
		t.Fatalf("active = %+v", data.Active)
	}
	if data.Active[0].CurrentScore == nil || *data.Active[0].CurrentScore != 85 {
		t.Errorf("active current_score = %v, want 85", data.Active[0].CurrentScore)
	}
	if len(data.Recent) != 1 || data.Recent[0].LocationID != "mavericks" {
		t.Fatalf("recent = %+v", data.Recent)
	}
	if data.Recent[0].EndedAt == nil || data.Recent[0].PeakScore != 92 {
		t.Errorf("recent[0] = %+v", data.Recent[0])
	}

	// A ski filter excludes both surf events.
	w = env.get(t, "/api/strikes?domain=ski")
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("unmarshal ski: %v", err)
	}
	if len(data.Active) != 0 || len(data.Recent) != 0 {
		t.Errorf("ski strikes = %+v", data)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		sr := cachedReading("mavericks", models.DomainSurf, 50+i, now.Add(-time.Duration(i)*time.Hour))
		if err := env.store.SaveSnapshot(sr); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	w := env.get(t, "/api/history/mavericks")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var views []api.ConditionView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len(views) = %d, want 3", len(views))
	}
	if views[0].Score != 50 {
		t.Errorf("newest score = %d, want 50", views[0].Score)
	}

	// A narrow window trims the older snapshots.
	w = env.get(t, "/api/history/mavericks?hours=2")
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal narrow: %v", err)
	}
	if len(views) != 2 {
		t.Errorf("narrow window len = %d, want 2", len(views))
	}

	if w := env.get(t, "/api/history/mavericks?hours=0"); w.Code != 400 {
		t.Errorf("hours=0 status = %d, want 400", w.Code)
	}
	if w := env.get(t, "/api/history/atlantis"); w.Code != 404 {
		t.Errorf("unknown location status = %d, want 404", w.Code)
	}
}

func TestCyclesEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	base := time.Now().UTC().Add(-time.Hour)

	results := []models.CycleResult{
		{State: models.CycleCompleted, StartedAt: base, FinishedAt: base.Add(20 * time.Second), Succeeded: 9},
		{State: models.CyclePartiallyFailed, StartedAt: base.Add(15 * time.Minute), FinishedAt: base.Add(15*time.Minute + 10*time.Second), Succeeded: 8, Failed: 1},
	}
	for _, res := range results {
		if err := env.store.RecordCycle(res); err != nil {
			t.Fatalf("RecordCycle: %v", err)
		}
	}

	w := env.get(t, "/api/cycles")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var views []api.CycleView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}
	if views[0].State != "partially_failed" || views[0].Failed != 1 {
		t.Errorf("newest cycle = %+v", views[0])
	}
	if views[1].DurationSeconds != 20 {
		t.Errorf("duration = %v, want 20", views[1].DurationSeconds)
	}
}

func TestHealthzLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// Before any cycle: degraded.
	w := env.get(t, "/healthz")
	if w.Code != 503 {
		t.Fatalf("pre-cycle status = %d, want 503", w.Code)
	}
	var health api.HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if health.Status != "degraded" || health.AgeSeconds != -1 {
		t.Errorf("health = %+v", health)
	}

	// Fresh cycle: ok.
	env.cache.SetLastCycleCompleted(time.Now().UTC())
	w = env.get(t, "/healthz")
	if w.Code != 200 {
		t.Fatalf("fresh status = %d, want 200", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("unmarshal fresh: %v", err)
	}
	if health.Status != "ok" || health.LastCycleAt == nil {
		t.Errorf("fresh health = %+v", health)
	}

	// Last cycle too long ago (interval is 15m, threshold 2x): degraded.
	env.cache.SetLastCycleCompleted(time.Now().UTC().Add(-2 * time.Hour))
	w = env.get(t, "/healthz")
	if w.Code != 503 {
		t.Fatalf("stale status = %d, want 503", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("unmarshal stale: %v", err)
	}
	if health.Status != "degraded" || health.AgeSeconds < 7000 {
		t.Errorf("stale health = %+v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.get(t, "/metrics")
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "# HELP") {
		t.Error("expected Prometheus exposition format")
	}
}
