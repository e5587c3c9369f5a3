// Package api serves the condition and strike endpoints. Reads come from
// the in-memory cache and detector; only history endpoints touch the store.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clb9/swellstrike/internal/conditions"
	"github.com/clb9/swellstrike/internal/ingest"
	"github.com/clb9/swellstrike/internal/models"
	"github.com/clb9/swellstrike/internal/store"
)

// Config wires a Server. Interval is the refresh interval, used to judge
// staleness in /healthz.
type Config struct {
	Cache     *conditions.Cache
	Detector  *conditions.Detector
	Store     *store.Store
	Scheduler *ingest.Scheduler
	Locations []models.Location
	Port      string
	Interval  time.Duration
}

type Server struct {
	cache     *conditions.Cache
	detector  *conditions.Detector
	store     *store.Store
	scheduler *ingest.Scheduler
	locations map[string]models.Location
	port      string
	interval  time.Duration
}

func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = ingest.DefaultInterval
	}
	locs := make(map[string]models.Location, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		locs[loc.ID] = loc
	}
	return &Server{
		cache:     cfg.Cache,
		detector:  cfg.Detector,
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		locations: locs,
		port:      cfg.Port,
		interval:  cfg.Interval,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/conditions", s.handleConditions)
	mux.HandleFunc("/api/conditions/", s.handleCondition)
	mux.HandleFunc("/api/strikes", s.handleStrikes)
	mux.HandleFunc("/api/history/", s.handleHistory)
	mux.HandleFunc("/api/cycles", s.handleCycles)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleHealthz reports degraded once no cycle has completed within two
// refresh intervals, which catches both a stuck scheduler and a freshly
// booted process that has not finished its first cycle.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthStatus{
		Status:     "ok",
		CycleState: s.scheduler.State().String(),
		AgeSeconds: -1,
		Locations:  len(s.locations),
		Tracked:    s.cache.Len(),
	}

	last, ok := s.cache.LastCycleCompleted()
	if !ok {
		resp.Status = "degraded"
	} else {
		age := time.Since(last)
		resp.LastCycleAt = &last
		resp.AgeSeconds = int(age.Seconds())
		if age > 2*s.interval {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func parseDomain(r *http.Request) (models.Domain, error) {
	switch q := r.URL.Query().Get("domain"); q {
	case "":
		return "", nil
	case string(models.DomainSurf):
		return models.DomainSurf, nil
	case string(models.DomainSki):
		return models.DomainSki, nil
	default:
		return "", fmt.Errorf("unknown domain %q", q)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
