package api

import (
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

// ConditionView is the JSON shape for one location's latest scored reading.
type ConditionView struct {
	LocationID string             `json:"location_id"`
	Name       string             `json:"name,omitempty"`
	Domain     string             `json:"domain"`
	Score      int                `json:"score"`
	IsStrike   bool               `json:"is_strike"`
	Source     string             `json:"source"`
	ObservedAt time.Time          `json:"observed_at"`
	ScoredAt   time.Time          `json:"scored_at"`
	Metrics    map[string]float64 `json:"metrics"`
	Flags      []string           `json:"flags,omitempty"`
}

func conditionView(sr models.ScoredReading, loc models.Location) ConditionView {
	return ConditionView{
		LocationID: sr.LocationID,
		Name:       loc.Name,
		Domain:     string(sr.Domain),
		Score:      sr.Score,
		IsStrike:   sr.IsStrike,
		Source:     sr.SourceID,
		ObservedAt: sr.ObservedAt,
		ScoredAt:   sr.ScoredAt,
		Metrics:    sr.Metrics,
		Flags:      sr.Flags,
	}
}

// StrikeView is the JSON shape for one strike event. CurrentScore is set
// only for events that are still open.
type StrikeView struct {
	LocationID   string     `json:"location_id"`
	Name         string     `json:"name,omitempty"`
	Domain       string     `json:"domain"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	PeakScore    int        `json:"peak_score"`
	PeakAt       time.Time  `json:"peak_at"`
	CurrentScore *int       `json:"current_score,omitempty"`
}

func strikeView(evt models.StrikeEvent, name string) StrikeView {
	return StrikeView{
		LocationID: evt.LocationID,
		Name:       name,
		Domain:     string(evt.Domain),
		StartedAt:  evt.StartedAt,
		EndedAt:    evt.EndedAt,
		PeakScore:  evt.PeakScore,
		PeakAt:     evt.PeakAt,
	}
}

// StrikesData is the /api/strikes response: open events first, then a tail
// of recently closed ones.
type StrikesData struct {
	Active []StrikeView `json:"active"`
	Recent []StrikeView `json:"recent"`
}

// CycleView is the JSON shape for one refresh cycle audit row.
type CycleView struct {
	ID              int64     `json:"id"`
	State           string    `json:"state"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Succeeded       int       `json:"succeeded"`
	Failed          int       `json:"failed"`
}

// HealthStatus is the /healthz response.
type HealthStatus struct {
	Status      string     `json:"status"`
	CycleState  string     `json:"cycle_state"`
	LastCycleAt *time.Time `json:"last_cycle_at,omitempty"`
	AgeSeconds  int        `json:"age_seconds"`
	Locations   int        `json:"locations"`
	Tracked     int        `json:"tracked"`
}
