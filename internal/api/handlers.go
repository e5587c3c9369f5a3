package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHistoryHours = 72
	maxHistoryHours     = 24 * 30
	historyLimit        = 500
	recentStrikesLimit  = 50
	recentCyclesLimit   = 20
)

func (s *Server) handleConditions(w http.ResponseWriter, r *http.Request) {
	domain, err := parseDomain(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries := s.cache.ByDomain(domain)
	views := make([]ConditionView, 0, len(entries))
	for _, sr := range entries {
		views = append(views, conditionView(sr, s.locations[sr.LocationID]))
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Score != views[j].Score {
			return views[i].Score > views[j].Score
		}
		return views[i].LocationID < views[j].LocationID
	})

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCondition(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/conditions/")
	loc, ok := s.locations[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown location "+strconv.Quote(id))
		return
	}

	sr, ok := s.cache.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no reading yet for "+strconv.Quote(id))
		return
	}
	writeJSON(w, http.StatusOK, conditionView(sr, loc))
}

func (s *Server) handleStrikes(w http.ResponseWriter, r *http.Request) {
	domain, err := parseDomain(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data := StrikesData{
		Active: make([]StrikeView, 0),
		Recent: make([]StrikeView, 0),
	}

	for _, evt := range s.detector.ActiveStrikes(domain) {
		view := strikeView(evt, s.locations[evt.LocationID].Name)
		if score, ok := s.detector.CurrentScore(evt.LocationID); ok {
			view.CurrentScore = &score
		}
		data.Active = append(data.Active, view)
	}

	events, err := s.store.RecentStrikeEvents(domain, recentStrikesLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, evt := range events {
		if evt.Open() {
			continue
		}
		data.Recent = append(data.Recent, strikeView(evt, s.locations[evt.LocationID].Name))
	}

	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	loc, ok := s.locations[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown location "+strconv.Quote(id))
		return
	}

	hours := defaultHistoryHours
	if q := r.URL.Query().Get("hours"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > maxHistoryHours {
			writeError(w, http.StatusBadRequest, "hours must be between 1 and "+strconv.Itoa(maxHistoryHours))
			return
		}
		hours = n
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	history, err := s.store.SnapshotHistory(id, since, historyLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]ConditionView, 0, len(history))
	for _, sr := range history {
		views = append(views, conditionView(sr, loc))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.RecentCycles(recentCyclesLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]CycleView, 0, len(records))
	for _, rec := range records {
		views = append(views, CycleView{
			ID:              rec.ID,
			State:           rec.State,
			StartedAt:       rec.StartedAt,
			FinishedAt:      rec.FinishedAt,
			DurationSeconds: rec.FinishedAt.Sub(rec.StartedAt).Seconds(),
			Succeeded:       rec.Succeeded,
			Failed:          rec.Failed,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
