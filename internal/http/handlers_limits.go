package http

import (
	"net/http"
	"strconv"
	"time"

	"budget/internal/core"
)

type limitRequest struct {
	Category string `json:"category"`
	Source   string `json:"source"`
	Period   string `json:"period"`
	Limit    string `json:"limit"`
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := core.SpendingLimit{
		Category: req.Category,
		Source:   req.Source,
		Period:   core.Period(req.Period),
		Limit:    core.Money{Cents: cents},
	}
	if err := s.limits.Set(r.Context(), limit); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"set": true})
}

type limitResponse struct {
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
	Period   string `json:"period"`
	Limit    string `json:"limit"`
}

func (s *Server) handleListLimits(w http.ResponseWriter, r *http.Request) {
	all, err := s.limits.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]limitResponse, len(all))
	for i, l := range all {
		out[i] = limitResponse{
			Category: l.Category,
			Source:   l.Source,
			Period:   string(l.Period),
			Limit:    l.Limit.String(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheckLimit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := core.Period(q.Get("period"))
	if period == "" {
		period = core.Monthly
	}

	status, err := s.limits.Check(r.Context(), q.Get("category"), q.Get("source"), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if status == nil {
		// Distinct from a configured limit with zero spend.
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no spending limit configured for this scope"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	totals, err := s.repo.DailySpending(r.Context(), time.Now(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	type entry struct {
		Day   string `json:"day"`
		Total string `json:"total"`
	}
	out := make([]entry, len(totals))
	for i, d := range totals {
		out[i] = entry{Day: d.Day, Total: d.Total.String()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := now.Year()
	month := now.Month()

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid year"})
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid month"})
			return
		}
		month = time.Month(n)
	}

	totals, err := s.repo.CategorySpending(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	type entry struct {
		Category string `json:"category"`
		Total    string `json:"total"`
	}
	out := make([]entry, len(totals))
	for i, c := range totals {
		out[i] = entry{Category: c.Category, Total: c.Total.String()}
	}
	writeJSON(w, http.StatusOK, out)
}
