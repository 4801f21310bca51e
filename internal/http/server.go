// Package http exposes the budget services as a JSON API. It is a thin
// adapter: every handler parses, delegates to a service, and renders.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ingest"
	"budget/internal/limits"
	"budget/internal/storage"
)

type Server struct {
	*http.Server

	ingest      *ingest.Service
	limits      *limits.Service
	repo        *storage.SQLiteRepository
	queue       *amqp.Client // nil when AMQP is not configured
	recentLimit int
}

func NewServer(addr string, ingestSvc *ingest.Service, limitsSvc *limits.Service, repo *storage.SQLiteRepository, queue *amqp.Client, recentLimit int) *Server {
	s := &Server{
		ingest:      ingestSvc,
		limits:      limitsSvc,
		repo:        repo,
		queue:       queue,
		recentLimit: recentLimit,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions", s.handleRecentTransactions)
	mux.HandleFunc("GET /transactions/search", s.handleSearchTransactions)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /import", s.handleImport)

	mux.HandleFunc("GET /limits", s.handleListLimits)
	mux.HandleFunc("POST /limits", s.handleSetLimit)
	mux.HandleFunc("GET /limits/check", s.handleCheckLimit)

	mux.HandleFunc("GET /cards", s.handleListCards)
	mux.HandleFunc("POST /cards", s.handleAddCard)
	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("POST /categories", s.handleAddCategory)

	mux.HandleFunc("GET /balances", s.handleListBalances)
	mux.HandleFunc("PUT /balances/{source}", s.handleSetBalance)

	mux.HandleFunc("GET /reports/daily", s.handleDailyReport)
	mux.HandleFunc("GET /reports/categories", s.handleCategoryReport)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: withTrace(mux),
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP statuses: validation
// failures are the caller's fault, missing rows are 404, anything else is
// a storage-level failure worth a 500 and a log line.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// transactionResponse is the wire rendering of a persisted transaction.
// Amounts travel as decimal strings, matching the import wire format.
type transactionResponse struct {
	ID          int64             `json:"id"`
	Kind        string            `json:"kind"`
	Card        string            `json:"card,omitempty"`
	Description string            `json:"description"`
	Amount      string            `json:"amount"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Category    string            `json:"category,omitempty"`
	Source      string            `json:"import_source"`
	Metadata    map[string]string `json:"import_metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func renderTransaction(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Card:        t.Card,
		Description: t.Description,
		Amount:      t.Amount.String(),
		OccurredAt:  t.OccurredAt,
		Category:    t.Category,
		Source:      string(t.Source),
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
	}
}

func renderTransactions(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(ts))
	for i, t := range ts {
		out[i] = renderTransaction(t)
	}
	return out
}
