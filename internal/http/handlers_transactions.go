package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/storage"
)

type transactionRequest struct {
	Kind        string            `json:"kind"`
	Card        string            `json:"card"`
	Description string            `json:"description"`
	Amount      string            `json:"amount"`
	OccurredAt  *time.Time        `json:"occurred_at"`
	Category    string            `json:"category"`
	Metadata    map[string]string `json:"metadata"`
}

func (req transactionRequest) candidate() (core.Candidate, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Candidate{}, err
	}
	c := core.Candidate{
		Kind:        core.AccountKind(req.Kind),
		Card:        req.Card,
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Category:    req.Category,
		Metadata:    req.Metadata,
	}
	if req.OccurredAt != nil {
		c.OccurredAt = *req.OccurredAt
	}
	return c, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	candidate, err := req.candidate()
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.ingest.StrictAdd(r.Context(), candidate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := s.recentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	txns, err := s.repo.RecentTransactions(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTransactions(txns))
}

func (s *Server) handleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.SearchFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Card:     q.Get("card"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid 'from' date, want YYYY-MM-DD"})
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid 'to' date, want YYYY-MM-DD"})
			return
		}
		// Inclusive end-of-day bound.
		filter.To = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	if v := q.Get("min_amount"); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.MinAmount = &core.Money{Cents: cents}
	}
	if v := q.Get("max_amount"); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.MaxAmount = &core.Money{Cents: cents}
	}

	txns, err := s.repo.SearchTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTransactions(txns))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	txn, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderTransaction(txn))
}

type transactionPatchRequest struct {
	Kind        *string `json:"kind"`
	Card        *string `json:"card"`
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	patch := storage.TransactionPatch{
		Card:        req.Card,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Kind != nil {
		kind := core.AccountKind(*req.Kind)
		patch.Kind = &kind
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Amount = &core.Money{Cents: cents}
	}

	updated, err := s.repo.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !updated {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	deleted, err := s.repo.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importRequest struct {
	Source string           `json:"source"`
	Items  []amqp.BatchItem `json:"items"`
	Async  bool             `json:"async"`
}

// handleImport reconciles a batch inline, or enqueues it for the import
// worker when async delivery is requested and the queue is configured.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	source := core.ImportSource(req.Source)
	switch source {
	case core.SourceManual, core.SourcePDF, core.SourceImage, core.SourceEmail:
	default:
		writeJSON(w, http.StatusUnprocessableEntity,
			errorResponse{Error: fmt.Sprintf("unknown import source %q", req.Source)})
		return
	}

	if req.Async {
		if s.queue == nil {
			writeJSON(w, http.StatusServiceUnavailable,
				errorResponse{Error: "import queue not configured"})
			return
		}
		if err := s.queue.PublishImportBatch(r.Context(), amqp.NewImportBatchMessage(source, req.Items)); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]int{"queued": len(req.Items)})
		return
	}

	candidates := make([]core.Candidate, len(req.Items))
	for i, item := range req.Items {
		candidates[i] = item.Candidate()
	}
	stats := s.ingest.ImportBatch(r.Context(), candidates, source)
	writeJSON(w, http.StatusOK, stats)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
