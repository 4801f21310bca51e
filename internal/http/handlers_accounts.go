package http

import (
	"net/http"
	"strings"

	"budget/internal/core"
)

type nameRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "card name cannot be empty"})
		return
	}

	added, err := s.repo.AddCard(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !added {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "card already exists"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"added": true})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.repo.ListCards(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "category name cannot be empty"})
		return
	}

	added, err := s.repo.AddCategory(r.Context(), name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !added {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "category already exists"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"added": true})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.repo.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleListBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.repo.AllBalances(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make(map[string]string, len(balances))
	for source, amount := range balances {
		out[source] = amount.String()
	}
	writeJSON(w, http.StatusOK, out)
}

type balanceRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	if strings.TrimSpace(source) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "balance source required"})
		return
	}

	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.repo.SetBalance(r.Context(), source, core.Money{Cents: cents}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"source": source, "amount": core.Money{Cents: cents}.String()})
}
