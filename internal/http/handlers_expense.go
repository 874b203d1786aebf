package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
)

type expenseRequest struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

// principal returns the authenticated caller. The auth middleware guarantees
// it is present on every secured route.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// parseIDParam reads the {id} path segment as a positive integer.
func parseIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := s.svc.Create(r.Context(), principal(r), req.Category, req.Amount, req.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Expense created",
		"expense_id", e.ID,
		"category", e.Category,
		"amount", e.Amount,
		"date", e.Date)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context(), principal(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	e, err := s.svc.Get(r.Context(), principal(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := s.svc.Update(r.Context(), principal(r), id, req.Category, req.Amount, req.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	slog.InfoContext(r.Context(), "Expense updated", "expense_id", id)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	found, err := s.svc.Delete(r.Context(), principal(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	slog.InfoContext(r.Context(), "Expense deleted", "expense_id", id)
	w.WriteHeader(http.StatusNoContent)
}
