package http

import (
	"net/http"
	"strconv"
	"strings"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

func (s *Server) handleAdminListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListAll(r.Context(), principal(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleAdminEvents returns recent audit events, or the full history of one
// expense when the expenseId query parameter is set.
func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	if v := strings.TrimSpace(r.URL.Query().Get("expenseId")); v != "" {
		expenseID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || expenseID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid expenseId")
			return
		}
		events, err := s.svc.EventsByExpense(r.Context(), p, expenseID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeEvents(w, events)
		return
	}

	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events, err := s.svc.RecentEvents(r.Context(), p, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeEvents(w, events)
}

func writeEvents(w http.ResponseWriter, events []storage.EventRecord) {
	if events == nil {
		events = []storage.EventRecord{}
	}
	writeJSON(w, http.StatusOK, events)
}
