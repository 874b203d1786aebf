package http

import (
	"net/http"
	"strconv"
	"strings"

	"spendtrack/internal/core"
)

type totalResponse struct {
	Total float64 `json:"total"`
}

func (s *Server) handleStatsDay(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	total, err := s.svc.TotalForDay(r.Context(), principal(r), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (s *Server) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required")
		return
	}

	total, err := s.svc.TotalForRange(r.Context(), principal(r), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (s *Server) handleStatsYear(w http.ResponseWriter, r *http.Request) {
	year := strings.TrimSpace(r.URL.Query().Get("year"))
	if year == "" {
		writeError(w, http.StatusBadRequest, "year query parameter is required")
		return
	}

	total, err := s.svc.TotalForYear(r.Context(), principal(r), year)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (s *Server) handleStatsCategories(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	rows, err := s.svc.CategoryBreakdown(r.Context(), principal(r), category)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleStatsLatest(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	rows, err := s.svc.Latest(r.Context(), principal(r), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, rows)
}
