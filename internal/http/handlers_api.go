package http

import (
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// handleListExpenses answers GET /api/expenses with every record, most recent
// date first.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.ListExpenses(r.Context())
	if err != nil {
		respondError(w, r, err, applog.OpList)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// handleCreateExpense answers POST /api/expenses.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, applog.OpParse)
		return
	}

	e, err := req.toExpense()
	if err != nil {
		respondError(w, r, err, applog.OpCreate)
		return
	}

	created, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		respondError(w, r, err, applog.OpCreate)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "Expense added successfully", ID: created.ID})
}

// handleDeleteExpense answers DELETE /api/expenses. The id comes from the JSON
// body, or from the id query parameter when the body is empty.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, applog.OpParse)
		return
	}
	id := sanitizeInput(req.ID)
	if id == "" {
		id = sanitizeInput(r.URL.Query().Get("id"))
	}

	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		respondError(w, r, err, applog.OpDelete)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Expense deleted successfully"})
}

// handleSummary answers GET /api/summary?window=&category=&q=.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if _, err := core.ParseWindow(query.Get("window")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.expenses.Summarize(r.Context(), filterFromValues(query, ""))
	if err != nil {
		respondError(w, r, err, applog.OpSummary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleCategories answers GET /api/categories with the catalogue.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.expenses.Catalogue())
}
