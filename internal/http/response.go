package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

const internalErrorMessage = "Internal Server Error"

type messageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// respondError maps err to a status: validation failures are 400 with their
// message, everything else is a logged 500 with a generic body.
func respondError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentExpense).WarnContext(r.Context(),
			"Rejected invalid expense request",
			applog.FieldOperation, op,
			applog.FieldError, err.Error())
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}

	applog.LogError(r.Context(), "Expense request failed", err, applog.ComponentStorage, op, nil)
	writeError(w, http.StatusInternalServerError, internalErrorMessage)
}

// methodNotAllowed answers 405 listing allowed.
func methodNotAllowed(allowed ...string) http.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" Not Allowed")
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	http.NotFound(w, r)
}
