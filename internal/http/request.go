package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("request body must be a JSON object")

// expenseRequest is the POST body. Amount may be a JSON number or a string.
type expenseRequest struct {
	ID          string          `json:"id"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

// decodeJSON reads a single JSON object from the body into dst. An empty body
// leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return core.NewValidationError("", fmt.Errorf("read request body: %w", err))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return core.NewValidationError("", errMalformedBody)
	}
	return nil
}

// toExpense converts the request to a record. Field presence is checked by
// the service.
func (req expenseRequest) toExpense() (core.Expense, error) {
	e := core.Expense{
		ID:          sanitizeInput(req.ID),
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		Date:        strings.TrimSpace(req.Date),
	}

	amount, err := parseJSONAmount(req.Amount)
	if err != nil {
		return core.Expense{}, core.NewValidationError("amount", err)
	}
	e.Amount = amount
	return e, nil
}

func parseJSONAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, core.ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, core.ErrInvalidAmount
		}
		return core.ParseAmount(s)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return core.NormalizeAmount(d)
}

// expenseFromForm builds a record from the dashboard form.
func expenseFromForm(form url.Values) (core.Expense, error) {
	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return core.Expense{}, core.NewValidationError("amount", err)
	}
	return core.Expense{
		Amount:      amount,
		Description: sanitizeInput(form.Get("description")),
		Category:    sanitizeInput(form.Get("category")),
		Date:        strings.TrimSpace(form.Get("date")),
	}, nil
}

// Dashboard forms echo the active filter back under these prefixed names so
// they do not collide with the expense fields.
const formFilterPrefix = "f_"

// filterFromValues reads the list controls from q, category and window, each
// name prefixed with prefix. Unknown windows fall back to all.
func filterFromValues(v url.Values, prefix string) core.Filter {
	w, err := core.ParseWindow(v.Get(prefix + "window"))
	if err != nil {
		w = core.WindowAll
	}
	category := strings.TrimSpace(v.Get(prefix + "category"))
	if category == "" {
		category = core.AllCategories
	}
	return core.Filter{
		Search:   strings.TrimSpace(v.Get(prefix + "q")),
		Category: category,
		Window:   w,
	}
}

// filterQuery encodes f for a redirect back to the dashboard, leaving out
// defaults.
func filterQuery(f core.Filter) string {
	v := url.Values{}
	if f.Search != "" {
		v.Set("q", f.Search)
	}
	if f.Category != "" && f.Category != core.AllCategories {
		v.Set("category", f.Category)
	}
	if f.Window != "" && f.Window != core.WindowAll {
		v.Set("window", string(f.Window))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
