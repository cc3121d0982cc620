package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO 8601 calendar date format used for stored dates.
const DateLayout = "2006-01-02"

func init() {
	// Process-wide: amounts travel as JSON numbers, matching the stored REAL
	// column.
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	// Expense is one persisted spending event. Records are immutable once stored.
	Expense struct {
		ID          string          `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        string          `json:"date"`
	}
)

var (
	ErrMissingID        = errors.New("expense id is required")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrEmptyDescription = errors.New("description is required")
	ErrEmptyCategory    = errors.New("category is required")
	ErrMissingDate      = errors.New("date is required")
	ErrInvalidDate      = errors.New("date must be formatted as YYYY-MM-DD")
	ErrDuplicateID      = errors.New("an expense with this id already exists")
)

// Validate checks every mandatory field. The category is not checked against
// the catalogue.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return NewValidationError("id", ErrMissingID)
	}
	return e.ValidateFields()
}

// ValidateFields validates everything except the id, for callers that assign
// the id after validation.
func (e Expense) ValidateFields() error {
	if !amountInRange(e.Amount) {
		return NewValidationError("amount", ErrInvalidAmount)
	}
	if strings.TrimSpace(e.Description) == "" {
		return NewValidationError("description", ErrEmptyDescription)
	}
	if strings.TrimSpace(e.Category) == "" {
		return NewValidationError("category", ErrEmptyCategory)
	}
	if strings.TrimSpace(e.Date) == "" {
		return NewValidationError("date", ErrMissingDate)
	}
	if _, err := ParseDate(e.Date, time.UTC); err != nil {
		return NewValidationError("date", ErrInvalidDate)
	}
	return nil
}

// ParseDate parses an ISO calendar date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
