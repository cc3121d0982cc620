package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"expensetracker/internal/core"
)

// Store keeps expenses in process memory. Its ordering and validation match
// the SQLite repository.
type Store struct {
	mu    sync.Mutex
	seq   int64
	items []item
}

type item struct {
	seq     int64
	expense core.Expense
}

// New returns a store seeded with expenses, in the given insertion order.
func New(seed ...core.Expense) *Store {
	s := &Store{}
	for _, e := range seed {
		_ = s.Insert(context.Background(), e)
	}
	return s
}

// List returns all expenses by date descending; equal dates list the most
// recent insert first.
func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	sorted := append([]item(nil), s.items...)
	s.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].expense.Date != sorted[j].expense.Date {
			return sorted[i].expense.Date > sorted[j].expense.Date
		}
		return sorted[i].seq > sorted[j].seq
	})

	out := make([]core.Expense, len(sorted))
	for i, it := range sorted {
		out[i] = it.expense
	}
	return out, nil
}

// Insert stores e after validation. Duplicate ids are rejected.
func (s *Store) Insert(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.expense.ID == e.ID {
			return core.NewValidationError("id", core.ErrDuplicateID)
		}
	}
	s.seq++
	s.items = append(s.items, item{seq: s.seq, expense: e})
	return nil
}

// Delete removes the expense with id, if present.
func (s *Store) Delete(_ context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return core.NewValidationError("id", core.ErrMissingID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.expense.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
