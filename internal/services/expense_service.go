package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

// Store is the record store the service works against.
type Store interface {
	List(ctx context.Context) ([]core.Expense, error)
	Insert(ctx context.Context, e core.Expense) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher announces committed changes. It is optional.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
	Close() error
}

// View is what a list page needs: the full record set, the subset matching
// the active filter and the summary of the full set.
type View struct {
	All      []core.Expense
	Filtered []core.Expense
	Summary  core.Summary
}

// ExpenseService orchestrates expense operations across the store, the read
// cache and the optional event publisher.
type ExpenseService struct {
	store     Store
	publisher EventPublisher
	catalogue core.Catalogue
	list      *cache.Value[[]core.Expense]
	now       func() time.Time
}

// Option configures an ExpenseService.
type Option func(*ExpenseService)

// WithPublisher publishes expense events through p after each mutation.
func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithCacheTTL caches the record list for ttl. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *ExpenseService) { s.list = cache.NewValue[[]core.Expense](ttl) }
}

// WithCatalogue replaces the default category catalogue.
func WithCatalogue(c core.Catalogue) Option {
	return func(s *ExpenseService) { s.catalogue = c }
}

// WithClock sets the reference clock for window filters.
func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

func NewExpenseService(store Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:     store,
		catalogue: core.DefaultCatalogue(),
		list:      cache.NewValue[[]core.Expense](0),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalogue returns the category catalogue in use.
func (s *ExpenseService) Catalogue() core.Catalogue { return s.catalogue }

// Now returns the service clock reading.
func (s *ExpenseService) Now() time.Time { return s.now() }

// ListExpenses returns every record, most recent date first. Callers must not
// modify the returned slice.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	if records, ok := s.list.Get(); ok {
		return records, nil
	}

	ticket := s.list.Begin()
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.Expense{}
	}
	s.list.Store(ticket, records)
	return records, nil
}

// Query lists the records and applies f to them.
func (s *ExpenseService) Query(ctx context.Context, f core.Filter) (View, error) {
	all, err := s.ListExpenses(ctx)
	if err != nil {
		return View{}, err
	}
	now := s.now()
	return View{
		All:      all,
		Filtered: f.Apply(all, now),
		Summary:  core.Summarize(all, s.catalogue, now),
	}, nil
}

// Summarize returns the summary of the records matching f.
func (s *ExpenseService) Summarize(ctx context.Context, f core.Filter) (core.Summary, error) {
	all, err := s.ListExpenses(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	now := s.now()
	return core.Summarize(f.Apply(all, now), s.catalogue, now), nil
}

// CreateExpense stores e, assigning a fresh id when it has none, and returns
// the stored record.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.ValidateFields(); err != nil {
		return core.Expense{}, err
	}
	e.Amount = e.Amount.Round(2)
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	err := s.store.Insert(ctx, e)
	// Invalidate even on failure: a storage fault may have left a partial write.
	s.list.Invalidate()
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense created",
		"component", "service",
		"id", e.ID,
		"amount", core.FormatAmount(e.Amount),
		"category", e.Category)

	s.publish(ctx, amqp.NewCreatedEvent(e))
	return e, nil
}

// DeleteExpense removes the record with the given id. Unknown ids are not an
// error.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.NewValidationError("id", core.ErrMissingID)
	}

	err := s.store.Delete(ctx, id)
	s.list.Invalidate()
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "component", "service", "id", id)

	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		// The record is committed; the event is best effort.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"component", "service",
			"type", ev.Type,
			"id", ev.ID,
			"error", err)
	}
}

// Ping reports whether the store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CacheStats exposes the list cache counters.
func (s *ExpenseService) CacheStats() cache.Stats {
	return s.list.Stats()
}

// Close closes the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
