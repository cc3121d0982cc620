// Package storetest holds the behaviour every expense store must share. Store
// packages run it from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

// Store is the surface under test.
type Store interface {
	List(ctx context.Context) ([]core.Expense, error)
	Insert(ctx context.Context, e core.Expense) error
	Delete(ctx context.Context, id string) error
}

// Expense builds a valid record.
func Expense(id, amount, desc, category, date string) core.Expense {
	return core.Expense{
		ID:          id,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Category:    category,
		Date:        date,
	}
}

// Run exercises newStore against the shared contract. Each subtest gets a
// fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("empty list is not nil", func(t *testing.T) {
		got, err := newStore(t).List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("insert then list orders by date descending", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Insert(ctx, Expense("lunch", "12.50", "Lunch", "Food", "2024-03-01")))
		require.NoError(t, s.Insert(ctx, Expense("taxi", "30", "Taxi", "Transport", "2024-03-02")))
		require.NoError(t, s.Insert(ctx, Expense("old", "4", "Bus", "Transport", "2023-12-31")))

		got, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "taxi", got[0].ID)
		assert.Equal(t, "lunch", got[1].ID)
		assert.Equal(t, "old", got[2].ID)

		assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("12.5")))
		assert.Equal(t, "Lunch", got[1].Description)
		assert.Equal(t, "Food", got[1].Category)
		assert.Equal(t, "2024-03-01", got[1].Date)
	})

	t.Run("same date lists newest insert first", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Expense("first", "1", "A", "Food", "2024-03-01")))
		require.NoError(t, s.Insert(ctx, Expense("second", "2", "B", "Food", "2024-03-01")))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"second", "first"}, []string{got[0].ID, got[1].ID})
	})

	t.Run("insert rejects missing fields", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		bad := []core.Expense{
			{Amount: decimal.NewFromInt(1), Description: "x", Category: "Food", Date: "2024-01-01"},
			{ID: "a", Description: "x", Category: "Food", Date: "2024-01-01"},
			{ID: "b", Amount: decimal.NewFromInt(1), Category: "Food", Date: "2024-01-01"},
			{ID: "c", Amount: decimal.NewFromInt(1), Description: "x", Date: "2024-01-01"},
			{ID: "d", Amount: decimal.NewFromInt(1), Description: "x", Category: "Food"},
		}
		for _, e := range bad {
			err := s.Insert(ctx, e)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err), "want validation error, got %v", err)
		}

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("duplicate id is rejected and keeps the original", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Expense("dup", "1", "Original", "Food", "2024-01-01")))

		err := s.Insert(ctx, Expense("dup", "2", "Again", "Other", "2024-01-02"))
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
		assert.ErrorIs(t, err, core.ErrDuplicateID)

		got, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Original", got[0].Description)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Expense("keep", "1", "Keep", "Food", "2024-01-01")))
		require.NoError(t, s.Insert(ctx, Expense("drop", "2", "Drop", "Food", "2024-01-02")))

		require.NoError(t, s.Delete(ctx, "drop"))

		got, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "keep", got[0].ID)
	})

	t.Run("delete of unknown id is a no-op", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, Expense("keep", "1", "Keep", "Food", "2024-01-01")))

		require.NoError(t, s.Delete(ctx, "missing"))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("delete requires an id", func(t *testing.T) {
		err := newStore(t).Delete(context.Background(), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrMissingID)
	})
}
