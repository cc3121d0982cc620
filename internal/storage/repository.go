package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/core"
)

const (
	listExpensesSQL  = `SELECT id, amount, description, category, date FROM expenses ORDER BY date DESC, rowid DESC`
	insertExpenseSQL = `INSERT INTO expenses (id, amount, description, category, date) VALUES (?, ?, ?, ?, ?)`
	deleteExpenseSQL = `DELETE FROM expenses WHERE id = ?`
)

// SQLiteRepository stores expenses in a single SQLite table.
type SQLiteRepository struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRepository opens dbPath, creating the file and its directory when
// needed, and initialises the schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("sqlite database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := InitSchema(dbPath); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY between them.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, dbPath: dbPath}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return core.NewStorageError("ping", err)
	}
	return nil
}

// List returns every expense, most recent date first.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, listExpensesSQL)
	if err != nil {
		return nil, core.NewStorageError("list", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var (
			e      core.Expense
			amount float64
		)
		if err := rows.Scan(&e.ID, &amount, &e.Description, &e.Category, &e.Date); err != nil {
			return nil, core.NewStorageError("list", fmt.Errorf("scan expense: %w", err))
		}
		if math.IsInf(amount, 0) || math.IsNaN(amount) {
			return nil, core.NewStorageError("list", fmt.Errorf("expense %s has a non-finite amount", e.ID))
		}
		e.Amount = decimal.NewFromFloat(amount)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list", err)
	}
	return expenses, nil
}

// Insert writes one expense. An id that is already stored is rejected with a
// validation error wrapping core.ErrDuplicateID.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, insertExpenseSQL,
		e.ID, e.Amount.InexactFloat64(), e.Description, e.Category, e.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return core.NewValidationError("id", core.ErrDuplicateID)
		}
		return core.NewStorageError("insert", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"component", "storage",
		"id", e.ID,
		"amount", e.Amount.String(),
		"category", e.Category,
		"date", e.Date)
	return nil
}

// Delete removes the expense with the given id. Unknown ids are not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return core.NewValidationError("id", core.ErrMissingID)
	}

	res, err := r.db.ExecContext(ctx, deleteExpenseSQL, id)
	if err != nil {
		return core.NewStorageError("delete", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		slog.DebugContext(ctx, "Expense delete executed", "component", "storage", "id", id, "rows", n)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
