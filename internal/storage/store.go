package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"spendtrack/internal/core"

	_ "modernc.org/sqlite"
)

// Store is the expense data-access layer over an embedded SQLite database.
// It owns the schema, expense CRUD, the aggregation queries behind the
// statistics screen, and credential lookup. One Store is opened by the
// composition root at startup and closed on shutdown; concurrent statements
// are serialized by SQLite itself, no locking is added here.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file, applies migrations, and returns
// a ready Store. Migration failures are returned as *SchemaError.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Writers from the API process and the worker share this file.
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, &SchemaError{Err: err}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Login looks up a user by exact email/password match. Returns
// ErrInvalidCredentials when no row matches.
func (s *Store) Login(ctx context.Context, email, password string) (*core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, role FROM users WHERE email = ? AND password = ? LIMIT 1`,
		email, password,
	).Scan(&u.ID, &u.Email, &u.Password, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, storageErr("login", err)
	}
	return &u, nil
}

// UserByID returns the user with the given id, or nil when absent.
func (s *Store) UserByID(ctx context.Context, id int64) (*core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, role FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Password, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get user", err)
	}
	return &u, nil
}

// CreateExpense validates the input, checks the owner exists, and inserts a
// new row. The authenticated user's id is always attached.
func (s *Store) CreateExpense(ctx context.Context, userID int64, category string, amount float64, date string) (*core.Expense, error) {
	if err := core.ValidateExpense(category, amount, date); err != nil {
		return nil, err
	}
	owner, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, &core.ValidationError{Field: "userId", Reason: fmt.Sprintf("no user with id %d", userID)}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (userId, category, amount, date) VALUES (?, ?, ?, ?)`,
		userID, category, amount, date,
	)
	if err != nil {
		return nil, storageErr("insert expense", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("insert expense", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", userID,
		"category", category,
		"amount", amount,
		"date", date)

	uid := userID
	return &core.Expense{ID: id, UserID: &uid, Category: category, Amount: amount, Date: date}, nil
}

// UpdateExpense replaces the three mutable fields of the row matching id.
// Returns the number of rows affected; zero means the id was absent, which is
// a non-error outcome distinct from a query failure.
func (s *Store) UpdateExpense(ctx context.Context, id int64, category string, amount float64, date string) (int64, error) {
	if err := core.ValidateExpense(category, amount, date); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET category = ?, amount = ?, date = ? WHERE id = ?`,
		category, amount, date, id,
	)
	if err != nil {
		return 0, storageErr("update expense", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("update expense", err)
	}
	return affected, nil
}

// DeleteExpense removes the row matching id. Same zero-rows-affected contract
// as UpdateExpense.
func (s *Store) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return 0, storageErr("delete expense", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete expense", err)
	}
	return affected, nil
}

// ExpenseByID returns the expense with the given id, or nil when absent.
func (s *Store) ExpenseByID(ctx context.Context, id int64) (*core.Expense, error) {
	var (
		e      core.Expense
		userID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, userId, category, amount, date FROM expenses WHERE id = ?`, id,
	).Scan(&e.ID, &userID, &e.Category, &e.Amount, &e.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get expense", err)
	}
	if userID.Valid {
		e.UserID = &userID.Int64
	}
	return &e, nil
}

// ListByUser returns one user's expenses, most recent date first. Ties within
// a date keep insertion order.
func (s *Store) ListByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	return s.queryExpenses(ctx, "list expenses",
		`SELECT id, userId, category, amount, date FROM expenses WHERE userId = ? ORDER BY date DESC, id ASC`,
		userID)
}

// ListAll returns every expense across all users, most recent date first.
// Intended for the administrative view; legacy rows without a userId show up
// only here.
func (s *Store) ListAll(ctx context.Context) ([]core.Expense, error) {
	return s.queryExpenses(ctx, "list all expenses",
		`SELECT id, userId, category, amount, date FROM expenses ORDER BY date DESC, id ASC`)
}

// Latest returns at most limit expenses for the user, same ordering as
// ListByUser. A non-positive limit falls back to 5.
func (s *Store) Latest(ctx context.Context, userID int64, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.queryExpenses(ctx, "latest expenses",
		`SELECT id, userId, category, amount, date FROM expenses WHERE userId = ? ORDER BY date DESC, id ASC LIMIT ?`,
		userID, limit)
}

// TotalForRange sums amounts for dates within the closed [start, end] range.
// YYYY-MM-DD strings compare lexicographically in chronological order, so
// BETWEEN is date-correct. Returns 0 when no rows match.
func (s *Store) TotalForRange(ctx context.Context, userID int64, start, end string) (float64, error) {
	if err := core.ValidateDate(start); err != nil {
		return 0, err
	}
	if err := core.ValidateDate(end); err != nil {
		return 0, err
	}
	return s.queryTotal(ctx, "range total",
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE userId = ? AND date BETWEEN ? AND ?`,
		userID, start, end)
}

// TotalForDay sums amounts for one exact date. Returns 0 when no rows match.
func (s *Store) TotalForDay(ctx context.Context, userID int64, date string) (float64, error) {
	if err := core.ValidateDate(date); err != nil {
		return 0, err
	}
	return s.queryTotal(ctx, "day total",
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE userId = ? AND date = ?`,
		userID, date)
}

// TotalForYear sums amounts for all dates within the given 4-digit year.
func (s *Store) TotalForYear(ctx context.Context, userID int64, year string) (float64, error) {
	if err := core.ValidateYear(year); err != nil {
		return 0, err
	}
	return s.queryTotal(ctx, "year total",
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE userId = ? AND strftime('%Y', date) = ?`,
		userID, year)
}

// CategoryBreakdown returns per-category sums for the user, ordered by
// category name. A non-empty filter restricts the result to that single
// category; an unknown filter value is rejected, not silently empty.
func (s *Store) CategoryBreakdown(ctx context.Context, userID int64, categoryFilter string) ([]core.CategoryTotal, error) {
	query := `SELECT category, SUM(amount) AS total FROM expenses WHERE userId = ?`
	args := []any{userID}
	if categoryFilter != "" {
		if err := core.ValidateCategory(categoryFilter); err != nil {
			return nil, err
		}
		query += ` AND category = ?`
		args = append(args, categoryFilter)
	}
	query += ` GROUP BY category ORDER BY category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("category breakdown", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, storageErr("category breakdown", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("category breakdown", err)
	}
	return out, nil
}

// EventRecord is one row of the audit trail kept by the event worker.
type EventRecord struct {
	ID         int64   `json:"id"`
	ExpenseID  int64   `json:"expenseId"`
	UserID     *int64  `json:"userId,omitempty"`
	Action     string  `json:"action"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	RecordedAt string  `json:"recordedAt"`
}

// RecordEvent appends an audit row for a consumed expense event.
func (s *Store) RecordEvent(ctx context.Context, ev EventRecord) (int64, error) {
	var userID any
	if ev.UserID != nil {
		userID = *ev.UserID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expense_events (expenseId, userId, action, category, amount, date) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ExpenseID, userID, ev.Action, ev.Category, ev.Amount, ev.Date,
	)
	if err != nil {
		return 0, storageErr("record event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("record event", err)
	}
	return id, nil
}

// RecentEvents returns the newest audit rows, most recent first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expenseId, userId, action, category, amount, date, recordedAt
		 FROM expense_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("recent events", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsByExpense returns the audit rows for one expense, oldest first.
func (s *Store) EventsByExpense(ctx context.Context, expenseID int64) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expenseId, userId, action, category, amount, date, recordedAt
		 FROM expense_events WHERE expenseId = ? ORDER BY id ASC`, expenseID)
	if err != nil {
		return nil, storageErr("events by expense", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]EventRecord, error) {
	var out []EventRecord
	for rows.Next() {
		var (
			ev     EventRecord
			userID sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &ev.ExpenseID, &userID, &ev.Action, &ev.Category, &ev.Amount, &ev.Date, &ev.RecordedAt); err != nil {
			return nil, storageErr("scan event", err)
		}
		if userID.Valid {
			ev.UserID = &userID.Int64
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("scan event", err)
	}
	return out, nil
}

func (s *Store) queryExpenses(ctx context.Context, op, query string, args ...any) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e      core.Expense
			userID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &userID, &e.Category, &e.Amount, &e.Date); err != nil {
			return nil, storageErr(op, err)
		}
		if userID.Valid {
			e.UserID = &userID.Int64
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

func (s *Store) queryTotal(ctx context.Context, op, query string, args ...any) (float64, error) {
	var total float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, storageErr(op, err)
	}
	return total, nil
}
