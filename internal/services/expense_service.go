package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"spendtrack/internal/amqp"
	"spendtrack/internal/auth"
	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

// ErrForbidden is returned when the caller tries to touch an expense owned by
// another user, or a non-admin calls an admin-only operation.
var ErrForbidden = errors.New("forbidden")

// EventPublisher publishes expense mutation events to the audit queue.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error
}

// ExpenseService orchestrates expense operations across SQLite, the stats
// cache and AMQP. Writes go to SQLite first; event publishing is best-effort
// and never fails the request.
type ExpenseService struct {
	store     *storage.Store
	publisher EventPublisher
	stats     *cache.StatsCache
}

func NewExpenseService(store *storage.Store, publisher EventPublisher, stats *cache.StatsCache) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		stats:     stats,
	}
}

// Login checks the credentials against the user table.
func (s *ExpenseService) Login(ctx context.Context, email, password string) (*core.User, error) {
	return s.store.Login(ctx, email, password)
}

// Create saves an expense owned by the caller and publishes a created event.
func (s *ExpenseService) Create(ctx context.Context, p *auth.Principal, category string, amount float64, date string) (*core.Expense, error) {
	e, err := s.store.CreateExpense(ctx, p.UserID, category, amount, date)
	if err != nil {
		return nil, fmt.Errorf("save expense: %w", err)
	}

	s.invalidate(e.UserID, p.UserID)
	s.publish(ctx, amqp.NewExpenseEventMessage(core.ActionCreated, e.ID, e.UserID, e.Category, e.Amount, e.Date))
	return e, nil
}

// Get returns the expense if it exists and the caller may see it. A missing
// id yields (nil, nil).
func (s *ExpenseService) Get(ctx context.Context, p *auth.Principal, id int64) (*core.Expense, error) {
	e, err := s.store.ExpenseByID(ctx, id)
	if err != nil || e == nil {
		return nil, err
	}
	if !canAccess(p, e) {
		return nil, ErrForbidden
	}
	return e, nil
}

// Update rewrites the expense fields, keeping its owner. Returns the updated
// row, or (nil, nil) when the id does not exist.
func (s *ExpenseService) Update(ctx context.Context, p *auth.Principal, id int64, category string, amount float64, date string) (*core.Expense, error) {
	existing, err := s.store.ExpenseByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	if !canAccess(p, existing) {
		return nil, ErrForbidden
	}

	affected, err := s.store.UpdateExpense(ctx, id, category, amount, date)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	updated := &core.Expense{ID: id, UserID: existing.UserID, Category: category, Amount: amount, Date: date}
	s.invalidate(existing.UserID, p.UserID)
	s.publish(ctx, amqp.NewExpenseEventMessage(core.ActionUpdated, id, existing.UserID, category, amount, date))
	return updated, nil
}

// Delete removes the expense and reports whether a row existed.
func (s *ExpenseService) Delete(ctx context.Context, p *auth.Principal, id int64) (bool, error) {
	existing, err := s.store.ExpenseByID(ctx, id)
	if err != nil || existing == nil {
		return false, err
	}
	if !canAccess(p, existing) {
		return false, ErrForbidden
	}

	affected, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	s.invalidate(existing.UserID, p.UserID)
	s.publish(ctx, amqp.NewExpenseEventMessage(core.ActionDeleted, id, existing.UserID, existing.Category, existing.Amount, existing.Date))
	return true, nil
}

// List returns the caller's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, p *auth.Principal) ([]core.Expense, error) {
	return s.store.ListByUser(ctx, p.UserID)
}

// ListAll returns every expense across users. Admin only.
func (s *ExpenseService) ListAll(ctx context.Context, p *auth.Principal) ([]core.Expense, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.ListAll(ctx)
}

// Latest returns the caller's most recent expenses.
func (s *ExpenseService) Latest(ctx context.Context, p *auth.Principal, limit int) ([]core.Expense, error) {
	key := strconv.Itoa(limit)
	if rows, ok := s.stats.GetExpenses("latest", p.UserID, key); ok {
		return rows, nil
	}
	rows, err := s.store.Latest(ctx, p.UserID, limit)
	if err != nil {
		return nil, err
	}
	s.stats.SetExpenses("latest", p.UserID, rows, key)
	return rows, nil
}

// TotalForDay returns the caller's spend on a single date.
func (s *ExpenseService) TotalForDay(ctx context.Context, p *auth.Principal, date string) (float64, error) {
	if total, ok := s.stats.GetTotal("day", p.UserID, date); ok {
		return total, nil
	}
	total, err := s.store.TotalForDay(ctx, p.UserID, date)
	if err != nil {
		return 0, err
	}
	s.stats.SetTotal("day", p.UserID, total, date)
	return total, nil
}

// TotalForRange returns the caller's spend over an inclusive date range.
func (s *ExpenseService) TotalForRange(ctx context.Context, p *auth.Principal, start, end string) (float64, error) {
	if total, ok := s.stats.GetTotal("range", p.UserID, start, end); ok {
		return total, nil
	}
	total, err := s.store.TotalForRange(ctx, p.UserID, start, end)
	if err != nil {
		return 0, err
	}
	s.stats.SetTotal("range", p.UserID, total, start, end)
	return total, nil
}

// TotalForYear returns the caller's spend in a calendar year.
func (s *ExpenseService) TotalForYear(ctx context.Context, p *auth.Principal, year string) (float64, error) {
	if total, ok := s.stats.GetTotal("year", p.UserID, year); ok {
		return total, nil
	}
	total, err := s.store.TotalForYear(ctx, p.UserID, year)
	if err != nil {
		return 0, err
	}
	s.stats.SetTotal("year", p.UserID, total, year)
	return total, nil
}

// CategoryBreakdown returns the caller's per-category totals, optionally
// restricted to one category.
func (s *ExpenseService) CategoryBreakdown(ctx context.Context, p *auth.Principal, categoryFilter string) ([]core.CategoryTotal, error) {
	if rows, ok := s.stats.GetBreakdown("categories", p.UserID, categoryFilter); ok {
		return rows, nil
	}
	rows, err := s.store.CategoryBreakdown(ctx, p.UserID, categoryFilter)
	if err != nil {
		return nil, err
	}
	s.stats.SetBreakdown("categories", p.UserID, rows, categoryFilter)
	return rows, nil
}

// RecentEvents returns the newest audit events. Admin only.
func (s *ExpenseService) RecentEvents(ctx context.Context, p *auth.Principal, limit int) ([]storage.EventRecord, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.RecentEvents(ctx, limit)
}

// EventsByExpense returns the audit history of one expense. Admin only.
func (s *ExpenseService) EventsByExpense(ctx context.Context, p *auth.Principal, expenseID int64) ([]storage.EventRecord, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.EventsByExpense(ctx, expenseID)
}

// canAccess reports whether the caller may read or mutate the expense. Rows
// without an owner were written by the legacy single-user client and stay
// visible to every authenticated user.
func canAccess(p *auth.Principal, e *core.Expense) bool {
	if p.IsAdmin() || e.UserID == nil {
		return true
	}
	return *e.UserID == p.UserID
}

// invalidate drops cached stats for the expense owner. Legacy rows have no
// owner, so the caller's cache is dropped instead.
func (s *ExpenseService) invalidate(owner *int64, callerID int64) {
	if owner != nil {
		s.stats.Invalidate(*owner)
		return
	}
	s.stats.Invalidate(callerID)
}

func (s *ExpenseService) publish(ctx context.Context, msg *amqp.ExpenseEventMessage) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping event",
			"action", msg.Action, "expenseId", msg.ExpenseID)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, msg); err != nil {
		// Don't fail the request - the expense is saved locally.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"action", msg.Action, "expenseId", msg.ExpenseID, "error", err)
	}
}
