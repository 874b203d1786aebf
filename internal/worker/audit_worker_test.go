package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

type fakeArchiver struct {
	appended []*amqp.ExpenseEventMessage
	err      error
}

func (f *fakeArchiver) AppendEvent(_ context.Context, msg *amqp.ExpenseEventMessage) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, msg)
	return nil
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHandleEvent_RecordsAndArchives(t *testing.T) {
	store := openTestStore(t)
	archiver := &fakeArchiver{}
	w := NewAuditWorker(store, archiver)
	ctx := context.Background()

	uid := int64(1)
	msg := amqp.NewExpenseEventMessage(core.ActionCreated, 7, &uid, core.CategoryFood, 12.50, "2024-01-01")
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	events, err := store.EventsByExpense(ctx, 7)
	if err != nil {
		t.Fatalf("EventsByExpense: %v", err)
	}
	if len(events) != 1 || events[0].Action != core.ActionCreated || events[0].Amount != 12.50 {
		t.Errorf("unexpected audit trail: %+v", events)
	}

	if len(archiver.appended) != 1 || archiver.appended[0] != msg {
		t.Errorf("expected event archived, got %+v", archiver.appended)
	}
}

func TestHandleEvent_ArchiveFailureIsNotFatal(t *testing.T) {
	store := openTestStore(t)
	w := NewAuditWorker(store, &fakeArchiver{err: errors.New("sheets unavailable")})
	ctx := context.Background()

	msg := amqp.NewExpenseEventMessage(core.ActionDeleted, 7, nil, core.CategoryBills, 5, "2024-01-01")
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("HandleEvent must not fail on archive error: %v", err)
	}

	events, err := store.EventsByExpense(ctx, 7)
	if err != nil || len(events) != 1 {
		t.Fatalf("expected event recorded despite archive failure, got %+v err=%v", events, err)
	}
	if events[0].UserID != nil {
		t.Errorf("expected nil userId preserved, got %v", events[0].UserID)
	}
}

func TestHandleEvent_WithoutArchiver(t *testing.T) {
	store := openTestStore(t)
	w := NewAuditWorker(store, nil)

	msg := amqp.NewExpenseEventMessage(core.ActionUpdated, 9, nil, core.CategoryTransport, 20, "2024-01-02")
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}
