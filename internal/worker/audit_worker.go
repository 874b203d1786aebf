package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/storage"
)

// EventArchiver mirrors audit events into an external sink, e.g. a Google
// spreadsheet.
type EventArchiver interface {
	AppendEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error
}

// AuditWorker consumes expense events and appends them to the audit trail in
// SQLite. An optional archiver additionally mirrors each event externally.
type AuditWorker struct {
	store    *storage.Store
	archiver EventArchiver
}

func NewAuditWorker(store *storage.Store, archiver EventArchiver) *AuditWorker {
	return &AuditWorker{
		store:    store,
		archiver: archiver,
	}
}

// HandleEvent records a single consumed event. The SQLite write must succeed
// for the delivery to be acked; archiving is best-effort and never fails the
// message.
func (w *AuditWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	id, err := w.store.RecordEvent(ctx, storage.EventRecord{
		ExpenseID: msg.ExpenseID,
		UserID:    msg.UserID,
		Action:    msg.Action,
		Category:  msg.Category,
		Amount:    msg.Amount,
		Date:      msg.Date,
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	slog.InfoContext(ctx, "Recorded expense event",
		"event_id", id,
		"action", msg.Action,
		"expense_id", msg.ExpenseID)

	if w.archiver != nil {
		if err := w.archiver.AppendEvent(ctx, msg); err != nil {
			// The event is already in SQLite; a retry would duplicate it.
			slog.ErrorContext(ctx, "Failed to archive event",
				"event_id", id,
				"action", msg.Action,
				"expense_id", msg.ExpenseID,
				"error", err)
		}
	}

	return nil
}
