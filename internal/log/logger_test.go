package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newCapturedLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

func TestLogger_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf).WithComponent(ComponentStorage)

	logger.Info("Expense saved", FieldExpenseID, 42)

	out := buf.String()
	if !strings.Contains(out, "component="+ComponentStorage) {
		t.Errorf("expected component tag in output: %s", out)
	}
	if !strings.Contains(out, "expense_id=42") {
		t.Errorf("expected field in output: %s", out)
	}
}

func TestLogger_WithKeepsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf).WithComponent(ComponentWorker).With(FieldUserID, 1)

	if logger.Component() != ComponentWorker {
		t.Errorf("expected component preserved, got %s", logger.Component())
	}

	logger.Warn("queue lagging")
	out := buf.String()
	if !strings.Contains(out, "user_id=1") || !strings.Contains(out, "component="+ComponentWorker) {
		t.Errorf("expected inherited attrs in output: %s", out)
	}
}
