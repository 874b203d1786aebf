package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	applog "spendtrack/internal/log"
)

func TestRequestLogging_UsesSharedFieldNames(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := newTestServer(t)
	doRequest(t, s, http.MethodGet, "/api/expenses", "", nil)

	out := buf.String()
	for _, field := range []string{
		applog.FieldRequestID,
		applog.FieldMethod,
		applog.FieldPath,
		applog.FieldClientIP,
		applog.FieldStatusCode,
	} {
		if !strings.Contains(out, field+"=") {
			t.Errorf("expected %s field in request log: %s", field, out)
		}
	}
}
