package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bool64/ctxd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/fetchcache/internal/logging"
)

func records(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var res []map[string]interface{}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var r map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)

		res = append(res, r)
	}

	return res
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, logging.LevelImportant, logging.ParseLevel("important"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel(""))
}

func TestLogger(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	l := logging.New(buf, "info", "json")

	ctx := ctxd.AddFields(context.Background(), "request_id", "abc")

	l.Debug(ctx, "skipped")
	l.Info(ctx, "cache miss", "name", "acronyms", "key", "BBC")
	l.Important(ctx, "expired all entries in cache", "name", "acronyms")
	l.Error(ctx, "fetch failed", "error", errors.New("connection refused"))

	recs := records(t, buf)
	require.Len(t, recs, 3)

	assert.Equal(t, "INFO", recs[0]["level"])
	assert.Equal(t, "cache miss", recs[0]["msg"])
	assert.Equal(t, "abc", recs[0]["request_id"])
	assert.Equal(t, "BBC", recs[0]["key"])

	assert.Equal(t, "IMPORTANT", recs[1]["level"])
	assert.Equal(t, "acronyms", recs[1]["name"])

	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.Equal(t, "connection refused", recs[2]["error"])
}

func TestLogger_text(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	l := logging.New(buf, "debug", "text")

	l.Debug(context.Background(), "cache hit", "key", "NASA")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), `msg="cache hit"`)
	assert.Contains(t, buf.String(), "key=NASA")
}

func TestMiddleware(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	l := logging.New(buf, "info", "json")

	h := logging.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.Info(r.Context(), "handled")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	assert.Equal(t, "req-1", rw.Header().Get("X-Request-ID"))

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rw.Header().Get("X-Request-ID"), 32)

	recs := records(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "req-1", recs[0]["request_id"])
	assert.Equal(t, rw.Header().Get("X-Request-ID"), recs[1]["request_id"])
}
