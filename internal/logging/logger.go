// Package logging provides a log/slog backed contextualized logger.
//
// Fields added to context with ctxd.AddFields are attached to every record,
// the HTTP middleware adds a per-request id.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/bool64/ctxd"
)

// LevelImportant is between info and warn, it marks rare notable events.
const LevelImportant = slog.Level(2)

var _ ctxd.Logger = &Logger{}

// Logger implements ctxd.Logger with slog.
type Logger struct {
	l *slog.Logger
}

// ParseLevel maps level name to slog level, info by default.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "important":
		return LevelImportant
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates logger that writes to w. Format is "json" (default) or "text".
func New(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelImportant {
					a.Value = slog.StringValue("IMPORTANT")
				}
			}

			return a
		},
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{l: slog.New(handler)}
}

// Setup creates stderr logger and installs it as slog default.
// Empty level and format are taken from LOG_LEVEL and LOG_FORMAT.
func Setup(level, format string) *Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}

	l := New(os.Stderr, level, format)
	slog.SetDefault(l.l)

	return l
}

func (l *Logger) log(ctx context.Context, lvl slog.Level, msg string, keysAndValues []interface{}) {
	if !l.l.Enabled(ctx, lvl) {
		return
	}

	fields := ctxd.Fields(ctx)
	args := make([]interface{}, 0, len(fields)+len(keysAndValues))
	args = append(args, fields...)
	args = append(args, keysAndValues...)

	for i, v := range args {
		if err, ok := v.(error); ok {
			args[i] = err.Error()
		}
	}

	l.l.Log(ctx, lvl, msg, args...)
}

// Debug logs a message.
func (l *Logger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelDebug, msg, keysAndValues)
}

// Info logs a message.
func (l *Logger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelInfo, msg, keysAndValues)
}

// Important logs a message.
func (l *Logger) Important(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, LevelImportant, msg, keysAndValues)
}

// Warn logs a message.
func (l *Logger) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelWarn, msg, keysAndValues)
}

// Error logs a message.
func (l *Logger) Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelError, msg, keysAndValues)
}

// NewRequestID generates a random 16-byte hex id.
func NewRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)

	return hex.EncodeToString(b)
}

// Middleware adds request id to context fields and echoes it in X-Request-ID header.
// Incoming X-Request-ID is reused.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = NewRequestID()
		}

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctxd.AddFields(r.Context(), "request_id", id)))
	})
}
