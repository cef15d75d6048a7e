// Package observability holds the portal's logging and metrics plumbing.
package observability

import (
	"context"
	"log/slog"
	"os"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

// batchIDKey carries the bulk-action batch ID so every per-device log
// line of one batch can be correlated.
const batchIDKey contextKey = "batch_id"

// InitLogger installs the process-wide slog handler. Level "debug" also
// turns on source locations.
func InitLogger(level, format string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: level == "debug",
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// FromContext returns the default logger annotated with whatever the
// request context carries: the chi request ID and, during bulk actions,
// the batch ID.
func FromContext(ctx context.Context) *slog.Logger {
	log := slog.Default()

	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		log = log.With(slog.String("request_id", reqID))
	}
	if batchID, ok := ctx.Value(batchIDKey).(string); ok && batchID != "" {
		log = log.With(slog.String("batch_id", batchID))
	}

	return log
}

// WithBatchID tags the context with a bulk-action batch ID
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchIDKey, batchID)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
