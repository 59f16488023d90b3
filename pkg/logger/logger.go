// Package logger provides the service-wide structured logger built on log/slog.
//
// Production emits JSON, every other environment emits text. Handlers pull a
// request-scoped logger with WithCtx so lines from one request share a
// request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order created", "table", 3, "items", 2)
//	// → time=... level=INFO msg="order created" request_id=a1b2c3d4 table=3 items=2
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Artssj1234/mesa-y-pedidos-app/config"
)

var (
	// L is the base logger. Replaced by EnableMongo when a sink is configured.
	L *slog.Logger

	mu   sync.Mutex
	base slog.Handler
)

func init() {
	base = newConsoleHandler(os.Stdout, config.IsProduction())
	L = slog.New(base)
	slog.SetDefault(L)
}

func newConsoleHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// EnableMongo tees every record at INFO and above into the given MongoDB
// database. The returned func flushes and disconnects.
func EnableMongo(uri, database string) (func(), error) {
	sink, err := NewMongoHandler(uri, database, "logs")
	if err != nil {
		return nil, err
	}

	mu.Lock()
	L = slog.New(NewMultiHandler(base, sink))
	slog.SetDefault(L)
	mu.Unlock()

	return sink.Close, nil
}

// ─── Context-aware logger ────────────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the logger injected by the request middleware, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Discard is a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Silence points L and the slog default at Discard. Test binaries call it from
// TestMain, before any goroutine reads L.
func Silence() {
	mu.Lock()
	L = Discard()
	slog.SetDefault(L)
	mu.Unlock()
}

// ─── Short-hand helpers ──────────────────────────────────────────────────────

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }

// LevelFor picks the level of an access-log line: 5xx logs as ERROR, 4xx as
// WARN, anything else as INFO.
func LevelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
