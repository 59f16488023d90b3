package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
)

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, logger.L, logger.WithCtx(context.Background()))
}

func TestWithCtxReturnsInjectedLogger(t *testing.T) {
	l := logger.Discard()
	ctx := logger.InjectLogger(context.Background(), l)
	assert.Same(t, l, logger.WithCtx(ctx))
}

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := logger.NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("request_id", "abc")

	log.Info("order created", "table", 3)
	log.Warn("pin rejected")

	assert.Contains(t, debugBuf.String(), "order created")
	assert.Contains(t, debugBuf.String(), "request_id=abc")
	assert.Contains(t, debugBuf.String(), "pin rejected")
	assert.NotContains(t, warnBuf.String(), "order created")
	assert.Contains(t, warnBuf.String(), "pin rejected")
}

func TestSilenceReplacesBaseAndDefault(t *testing.T) {
	logger.Silence()

	assert.Same(t, logger.L, slog.Default())
	assert.Same(t, logger.L, logger.WithCtx(context.Background()))
}
