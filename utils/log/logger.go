package log

import (
	"context"
	"os"

	"go.uber.org/zap"
)

type ctxKey string

const (
	turnIDKey    ctxKey = "turn_id"
	sessionIDKey ctxKey = "session_id"
	deviceIDKey  ctxKey = "device_id"
)

var logger *zap.Logger

func init() {
	if os.Getenv("DEBUG") == "true" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
}

// WithTurn tags ctx so every log line of the cycle carries its turn id.
func WithTurn(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnIDKey, turnID)
}

// WithSession tags ctx with the websocket or API session that produced it.
func WithSession(ctx context.Context, sessionID, deviceID string) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if v := ctx.Value(turnIDKey); v != nil {
		fields = append(fields, zap.Any("turn_id", v))
	}
	if v := ctx.Value(sessionIDKey); v != nil {
		fields = append(fields, zap.Any("session_id", v))
	}
	if v := ctx.Value(deviceIDKey); v != nil {
		fields = append(fields, zap.Any("device_id", v))
	}

	return logger.With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

// Sync flushes buffered entries; call it once on shutdown.
func Sync() {
	_ = logger.Sync()
}
