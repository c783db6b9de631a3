package logger

import (
	"go.uber.org/zap"

	"pageengine"
)

// Zap wraps a zap.Logger to implement pageengine.Logger.
type Zap struct {
	logger *zap.Logger
}

// NewZap creates a pageengine.Logger from a zap.Logger.
func NewZap(logger *zap.Logger) pageengine.Logger {
	return &Zap{logger: logger}
}

func (z *Zap) Error(msg string, args ...any) {
	z.logger.Sugar().Errorw(msg, args...)
}

func (z *Zap) Warn(msg string, args ...any) {
	z.logger.Sugar().Warnw(msg, args...)
}

func (z *Zap) Info(msg string, args ...any) {
	z.logger.Sugar().Infow(msg, args...)
}
