// Package logger provides adapters for popular logging libraries to work
// with pageengine's Logger interface.
//
// The standard library's slog.Logger already implements pageengine.Logger
// directly; these adapters exist for callers whose process already logs
// through zap or logrus.
//
// Example with zap:
//
//	zapLogger, _ := zap.NewProduction()
//	bm, err := pageengine.New(4096, 1024,
//	    pageengine.WithLogger(logger.NewZap(zapLogger)))
package logger
