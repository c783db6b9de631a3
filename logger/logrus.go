package logger

import (
	"github.com/sirupsen/logrus"

	"pageengine"
)

// Logrus wraps a logrus.Logger to implement pageengine.Logger.
type Logrus struct {
	logger *logrus.Logger
}

// NewLogrus creates a pageengine.Logger from a logrus.Logger.
func NewLogrus(logger *logrus.Logger) pageengine.Logger {
	return &Logrus{logger: logger}
}

func (l *Logrus) Error(msg string, args ...any) {
	l.logger.WithFields(argsToFields(args)).Error(msg)
}

func (l *Logrus) Warn(msg string, args ...any) {
	l.logger.WithFields(argsToFields(args)).Warn(msg)
}

func (l *Logrus) Info(msg string, args ...any) {
	l.logger.WithFields(argsToFields(args)).Info(msg)
}

func argsToFields(args []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
