package httpclient

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// Logger adapts logrus to retryablehttp.LeveledLogger
type Logger struct {
	logger *logrus.Logger
}

var _ retryablehttp.LeveledLogger = (*Logger)(nil)

// NewLogger wraps logger
func NewLogger(logger *logrus.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Error(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Warn(msg)
}

func (l *Logger) entry(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{"component": "httpclient"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if key == "url" {
			fields[key] = redact(fmt.Sprint(keysAndValues[i+1]))
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return l.logger.WithFields(fields)
}
