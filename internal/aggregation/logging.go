package aggregation

import (
	"fmt"
	"log/slog"
)

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("[Cron] "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("[Cron] "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// poolLogger adapts slog to ants.Logger.
type poolLogger struct {
	logger *slog.Logger
}

func (l poolLogger) Printf(format string, args ...interface{}) {
	l.logger.Error("[Dispatcher] " + fmt.Sprintf(format, args...))
}
