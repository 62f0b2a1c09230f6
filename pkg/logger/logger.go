package logger

import (
	"log/slog"
	"os"
)

var log *slog.Logger

// Init configures the process-wide structured logger. Safe to call more
// than once; the last call wins.
func Init() {
	log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)
}

func Info(event string, fields map[string]interface{}) {
	logger().Info(event, attrs(fields)...)
}

func InfoWithUser(userID string, event string, fields map[string]interface{}) {
	args := append([]any{slog.String("user_id", userID)}, attrs(fields)...)
	logger().Info(event, args...)
}

func Warn(event string, fields map[string]interface{}) {
	logger().Warn(event, attrs(fields)...)
}

func Error(event string, fields map[string]interface{}) {
	logger().Error(event, attrs(fields)...)
}

func logger() *slog.Logger {
	if log == nil {
		Init()
	}
	return log
}

func attrs(fields map[string]interface{}) []any {
	args := make([]any, 0, len(fields))
	for key, value := range fields {
		args = append(args, slog.Any(key, value))
	}
	return args
}
