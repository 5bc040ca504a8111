package logging

import "github.com/rs/zerolog"

// badKey labels a value without a string key, as slog does.
const badKey = "!BADKEY"

// DispatcherLogger adapts zerolog.Logger to the dispatcher.Logger interface.
// Every event carries component=dispatcher; an "error" value is written as
// the zerolog error field.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger creates a new DispatcherLogger wrapping a zerolog.Logger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	write(l.logger.Debug(), msg, keysAndValues)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	write(l.logger.Info(), msg, keysAndValues)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	write(l.logger.Error(), msg, keysAndValues)
}

func write(e *zerolog.Event, msg string, keysAndValues []any) {
	if e == nil {
		return
	}
	fields := toFields(keysAndValues)
	if err, ok := fields["error"].(error); ok {
		delete(fields, "error")
		e = e.Err(err)
	}
	e.Fields(fields).Msg(msg)
}

// toFields converts key-value pairs to a map for zerolog. A trailing value
// or a non-string key is kept under badKey.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok || i+1 == len(keysAndValues) {
			fields[badKey] = keysAndValues[i]
			if !ok && i+1 < len(keysAndValues) {
				i--
			}
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
