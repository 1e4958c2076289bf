package logger

import "context"

type ctxKey string

// LoggerCtxKey is the context key a Logger is stored under.
const LoggerCtxKey ctxKey = "rso.logger"

// ContextWithLogger returns a copy of ctx carrying log.
func ContextWithLogger(ctx context.Context, log Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, log)
}

// FromContext returns the Logger stored in ctx, or the package's default
// logger (info level, text to stderr) when ctx carries none or a value of
// the wrong type.
func FromContext(ctx context.Context) Logger {
	if ctx == nil {
		return defaultLogger
	}
	v := ctx.Value(LoggerCtxKey)
	if v == nil {
		return defaultLogger
	}
	log, ok := v.(Logger)
	if !ok || log == nil {
		return defaultLogger
	}
	return log
}
