package domain

import "time"

type Logger interface {
	// Context methods return a logger derived from the receiver
	// and decorated with the given fields.
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	WithError(err error) Logger

	// Standard log functions
	Print(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	// Formatted log functions
	Printf(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Observability adds timing and request logging on top of Logger
type Observability interface {
	Logger

	Benchmark(name string, duration time.Duration)
	API(method, path, remoteAddr string, statusCode int, duration time.Duration)
}
