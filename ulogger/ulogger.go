// Package ulogger defines the logger used throughout the module. Output goes through zerolog, either as
// aligned console lines or as JSON.
package ulogger

const (
	// LoggerTypePretty writes aligned, colorized console lines. It is the default.
	LoggerTypePretty = "zerolog"
	// LoggerTypeJSON writes one JSON object per line.
	LoggerTypeJSON = "json"
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

func New(service string, options ...Option) Logger {
	return NewZeroLogger(service, options...)
}
