package ulogger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorBlue   = 34
	colorWhite  = 37
	colorBold   = 1
)

type ZLoggerWrapper struct {
	zerolog.Logger
	service    string
	loggerType string
	w          io.Writer
}

func NewZeroLogger(service string, options ...Option) *ZLoggerWrapper {
	if service == "" {
		service = "chainstate"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	var z *ZLoggerWrapper

	if opts.loggerType == LoggerTypeJSON {
		z = &ZLoggerWrapper{
			Logger: zerolog.New(opts.writer).With().
				CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1 + opts.skip).
				Str("service", service).
				Timestamp().
				Logger(),
			service: service,
			w:       opts.writer,
		}
	} else {
		z = prettyZeroLogger(opts.writer, service, opts.skip)
	}

	z.loggerType = opts.loggerType
	z.SetLogLevel(opts.logLevel)

	return z
}

var levelColors = map[string]int{
	"debug": colorBlue,
	"info":  colorGreen,
	"warn":  colorYellow,
	"error": colorRed,
	"fatal": colorRed,
	"panic": colorRed,
}

// prettyZeroLogger writes "15:04:05 | LEVEL | service | message" lines, with the caller shortened to
// its last path elements.
func prettyZeroLogger(writer io.Writer, service string, skip int) *ZLoggerWrapper {
	noColor := true
	if f, ok := writer.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
	}

	output := zerolog.ConsoleWriter{
		Out:        writer,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
	}

	output.FormatLevel = func(i interface{}) string {
		name, _ := i.(string)

		color, ok := levelColors[name]
		if !ok {
			color = colorWhite
		}

		return fmt.Sprintf("| %s|", colorize(strings.ToUpper(fmt.Sprintf("%-6s", name)), color, noColor))
	}

	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("| %-8s| %s", service, i)
	}

	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	output.FormatCaller = func(i interface{}) string {
		caller, _ := i.(string)
		if caller == "" {
			return caller
		}

		return colorize(fmt.Sprintf("%-28s", shortCaller(caller, 28)), colorBold, noColor)
	}

	return &ZLoggerWrapper{
		Logger: zerolog.New(output).With().
			CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1 + skip).
			Timestamp().
			Logger(),
		service: service,
		w:       writer,
	}
}

// shortCaller keeps as many trailing path elements of caller as fit in width, and at least the file name.
func shortCaller(caller string, width int) string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, caller); err == nil {
			caller = rel
		}
	}

	parts := strings.Split(caller, "/")
	short := parts[len(parts)-1]

	for i := len(parts) - 2; i >= 0 && len(short)+len(parts[i])+1 <= width; i-- {
		short = parts[i] + "/" + short
	}

	return short
}

// New returns a logger for service with the writer, type and level of z unless options override them.
func (z *ZLoggerWrapper) New(service string, options ...Option) Logger {
	opts := []Option{
		WithWriter(z.w),
		WithLoggerType(z.loggerType),
		WithLevel(z.Logger.GetLevel().String()),
	}

	return NewZeroLogger(service, append(opts, options...)...)
}

func (z *ZLoggerWrapper) Duplicate(options ...Option) Logger {
	opts := &Options{writer: z.w, logLevel: z.Logger.GetLevel().String()}
	for _, o := range options {
		o(opts)
	}

	dup := &ZLoggerWrapper{
		Logger:     z.Logger.Output(opts.writer),
		service:    z.service,
		loggerType: z.loggerType,
		w:          opts.writer,
	}
	dup.SetLogLevel(opts.logLevel)

	return dup
}

// SetLogLevel accepts zerolog level names in any case. Unknown levels fall back to info.
func (z *ZLoggerWrapper) SetLogLevel(logLevel string) {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	z.Logger = z.Logger.Level(level)
}

// LogLevel returns the zerolog level of z.
func (z *ZLoggerWrapper) LogLevel() int {
	return int(z.Logger.GetLevel())
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Fatalf(format string, args ...interface{}) {
	z.Logger.Fatal().Msgf(format, args...)
}

// colorize wraps s in ANSI code c unless disabled or NO_COLOR is set.
func colorize(s interface{}, c int, disabled bool) string {
	if os.Getenv("NO_COLOR") != "" || c == 0 {
		disabled = true
	}

	if disabled {
		return fmt.Sprintf("%s", s)
	}

	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
