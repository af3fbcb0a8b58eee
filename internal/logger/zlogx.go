package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	maxMessageSize = 56
	maxFileSize    = 24
	maxLineSize    = 4
)

var (
	timestampColor = color.New(color.FgHiCyan, color.Italic)
	callerColor    = color.New(color.FgHiMagenta)
	messageColor   = color.New(color.FgWhite)
	fieldKeyColor  = color.New(color.FgHiYellow)
	fieldValColor  = color.New(color.FgCyan)
)

var logLevels = map[string]logLevel{
	zerolog.LevelTraceValue: {Text: "TRAC", Color: color.New(color.FgHiBlack, color.Bold)},
	zerolog.LevelDebugValue: {Text: "DEBG", Color: color.New(color.FgHiBlue, color.Bold)},
	zerolog.LevelInfoValue:  {Text: "INFO", Color: color.New(color.FgHiGreen, color.Bold)},
	zerolog.LevelWarnValue:  {Text: "WARN", Color: color.New(color.FgHiYellow, color.Bold)},
	zerolog.LevelErrorValue: {Text: "ERRO", Color: color.New(color.FgHiRed, color.Bold)},
	zerolog.LevelFatalValue: {Text: "FATL", Color: color.New(color.FgHiRed, color.Bold)},
	zerolog.LevelPanicValue: {Text: "PANC", Color: color.New(color.FgWhite, color.BgRed, color.Bold)},
}

type logLevel struct {
	Text  string
	Color *color.Color
}

// Config controls the output of a ZLogX logger
type Config struct {
	Level          string
	DateTimeLayout string
	Colored        bool
	JSONFormat     bool
	Output         io.Writer
}

type consoleFormatter struct {
	config *Config
}

// ZLogX wraps a zerolog logger with console formatting and request helpers
type ZLogX struct {
	*zerolog.Logger
	config *Config
}

// New creates a new logger instance from the given configuration
func New(config *Config) (*ZLogX, error) {
	if config == nil {
		config = &Config{
			Level:          "info",
			DateTimeLayout: time.RFC3339,
			Colored:        true,
		}
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.DateTimeLayout == "" {
		config.DateTimeLayout = time.RFC3339
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	var logger zerolog.Logger
	if config.JSONFormat {
		logger = zerolog.New(config.Output).With().Timestamp().Logger()
	} else {
		logger = createConsoleLogger(config)
	}

	logger = logger.Level(level).With().CallerWithSkipFrameCount(3).Logger()

	return &ZLogX{
		Logger: &logger,
		config: config,
	}, nil
}

// createConsoleLogger creates a human readable logger output
func createConsoleLogger(config *Config) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        config.Output,
		NoColor:    !config.Colored,
		TimeFormat: config.DateTimeLayout,
		PartsOrder: []string{"time", "level", "caller", "message"},
	}

	if config.Colored {
		formatter := &consoleFormatter{config: config}

		output.FormatMessage = formatter.formatMessage
		output.FormatCaller = formatter.formatCaller
		output.FormatLevel = formatter.formatLevel
		output.FormatTimestamp = formatter.formatTimestamp
		output.FormatFieldName = formatter.formatFieldName
		output.FormatFieldValue = formatter.formatFieldValue
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func (f *consoleFormatter) formatLevel(i any) string {
	levelStr, ok := i.(string)
	if !ok {
		return color.New(color.FgHiWhite).Sprint(" UNKN ")
	}

	level, exists := logLevels[levelStr]
	if !exists {
		return color.New(color.FgHiWhite).Sprint(" UNKN ")
	}

	return level.Color.Sprintf(" %s ", level.Text)
}

// formatMessage pads single line messages so fields line up
func (f *consoleFormatter) formatMessage(i any) string {
	msg, ok := i.(string)
	if !ok || len(msg) == 0 {
		return messageColor.Sprint("│ (empty message)")
	}

	if strings.Contains(msg, "\n") {
		lines := strings.Split(msg, "\n")
		for i, line := range lines {
			lines[i] = messageColor.Sprintf("│ %s", line)
		}
		return strings.Join(lines, "\n")
	}

	if len(msg) < maxMessageSize {
		msg = fmt.Sprintf("%-*s", maxMessageSize, msg)
	}

	return messageColor.Sprintf("│ %s", msg)
}

func (f *consoleFormatter) formatCaller(i any) string {
	fname, ok := i.(string)
	if !ok || len(fname) == 0 {
		return ""
	}

	caller := filepath.Base(fname)
	file, line, found := strings.Cut(caller, ":")
	if !found {
		return callerColor.Sprintf("┤ %s ├", caller)
	}

	file = strings.TrimSuffix(file, ".go")
	if len(file) > maxFileSize {
		file = file[:maxFileSize]
	} else {
		file = fmt.Sprintf("%-*s", maxFileSize, file)
	}
	if len(line) > maxLineSize {
		line = line[len(line)-maxLineSize:]
	} else {
		line = fmt.Sprintf("%0*s", maxLineSize, line)
	}

	return callerColor.Sprintf("┤ %s:%s ├", file, line)
}

func (f *consoleFormatter) formatTimestamp(i any) string {
	strTime, ok := i.(string)
	if !ok {
		return timestampColor.Sprintf("[ %v ]", i)
	}

	ts, err := time.ParseInLocation(time.RFC3339, strTime, time.Local)
	if err != nil {
		return timestampColor.Sprintf("[ %s ]", strTime)
	}

	return timestampColor.Sprintf("[ %s ]", ts.In(time.Local).Format(f.config.DateTimeLayout))
}

func (f *consoleFormatter) formatFieldName(i any) string {
	name, ok := i.(string)
	if !ok {
		return fmt.Sprintf("%v", i)
	}
	return fieldKeyColor.Sprint(name)
}

func (f *consoleFormatter) formatFieldValue(i any) string {
	switch v := i.(type) {
	case string:
		if strings.ContainsAny(v, " \t\n\r\"'") {
			return "=" + fieldValColor.Sprintf("%q", v)
		}
		return "=" + fieldValColor.Sprint(v)
	case float32, float64:
		return fieldValColor.Sprintf("=%.4f", v)
	case bool:
		if v {
			return "=" + color.HiGreenString("true")
		}
		return "=" + color.HiRedString("false")
	case nil:
		return "=" + color.HiBlackString("null")
	default:
		return fieldValColor.Sprintf("=%v", v)
	}
}

// Benchmark logs how long a named operation took
func (zl *ZLogX) Benchmark(name string, duration time.Duration) {
	zl.Debug().
		Str("duration", duration.Round(time.Millisecond).String()).
		Msgf("Timing: %s", name)
}

// API logs an HTTP request with a level derived from its status code
func (zl *ZLogX) API(method, path, remoteAddr string, statusCode int, duration time.Duration) {
	zl.WithLevel(statusLevel(statusCode)).
		Str("method", method).
		Str("path", path).
		Str("remote_addr", remoteAddr).
		Int("status_code", statusCode).
		Str("duration", duration.Round(time.Millisecond).String()).
		Msg("HTTP request")
}

// statusLevel returns the log level for an HTTP status code
func statusLevel(statusCode int) zerolog.Level {
	switch {
	case statusCode >= 500:
		return zerolog.ErrorLevel
	case statusCode >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
