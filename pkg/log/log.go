package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface accepted by the pipeline components.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type ZeroLogger struct {
	logger zerolog.Logger
	name   string
}

// Config controls the process wide logger.
type Config struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"` // json or console
	Output string `json:"output" yaml:"output" toml:"output"` // stdout, stderr or a file path
	MaxAge int    `json:"max_age" yaml:"max_age" toml:"max_age"`
}

var output io.Writer = os.Stdout

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}

func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// Setup applies cfg to the global level and to the default output used by
// loggers created afterwards.
func Setup(cfg Config) error {
	level := strings.ToLower(cfg.Level)
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", cfg.Level, err)
	}
	SetGlobalLevel(lvl)

	var w io.Writer
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		maxAge := cfg.MaxAge
		if maxAge <= 0 {
			maxAge = 7
		}
		w = &lumberjack.Logger{
			Filename: cfg.Output,
			MaxAge:   maxAge,
			MaxSize:  100,
			Compress: true,
		}
	}

	switch cfg.Format {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	default:
		return fmt.Errorf("invalid log format '%s'", cfg.Format)
	}

	output = w
	defaultLogger = NewLogger("default", w)
	return nil
}

func NewLogger(name string, out io.Writer) *ZeroLogger {
	if out == nil {
		out = output
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("logger", name).
		Caller().
		Logger()

	return &ZeroLogger{
		logger: logger,
		name:   name,
	}
}

// Named returns a logger sharing the default output under another name.
func Named(name string) *ZeroLogger {
	return NewLogger(name, nil)
}

func (l *ZeroLogger) Debugf(format string, args ...any) {
	l.logger.Debug().CallerSkipFrame(1).Msgf(format, args...)
}

func (l *ZeroLogger) Infof(format string, args ...any) {
	l.logger.Info().CallerSkipFrame(1).Msgf(format, args...)
}

func (l *ZeroLogger) Warnf(format string, args ...any) {
	l.logger.Warn().CallerSkipFrame(1).Msgf(format, args...)
}

func (l *ZeroLogger) Errorf(format string, args ...any) {
	l.logger.Error().CallerSkipFrame(1).Msgf(format, args...)
}

// Zerolog exposes the underlying logger for structured fields.
func (l *ZeroLogger) Zerolog() *zerolog.Logger {
	return &l.logger
}

var defaultLogger = NewLogger("default", nil)

func Debugf(format string, args ...any) {
	_, file, line, ok := runtime.Caller(1)
	event := defaultLogger.logger.Debug()
	if ok {
		event = event.Str("caller", filepath.Base(file)+":"+strconv.Itoa(line))
	}
	event.Msgf(format, args...)
}

func Infof(format string, args ...any) {
	_, file, line, ok := runtime.Caller(1)
	event := defaultLogger.logger.Info()
	if ok {
		event = event.Str("caller", filepath.Base(file)+":"+strconv.Itoa(line))
	}
	event.Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	_, file, line, ok := runtime.Caller(1)
	event := defaultLogger.logger.Warn()
	if ok {
		event = event.Str("caller", filepath.Base(file)+":"+strconv.Itoa(line))
	}
	event.Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	_, file, line, ok := runtime.Caller(1)
	event := defaultLogger.logger.Error()
	if ok {
		event = event.Str("caller", filepath.Base(file)+":"+strconv.Itoa(line))
	}
	event.Msgf(format, args...)
}

func Fatalf(format string, args ...any) {
	_, file, line, ok := runtime.Caller(1)
	event := defaultLogger.logger.Fatal()
	if ok {
		event = event.Str("caller", filepath.Base(file)+":"+strconv.Itoa(line))
	}
	event.Msgf(format, args...)
	// zerolog will call os.Exit(1) when the event is actually logged
}
