package log

import (
	"github.com/rs/zerolog"
)

type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter wraps an existing zerolog logger, e.g. one carrying
// request scoped fields.
func NewZerologAdapter(logger zerolog.Logger) Logger {
	return &ZerologAdapter{
		logger: logger,
	}
}

func (z *ZerologAdapter) Debugf(format string, args ...any) {
	z.logger.Debug().Msgf(format, args...)
}

func (z *ZerologAdapter) Infof(format string, args ...any) {
	z.logger.Info().Msgf(format, args...)
}

func (z *ZerologAdapter) Warnf(format string, args ...any) {
	z.logger.Warn().Msgf(format, args...)
}

func (z *ZerologAdapter) Errorf(format string, args ...any) {
	z.logger.Error().Msgf(format, args...)
}

type noopLogger struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return noopLogger{}
}

func (noopLogger) Debugf(format string, args ...any) {}
func (noopLogger) Infof(format string, args ...any)  {}
func (noopLogger) Warnf(format string, args ...any)  {}
func (noopLogger) Errorf(format string, args ...any) {}
