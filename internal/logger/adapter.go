package logger

import (
	"fmt"
	"io"
	"time"

	"onu-map/internal/domain"

	"github.com/rs/zerolog"
)

type ZLogXAdapter struct {
	*ZLogX
}

var (
	_ domain.Logger        = (*ZLogXAdapter)(nil)
	_ domain.Observability = (*ZLogXAdapter)(nil)
)

// Discard returns an adapter that drops every entry
func Discard() *ZLogXAdapter {
	nop := zerolog.Nop()
	return &ZLogXAdapter{&ZLogX{Logger: &nop, config: &Config{Output: io.Discard}}}
}

func (s *ZLogXAdapter) derive(l zerolog.Logger) *ZLogXAdapter {
	return &ZLogXAdapter{&ZLogX{Logger: &l, config: s.config}}
}

// Print implements Logger.
func (s *ZLogXAdapter) Print(args ...any) {
	s.Logger.Print(args...)
}

// Debug implements Logger.
func (s *ZLogXAdapter) Debug(args ...any) {
	s.Logger.Debug().Msg(fmt.Sprint(args...))
}

// Info implements Logger.
func (s *ZLogXAdapter) Info(args ...any) {
	s.Logger.Info().Msg(fmt.Sprint(args...))
}

// Warn implements Logger.
func (s *ZLogXAdapter) Warn(args ...any) {
	s.Logger.Warn().Msg(fmt.Sprint(args...))
}

// Error implements Logger.
func (s *ZLogXAdapter) Error(args ...any) {
	s.Logger.Error().Msg(fmt.Sprint(args...))
}

// Fatal implements Logger.
func (s *ZLogXAdapter) Fatal(args ...any) {
	s.Logger.Fatal().Msg(fmt.Sprint(args...))
}

// Printf implements Logger.
func (s *ZLogXAdapter) Printf(format string, args ...any) {
	s.Logger.Printf(format, args...)
}

// Debugf implements Logger.
func (s *ZLogXAdapter) Debugf(format string, args ...any) {
	s.Logger.Debug().Msgf(format, args...)
}

// Infof implements Logger.
func (s *ZLogXAdapter) Infof(format string, args ...any) {
	s.Logger.Info().Msgf(format, args...)
}

// Warnf implements Logger.
func (s *ZLogXAdapter) Warnf(format string, args ...any) {
	s.Logger.Warn().Msgf(format, args...)
}

// Errorf implements Logger.
func (s *ZLogXAdapter) Errorf(format string, args ...any) {
	s.Logger.Error().Msgf(format, args...)
}

// Fatalf implements Logger.
func (s *ZLogXAdapter) Fatalf(format string, args ...any) {
	s.Logger.Fatal().Msgf(format, args...)
}

// WithError implements Logger.
func (s *ZLogXAdapter) WithError(err error) domain.Logger {
	return s.derive(s.With().Err(err).Logger())
}

// WithField implements Logger.
func (s *ZLogXAdapter) WithField(key string, value any) domain.Logger {
	return s.derive(s.With().Interface(key, value).Logger())
}

// WithFields implements Logger.
func (s *ZLogXAdapter) WithFields(fields map[string]any) domain.Logger {
	return s.derive(s.With().Fields(fields).Logger())
}

// Benchmark implements Observability.
func (s *ZLogXAdapter) Benchmark(name string, duration time.Duration) {
	s.ZLogX.Benchmark(name, duration)
}

// API implements Observability.
func (s *ZLogXAdapter) API(method, path, remoteAddr string, statusCode int, duration time.Duration) {
	s.ZLogX.API(method, path, remoteAddr, statusCode, duration)
}
