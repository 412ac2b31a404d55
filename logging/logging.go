// Package logging defines the structured logger used across docbind.
//
// Arguments after the message are alternating key/value pairs, in the same
// form log/slog accepts.
package logging

import (
	"log/slog"

	"go.uber.org/zap"
)

// Logger is the logging sink used by connections, resolvers and handlers.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// Exception logs err at error level together with msg.
	Exception(err error, msg string, args ...any)
}

// NewSlog wraps an slog.Logger. A nil logger uses slog.Default().
func NewSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s slogLogger) Exception(err error, msg string, args ...any) {
	s.l.Error(msg, append(args[:len(args):len(args)], "error", err)...)
}

// NewZap wraps a zap.Logger. A nil logger is replaced by zap.NewNop().
func NewZap(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{s: l.Sugar()}
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (z zapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

func (z zapLogger) Exception(err error, msg string, args ...any) {
	z.s.Errorw(msg, append(args[:len(args):len(args)], zap.Error(err))...)
}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Info(string, ...any)             {}
func (nopLogger) Warn(string, ...any)             {}
func (nopLogger) Error(string, ...any)            {}
func (nopLogger) Exception(error, string, ...any) {}
