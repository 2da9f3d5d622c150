package logging

import "context"

// NullLogger discards everything. The engine falls back to it when no
// application log is requested.
type NullLogger struct{}

// NewNullLogger returns a logger that drops every entry
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (*NullLogger) Debug(context.Context, string, Fields)        {}
func (*NullLogger) Info(context.Context, string, Fields)         {}
func (*NullLogger) Warn(context.Context, string, Fields)         {}
func (*NullLogger) Error(context.Context, string, error, Fields) {}

// WithFields returns the receiver; there is nothing to attach fields to
func (l *NullLogger) WithFields(Fields) Logger { return l }

func (*NullLogger) Close() error { return nil }

var _ Logger = (*NullLogger)(nil)
