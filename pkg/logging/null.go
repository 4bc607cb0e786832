package logging

import "context"

// Discard is the logger collaborators fall back to when none is given
var Discard Logger = NullLogger{}

// NullLogger drops every record
type NullLogger struct{}

// NewNullLogger returns Discard
func NewNullLogger() Logger {
	return Discard
}

func (NullLogger) Debug(context.Context, string, Fields) {}

func (NullLogger) Info(context.Context, string, Fields) {}

func (NullLogger) Warn(context.Context, string, Fields) {}

func (NullLogger) Error(context.Context, string, error, Fields) {}

func (NullLogger) WithFields(Fields) Logger { return Discard }

func (NullLogger) Close() error { return nil }
