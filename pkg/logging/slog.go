package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Config describes where and how a Logger writes
type Config struct {
	// Level is the minimum level written to every output
	Level Level
	// Console receives colored human output; nil disables it
	Console io.Writer
	// File is the log file path; empty disables file logging
	File string
	// Format is the log file format (json or text)
	Format Format
	// MaxSize is the maximum file size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of rotated files to keep
	MaxBackups int
}

// SlogLogger implements Logger on top of log/slog handlers
type SlogLogger struct {
	logger *slog.Logger
	file   *RotatingFile
}

// New builds a logger from cfg. With neither a console nor a file it
// behaves like a NullLogger.
func New(cfg Config) (*SlogLogger, error) {
	level := cfg.Level.slogLevel()
	var handlers []slog.Handler

	if cfg.Console != nil {
		handlers = append(handlers, tint.NewHandler(cfg.Console, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(cfg.Console),
		}))
	}

	var file *RotatingFile
	if cfg.File != "" {
		var err error
		file, err = OpenRotatingFile(cfg.File, cfg.MaxSize, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		opts := &slog.HandlerOptions{Level: level}
		if cfg.Format == FormatJSON {
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(file, opts))
		}
	}

	return &SlogLogger{
		logger: slog.New(fanout(handlers)),
		file:   file,
	}, nil
}

// Debug logs a debug message
func (l *SlogLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelDebug, msg, nil, fields)
}

// Info logs an info message
func (l *SlogLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelInfo, msg, nil, fields)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelWarn, msg, nil, fields)
}

// Error logs an error message
func (l *SlogLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ctx, slog.LevelError, msg, err, fields)
}

// WithFields returns a logger with additional fields. The derived logger
// shares the log file; only the original closes it.
func (l *SlogLogger) WithFields(fields Fields) Logger {
	return &SlogLogger{logger: l.logger.With(attrs(fields)...)}
}

// Close closes the log file, if any
func (l *SlogLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, err error, fields Fields) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}
	args := attrs(fields)
	if err != nil {
		args = append(args, tint.Err(err))
	}
	l.logger.Log(ctx, level, msg, args...)
}

// attrs converts fields to slog arguments in key order
func attrs(fields Fields) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, slog.Any(k, fields[k]))
	}
	return args
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// multiHandler sends each record to every handler that accepts its level
type multiHandler []slog.Handler

func fanout(handlers []slog.Handler) slog.Handler {
	return multiHandler(handlers)
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m multiHandler) WithAttrs(as []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(as)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
