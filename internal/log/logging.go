// Package log builds the process slog.Logger and the raw packet logger.
//
// Without a log file, records below Error go to stdout and errors go to stderr.
// With a log file, the console only gets errors unless quiet is false.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is below Debug and also enables raw packet dumps.
const LevelTrace slog.Level = -8

// Config is the logging block of the CLI.
type Config struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"OGXBRIDGE_LOG_LEVEL"`
	File    string `help:"Also write the log to this file" type:"path" env:"OGXBRIDGE_LOG_FILE"`
	RawFile string `help:"Hex dump controller and USB/IP traffic to this file" type:"path" env:"OGXBRIDGE_LOG_RAW_FILE"`
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// below passes records strictly below max to h.
type below struct {
	max slog.Level
	slog.Handler
}

func (b below) Enabled(ctx context.Context, level slog.Level) bool {
	return level < b.max && b.Handler.Enabled(ctx, level)
}

func (b below) WithAttrs(attrs []slog.Attr) slog.Handler {
	return below{max: b.max, Handler: b.Handler.WithAttrs(attrs)}
}

func (b below) WithGroup(name string) slog.Handler {
	return below{max: b.max, Handler: b.Handler.WithGroup(name)}
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// NewHandler writes text records at level or above to w.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel})
}

// SetupLogger builds the process logger. quietConsole keeps non-error records
// off stdout, which the terminal status panel owns.
func SetupLogger(cfg Config, quietConsole bool) (*slog.Logger, []io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	handlers := fanout{NewHandler(os.Stderr, max(level, slog.LevelError))}
	if !quietConsole {
		handlers = append(handlers, below{max: slog.LevelError, Handler: NewHandler(os.Stdout, level)})
	}

	var closers []io.Closer
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closers = append(closers, f)
		handlers = append(handlers, NewHandler(f, level))
	}
	return slog.New(handlers), closers, nil
}

// SetupRaw opens the raw packet logger. Trace level without a raw file dumps to
// stderr.
func SetupRaw(cfg Config) (RawLogger, io.Closer, error) {
	if cfg.RawFile != "" {
		f, err := os.OpenFile(cfg.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return NewRaw(nil), nil, fmt.Errorf("open raw log file: %w", err)
		}
		return NewRaw(f), f, nil
	}
	if level, _ := ParseLevel(cfg.Level); level <= LevelTrace {
		return NewRaw(os.Stderr), nil, nil
	}
	return NewRaw(nil), nil, nil
}
