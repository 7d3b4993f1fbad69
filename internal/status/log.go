package status

import (
	"log/slog"

	"github.com/ogxbridge/ogxbridge/engine"
)

// Log is a display that writes each summary to the logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Show(s engine.Status) {
	lines := s.Lines()
	l.logger.Info(lines[0]+" | "+lines[1], "event", s.Event, "controller", s.Identity, "phase", s.Phase)
}
