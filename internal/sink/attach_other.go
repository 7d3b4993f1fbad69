//go:build !linux

package sink

import (
	"context"
	"errors"
	"log/slog"
)

func attachLocal(context.Context, string, uint16, *slog.Logger) error {
	return errors.New("auto attach is only supported on linux")
}

func CheckAutoAttach(logger *slog.Logger) bool {
	logger.Warn("auto attach is only supported on linux; attach the pad with a usbip client")
	return false
}
