//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

var errServiceUnsupported = errors.New("service install is only supported on linux (systemd)")

func install(*slog.Logger, []string) error { return errServiceUnsupported }

func uninstall(*slog.Logger) error { return errServiceUnsupported }
