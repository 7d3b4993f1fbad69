//go:build linux

package sink

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

func attachLocal(ctx context.Context, busid string, port uint16, logger *slog.Logger) error {
	logger.Info("Auto-attaching localhost client", "busid", busid, "port", port)
	cmd := exec.CommandContext(ctx,
		"usbip",
		"--tcp-port", strconv.FormatUint(uint64(port), 10),
		"attach",
		"-r", "localhost",
		"-b", busid,
	)
	output, err := cmd.CombinedOutput()
	logger.Debug("usbip attach output", "output", string(output))
	return err
}

// CheckAutoAttach reports whether the usbip tool and vhci-hcd are available.
func CheckAutoAttach(logger *slog.Logger) bool {
	ok := true
	if _, err := exec.LookPath("usbip"); err != nil {
		logger.Warn("USB/IP tool 'usbip' not found in PATH; auto attach needs it")
		logger.Info("  Ubuntu/Debian: sudo apt install linux-tools-generic")
		logger.Info("  Arch Linux:    sudo pacman -S usbip")
		ok = false
	}
	data, err := os.ReadFile("/proc/modules")
	if err != nil {
		logger.Debug("Could not read /proc/modules", "error", err)
	} else if !bytes.Contains(data, []byte("vhci_hcd")) {
		logger.Warn("USB/IP kernel module 'vhci-hcd' is not loaded")
		logger.Info("  sudo modprobe vhci-hcd")
		ok = false
	}
	return ok
}
