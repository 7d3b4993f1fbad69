package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gousb"

	"github.com/ogxbridge/ogxbridge/internal/host"
)

// Devices lists supported controllers currently plugged in.
type Devices struct{}

// Run is called by Kong when the devices command is executed.
func (d *Devices) Run(logger *slog.Logger) error {
	ctx := gousb.NewContext()
	defer ctx.Close()

	found, err := host.Enumerate(ctx)
	if err != nil {
		// partial results are still useful, usually a permission problem on some device
		logger.Warn("usb enumeration incomplete", "error", err)
	}
	return printDevices(os.Stdout, found)
}

func printDevices(w io.Writer, found []host.Found) error {
	if len(found) == 0 {
		_, err := fmt.Fprintln(w, "no supported controllers found")
		return err
	}
	for _, f := range found {
		if _, err := fmt.Fprintf(w, "%03d:%03d  %s:%s  %-14s %s\n",
			f.Bus, f.Address, f.Model.Vendor, f.Model.Product, f.Model.Identity, f.Model.Name); err != nil {
			return err
		}
	}
	return nil
}
