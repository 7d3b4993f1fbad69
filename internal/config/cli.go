package config

import (
	"github.com/ogxbridge/ogxbridge/internal/cmd"
	"github.com/ogxbridge/ogxbridge/internal/log"
)

type CLI struct {
	Log        log.Config `embed:"" prefix:"log."`
	ConfigFile string     `name:"config" help:"Config file to load before the default locations" type:"path" env:"OGXBRIDGE_CONFIG"`

	Run       cmd.Run           `cmd:"" default:"withargs" help:"Bridge USB controllers to the console (default)"`
	Devices   cmd.Devices       `cmd:"" help:"List supported controllers on the USB bus"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
	Install   cmd.Install       `cmd:"" help:"Install as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the systemd service"`
}

// QuietConsole reports whether stdout belongs to the terminal status panel.
func (c *CLI) QuietConsole(command string, tty bool) bool {
	return tty && command == "run" && c.Run.Status.Enabled("terminal")
}
