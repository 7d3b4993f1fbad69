package usb

import "time"

// ServerConfig configures the USB/IP endpoint that exports the emulated pad.
type ServerConfig struct {
	Addr              string        `help:"USB-IP server listen address" default:"127.0.0.1:3241" env:"OGXBRIDGE_USB_ADDR"`
	ConnectionTimeout time.Duration `help:"Deadline for a client to finish the devlist/import handshake" default:"5s" env:"OGXBRIDGE_USB_CONNECTION_TIMEOUT"`
}
