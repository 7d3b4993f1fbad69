package usb

import (
	"encoding/binary"
	"fmt"
)

// Device is the minimal interface an emulated device implements.
// It only handles non-EP0 (interrupt/bulk) transfers.
type Device interface {
	// HandleTransfer processes a non-EP0 transfer.
	// ep is the endpoint number (without direction). dir is usbip.DirIn or usbip.DirOut.
	// For IN transfers, return the payload to send; for OUT, consume 'out' and return nil.
	HandleTransfer(ep uint32, dir uint32, out []byte) []byte
	GetDescriptor() *Descriptor
}

// ControlHandler is implemented by devices that answer class or vendor requests on
// EP0. It is consulted before standard request handling. handled=false falls through
// to the standard handler.
type ControlHandler interface {
	HandleControl(setup Setup, out []byte) (data []byte, handled bool)
}

// bmRequestType fields
const (
	RequestDirIn = 0x80

	RequestTypeMask     = 0x60
	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RecipientMask      = 0x1f
	RecipientDevice    = 0x00
	RecipientInterface = 0x01
	RecipientEndpoint  = 0x02
)

// Setup is a decoded 8-byte control SETUP packet.
type Setup struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// ParseSetup decodes a SETUP packet. Multi-byte fields are little endian.
func ParseSetup(b []byte) (Setup, error) {
	if len(b) != 8 {
		return Setup{}, fmt.Errorf("setup packet is %d bytes, want 8", len(b))
	}
	return Setup{
		RequestType: b[0],
		Request:     b[1],
		Value:       binary.LittleEndian.Uint16(b[2:4]),
		Index:       binary.LittleEndian.Uint16(b[4:6]),
		Length:      binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

func (s Setup) In() bool { return s.RequestType&RequestDirIn != 0 }

func (s Setup) Type() uint8 { return s.RequestType & RequestTypeMask }

func (s Setup) Recipient() uint8 { return s.RequestType & RecipientMask }

// Truncate clips data to the host's wLength.
func (s Setup) Truncate(data []byte) []byte {
	if int(s.Length) < len(data) {
		return data[:s.Length]
	}
	return data
}
