// Package duke emulates the original Xbox "Duke" controller (XID).
package duke

import (
	"sync"

	"github.com/ogxbridge/ogxbridge/usb"
	"github.com/ogxbridge/ogxbridge/usbip"
)

type Duke struct {
	stateMu    sync.Mutex
	inputState InputState
	rumbleFunc func(RumbleState)
	descriptor usb.Descriptor
}

// New returns a Duke with a neutral input state.
func New() *Duke {
	return &Duke{descriptor: defaultDescriptor}
}

// SetRumbleCallback sets a callback invoked for every rumble report from the
// console. It runs on the USB/IP connection goroutine.
func (d *Duke) SetRumbleCallback(f func(RumbleState)) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.rumbleFunc = f
}

// UpdateInputState replaces the state served to the console (thread-safe).
func (d *Duke) UpdateInputState(state InputState) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.inputState = state
}

func (d *Duke) report() []byte {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.inputState.BuildReport()
}

func (d *Duke) rumble(data []byte) {
	var r RumbleState
	if err := r.UnmarshalBinary(data); err != nil || data[0] != 0x00 {
		return
	}
	d.stateMu.Lock()
	f := d.rumbleFunc
	d.stateMu.Unlock()
	if f != nil {
		f(r)
	}
}

func (d *Duke) GetDescriptor() *usb.Descriptor {
	return &d.descriptor
}

// HandleTransfer serves input reports on 0x81 and takes rumble on 0x02.
func (d *Duke) HandleTransfer(ep uint32, dir uint32, out []byte) []byte {
	switch {
	case dir == usbip.DirIn && ep == inEndpoint:
		return d.report()
	case dir == usbip.DirOut && ep == outEndpoint:
		d.rumble(out)
	}
	return nil
}

var (
	xidDescriptor = []byte{
		0x10, 0x42, 0x00, 0x01, 0x01, 0x02, InputReportSize, OutputReportSize,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	inputCapabilities = []byte{
		0x00, InputReportSize, 0xFF, 0x00,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	outputCapabilities = []byte{0x00, OutputReportSize, 0xFF, 0xFF, 0xFF, 0xFF}
)

// HandleControl answers the XID vendor requests and the HID report requests.
func (d *Duke) HandleControl(setup usb.Setup, out []byte) ([]byte, bool) {
	switch setup.Type() {
	case usb.RequestTypeVendor:
		if !setup.In() {
			return nil, false
		}
		switch {
		case setup.Request == reqGetDescriptor && setup.Value == xidDescriptorValue:
			return setup.Truncate(xidDescriptor), true
		case setup.Request == reqGetCapabilities && setup.Value == reportInput:
			return setup.Truncate(inputCapabilities), true
		case setup.Request == reqGetCapabilities && setup.Value == reportOutput:
			return setup.Truncate(outputCapabilities), true
		}
	case usb.RequestTypeClass:
		switch {
		case setup.In() && setup.Request == reqHIDGetReport && setup.Value == reportInput:
			return setup.Truncate(d.report()), true
		case !setup.In() && setup.Request == reqHIDSetReport && setup.Value == reportOutput:
			d.rumble(out)
			return nil, true
		}
	}
	return nil, false
}

var defaultDescriptor = usb.Descriptor{
	Device: usb.DeviceDescriptor{
		BcdUSB:             0x0110,
		BMaxPacketSize0:    0x08,
		IDVendor:           VendorID,
		IDProduct:          ProductID,
		BcdDevice:          0x0100,
		BNumConfigurations: 0x01,
		Speed:              usb.SpeedFull,
	},
	Interfaces: []usb.InterfaceConfig{
		{
			Descriptor: usb.InterfaceDescriptor{
				BInterfaceNumber:   0x00,
				BNumEndpoints:      0x02,
				BInterfaceClass:    0x58,
				BInterfaceSubClass: 0x42,
			},
			Endpoints: []usb.EndpointDescriptor{
				{BEndpointAddress: 0x81, BMAttributes: usb.TransferInterrupt, WMaxPacketSize: 0x0020, BInterval: 0x04},
				{BEndpointAddress: 0x02, BMAttributes: usb.TransferInterrupt, WMaxPacketSize: 0x0020, BInterval: 0x04},
			},
		},
	},
}
