// Package virtualbus tracks the devices exported on one USB/IP bus and assigns
// their addresses.
package virtualbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ogxbridge/ogxbridge/usb"
	"github.com/ogxbridge/ogxbridge/usbip"
)

const sysfsBase = "/sys/devices/platform/ogxbridge/usb"

var (
	ErrDuplicate = errors.New("device already registered on this bus")
	ErrNotFound  = errors.New("device not found")
)

// VirtualBus manages USB bus topology and auto-assigns device addresses.
type VirtualBus struct {
	mutex           sync.Mutex
	busId           uint32
	allocatedDevIDs map[uint32]bool
	devices         []busDevice
}

// DeviceMeta exposes a registered device and its metadata for external queries.
type DeviceMeta struct {
	Dev  usb.Device
	Meta usbip.ExportMeta
}

// New creates a bus with the given number. Bus numbers start at 1.
func New(busId uint32) *VirtualBus {
	if busId == 0 {
		busId = 1
	}
	return &VirtualBus{
		busId:           busId,
		allocatedDevIDs: make(map[uint32]bool),
	}
}

// Add registers dev on the lowest free address. The returned context is
// cancelled when the device is removed or the bus is closed.
func (vb *VirtualBus) Add(dev usb.Device) (context.Context, usbip.ExportMeta, error) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()

	for _, d := range vb.devices {
		if d.dev == dev {
			return nil, usbip.ExportMeta{}, ErrDuplicate
		}
	}
	var devID uint32
	for i := uint32(1); ; i++ {
		if !vb.allocatedDevIDs[i] {
			devID = i
			vb.allocatedDevIDs[i] = true
			break
		}
	}

	meta := usbip.NewExportMeta(sysfsBase, vb.busId, devID)
	ctx, cancel := context.WithCancel(context.Background())
	vb.devices = append(vb.devices, busDevice{dev: dev, meta: meta, ctx: ctx, cancel: cancel})
	return ctx, meta, nil
}

// GetAllDeviceMetas returns a copy of all registered devices with their export metadata.
func (vb *VirtualBus) GetAllDeviceMetas() []DeviceMeta {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	out := make([]DeviceMeta, 0, len(vb.devices))
	for _, d := range vb.devices {
		out = append(out, DeviceMeta{Dev: d.dev, Meta: d.meta})
	}
	return out
}

// Lookup finds a device by its "bus-dev" id along with its lifetime context.
func (vb *VirtualBus) Lookup(busid string) (DeviceMeta, context.Context, bool) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	for _, d := range vb.devices {
		if d.meta.BusID() == busid {
			return DeviceMeta{Dev: d.dev, Meta: d.meta}, d.ctx, true
		}
	}
	return DeviceMeta{}, nil, false
}

func (vb *VirtualBus) BusID() uint32 {
	return vb.busId
}

// Remove unregisters a device and cancels its context, which ends any
// client session bound to it.
func (vb *VirtualBus) Remove(dev usb.Device) error {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	for i, d := range vb.devices {
		if d.dev == dev {
			d.cancel()
			delete(vb.allocatedDevIDs, d.meta.DevId)
			vb.devices = append(vb.devices[:i], vb.devices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("bus %d: %w", vb.busId, ErrNotFound)
}

// Close removes every device.
func (vb *VirtualBus) Close() error {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	for _, d := range vb.devices {
		d.cancel()
	}
	vb.devices = nil
	clear(vb.allocatedDevIDs)
	return nil
}

type busDevice struct {
	dev    usb.Device
	meta   usbip.ExportMeta
	ctx    context.Context
	cancel context.CancelFunc
}
