// Package usb contains helpers for building USB descriptors and data.
package usb

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Standard descriptor types.
const (
	DeviceDescType    = 0x01
	ConfigDescType    = 0x02
	StringDescType    = 0x03
	InterfaceDescType = 0x04
	EndpointDescType  = 0x05
)

const (
	DeviceDescLen    = 18
	ConfigDescLen    = 9
	InterfaceDescLen = 9
	EndpointDescLen  = 7
)

// Endpoint transfer types (bmAttributes).
const (
	TransferControl     = 0x00
	TransferIsochronous = 0x01
	TransferBulk        = 0x02
	TransferInterrupt   = 0x03
)

// Descriptor holds all static descriptor/config data for a device.
type Descriptor struct {
	Device     DeviceDescriptor
	Interfaces []InterfaceConfig
	Strings    map[uint8]string
}

// InterfaceConfig holds all descriptors for a single interface.
type InterfaceConfig struct {
	Descriptor InterfaceDescriptor
	Endpoints  []EndpointDescriptor
	// ClassDescriptor is emitted between the interface and its endpoints.
	ClassDescriptor []byte
	// VendorData is emitted after the endpoints.
	VendorData []byte
}

// EncodeStringDescriptor converts a UTF-8 string to a UTF-16LE string descriptor.
func EncodeStringDescriptor(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 2, 2+len(units)*2)
	buf[0] = uint8(2 + len(units)*2)
	buf[1] = StringDescType
	for _, u := range units {
		buf = binary.LittleEndian.AppendUint16(buf, u)
	}
	return buf
}

// LangIDs returns the string descriptor zero listing the given LANGIDs.
func LangIDs(ids ...uint16) []byte {
	buf := []byte{uint8(2 + 2*len(ids)), StringDescType}
	for _, id := range ids {
		buf = binary.LittleEndian.AppendUint16(buf, id)
	}
	return buf
}

// DeviceDescriptor represents the standard USB device descriptor.
// BLength is computed dynamically; BDescriptorType is implied DeviceDescType.
type DeviceDescriptor struct {
	BcdUSB             uint16 // LE
	BDeviceClass       uint8
	BDeviceSubClass    uint8
	BDeviceProtocol    uint8
	BMaxPacketSize0    uint8
	IDVendor           uint16 // LE
	IDProduct          uint16 // LE
	BcdDevice          uint16 // LE
	IManufacturer      uint8
	IProduct           uint8
	ISerialNumber      uint8
	BNumConfigurations uint8
	Speed              uint32 // USB speed: 1=low, 2=full, 3=high, 4=super
}

// USB/IP speed values.
const (
	SpeedLow  = 1
	SpeedFull = 2
	SpeedHigh = 3
)

// Bytes returns the device descriptor.
func (d Descriptor) Bytes() []byte {
	dd := d.Device
	b := make([]byte, 0, DeviceDescLen)
	b = append(b, DeviceDescLen, DeviceDescType)
	b = binary.LittleEndian.AppendUint16(b, dd.BcdUSB)
	b = append(b, dd.BDeviceClass, dd.BDeviceSubClass, dd.BDeviceProtocol, dd.BMaxPacketSize0)
	b = binary.LittleEndian.AppendUint16(b, dd.IDVendor)
	b = binary.LittleEndian.AppendUint16(b, dd.IDProduct)
	b = binary.LittleEndian.AppendUint16(b, dd.BcdDevice)
	return append(b, dd.IManufacturer, dd.IProduct, dd.ISerialNumber, dd.BNumConfigurations)
}

// ConfigHeader represents the USB configuration descriptor header (9 bytes).
type ConfigHeader struct {
	WTotalLength        uint16 // LE, to be patched after building
	BNumInterfaces      uint8
	BConfigurationValue uint8
	IConfiguration      uint8
	BMAttributes        uint8
	BMaxPower           uint8
}

// ConfigurationBytes builds the full configuration descriptor for configuration 1.
func (d Descriptor) ConfigurationBytes(attributes, maxPower uint8) []byte {
	var b bytes.Buffer
	ConfigHeader{
		BNumInterfaces:      uint8(len(d.Interfaces)),
		BConfigurationValue: 1,
		BMAttributes:        attributes,
		BMaxPower:           maxPower,
	}.Write(&b)
	for _, iface := range d.Interfaces {
		iface.Descriptor.Write(&b)
		b.Write(iface.ClassDescriptor)
		for _, ep := range iface.Endpoints {
			ep.Write(&b)
		}
		b.Write(iface.VendorData)
	}
	data := b.Bytes()
	binary.LittleEndian.PutUint16(data[2:4], uint16(len(data)))
	return data
}

// Endpoint finds an endpoint descriptor by address.
func (d Descriptor) Endpoint(addr uint8) (EndpointDescriptor, bool) {
	for _, iface := range d.Interfaces {
		for _, ep := range iface.Endpoints {
			if ep.BEndpointAddress == addr {
				return ep, true
			}
		}
	}
	return EndpointDescriptor{}, false
}

func (h ConfigHeader) Write(b *bytes.Buffer) {
	b.WriteByte(ConfigDescLen)
	b.WriteByte(ConfigDescType)
	_ = binary.Write(b, binary.LittleEndian, h.WTotalLength)
	b.WriteByte(h.BNumInterfaces)
	b.WriteByte(h.BConfigurationValue)
	b.WriteByte(h.IConfiguration)
	b.WriteByte(h.BMAttributes)
	b.WriteByte(h.BMaxPower)
}

// InterfaceDescriptor (9 bytes) for each interface altsetting.
type InterfaceDescriptor struct {
	BInterfaceNumber   uint8
	BAlternateSetting  uint8
	BNumEndpoints      uint8
	BInterfaceClass    uint8
	BInterfaceSubClass uint8
	BInterfaceProtocol uint8
	IInterface         uint8
}

func (i InterfaceDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(InterfaceDescLen)
	b.WriteByte(InterfaceDescType)
	b.WriteByte(i.BInterfaceNumber)
	b.WriteByte(i.BAlternateSetting)
	b.WriteByte(i.BNumEndpoints)
	b.WriteByte(i.BInterfaceClass)
	b.WriteByte(i.BInterfaceSubClass)
	b.WriteByte(i.BInterfaceProtocol)
	b.WriteByte(i.IInterface)
}

// EndpointDescriptor (7 bytes) for each endpoint.
type EndpointDescriptor struct {
	BEndpointAddress uint8
	BMAttributes     uint8
	WMaxPacketSize   uint16 // LE
	BInterval        uint8
}

func (e EndpointDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(EndpointDescLen)
	b.WriteByte(EndpointDescType)
	b.WriteByte(e.BEndpointAddress)
	b.WriteByte(e.BMAttributes)
	_ = binary.Write(b, binary.LittleEndian, e.WMaxPacketSize)
	b.WriteByte(e.BInterval)
}
