// Package usbip holds the USB/IP wire structures. All multi-byte fields are big
// endian.
package usbip

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	Version = 0x0111

	// Management commands
	OpReqDevlist = 0x8005
	OpRepDevlist = 0x0005
	OpReqImport  = 0x8003
	OpRepImport  = 0x0003

	// URB commands
	CmdSubmitCode = 0x00000001
	CmdUnlinkCode = 0x00000002
	RetSubmitCode = 0x00000003
	RetUnlinkCode = 0x00000004

	DirOut = 0x00000000
	DirIn  = 0x00000001

	// HeaderSize is the fixed size of every URB command and reply header.
	HeaderSize = 0x30

	// MgmtHeaderSize is the size of the devlist/import request and reply header.
	MgmtHeaderSize = 8

	// BusIDSize is the fixed width of the busid string in import requests.
	BusIDSize = 32
)

// URB completion status values (negated errno).
const (
	StatusOK        int32 = 0
	StatusStall     int32 = -32  // -EPIPE
	StatusConnReset int32 = -104 // -ECONNRESET
)

// MgmtHeader is the 8-byte header for management ops (devlist/import).
type MgmtHeader struct {
	Version uint16
	Command uint16
	Status  uint32
}

func (h *MgmtHeader) Write(w io.Writer) error {
	var buf [MgmtHeaderSize]byte
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	binary.BigEndian.PutUint16(buf[2:4], h.Command)
	binary.BigEndian.PutUint32(buf[4:8], h.Status)
	_, err := w.Write(buf[:])
	return err
}

// ParseMgmtHeader decodes the first 8 bytes of a management request.
func ParseMgmtHeader(b []byte) (MgmtHeader, error) {
	if len(b) < MgmtHeaderSize {
		return MgmtHeader{}, io.ErrUnexpectedEOF
	}
	return MgmtHeader{
		Version: binary.BigEndian.Uint16(b[0:2]),
		Command: binary.BigEndian.Uint16(b[2:4]),
		Status:  binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// DevListReplyHeader follows the MgmtHeader of OP_REP_DEVLIST.
type DevListReplyHeader struct {
	NDevices uint32
}

func (d *DevListReplyHeader) Write(w io.Writer) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], d.NDevices)
	_, err := w.Write(buf[:])
	return err
}

// ExportMeta is the bus identity of an exported device.
type ExportMeta struct {
	Path     [256]byte
	USBBusId [32]byte
	BusId    uint32
	DevId    uint32
}

// NewExportMeta builds the identity for device devID on bus busID under sysfsBase.
func NewExportMeta(sysfsBase string, busID, devID uint32) ExportMeta {
	var m ExportMeta
	busDev := fmt.Sprintf("%d-%d", busID, devID)
	copy(m.Path[:], fmt.Sprintf("%s%d/%s", sysfsBase, busID, busDev))
	copy(m.USBBusId[:], busDev)
	m.BusId = busID
	m.DevId = devID
	return m
}

// BusID returns the "bus-dev" string clients pass to OP_REQ_IMPORT.
func (m *ExportMeta) BusID() string {
	return cString(m.USBBusId[:])
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// ExportedDevice describes one exported device in devlist/import replies.
type ExportedDevice struct {
	ExportMeta
	Speed uint32

	IDVendor            uint16
	IDProduct           uint16
	BcdDevice           uint16
	BDeviceClass        uint8
	BDeviceSubClass     uint8
	BDeviceProtocol     uint8
	BConfigurationValue uint8
	BNumConfigurations  uint8
	BNumInterfaces      uint8

	Interfaces []InterfaceDesc
}

type InterfaceDesc struct {
	Class    uint8
	SubClass uint8
	Protocol uint8
}

// ExportedDeviceSize is the size of an exported device entry without interfaces.
const ExportedDeviceSize = 312

func (d *ExportedDevice) appendBase(b []byte) []byte {
	b = append(b, d.Path[:]...)
	b = append(b, d.USBBusId[:]...)
	b = binary.BigEndian.AppendUint32(b, d.BusId)
	b = binary.BigEndian.AppendUint32(b, d.DevId)
	b = binary.BigEndian.AppendUint32(b, d.Speed)
	b = binary.BigEndian.AppendUint16(b, d.IDVendor)
	b = binary.BigEndian.AppendUint16(b, d.IDProduct)
	b = binary.BigEndian.AppendUint16(b, d.BcdDevice)
	return append(b,
		d.BDeviceClass,
		d.BDeviceSubClass,
		d.BDeviceProtocol,
		d.BConfigurationValue,
		d.BNumConfigurations,
		d.BNumInterfaces,
	)
}

// WriteDevlist writes the OP_REP_DEVLIST entry, interface triplets included.
func (d *ExportedDevice) WriteDevlist(w io.Writer) error {
	b := d.appendBase(make([]byte, 0, ExportedDeviceSize+4*len(d.Interfaces)))
	for _, iface := range d.Interfaces {
		b = append(b, iface.Class, iface.SubClass, iface.Protocol, 0)
	}
	_, err := w.Write(b)
	return err
}

// WriteImport writes the OP_REP_IMPORT entry, which stops at bNumInterfaces.
func (d *ExportedDevice) WriteImport(w io.Writer) error {
	_, err := w.Write(d.appendBase(make([]byte, 0, ExportedDeviceSize)))
	return err
}

// ParseExportedDevice decodes the fixed part of an exported device entry.
func ParseExportedDevice(b []byte) (ExportedDevice, error) {
	if len(b) < ExportedDeviceSize {
		return ExportedDevice{}, io.ErrUnexpectedEOF
	}
	var d ExportedDevice
	copy(d.Path[:], b[0:256])
	copy(d.USBBusId[:], b[256:288])
	d.BusId = binary.BigEndian.Uint32(b[288:292])
	d.DevId = binary.BigEndian.Uint32(b[292:296])
	d.Speed = binary.BigEndian.Uint32(b[296:300])
	d.IDVendor = binary.BigEndian.Uint16(b[300:302])
	d.IDProduct = binary.BigEndian.Uint16(b[302:304])
	d.BcdDevice = binary.BigEndian.Uint16(b[304:306])
	d.BDeviceClass = b[306]
	d.BDeviceSubClass = b[307]
	d.BDeviceProtocol = b[308]
	d.BConfigurationValue = b[309]
	d.BNumConfigurations = b[310]
	d.BNumInterfaces = b[311]
	return d, nil
}

// HeaderBasic is common to all URB commands and replies.
type HeaderBasic struct {
	Command uint32
	Seqnum  uint32
	Devid   uint32
	Dir     uint32
	Ep      uint32
}

func (h HeaderBasic) put(b []byte) {
	binary.BigEndian.PutUint32(b[0:4], h.Command)
	binary.BigEndian.PutUint32(b[4:8], h.Seqnum)
	binary.BigEndian.PutUint32(b[8:12], h.Devid)
	binary.BigEndian.PutUint32(b[12:16], h.Dir)
	binary.BigEndian.PutUint32(b[16:20], h.Ep)
}

func parseBasic(b []byte) HeaderBasic {
	return HeaderBasic{
		Command: binary.BigEndian.Uint32(b[0:4]),
		Seqnum:  binary.BigEndian.Uint32(b[4:8]),
		Devid:   binary.BigEndian.Uint32(b[8:12]),
		Dir:     binary.BigEndian.Uint32(b[12:16]),
		Ep:      binary.BigEndian.Uint32(b[16:20]),
	}
}

// PeekCommand returns the command code of a URB header.
func PeekCommand(hdr []byte) uint32 {
	if len(hdr) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(hdr[0:4])
}

// CmdSubmit is USBIP_CMD_SUBMIT.
type CmdSubmit struct {
	Basic             HeaderBasic
	TransferFlags     uint32
	TransferBufferLen uint32
	StartFrame        uint32
	NumberOfPackets   uint32
	Interval          uint32
	Setup             [8]byte
}

func (c *CmdSubmit) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	c.Basic.put(b)
	binary.BigEndian.PutUint32(b[20:24], c.TransferFlags)
	binary.BigEndian.PutUint32(b[24:28], c.TransferBufferLen)
	binary.BigEndian.PutUint32(b[28:32], c.StartFrame)
	binary.BigEndian.PutUint32(b[32:36], c.NumberOfPackets)
	binary.BigEndian.PutUint32(b[36:40], c.Interval)
	copy(b[40:48], c.Setup[:])
	return b, nil
}

func (c *CmdSubmit) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return io.ErrUnexpectedEOF
	}
	c.Basic = parseBasic(b)
	c.TransferFlags = binary.BigEndian.Uint32(b[20:24])
	c.TransferBufferLen = binary.BigEndian.Uint32(b[24:28])
	c.StartFrame = binary.BigEndian.Uint32(b[28:32])
	c.NumberOfPackets = binary.BigEndian.Uint32(b[32:36])
	c.Interval = binary.BigEndian.Uint32(b[36:40])
	copy(c.Setup[:], b[40:48])
	return nil
}

func (c *CmdSubmit) Write(w io.Writer) error {
	b, _ := c.MarshalBinary()
	_, err := w.Write(b)
	return err
}

// RetSubmit is USBIP_RET_SUBMIT.
type RetSubmit struct {
	Basic           HeaderBasic
	Status          int32
	ActualLength    uint32
	StartFrame      uint32
	NumberOfPackets uint32
	ErrorCount      uint32
}

func (r *RetSubmit) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	r.Basic.put(b)
	binary.BigEndian.PutUint32(b[20:24], uint32(r.Status))
	binary.BigEndian.PutUint32(b[24:28], r.ActualLength)
	binary.BigEndian.PutUint32(b[28:32], r.StartFrame)
	binary.BigEndian.PutUint32(b[32:36], r.NumberOfPackets)
	binary.BigEndian.PutUint32(b[36:40], r.ErrorCount)
	return b, nil
}

func (r *RetSubmit) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return io.ErrUnexpectedEOF
	}
	r.Basic = parseBasic(b)
	r.Status = int32(binary.BigEndian.Uint32(b[20:24]))
	r.ActualLength = binary.BigEndian.Uint32(b[24:28])
	r.StartFrame = binary.BigEndian.Uint32(b[28:32])
	r.NumberOfPackets = binary.BigEndian.Uint32(b[32:36])
	r.ErrorCount = binary.BigEndian.Uint32(b[36:40])
	return nil
}

// WriteWithPayload writes the header and payload in a single Write call.
func (r *RetSubmit) WriteWithPayload(w io.Writer, payload []byte) error {
	b, _ := r.MarshalBinary()
	_, err := w.Write(append(b, payload...))
	return err
}

// CmdUnlink is USBIP_CMD_UNLINK.
type CmdUnlink struct {
	Basic        HeaderBasic
	UnlinkSeqnum uint32
}

func (c *CmdUnlink) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	c.Basic.put(b)
	binary.BigEndian.PutUint32(b[20:24], c.UnlinkSeqnum)
	return b, nil
}

func (c *CmdUnlink) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return io.ErrUnexpectedEOF
	}
	c.Basic = parseBasic(b)
	c.UnlinkSeqnum = binary.BigEndian.Uint32(b[20:24])
	return nil
}

// RetUnlink is USBIP_RET_UNLINK.
type RetUnlink struct {
	Basic  HeaderBasic
	Status int32
}

func (r *RetUnlink) Write(w io.Writer) error {
	b := make([]byte, HeaderSize)
	r.Basic.put(b)
	binary.BigEndian.PutUint32(b[20:24], uint32(r.Status))
	_, err := w.Write(b)
	return err
}
