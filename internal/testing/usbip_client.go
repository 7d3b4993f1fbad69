package testing

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogxbridge/ogxbridge/usbip"
)

// UsbIpClient is a minimal USB/IP client for loopback tests.
type UsbIpClient struct {
	address string
	seq     uint32
}

// Session is an imported device.
type Session struct {
	Conn     net.Conn
	Exported usbip.ExportedDevice
	client   *UsbIpClient
}

func NewUsbIpClient(t *testing.T, addr string) *UsbIpClient {
	t.Helper()
	return &UsbIpClient{address: addr}
}

func (c *UsbIpClient) nextSeq() uint32 {
	return atomic.AddUint32(&c.seq, 1)
}

func (c *UsbIpClient) ListDevices() ([]usbip.ExportedDevice, error) {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := (&usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpReqDevlist}).Write(conn); err != nil {
		return nil, err
	}
	var hdr [usbip.MgmtHeaderSize + 4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, err
	}
	mh, _ := usbip.ParseMgmtHeader(hdr[:])
	if mh.Version != usbip.Version || mh.Command != usbip.OpRepDevlist {
		return nil, fmt.Errorf("unexpected reply %+v", mh)
	}
	n := binary.BigEndian.Uint32(hdr[8:12])

	devices := make([]usbip.ExportedDevice, 0, n)
	for i := uint32(0); i < n; i++ {
		dev, err := readExportedDevice(conn)
		if err != nil {
			return nil, err
		}
		ifaces := make([]byte, 4*int(dev.BNumInterfaces))
		if _, err := io.ReadFull(conn, ifaces); err != nil {
			return nil, err
		}
		for j := 0; j < len(ifaces); j += 4 {
			dev.Interfaces = append(dev.Interfaces, usbip.InterfaceDesc{Class: ifaces[j], SubClass: ifaces[j+1], Protocol: ifaces[j+2]})
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// Import sends OP_REQ_IMPORT for busID and returns the URB session.
func (c *UsbIpClient) Import(busID string) (*Session, error) {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Session, error) {
		conn.Close()
		return nil, err
	}

	if err := (&usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpReqImport}).Write(conn); err != nil {
		return fail(err)
	}
	var bus [usbip.BusIDSize]byte
	copy(bus[:], busID)
	if _, err := conn.Write(bus[:]); err != nil {
		return fail(err)
	}

	var hdr [usbip.MgmtHeaderSize]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return fail(err)
	}
	mh, _ := usbip.ParseMgmtHeader(hdr[:])
	if mh.Command != usbip.OpRepImport {
		return fail(fmt.Errorf("unexpected reply command %x", mh.Command))
	}
	if mh.Status != 0 {
		return fail(fmt.Errorf("import refused: status %d", mh.Status))
	}
	dev, err := readExportedDevice(conn)
	if err != nil {
		return fail(err)
	}
	return &Session{Conn: conn, Exported: dev, client: c}, nil
}

func readExportedDevice(r io.Reader) (usbip.ExportedDevice, error) {
	var base [usbip.ExportedDeviceSize]byte
	if _, err := io.ReadFull(r, base[:]); err != nil {
		return usbip.ExportedDevice{}, err
	}
	return usbip.ParseExportedDevice(base[:])
}

// Submit sends one CMD_SUBMIT and waits for its RET_SUBMIT.
func (s *Session) Submit(ep, dir uint32, setup [8]byte, length uint32, out []byte) (usbip.RetSubmit, []byte, error) {
	cmd := usbip.CmdSubmit{
		Basic: usbip.HeaderBasic{
			Command: usbip.CmdSubmitCode,
			Seqnum:  s.client.nextSeq(),
			Devid:   s.Exported.BusId<<16 | s.Exported.DevId,
			Dir:     dir,
			Ep:      ep,
		},
		TransferBufferLen: length,
		Setup:             setup,
	}
	if dir == usbip.DirOut {
		cmd.TransferBufferLen = uint32(len(out))
	}
	b, _ := cmd.MarshalBinary()
	if dir == usbip.DirOut {
		b = append(b, out...)
	}
	_ = s.Conn.SetDeadline(time.Now().Add(2 * time.Second))
	defer func() { _ = s.Conn.SetDeadline(time.Time{}) }()
	if _, err := s.Conn.Write(b); err != nil {
		return usbip.RetSubmit{}, nil, err
	}

	var hdr [usbip.HeaderSize]byte
	if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
		return usbip.RetSubmit{}, nil, err
	}
	var ret usbip.RetSubmit
	_ = ret.UnmarshalBinary(hdr[:])
	if ret.Basic.Seqnum != cmd.Basic.Seqnum {
		return ret, nil, fmt.Errorf("seqnum mismatch: sent %d got %d", cmd.Basic.Seqnum, ret.Basic.Seqnum)
	}
	var data []byte
	if dir == usbip.DirIn && ret.ActualLength > 0 {
		data = make([]byte, ret.ActualLength)
		if _, err := io.ReadFull(s.Conn, data); err != nil {
			return ret, nil, err
		}
	}
	return ret, data, nil
}

// Control issues an EP0 request. The direction comes from bmRequestType.
func (s *Session) Control(setup [8]byte, out []byte) (usbip.RetSubmit, []byte, error) {
	dir := uint32(usbip.DirOut)
	if setup[0]&0x80 != 0 {
		dir = usbip.DirIn
	}
	length := uint32(setup[6]) | uint32(setup[7])<<8
	return s.Submit(0, dir, setup, length, out)
}

// Unlink sends CMD_UNLINK and returns the reply status.
func (s *Session) Unlink(seq uint32) (int32, error) {
	cmd := usbip.CmdUnlink{
		Basic:        usbip.HeaderBasic{Command: usbip.CmdUnlinkCode, Seqnum: s.client.nextSeq()},
		UnlinkSeqnum: seq,
	}
	b, _ := cmd.MarshalBinary()
	if _, err := s.Conn.Write(b); err != nil {
		return 0, err
	}
	var hdr [usbip.HeaderSize]byte
	if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
		return 0, err
	}
	if usbip.PeekCommand(hdr[:]) != usbip.RetUnlinkCode {
		return 0, fmt.Errorf("unexpected reply %d", usbip.PeekCommand(hdr[:]))
	}
	// status sits where RET_SUBMIT keeps it
	var ret usbip.RetSubmit
	_ = ret.UnmarshalBinary(hdr[:])
	return ret.Status, nil
}

func (s *Session) Close() error { return s.Conn.Close() }
