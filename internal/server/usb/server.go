// Package usb exports virtual devices to USB/IP clients.
package usb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ogxbridge/ogxbridge/internal/log"
	"github.com/ogxbridge/ogxbridge/usb"
	"github.com/ogxbridge/ogxbridge/usbip"
	"github.com/ogxbridge/ogxbridge/virtualbus"
)

const (
	// USB standard request codes
	usbReqGetStatus        = 0x00
	usbReqClearFeature     = 0x01
	usbReqSetFeature       = 0x03
	usbReqSetAddress       = 0x05
	usbReqGetDescriptor    = 0x06
	usbReqGetConfiguration = 0x08
	usbReqSetConfiguration = 0x09
	usbReqGetInterface     = 0x0a
	usbReqSetInterface     = 0x0b

	// USB configuration values
	usbConfigAttrBusPowered = 0x80
	usbConfigMaxPower100mA  = 50 // In units of 2mA
)

type Server struct {
	config    *ServerConfig
	logger    *slog.Logger
	rawLogger log.RawLogger
	busses    map[uint32]*virtualbus.VirtualBus
	busesMu   sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
	ln        net.Listener
}

func New(config ServerConfig, logger *slog.Logger, rawLogger log.RawLogger) *Server {
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	return &Server{
		config:    &config,
		logger:    logger,
		rawLogger: rawLogger.With("usbip"),
		busses:    make(map[uint32]*virtualbus.VirtualBus),
		ready:     make(chan struct{}),
	}
}

// AddBus registers a bus with the server. If the bus number is already present,
// an error is returned.
func (s *Server) AddBus(bus *virtualbus.VirtualBus) error {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	if bus == nil {
		return fmt.Errorf("bus is nil")
	}
	if _, ok := s.busses[bus.BusID()]; ok {
		return fmt.Errorf("bus %d already registered", bus.BusID())
	}
	s.busses[bus.BusID()] = bus
	return nil
}

// RemoveBus unregisters a bus and removes its devices.
func (s *Server) RemoveBus(busID uint32) error {
	s.busesMu.Lock()
	bus, ok := s.busses[busID]
	delete(s.busses, busID)
	s.busesMu.Unlock()
	if !ok {
		return fmt.Errorf("bus %d not found", busID)
	}
	return bus.Close()
}

// GetBus returns a bus by ID or nil if not present.
func (s *Server) GetBus(busID uint32) *virtualbus.VirtualBus {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	return s.busses[busID]
}

// ListenAndServe starts the USB-IP server and handles incoming connections
// until Close is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("USBIP server listening", "addr", ln.Addr().String())
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("USBIP server stopped")
				return nil
			}
			s.logger.Error("Accept error", "error", err)
			continue
		}
		s.logger.Debug("Client connected", "remote", c.RemoteAddr())
		go func() {
			if err := s.handleConn(c); err != nil {
				if isClientDisconnect(err) {
					s.logger.Info("Client disconnected", "error", err)
				} else {
					s.logger.Error("Connection handler error", "error", err)
				}
			}
		}()
	}
}

// Ready returns a channel that is closed once the server has successfully bound
// to its listen address and is ready to accept connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Close stops the USB server by closing its listener.
func (s *Server) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// ListenPort returns the bound port, or 0 before the server is ready.
func (s *Server) ListenPort() uint16 {
	if s.ln == nil {
		return 0
	}
	if addr, ok := s.ln.Addr().(*net.TCPAddr); ok {
		return uint16(addr.Port)
	}
	return 0
}

// --

func (s *Server) handleConn(conn net.Conn) error {
	defer conn.Close()
	conn = &logConn{Conn: conn, raw: s.rawLogger}
	if s.config.ConnectionTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.config.ConnectionTimeout)); err != nil {
			s.logger.Warn("Failed to set deadline", "error", err)
		}
	}

	var hdrBuf [usbip.MgmtHeaderSize]byte
	if _, err := io.ReadFull(conn, hdrBuf[:]); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	hdr, _ := usbip.ParseMgmtHeader(hdrBuf[:])
	if hdr.Version != usbip.Version {
		return fmt.Errorf("unsupported usbip version %#04x", hdr.Version)
	}

	switch hdr.Command {
	case usbip.OpReqDevlist:
		s.logger.Debug("OP_REQ_DEVLIST")
		return s.handleDevList(conn)
	case usbip.OpReqImport:
		dev, ctx, err := s.handleImport(conn)
		if err != nil {
			return fmt.Errorf("handle import: %w", err)
		}
		return s.handleUrbStream(ctx, conn, dev)
	}
	return fmt.Errorf("protocol violation: unexpected op %#04x", hdr.Command)
}

func exportedDevice(m virtualbus.DeviceMeta) usbip.ExportedDevice {
	desc := m.Dev.GetDescriptor()
	exp := usbip.ExportedDevice{
		ExportMeta:          m.Meta,
		Speed:               desc.Device.Speed,
		IDVendor:            desc.Device.IDVendor,
		IDProduct:           desc.Device.IDProduct,
		BcdDevice:           desc.Device.BcdDevice,
		BDeviceClass:        desc.Device.BDeviceClass,
		BDeviceSubClass:     desc.Device.BDeviceSubClass,
		BDeviceProtocol:     desc.Device.BDeviceProtocol,
		BConfigurationValue: 1,
		BNumConfigurations:  desc.Device.BNumConfigurations,
		BNumInterfaces:      uint8(len(desc.Interfaces)),
	}
	for _, iface := range desc.Interfaces {
		exp.Interfaces = append(exp.Interfaces, usbip.InterfaceDesc{
			Class:    iface.Descriptor.BInterfaceClass,
			SubClass: iface.Descriptor.BInterfaceSubClass,
			Protocol: iface.Descriptor.BInterfaceProtocol,
		})
	}
	return exp
}

func (s *Server) handleDevList(conn net.Conn) error {
	var buf bytes.Buffer
	rep := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepDevlist}
	_ = rep.Write(&buf)
	metas := s.getAllDeviceMetas()
	dlh := usbip.DevListReplyHeader{NDevices: uint32(len(metas))}
	_ = dlh.Write(&buf)
	for _, m := range metas {
		exp := exportedDevice(m)
		_ = exp.WriteDevlist(&buf)
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write devlist: %w", err)
	}
	return nil
}

func (s *Server) handleImport(conn net.Conn) (usb.Device, context.Context, error) {
	var rest [usbip.BusIDSize]byte
	if _, err := io.ReadFull(conn, rest[:]); err != nil {
		return nil, nil, fmt.Errorf("read import busid: %w", err)
	}
	reqBus := string(bytes.TrimRight(rest[:], "\x00"))
	s.logger.Info("Import request", "busid", reqBus)

	var buf bytes.Buffer
	m, ctx, ok := s.lookup(reqBus)
	if !ok {
		rep := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepImport, Status: 1}
		_ = rep.Write(&buf)
		_, _ = conn.Write(buf.Bytes())
		return nil, nil, fmt.Errorf("no device matches busid %s", reqBus)
	}
	rep := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepImport}
	_ = rep.Write(&buf)
	exp := exportedDevice(m)
	_ = exp.WriteImport(&buf)
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return nil, nil, fmt.Errorf("write import reply failed: %w", err)
	}
	return m.Dev, ctx, nil
}

func (s *Server) lookup(busid string) (virtualbus.DeviceMeta, context.Context, bool) {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	for _, b := range s.busses {
		if m, ctx, ok := b.Lookup(busid); ok {
			return m, ctx, true
		}
	}
	return virtualbus.DeviceMeta{}, nil, false
}

// getAllDeviceMetas aggregates device metas from all registered busses.
func (s *Server) getAllDeviceMetas() []virtualbus.DeviceMeta {
	s.busesMu.Lock()
	defer s.busesMu.Unlock()
	out := []virtualbus.DeviceMeta{}
	for _, b := range s.busses {
		out = append(out, b.GetAllDeviceMetas()...)
	}
	return out
}

type logConn struct {
	net.Conn
	raw log.RawLogger
}

func (lc *logConn) Read(p []byte) (int, error) {
	n, err := lc.Conn.Read(p)
	if n > 0 {
		lc.raw.Log(true, p[:n])
	}
	return n, err
}

func (lc *logConn) Write(p []byte) (int, error) {
	n, err := lc.Conn.Write(p)
	if n > 0 {
		lc.raw.Log(false, p[:n])
	}
	return n, err
}

// handleUrbStream serves URBs for dev until the client goes away or the device
// is removed from its bus.
func (s *Server) handleUrbStream(ctx context.Context, conn net.Conn, dev usb.Device) error {
	_ = conn.SetDeadline(time.Time{})

	// A blocked read does not notice removal; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var hdr [usbip.HeaderSize]byte
	for {
		if _, err := io.ReadFull(conn, hdr[:]); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("device removed, closing URB stream")
				return nil
			}
			return fmt.Errorf("read URB header: %w", err)
		}

		switch usbip.PeekCommand(hdr[:]) {
		case usbip.CmdUnlinkCode:
			var cmd usbip.CmdUnlink
			_ = cmd.UnmarshalBinary(hdr[:])
			s.logger.Debug("USBIP_CMD_UNLINK", "seq", cmd.Basic.Seqnum, "unlink", cmd.UnlinkSeqnum)
			// URBs are answered synchronously so there is never anything left to unlink.
			ret := usbip.RetUnlink{
				Basic:  usbip.HeaderBasic{Command: usbip.RetUnlinkCode, Seqnum: cmd.Basic.Seqnum},
				Status: usbip.StatusConnReset,
			}
			if err := ret.Write(conn); err != nil {
				return fmt.Errorf("write RET_UNLINK: %w", err)
			}
		case usbip.CmdSubmitCode:
			var cmd usbip.CmdSubmit
			_ = cmd.UnmarshalBinary(hdr[:])

			var outPayload []byte
			if cmd.Basic.Dir == usbip.DirOut && cmd.TransferBufferLen > 0 {
				outPayload = make([]byte, cmd.TransferBufferLen)
				if _, err := io.ReadFull(conn, outPayload); err != nil {
					return fmt.Errorf("read OUT payload: %w", err)
				}
			}

			respData, status := s.processSubmit(dev, &cmd, outPayload)
			ret := usbip.RetSubmit{
				Basic:  usbip.HeaderBasic{Command: usbip.RetSubmitCode, Seqnum: cmd.Basic.Seqnum},
				Status: status,
			}
			if cmd.Basic.Dir == usbip.DirIn {
				if uint32(len(respData)) > cmd.TransferBufferLen {
					respData = respData[:cmd.TransferBufferLen]
				}
				ret.ActualLength = uint32(len(respData))
			} else {
				ret.ActualLength = uint32(len(outPayload))
				respData = nil
			}
			if err := ret.WriteWithPayload(conn, respData); err != nil {
				return fmt.Errorf("write RET_SUBMIT: %w", err)
			}
		default:
			return fmt.Errorf("unsupported cmd %d", usbip.PeekCommand(hdr[:]))
		}
	}
}

// isClientDisconnect tests whether an error represents a normal client
// disconnect (EOF, ECONNRESET, broken pipe).
func isClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "connection reset by peer") || strings.Contains(e, "forcibly closed")
}

// processSubmit routes a URB: data endpoints go to the device, EP0 goes to the
// device's control handler first and then to standard enumeration.
func (s *Server) processSubmit(dev usb.Device, cmd *usbip.CmdSubmit, out []byte) ([]byte, int32) {
	if cmd.Basic.Ep != 0 {
		return dev.HandleTransfer(cmd.Basic.Ep, cmd.Basic.Dir, out), usbip.StatusOK
	}
	setup, err := usb.ParseSetup(cmd.Setup[:])
	if err != nil {
		return nil, usbip.StatusStall
	}

	if ch, ok := dev.(usb.ControlHandler); ok {
		if data, handled := ch.HandleControl(setup, out); handled {
			return data, usbip.StatusOK
		}
	}
	if setup.Type() != usb.RequestTypeStandard {
		s.logger.Debug("stalling control request",
			"bmRequestType", fmt.Sprintf("%#02x", setup.RequestType),
			"bRequest", fmt.Sprintf("%#02x", setup.Request),
			"wValue", fmt.Sprintf("%#04x", setup.Value))
		return nil, usbip.StatusStall
	}

	desc := dev.GetDescriptor()
	switch setup.Request {
	case usbReqSetAddress, usbReqSetConfiguration, usbReqSetInterface, usbReqClearFeature, usbReqSetFeature:
		return nil, usbip.StatusOK
	case usbReqGetConfiguration:
		return []byte{0x01}, usbip.StatusOK
	case usbReqGetInterface:
		return []byte{0x00}, usbip.StatusOK
	case usbReqGetStatus:
		return setup.Truncate([]byte{0x00, 0x00}), usbip.StatusOK
	case usbReqGetDescriptor:
		if setup.Recipient() != usb.RecipientDevice {
			return nil, usbip.StatusStall
		}
		dtype := uint8(setup.Value >> 8)
		dindex := uint8(setup.Value & 0xff)
		var data []byte
		switch dtype {
		case usb.DeviceDescType:
			data = desc.Bytes()
		case usb.ConfigDescType:
			data = desc.ConfigurationBytes(usbConfigAttrBusPowered, usbConfigMaxPower100mA)
		case usb.StringDescType:
			if dindex == 0 && len(desc.Strings) > 0 {
				data = usb.LangIDs(0x0409)
			} else if str, ok := desc.Strings[dindex]; ok {
				data = usb.EncodeStringDescriptor(str)
			}
		}
		if len(data) == 0 {
			return nil, usbip.StatusStall
		}
		return setup.Truncate(data), usbip.StatusOK
	}
	return nil, usbip.StatusStall
}
