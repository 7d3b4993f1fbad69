package usb_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogxbridge/ogxbridge/device/duke"
	"github.com/ogxbridge/ogxbridge/internal/log"
	server "github.com/ogxbridge/ogxbridge/internal/server/usb"
	th "github.com/ogxbridge/ogxbridge/internal/testing"
	"github.com/ogxbridge/ogxbridge/usbip"
	"github.com/ogxbridge/ogxbridge/virtualbus"
)

type rig struct {
	srv    *server.Server
	bus    *virtualbus.VirtualBus
	dev    *duke.Duke
	client *th.UsbIpClient
	busid  string
}

func newRig(t *testing.T) *rig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New(server.ServerConfig{Addr: "127.0.0.1:0", ConnectionTimeout: time.Second}, logger, log.NewRaw(nil))
	bus := virtualbus.New(1)
	require.NoError(t, srv.AddBus(bus))

	go func() { _ = srv.ListenAndServe() }()
	select {
	case <-srv.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}
	t.Cleanup(func() { _ = srv.Close() })

	dev := duke.New()
	_, meta, err := bus.Add(dev)
	require.NoError(t, err)
	return &rig{
		srv:    srv,
		bus:    bus,
		dev:    dev,
		client: th.NewUsbIpClient(t, fmt.Sprintf("127.0.0.1:%d", srv.ListenPort())),
		busid:  meta.BusID(),
	}
}

func TestDevList(t *testing.T) {
	r := newRig(t)
	devs, err := r.client.ListDevices()
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "1-1", devs[0].BusID())
	assert.Equal(t, uint16(duke.VendorID), devs[0].IDVendor)
	assert.Equal(t, uint16(duke.ProductID), devs[0].IDProduct)
	require.Len(t, devs[0].Interfaces, 1)
	assert.Equal(t, uint8(0x58), devs[0].Interfaces[0].Class)
}

func TestImportUnknownBus(t *testing.T) {
	r := newRig(t)
	_, err := r.client.Import("9-9")
	assert.Error(t, err)
}

func TestEnumerationAndXID(t *testing.T) {
	r := newRig(t)
	s, err := r.client.Import(r.busid)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, uint32(1), s.Exported.DevId)

	ret, data, err := s.Control([8]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00}, nil)
	require.NoError(t, err)
	assert.Equal(t, usbip.StatusOK, ret.Status)
	require.Len(t, data, 18)
	assert.Equal(t, []byte{0x5e, 0x04, 0x02, 0x02}, data[8:12])

	_, data, err = s.Control([8]byte{0x80, 0x06, 0x00, 0x02, 0x00, 0x00, 0x09, 0x00}, nil)
	require.NoError(t, err)
	require.Len(t, data, 9, "short read returns the header only")
	assert.Equal(t, byte(32), data[2], "wTotalLength")

	ret, _, err = s.Control([8]byte{0x00, 0x09, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}, nil)
	require.NoError(t, err)
	assert.Equal(t, usbip.StatusOK, ret.Status)

	_, data, err = s.Control([8]byte{0xC1, 0x06, 0x00, 0x42, 0x00, 0x00, 0x10, 0x00}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x42, 0x00, 0x01}, data[:4])

	ret, data, err = s.Control([8]byte{0x80, 0x06, 0x00, 0x06, 0x00, 0x00, 0x0A, 0x00}, nil)
	require.NoError(t, err)
	assert.Equal(t, usbip.StatusStall, ret.Status, "no device qualifier on a full speed device")
	assert.Empty(t, data)

	ret, _, err = s.Control([8]byte{0xC1, 0x7F, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00}, nil)
	require.NoError(t, err)
	assert.Equal(t, usbip.StatusStall, ret.Status)
}

func TestInterruptTransfers(t *testing.T) {
	r := newRig(t)
	rumble := make(chan duke.RumbleState, 1)
	r.dev.SetRumbleCallback(func(rs duke.RumbleState) { rumble <- rs })
	r.dev.UpdateInputState(duke.InputState{Buttons: duke.ButtonStart, LX: 1000})

	s, err := r.client.Import(r.busid)
	require.NoError(t, err)
	defer s.Close()

	ret, data, err := s.Submit(1, usbip.DirIn, [8]byte{}, 32, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(duke.InputReportSize), ret.ActualLength)
	assert.Equal(t, byte(duke.ButtonStart), data[2])

	ret, _, err = s.Submit(2, usbip.DirOut, [8]byte{}, 0, []byte{0x00, 0x06, 0x00, 0x80, 0x00, 0x40})
	require.NoError(t, err)
	assert.Equal(t, uint32(6), ret.ActualLength)
	select {
	case rs := <-rumble:
		assert.Equal(t, duke.RumbleState{Left: 0x80, Right: 0x40}, rs)
	case <-time.After(time.Second):
		t.Fatal("no rumble")
	}

	status, err := s.Unlink(3)
	require.NoError(t, err)
	assert.Equal(t, usbip.StatusConnReset, status)
}

func TestRemoveDeviceEndsSession(t *testing.T) {
	r := newRig(t)
	s, err := r.client.Import(r.busid)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, r.bus.Remove(r.dev))
	_ = s.Conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var b [1]byte
	_, err = s.Conn.Read(b[:])
	assert.ErrorIs(t, err, io.EOF, "server closes the stream")
}
