package usbip_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogxbridge/ogxbridge/usbip"
)

func TestCmdSubmitLayout(t *testing.T) {
	c := usbip.CmdSubmit{
		Basic:             usbip.HeaderBasic{Command: usbip.CmdSubmitCode, Seqnum: 7, Devid: 0x00010002, Dir: usbip.DirIn, Ep: 1},
		TransferBufferLen: 20,
		Setup:             [8]byte{0xA1, 0x01, 0x00, 0x01},
	}
	b, err := c.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, usbip.HeaderSize)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 7, 0, 1, 0, 2, 0, 0, 0, 1, 0, 0, 0, 1}, b[:20])
	assert.Equal(t, []byte{0, 0, 0, 20}, b[24:28])
	assert.Equal(t, uint32(usbip.CmdSubmitCode), usbip.PeekCommand(b))

	var back usbip.CmdSubmit
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, c, back)
	assert.Error(t, back.UnmarshalBinary(b[:20]))
}

func TestRetSubmitNegativeStatus(t *testing.T) {
	var buf bytes.Buffer
	r := usbip.RetSubmit{Basic: usbip.HeaderBasic{Command: usbip.RetSubmitCode, Seqnum: 3}, Status: usbip.StatusStall}
	require.NoError(t, r.WriteWithPayload(&buf, []byte{0xAA}))
	b := buf.Bytes()
	require.Len(t, b, usbip.HeaderSize+1)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xE0}, b[20:24])

	var back usbip.RetSubmit
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, usbip.StatusStall, back.Status)
	assert.Equal(t, byte(0xAA), b[usbip.HeaderSize])
}

func TestUnlinkReply(t *testing.T) {
	c := usbip.CmdUnlink{Basic: usbip.HeaderBasic{Command: usbip.CmdUnlinkCode, Seqnum: 9}, UnlinkSeqnum: 4}
	b, _ := c.MarshalBinary()
	var back usbip.CmdUnlink
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, uint32(4), back.UnlinkSeqnum)

	var buf bytes.Buffer
	r := usbip.RetUnlink{Basic: usbip.HeaderBasic{Command: usbip.RetUnlinkCode, Seqnum: 9}, Status: usbip.StatusConnReset}
	require.NoError(t, r.Write(&buf))
	assert.Len(t, buf.Bytes(), usbip.HeaderSize)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0x98}, buf.Bytes()[20:24])
}

func TestExportedDevice(t *testing.T) {
	d := usbip.ExportedDevice{
		ExportMeta: usbip.NewExportMeta("/sys/devices/ogxbridge/usb", 1, 2),
		Speed:      2,
		IDVendor:   0x045e,
		IDProduct:  0x0202,
		BcdDevice:  0x0100,

		BConfigurationValue: 1,
		BNumConfigurations:  1,
		BNumInterfaces:      1,
		Interfaces:          []usbip.InterfaceDesc{{Class: 0x58, SubClass: 0x42}},
	}
	assert.Equal(t, "1-2", d.BusID())

	var dl, imp bytes.Buffer
	require.NoError(t, d.WriteDevlist(&dl))
	require.NoError(t, d.WriteImport(&imp))
	assert.Len(t, dl.Bytes(), usbip.ExportedDeviceSize+4)
	assert.Len(t, imp.Bytes(), usbip.ExportedDeviceSize)
	assert.Equal(t, []byte{0x58, 0x42, 0, 0}, dl.Bytes()[usbip.ExportedDeviceSize:])

	back, err := usbip.ParseExportedDevice(imp.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "1-2", back.BusID())
	assert.Equal(t, uint16(0x0202), back.IDProduct)
	assert.Equal(t, uint32(2), back.DevId)
	assert.Equal(t, "/sys/devices/ogxbridge/usb1/1-2", string(bytes.TrimRight(back.Path[:], "\x00")))
}

func TestMgmtHeader(t *testing.T) {
	var buf bytes.Buffer
	h := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepImport}
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, []byte{0x01, 0x11, 0x00, 0x03, 0, 0, 0, 0}, buf.Bytes())
	back, err := usbip.ParseMgmtHeader(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, h, back)
}
