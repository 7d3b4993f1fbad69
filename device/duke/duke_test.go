package duke_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogxbridge/ogxbridge/device/duke"
	"github.com/ogxbridge/ogxbridge/usb"
	"github.com/ogxbridge/ogxbridge/usbip"
)

func setup(t *testing.T, raw ...byte) usb.Setup {
	t.Helper()
	s, err := usb.ParseSetup(raw)
	require.NoError(t, err)
	return s
}

func TestBuildReport(t *testing.T) {
	s := duke.InputState{
		Buttons: duke.ButtonStart | duke.ButtonDPadUp,
		A:       0xFF, Y: 0x10, Black: 0xFF, R: 0x80,
		LX: -32768, LY: 32767, RX: 1, RY: -1,
	}
	b := s.BuildReport()
	want := []byte{
		0x00, 0x14, 0x11, 0x00,
		0xFF, 0x00, 0x00, 0x10, 0xFF, 0x00, 0x00, 0x80,
		0x00, 0x80, 0xFF, 0x7F, 0x01, 0x00, 0xFF, 0xFF,
	}
	assert.Equal(t, want, b)
}

func TestRumbleState(t *testing.T) {
	var r duke.RumbleState
	require.NoError(t, r.UnmarshalBinary([]byte{0x00, 0x06, 0x34, 0xAB, 0x12, 0xCD}))
	assert.Equal(t, duke.RumbleState{Left: 0xAB, Right: 0xCD}, r)
	assert.Error(t, r.UnmarshalBinary([]byte{0x00, 0x06}))

	b, err := r.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x06, 0x00, 0xAB, 0x00, 0xCD}, b)
}

func TestInterruptTransfers(t *testing.T) {
	d := duke.New()
	var got []duke.RumbleState
	d.SetRumbleCallback(func(r duke.RumbleState) { got = append(got, r) })

	d.UpdateInputState(duke.InputState{A: 0xFF})
	in := d.HandleTransfer(1, usbip.DirIn, nil)
	require.Len(t, in, duke.InputReportSize)
	assert.Equal(t, byte(0xFF), in[4])

	assert.Nil(t, d.HandleTransfer(2, usbip.DirOut, []byte{0x00, 0x06, 0x00, 0x40, 0x00, 0x80}))
	assert.Nil(t, d.HandleTransfer(2, usbip.DirOut, []byte{0x00, 0x06}), "short report ignored")
	assert.Nil(t, d.HandleTransfer(3, usbip.DirIn, nil))
	assert.Equal(t, []duke.RumbleState{{Left: 0x40, Right: 0x80}}, got)
}

func TestControlRequests(t *testing.T) {
	d := duke.New()
	d.UpdateInputState(duke.InputState{Buttons: duke.ButtonBack})

	type testCase struct {
		name    string
		setup   []byte
		want    []byte
		handled bool
	}
	cases := []testCase{
		{
			name:    "xid descriptor",
			setup:   []byte{0xC1, 0x06, 0x00, 0x42, 0x00, 0x00, 0x10, 0x00},
			want:    []byte{0x10, 0x42, 0x00, 0x01, 0x01, 0x02, 0x14, 0x06, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
			handled: true,
		},
		{
			name:    "xid descriptor truncated",
			setup:   []byte{0xC1, 0x06, 0x00, 0x42, 0x00, 0x00, 0x02, 0x00},
			want:    []byte{0x10, 0x42},
			handled: true,
		},
		{
			name:    "output capabilities",
			setup:   []byte{0xC1, 0x01, 0x00, 0x02, 0x00, 0x00, 0x06, 0x00},
			want:    []byte{0x00, 0x06, 0xFF, 0xFF, 0xFF, 0xFF},
			handled: true,
		},
		{
			name:    "get report",
			setup:   []byte{0xA1, 0x01, 0x00, 0x01, 0x00, 0x00, 0x04, 0x00},
			want:    []byte{0x00, 0x14, duke.ButtonBack, 0x00},
			handled: true,
		},
		{
			name:  "unknown vendor request",
			setup: []byte{0xC1, 0x07, 0x00, 0x00, 0x00, 0x00, 0x08, 0x00},
		},
		{
			name:  "standard request falls through",
			setup: []byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, handled := d.HandleControl(setup(t, tc.setup...), nil)
			assert.Equal(t, tc.handled, handled)
			assert.Equal(t, tc.want, data)
		})
	}

	caps, ok := d.HandleControl(setup(t, 0xC1, 0x01, 0x00, 0x01, 0x00, 0x00, 0x14, 0x00), nil)
	require.True(t, ok)
	assert.Len(t, caps, duke.InputReportSize)
}

func TestSetReportRumble(t *testing.T) {
	d := duke.New()
	var got duke.RumbleState
	d.SetRumbleCallback(func(r duke.RumbleState) { got = r })
	_, handled := d.HandleControl(
		setup(t, 0x21, 0x09, 0x00, 0x02, 0x00, 0x00, 0x06, 0x00),
		[]byte{0x00, 0x06, 0x00, 0xFF, 0x00, 0x10},
	)
	assert.True(t, handled)
	assert.Equal(t, duke.RumbleState{Left: 0xFF, Right: 0x10}, got)
}

func TestDescriptor(t *testing.T) {
	desc := duke.New().GetDescriptor()
	assert.Equal(t, uint16(duke.VendorID), desc.Device.IDVendor)
	assert.Equal(t, uint16(duke.ProductID), desc.Device.IDProduct)
	ep, ok := desc.Endpoint(0x02)
	require.True(t, ok)
	assert.Equal(t, uint8(usb.TransferInterrupt), ep.BMAttributes)
	cfg := desc.ConfigurationBytes(0x80, 50)
	assert.Len(t, cfg, 9+9+7+7)
	assert.Equal(t, byte(0x58), cfg[9+5])
}
