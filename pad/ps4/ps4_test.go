package ps4_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/ogxbridge/ogxbridge/internal/testing"
	"github.com/ogxbridge/ogxbridge/pad"
	"github.com/ogxbridge/ogxbridge/pad/ps4"
)

func report(hatAndFace, b6, b7 uint8, ax, ay, az int16) []byte {
	b := make([]byte, ps4.InputReportSize)
	b[0] = ps4.ReportIDInput
	b[1], b[2], b[3], b[4] = 127, 127, 127, 127
	b[5] = hatAndFace
	b[6] = b6
	b[7] = b7
	binary.LittleEndian.PutUint16(b[19:], uint16(ax))
	binary.LittleEndian.PutUint16(b[21:], uint16(az))
	binary.LittleEndian.PutUint16(b[23:], uint16(ay))
	return b
}

func attached(t *testing.T) (*ps4.Pad, *th.RecordingOutput) {
	t.Helper()
	out := &th.RecordingOutput{}
	p := ps4.New()
	require.NoError(t, p.Attach(out))
	return p, out
}

func TestHatDirections(t *testing.T) {
	type testCase struct {
		name                  string
		hat                   uint8
		up, right, down, left uint8
	}
	cases := []testCase{
		{name: "north", hat: 0, up: 0xFF},
		{name: "north-east", hat: 1, up: 0xFF, right: 0xFF},
		{name: "east", hat: 2, right: 0xFF},
		{name: "south-east", hat: 3, right: 0xFF, down: 0xFF},
		{name: "south", hat: 4, down: 0xFF},
		{name: "south-west", hat: 5, down: 0xFF, left: 0xFF},
		{name: "west", hat: 6, left: 0xFF},
		{name: "north-west", hat: 7, up: 0xFF, left: 0xFF},
		{name: "neutral", hat: ps4.HatNeutral},
		{name: "out of range", hat: 0x0F},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := attached(t)
			require.NoError(t, p.Update(report(tc.hat, 0, 0, 0, 0, 0)))
			assert.Equal(t, tc.up, p.Button(pad.ButtonUp))
			assert.Equal(t, tc.right, p.Button(pad.ButtonRight))
			assert.Equal(t, tc.down, p.Button(pad.ButtonDown))
			assert.Equal(t, tc.left, p.Button(pad.ButtonLeft))
		})
	}
}

func TestButtons(t *testing.T) {
	p, _ := attached(t)
	require.NoError(t, p.Update(report(ps4.HatNeutral|ps4.ButtonCross|ps4.ButtonTriangle,
		ps4.ButtonOptions|ps4.ButtonR1|ps4.ButtonL3, ps4.ButtonPS, 0, 0, 0)))

	assert.Equal(t, uint8(0xFF), p.Button(pad.ButtonA))
	assert.Equal(t, uint8(0xFF), p.Button(pad.ButtonY))
	assert.Equal(t, uint8(0x00), p.Button(pad.ButtonB))
	assert.Equal(t, uint8(0xFF), p.Button(pad.ButtonStart))
	assert.Equal(t, uint8(0x00), p.Button(pad.ButtonBack))
	assert.Equal(t, uint8(0xFF), p.Button(pad.ButtonRightBumper))
	assert.Equal(t, uint8(0xFF), p.Button(pad.ButtonLeftStick))
	assert.Equal(t, uint8(0xFF), p.Button(pad.ButtonGuide))
	assert.Equal(t, uint8(0x00), p.Button(pad.ButtonUp))
}

func TestTriggersAndSticks(t *testing.T) {
	p, _ := attached(t)
	b := report(ps4.HatNeutral, ps4.ButtonL2, 0, 0, 0, 0)
	b[1], b[2] = 255, 0
	b[8], b[9] = 0x90, 0x00
	require.NoError(t, p.Update(b))

	assert.Equal(t, uint8(0x90), p.Button(pad.ButtonLeftTrigger))
	assert.Equal(t, uint8(0x00), p.Button(pad.ButtonRightTrigger))
	assert.Equal(t, int16(128*255), p.Stick(pad.AxisLeftX))
	assert.Equal(t, int16(127*255), p.Stick(pad.AxisLeftY))
	assert.Equal(t, int16(0), p.Stick(pad.AxisRightX))
}

func TestAngles(t *testing.T) {
	p, _ := attached(t)
	require.NoError(t, p.Update(report(ps4.HatNeutral, 0, 0, 0, 0, 8192)))
	assert.InDelta(t, 180, p.Angle(pad.AngleRoll), 0.001)
	assert.InDelta(t, 180, p.Angle(pad.AnglePitch), 0.001)

	require.NoError(t, p.Update(report(ps4.HatNeutral, 0, 0, 8192, -8192, 8192)))
	assert.InDelta(t, 225, p.Angle(pad.AngleRoll), 0.001)
	assert.InDelta(t, 135, p.Angle(pad.AnglePitch), 0.001)
}

func TestRumbleSmallMotorOnly(t *testing.T) {
	p, out := attached(t)
	p.SetRumble(0, 0x01)
	p.SetRumble(0, 0)
	require.Len(t, out.Sent, 2)

	on := out.Sent[0].Data
	require.Len(t, on, ps4.OutputReportSize)
	assert.Equal(t, byte(ps4.ReportIDOutput), on[0])
	assert.Equal(t, byte(0xFF), on[1])
	assert.Equal(t, byte(0xFF), on[4])
	assert.Equal(t, byte(0x00), on[5])
	assert.Equal(t, byte(0x00), out.Sent[1].Data[4])
}

func TestLightbarKeepsRumble(t *testing.T) {
	p, out := attached(t)
	p.SetRumble(0x40, 0x40)
	p.SetLED(pad.LED2)
	require.Len(t, out.Sent, 2)
	last := out.Sent[1].Data
	assert.Equal(t, []byte{0x40, 0x00, 0x00}, last[6:9])
	assert.Equal(t, byte(0xFF), last[4])

	p.SetLED(pad.LEDOff)
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, out.Sent[2].Data[6:9])
}

func TestDetachClearsState(t *testing.T) {
	p, out := attached(t)
	require.NoError(t, p.Update(report(ps4.HatNeutral|ps4.ButtonCross, 0, 0, 0, 0, 0)))
	p.Detach()
	assert.False(t, p.Connected())
	assert.Equal(t, uint8(0x00), p.Button(pad.ButtonA))
	p.SetRumble(1, 1)
	assert.Empty(t, out.Sent)
}
