// Package ps3 reads a DualShock 3 (Sixaxis) controller over USB.
package ps3

import (
	"encoding/binary"
	"io"

	"github.com/ogxbridge/ogxbridge/pad"
)

const (
	ReportIDInput   = 0x01
	ReportIDOutput  = 0x01
	ReportIDEnable  = 0xF4
	InputReportSize = 49
)

// Byte 2 of the input report.
const (
	ButtonSelect = 0x01
	ButtonL3     = 0x02
	ButtonR3     = 0x04
	ButtonStart  = 0x08
	ButtonUp     = 0x10
	ButtonRight  = 0x20
	ButtonDown   = 0x40
	ButtonLeft   = 0x80
)

// Byte 3 of the input report.
const (
	ButtonL2       = 0x01
	ButtonR2       = 0x02
	ButtonL1       = 0x04
	ButtonR1       = 0x08
	ButtonTriangle = 0x10
	ButtonCircle   = 0x20
	ButtonCross    = 0x40
	ButtonSquare   = 0x80
)

// Byte 4 of the input report.
const ButtonPS = 0x01

const (
	offsetStickLX  = 6
	offsetAnalogL2 = 18
	offsetAnalogR2 = 19
	offsetAccelX   = 41
	offsetAccelY   = 43
	offsetAccelZ   = 45

	// zeroG is the accelerometer reading at 0 g (1.65 V of a 3.3 V 10-bit ADC).
	zeroG = 511.5
)

// output report buffer offsets (after the report id)
const (
	outRightDuration = 1
	outRightPower    = 2
	outLeftDuration  = 3
	outLeftPower     = 4
	outLEDs          = 9
)

var defaultOutput = [48]byte{
	0x00, 0xFF, 0x00, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0x27, 0x10, 0x00, 0x32,
	0xFF, 0x27, 0x10, 0x00, 0x32,
	0xFF, 0x27, 0x10, 0x00, 0x32,
	0xFF, 0x27, 0x10, 0x00, 0x32,
}

// InputState holds the parts of the input report the bridge uses.
type InputState struct {
	Buttons          [3]uint8 // report bytes 2..4
	LX, LY, RX, RY   uint8
	L2, R2           uint8
	AccX, AccY, AccZ uint16
}

func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputReportSize {
		return io.ErrUnexpectedEOF
	}
	copy(s.Buttons[:], data[2:5])
	s.LX = data[offsetStickLX]
	s.LY = data[offsetStickLX+1]
	s.RX = data[offsetStickLX+2]
	s.RY = data[offsetStickLX+3]
	s.L2 = data[offsetAnalogL2]
	s.R2 = data[offsetAnalogR2]
	s.AccX = binary.BigEndian.Uint16(data[offsetAccelX:])
	s.AccY = binary.BigEndian.Uint16(data[offsetAccelY:])
	s.AccZ = binary.BigEndian.Uint16(data[offsetAccelZ:])
	return nil
}

// Pad adapts a DualShock 3.
type Pad struct {
	out    pad.Output
	state  InputState
	output [48]byte
}

func New() *Pad {
	return &Pad{output: defaultOutput}
}

func (p *Pad) Identity() pad.Identity { return pad.IdentityPS3Wired }

func (p *Pad) Connected() bool { return p.out != nil }

// Attach sends the feature report that makes a Sixaxis start streaming input.
func (p *Pad) Attach(out pad.Output) error {
	p.out = out
	p.state = InputState{}
	p.output = defaultOutput
	return out.WriteReport(pad.ReportFeature, []byte{ReportIDEnable, 0x42, 0x0C, 0x00, 0x00})
}

func (p *Pad) Detach() {
	p.out = nil
	p.state = InputState{}
}

func (p *Pad) Update(report []byte) error {
	if len(report) < 1 {
		return io.ErrUnexpectedEOF
	}
	if report[0] != ReportIDInput {
		return nil
	}
	var st InputState
	if err := st.UnmarshalBinary(report); err != nil {
		return err
	}
	p.state = st
	return nil
}

func (p *Pad) pressed(byteIdx int, mask uint8) uint8 {
	return pad.Digital(p.state.Buttons[byteIdx]&mask != 0)
}

func (p *Pad) Button(b pad.Button) uint8 {
	switch b {
	case pad.ButtonA:
		return p.pressed(1, ButtonCross)
	case pad.ButtonB:
		return p.pressed(1, ButtonCircle)
	case pad.ButtonX:
		return p.pressed(1, ButtonSquare)
	case pad.ButtonY:
		return p.pressed(1, ButtonTriangle)
	case pad.ButtonLeftTrigger:
		return p.state.L2
	case pad.ButtonRightTrigger:
		return p.state.R2
	case pad.ButtonLeftBumper:
		return p.pressed(1, ButtonL1)
	case pad.ButtonRightBumper:
		return p.pressed(1, ButtonR1)
	case pad.ButtonUp:
		return p.pressed(0, ButtonUp)
	case pad.ButtonDown:
		return p.pressed(0, ButtonDown)
	case pad.ButtonLeft:
		return p.pressed(0, ButtonLeft)
	case pad.ButtonRight:
		return p.pressed(0, ButtonRight)
	case pad.ButtonStart:
		return p.pressed(0, ButtonStart)
	case pad.ButtonBack:
		return p.pressed(0, ButtonSelect)
	case pad.ButtonLeftStick:
		return p.pressed(0, ButtonL3)
	case pad.ButtonRightStick:
		return p.pressed(0, ButtonR3)
	case pad.ButtonGuide:
		return p.pressed(2, ButtonPS)
	}
	return 0
}

func (p *Pad) Stick(a pad.Axis) int16 {
	var raw uint8
	switch a {
	case pad.AxisLeftX:
		raw = p.state.LX
	case pad.AxisLeftY:
		raw = p.state.LY
	case pad.AxisRightX:
		raw = p.state.RX
	case pad.AxisRightY:
		raw = p.state.RY
	default:
		return 0
	}
	return pad.ScaleUnsigned8(raw, a.Vertical())
}

func (p *Pad) Angle(a pad.Angle) float64 {
	accX := -(float64(p.state.AccX) - zeroG)
	accY := -(float64(p.state.AccY) - zeroG)
	accZ := -(float64(p.state.AccZ) - zeroG)
	if a == pad.AnglePitch {
		return pad.GravityAngle(accY, accZ)
	}
	return pad.GravityAngle(accX, accZ)
}

// SetRumble only distinguishes off from on; any magnitude selects the low preset.
func (p *Pad) SetRumble(left, right uint8) {
	if left == 0 && right == 0 {
		p.output[outRightDuration] = 0
		p.output[outRightPower] = 0
		p.output[outLeftDuration] = 0
		p.output[outLeftPower] = 0
	} else {
		p.output[outRightDuration] = 0xFE
		p.output[outRightPower] = 0xFF
		p.output[outLeftDuration] = 0xFE
		p.output[outLeftPower] = 0x00
	}
	p.send()
}

func (p *Pad) SetLED(led pad.LED) {
	var mask uint8
	if led != pad.LEDOff {
		mask = 1 << (led - pad.LED1)
	}
	p.output[outLEDs] = mask << 1
	p.send()
}

func (p *Pad) send() {
	if p.out == nil {
		return
	}
	_ = p.out.WriteReport(pad.ReportOutput, p.OutputReport())
}

// OutputReport returns the current output report including its id.
func (p *Pad) OutputReport() []byte {
	b := make([]byte, 0, 1+len(p.output))
	b = append(b, ReportIDOutput)
	return append(b, p.output[:]...)
}
