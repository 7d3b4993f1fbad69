// Package ps4 reads a wired DualShock 4 controller.
package ps4

import (
	"encoding/binary"
	"io"

	"github.com/ogxbridge/ogxbridge/pad"
)

const (
	ReportIDInput    = 0x01
	ReportIDOutput   = 0x05
	InputReportSize  = 64
	OutputReportSize = 32
)

// Byte 5 of the input report. The low nibble is the hat.
const (
	HatMask        = 0x0F
	HatNeutral     = 0x08
	ButtonSquare   = 0x10
	ButtonCross    = 0x20
	ButtonCircle   = 0x40
	ButtonTriangle = 0x80
)

// Byte 6 of the input report.
const (
	ButtonL1      = 0x01
	ButtonR1      = 0x02
	ButtonL2      = 0x04
	ButtonR2      = 0x08
	ButtonShare   = 0x10
	ButtonOptions = 0x20
	ButtonL3      = 0x40
	ButtonR3      = 0x80
)

// Byte 7 of the input report.
const (
	ButtonPS       = 0x01
	ButtonTouchpad = 0x02
)

const (
	offsetAccelX = 19
	offsetAccelZ = 21
	offsetAccelY = 23

	outFlags  = 1
	outSmall  = 4
	outLarge  = 5
	outRed    = 6
	outGreen  = 7
	outBlue   = 8
	flagsAll  = 0xFF
	rumbleMax = 0xFF
)

// lightbar colours standing in for the four player LEDs.
var ledColours = map[pad.LED][3]uint8{
	pad.LEDOff: {0x00, 0x00, 0x00},
	pad.LED1:   {0x00, 0x00, 0x40},
	pad.LED2:   {0x40, 0x00, 0x00},
	pad.LED3:   {0x00, 0x40, 0x00},
	pad.LED4:   {0x20, 0x00, 0x20},
}

// InputState holds the parts of the input report the bridge uses.
type InputState struct {
	LX, LY, RX, RY   uint8
	Buttons          [3]uint8 // report bytes 5..7
	L2, R2           uint8
	AccX, AccY, AccZ int16
}

func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputReportSize {
		return io.ErrUnexpectedEOF
	}
	s.LX, s.LY, s.RX, s.RY = data[1], data[2], data[3], data[4]
	copy(s.Buttons[:], data[5:8])
	s.L2, s.R2 = data[8], data[9]
	s.AccX = int16(binary.LittleEndian.Uint16(data[offsetAccelX:]))
	s.AccZ = int16(binary.LittleEndian.Uint16(data[offsetAccelZ:]))
	s.AccY = int16(binary.LittleEndian.Uint16(data[offsetAccelY:]))
	return nil
}

// Hat returns the d-pad direction, 0 for north clockwise to 7 for north-west, or
// HatNeutral.
func (s *InputState) Hat() uint8 {
	h := s.Buttons[0] & HatMask
	if h > 7 {
		return HatNeutral
	}
	return h
}

// Pad adapts a DualShock 4.
type Pad struct {
	out    pad.Output
	state  InputState
	output [OutputReportSize]byte
}

func New() *Pad {
	p := &Pad{}
	p.reset()
	return p
}

func (p *Pad) reset() {
	p.state = InputState{Buttons: [3]uint8{HatNeutral}}
	p.output = [OutputReportSize]byte{}
	p.output[0] = ReportIDOutput
	p.output[outFlags] = flagsAll
}

func (p *Pad) Identity() pad.Identity { return pad.IdentityPS4Wired }

func (p *Pad) Connected() bool { return p.out != nil }

// Attach needs no handshake; the DS4 streams input as soon as it is configured.
func (p *Pad) Attach(out pad.Output) error {
	p.out = out
	p.reset()
	return nil
}

func (p *Pad) Detach() {
	p.out = nil
	p.reset()
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

func (p *Pad) hatHas(dirs ...uint8) uint8 {
	h := p.state.Hat()
	for _, d := range dirs {
		if h == d {
			return 0xFF
		}
	}
	return 0x00
}

func (p *Pad) pressed(byteIdx int, mask uint8) uint8 {
	return pad.Digital(p.state.Buttons[byteIdx]&mask != 0)
}

func (p *Pad) Button(b pad.Button) uint8 {
	switch b {
	case pad.ButtonUp:
		return p.hatHas(7, 0, 1)
	case pad.ButtonRight:
		return p.hatHas(1, 2, 3)
	case pad.ButtonDown:
		return p.hatHas(3, 4, 5)
	case pad.ButtonLeft:
		return p.hatHas(5, 6, 7)
	case pad.ButtonA:
		return p.pressed(0, ButtonCross)
	case pad.ButtonB:
		return p.pressed(0, ButtonCircle)
	case pad.ButtonX:
		return p.pressed(0, ButtonSquare)
	case pad.ButtonY:
		return p.pressed(0, ButtonTriangle)
	case pad.ButtonLeftBumper:
		return p.pressed(1, ButtonL1)
	case pad.ButtonRightBumper:
		return p.pressed(1, ButtonR1)
	case pad.ButtonLeftTrigger:
		return p.state.L2
	case pad.ButtonRightTrigger:
		return p.state.R2
	case pad.ButtonBack:
		return p.pressed(1, ButtonShare)
	case pad.ButtonStart:
		return p.pressed(1, ButtonOptions)
	case pad.ButtonLeftStick:
		return p.pressed(1, ButtonL3)
	case pad.ButtonRightStick:
		return p.pressed(1, ButtonR3)
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
	if a == pad.AnglePitch {
		return pad.GravityAngle(float64(p.state.AccY), float64(p.state.AccZ))
	}
	return pad.GravityAngle(float64(p.state.AccX), float64(p.state.AccZ))
}

// SetRumble drives only the small motor, fully on for any non-zero request.
func (p *Pad) SetRumble(left, right uint8) {
	if left != 0 || right != 0 {
		p.output[outSmall] = rumbleMax
	} else {
		p.output[outSmall] = 0
	}
	p.output[outLarge] = 0
	p.send()
}

// SetLED paints the lightbar with the colour assigned to the player slot.
func (p *Pad) SetLED(led pad.LED) {
	c, ok := ledColours[led]
	if !ok {
		c = ledColours[pad.LEDOff]
	}
	p.output[outRed], p.output[outGreen], p.output[outBlue] = c[0], c[1], c[2]
	p.send()
}

func (p *Pad) send() {
	if p.out == nil {
		return
	}
	_ = p.out.WriteReport(pad.ReportOutput, p.OutputReport())
}

// OutputReport returns a copy of the full output report.
func (p *Pad) OutputReport() []byte {
	b := make([]byte, OutputReportSize)
	copy(b, p.output[:])
	return b
}
