// Package xbox360 reads a wired Xbox 360 controller.
package xbox360

import (
	"encoding/binary"
	"io"

	"github.com/ogxbridge/ogxbridge/pad"
)

// InputState is the decoded wired report.
type InputState struct {
	Buttons uint16
	LT, RT  uint8
	LX, LY  int16
	RX, RY  int16
}

// UnmarshalBinary decodes a 20-byte interrupt IN report.
// Layout:
//
//	 0: 0x00 report type
//	 1: 0x14 length
//	 2-3: buttons (little-endian)
//	 4: LT, 5: RT
//	 6-13: LX, LY, RX, RY (little-endian int16)
func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 14 {
		return io.ErrUnexpectedEOF
	}
	s.Buttons = binary.LittleEndian.Uint16(data[2:4])
	s.LT = data[4]
	s.RT = data[5]
	s.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	s.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	s.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	s.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// Pad adapts a wired Xbox 360 controller.
type Pad struct {
	out   pad.Output
	state InputState
}

func New() *Pad { return &Pad{} }

func (p *Pad) Identity() pad.Identity { return pad.IdentityXbox360Wired }

func (p *Pad) Connected() bool { return p.out != nil }

func (p *Pad) Attach(out pad.Output) error {
	p.out = out
	p.state = InputState{}
	return nil
}

func (p *Pad) Detach() {
	p.out = nil
	p.state = InputState{}
}

// Update decodes an input report. LED status and other report types are ignored.
func (p *Pad) Update(report []byte) error {
	if len(report) < 2 {
		return io.ErrUnexpectedEOF
	}
	if report[0] != ReportTypeInput || report[1] != InputReportSize {
		return nil
	}
	var st InputState
	if err := st.UnmarshalBinary(report); err != nil {
		return err
	}
	p.state = st
	return nil
}

var buttonMasks = map[pad.Button]uint16{
	pad.ButtonUp:          ButtonDPadUp,
	pad.ButtonDown:        ButtonDPadDown,
	pad.ButtonLeft:        ButtonDPadLeft,
	pad.ButtonRight:       ButtonDPadRight,
	pad.ButtonStart:       ButtonStart,
	pad.ButtonBack:        ButtonBack,
	pad.ButtonLeftStick:   ButtonLThumb,
	pad.ButtonRightStick:  ButtonRThumb,
	pad.ButtonLeftBumper:  ButtonLShoulder,
	pad.ButtonRightBumper: ButtonRShoulder,
	pad.ButtonGuide:       ButtonGuide,
	pad.ButtonA:           ButtonA,
	pad.ButtonB:           ButtonB,
	pad.ButtonX:           ButtonX,
	pad.ButtonY:           ButtonY,
}

func (p *Pad) Button(b pad.Button) uint8 {
	switch b {
	case pad.ButtonLeftTrigger:
		return p.state.LT
	case pad.ButtonRightTrigger:
		return p.state.RT
	}
	mask, ok := buttonMasks[b]
	if !ok {
		return 0
	}
	return pad.Digital(p.state.Buttons&mask != 0)
}

func (p *Pad) Stick(a pad.Axis) int16 {
	var v int16
	switch a {
	case pad.AxisLeftX:
		v = p.state.LX
	case pad.AxisLeftY:
		v = p.state.LY
	case pad.AxisRightX:
		v = p.state.RX
	case pad.AxisRightY:
		v = p.state.RY
	}
	if v == rangeFixValue {
		v = -32768
	}
	return v
}

// RumblePacket builds the 8-byte interrupt OUT rumble command:
// [0]=0x00 type, [1]=0x08 length, [3]=left (large) motor, [4]=right (small) motor.
func RumblePacket(left, right uint8) []byte {
	return []byte{0x00, 0x08, 0x00, left, right, 0x00, 0x00, 0x00}
}

// LEDPacket builds the 3-byte ring-of-light command.
func LEDPacket(led pad.LED) []byte {
	pattern := uint8(LEDPatternOff)
	switch led {
	case pad.LED1:
		pattern = LEDPattern1
	case pad.LED2:
		pattern = LEDPattern2
	case pad.LED3:
		pattern = LEDPattern3
	case pad.LED4:
		pattern = LEDPattern4
	}
	return []byte{ReportTypeLED, 0x03, pattern}
}

func (p *Pad) SetRumble(left, right uint8) {
	if p.out == nil {
		return
	}
	_ = p.out.WriteReport(pad.ReportOutput, RumblePacket(left, right))
}

func (p *Pad) SetLED(led pad.LED) {
	if p.out == nil {
		return
	}
	_ = p.out.WriteReport(pad.ReportOutput, LEDPacket(led))
}
