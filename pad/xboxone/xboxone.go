// Package xboxone reads a wired Xbox One controller over the GIP protocol.
package xboxone

import (
	"encoding/binary"
	"io"

	"github.com/ogxbridge/ogxbridge/pad"
)

// GIP command ids.
const (
	CmdAcknowledge = 0x01
	CmdPower       = 0x05
	CmdGuide       = 0x07
	CmdRumble      = 0x09
	CmdInput       = 0x20
)

// Byte 4 of the input report.
const (
	ButtonSync = 0x01
	ButtonMenu = 0x04
	ButtonView = 0x08
	ButtonA    = 0x10
	ButtonB    = 0x20
	ButtonX    = 0x40
	ButtonY    = 0x80
)

// Byte 5 of the input report.
const (
	ButtonDPadUp    = 0x01
	ButtonDPadDown  = 0x02
	ButtonDPadLeft  = 0x04
	ButtonDPadRight = 0x08
	ButtonLB        = 0x10
	ButtonRB        = 0x20
	ButtonLS        = 0x40
	ButtonRS        = 0x80
)

const (
	inputReportSize = 18
	guideReportSize = 5
	// flagNeedsAck is set in byte 1 when the pad wants the packet acknowledged.
	flagNeedsAck = 0x10
)

// InputState is the decoded GIP input.
type InputState struct {
	Face   uint8
	Pad    uint8
	Guide  bool
	LT, RT uint16 // 10-bit
	LX, LY int16
	RX, RY int16
}

// Pad adapts a wired Xbox One controller.
type Pad struct {
	out   pad.Output
	seq   uint8
	state InputState
}

func New() *Pad { return &Pad{} }

func (p *Pad) Identity() pad.Identity { return pad.IdentityXboxOneWired }

func (p *Pad) Connected() bool { return p.out != nil }

// Attach sends the power-on packet; the pad stays silent until it sees one.
func (p *Pad) Attach(out pad.Output) error {
	p.out = out
	p.state = InputState{}
	return out.WriteReport(pad.ReportOutput, []byte{CmdPower, 0x20, p.nextSeq(), 0x01, 0x00})
}

func (p *Pad) Detach() {
	p.out = nil
	p.state = InputState{}
}

func (p *Pad) nextSeq() uint8 {
	p.seq++
	return p.seq
}

func (p *Pad) Update(report []byte) error {
	if len(report) < 4 {
		return io.ErrUnexpectedEOF
	}
	switch report[0] {
	case CmdInput:
		if len(report) < inputReportSize {
			return io.ErrUnexpectedEOF
		}
		p.state.Face = report[4]
		p.state.Pad = report[5]
		p.state.LT = binary.LittleEndian.Uint16(report[6:8])
		p.state.RT = binary.LittleEndian.Uint16(report[8:10])
		p.state.LX = int16(binary.LittleEndian.Uint16(report[10:12]))
		p.state.LY = int16(binary.LittleEndian.Uint16(report[12:14]))
		p.state.RX = int16(binary.LittleEndian.Uint16(report[14:16]))
		p.state.RY = int16(binary.LittleEndian.Uint16(report[16:18]))
	case CmdGuide:
		if len(report) < guideReportSize {
			return io.ErrUnexpectedEOF
		}
		p.state.Guide = report[4]&0x01 != 0
		if report[1]&flagNeedsAck != 0 && p.out != nil {
			ack := []byte{CmdAcknowledge, 0x20, report[2], 0x09, 0x00, CmdGuide, 0x20, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00}
			return p.out.WriteReport(pad.ReportOutput, ack)
		}
	}
	return nil
}

func (p *Pad) Button(b pad.Button) uint8 {
	s := p.state
	switch b {
	case pad.ButtonUp:
		return pad.Digital(s.Pad&ButtonDPadUp != 0)
	case pad.ButtonDown:
		return pad.Digital(s.Pad&ButtonDPadDown != 0)
	case pad.ButtonLeft:
		return pad.Digital(s.Pad&ButtonDPadLeft != 0)
	case pad.ButtonRight:
		return pad.Digital(s.Pad&ButtonDPadRight != 0)
	case pad.ButtonLeftBumper:
		return pad.Digital(s.Pad&ButtonLB != 0)
	case pad.ButtonRightBumper:
		return pad.Digital(s.Pad&ButtonRB != 0)
	case pad.ButtonLeftStick:
		return pad.Digital(s.Pad&ButtonLS != 0)
	case pad.ButtonRightStick:
		return pad.Digital(s.Pad&ButtonRS != 0)
	case pad.ButtonStart:
		return pad.Digital(s.Face&ButtonMenu != 0)
	case pad.ButtonBack:
		return pad.Digital(s.Face&ButtonView != 0)
	case pad.ButtonA:
		return pad.Digital(s.Face&ButtonA != 0)
	case pad.ButtonB:
		return pad.Digital(s.Face&ButtonB != 0)
	case pad.ButtonX:
		return pad.Digital(s.Face&ButtonX != 0)
	case pad.ButtonY:
		return pad.Digital(s.Face&ButtonY != 0)
	case pad.ButtonGuide:
		return pad.Digital(s.Guide)
	case pad.ButtonLeftTrigger:
		// 10-bit triggers lose their two low bits to fit the 8-bit range.
		return uint8(s.LT >> 2)
	case pad.ButtonRightTrigger:
		return uint8(s.RT >> 2)
	}
	return 0
}

func (p *Pad) Stick(a pad.Axis) int16 {
	switch a {
	case pad.AxisLeftX:
		return p.state.LX
	case pad.AxisLeftY:
		return p.state.LY
	case pad.AxisRightX:
		return p.state.RX
	case pad.AxisRightY:
		return p.state.RY
	}
	return 0
}

// SetRumble drives the impulse triggers at 1/8 and the main motors at 1/2 of the
// requested magnitude.
func (p *Pad) SetRumble(left, right uint8) {
	if p.out == nil {
		return
	}
	pkt := []byte{CmdRumble, 0x00, p.nextSeq(), 0x09, 0x00, 0x0F,
		left / 8, right / 8, left / 2, right / 2, 0xFF, 0x00, 0xFF}
	_ = p.out.WriteReport(pad.ReportOutput, pkt)
}

// SetLED is a no-op: the guide button light is not a player indicator.
func (p *Pad) SetLED(pad.LED) {}
