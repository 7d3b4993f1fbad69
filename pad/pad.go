// Package pad defines the capability contract shared by every physical controller
// protocol the bridge can read, plus the scaling helpers those protocols have in common.
package pad

import "errors"

// ErrNotAttached is returned when an output is requested from a pad with no host link.
var ErrNotAttached = errors.New("pad not attached")

// Button is a logical button on the canonical (Xbox style) layout.
type Button uint8

const (
	ButtonUp Button = iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonStart
	ButtonBack
	ButtonLeftStick
	ButtonRightStick
	ButtonA
	ButtonB
	ButtonX
	ButtonY
	ButtonLeftBumper
	ButtonRightBumper
	ButtonLeftTrigger
	ButtonRightTrigger
	ButtonGuide
)

// Axis is one analog stick axis.
type Axis uint8

const (
	AxisLeftX Axis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
)

// Angle selects an orientation angle on motion capable pads.
type Angle uint8

const (
	AngleRoll Angle = iota
	AnglePitch
)

// LED is a player indicator.
type LED uint8

const (
	LEDOff LED = iota
	LED1
	LED2
	LED3
	LED4
)

// Adapter is the uniform query surface over one physical controller protocol.
//
// Button returns 0x00/0xFF for digital inputs and the full 0x00..0xFF pressure range
// for analog ones (triggers) where the protocol reports it.
type Adapter interface {
	Identity() Identity
	Connected() bool
	Button(b Button) uint8
	Stick(a Axis) int16
	SetRumble(left, right uint8)
	SetLED(led LED)
}

// MotionSensor is implemented by adapters that can report their orientation.
// Angles are degrees in [0, 360) with 180 meaning level.
type MotionSensor interface {
	Angle(a Angle) float64
}

// ReportKind distinguishes how an output report travels to the controller.
type ReportKind uint8

const (
	// ReportOutput goes out the interrupt OUT endpoint, or as a HID output
	// SET_REPORT when the device has none.
	ReportOutput ReportKind = iota
	// ReportFeature is always a HID feature SET_REPORT on the control pipe.
	ReportFeature
)

// Output is the host-side link a pad writes its rumble/LED/init packets to.
// Implementations must not block the caller.
type Output interface {
	WriteReport(kind ReportKind, p []byte) error
}

// Target is an Adapter the host transaction engine can feed.
type Target interface {
	Adapter
	// Attach binds the pad to a freshly enumerated device and sends any init packets.
	Attach(out Output) error
	// Detach marks the pad as unplugged and clears its input state.
	Detach()
	// Update decodes one native input report.
	Update(report []byte) error
}

// Digital converts a pressed flag into the 0x00/0xFF encoding used by Button.
func Digital(pressed bool) uint8 {
	if pressed {
		return 0xFF
	}
	return 0x00
}
