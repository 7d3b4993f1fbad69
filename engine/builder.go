package engine

import "github.com/ogxbridge/ogxbridge/pad"

var digitalButtons = [...]struct {
	bit Buttons
	btn pad.Button
}{
	{DUp, pad.ButtonUp},
	{DDown, pad.ButtonDown},
	{DLeft, pad.ButtonLeft},
	{DRight, pad.ButtonRight},
	{Start, pad.ButtonStart},
	{Back, pad.ButtonBack},
	{LeftStick, pad.ButtonLeftStick},
	{RightStick, pad.ButtonRightStick},
}

// BuildReport rebuilds the input fields of r from a. A nil adapter yields a neutral
// report. r.Rumble is never touched.
func BuildReport(r *Report, a pad.Adapter) {
	r.Neutral()
	if a == nil {
		return
	}
	for _, d := range digitalButtons {
		if a.Button(d.btn) != 0 {
			r.Buttons |= d.bit
		}
	}

	r.A = pad.Digital(a.Button(pad.ButtonA) != 0)
	r.B = pad.Digital(a.Button(pad.ButtonB) != 0)
	r.X = pad.Digital(a.Button(pad.ButtonX) != 0)
	r.Y = pad.Digital(a.Button(pad.ButtonY) != 0)
	r.LeftBumper = pad.Digital(a.Button(pad.ButtonLeftBumper) != 0)
	r.RightBumper = pad.Digital(a.Button(pad.ButtonRightBumper) != 0)

	r.LeftTrigger = a.Button(pad.ButtonLeftTrigger)
	r.RightTrigger = a.Button(pad.ButtonRightTrigger)

	r.LX = a.Stick(pad.AxisLeftX)
	r.LY = a.Stick(pad.AxisLeftY)
	r.RX = a.Stick(pad.AxisRightX)
	r.RY = a.Stick(pad.AxisRightY)
}
