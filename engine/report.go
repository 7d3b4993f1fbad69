package engine

// Buttons is the digital button bitset of the canonical report. The bit order matches
// the Duke's digital button byte.
type Buttons uint8

const (
	DUp Buttons = 1 << iota
	DDown
	DLeft
	DRight
	Start
	Back
	LeftStick
	RightStick
)

// Rumble is a motor request received from the host. It persists across cycles until
// it has been delivered to the active pad.
type Rumble struct {
	Left, Right uint8
	Pending     bool
}

// Report is the canonical controller state for one cycle.
type Report struct {
	Buttons Buttons

	A, B, X, Y              uint8
	LeftBumper, RightBumper uint8
	LeftTrigger             uint8
	RightTrigger            uint8
	LX, LY, RX, RY          int16

	Rumble Rumble
}

// Neutral clears every input field and leaves Rumble alone.
func (r *Report) Neutral() {
	rumble := r.Rumble
	*r = Report{Rumble: rumble}
}

// IsNeutral reports whether no input is held.
func (r *Report) IsNeutral() bool {
	n := Report{Rumble: r.Rumble}
	return *r == n
}
