package engine

import "github.com/ogxbridge/ogxbridge/pad"

// Event says why a Status was published.
type Event uint8

const (
	EventStartup Event = iota
	EventController
	EventRumble
	EventMotion
	EventSensitivity
	EventPresentation
)

func (e Event) String() string {
	switch e {
	case EventStartup:
		return "startup"
	case EventController:
		return "controller"
	case EventRumble:
		return "rumble"
	case EventMotion:
		return "motion"
	case EventSensitivity:
		return "sensitivity"
	case EventPresentation:
		return "presentation"
	}
	return "unknown"
}

// Status is the snapshot handed to displays.
type Status struct {
	Event       Event
	Transition  Transition
	Identity    pad.Identity
	Rumble      bool
	Motion      bool
	Sensitivity Sensitivity
	Phase       Phase
}

// Lines renders the two-line summary.
func (s Status) Lines() [2]string {
	var lines [2]string
	if s.Rumble {
		lines[0] = "Rumble On"
	} else {
		lines[0] = "Rumble Off"
	}
	switch {
	case !s.Identity.SupportsMotion():
		lines[1] = "Motion N/A"
	case s.Motion:
		lines[1] = "Motion On, " + s.Sensitivity.String()
	default:
		lines[1] = "Motion Off"
	}
	return lines
}

// Display receives status updates. Show is called from the engine loop and must not
// block.
type Display interface {
	Show(Status)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Status)

func (f DisplayFunc) Show(s Status) { f(s) }
