package engine

import (
	"time"

	"github.com/ogxbridge/ogxbridge/pad"
)

const (
	// HotkeyInterval is the minimum spacing between hotkey evaluations. Commands to the
	// physical pad (rumble, LEDs) are only issued on this cadence.
	HotkeyInterval = 16 * time.Millisecond

	// A chord fires when it has been held strictly longer than HoldFireAfter and
	// strictly shorter than HoldFireBefore.
	HoldFireAfter  = 1000 * time.Millisecond
	HoldFireBefore = 1100 * time.Millisecond
)

// Chord is one of the Guide button combinations.
type Chord uint8

const (
	ChordNone Chord = iota
	// ChordMotion is Guide + right trigger.
	ChordMotion
	// ChordSensitivity is Guide + right bumper.
	ChordSensitivity
	// ChordRumble is Guide + left trigger.
	ChordRumble

	chordCount
)

func (c Chord) String() string {
	switch c {
	case ChordMotion:
		return "motion"
	case ChordSensitivity:
		return "sensitivity"
	case ChordRumble:
		return "rumble"
	}
	return "none"
}

// HeldChord returns the highest priority chord currently held on a.
func HeldChord(a pad.Adapter) Chord {
	if a == nil || a.Button(pad.ButtonGuide) == 0 {
		return ChordNone
	}
	switch {
	case a.Button(pad.ButtonRightTrigger) > 0:
		return ChordMotion
	case a.Button(pad.ButtonRightBumper) > 0:
		return ChordSensitivity
	case a.Button(pad.ButtonLeftTrigger) > 0:
		return ChordRumble
	}
	return ChordNone
}

// SoftReset reports whether Start + Back + both triggers are held, the console's
// reset combination.
func SoftReset(a pad.Adapter) bool {
	if a == nil {
		return false
	}
	return a.Button(pad.ButtonStart) != 0 &&
		a.Button(pad.ButtonBack) != 0 &&
		a.Button(pad.ButtonLeftTrigger) > 0 &&
		a.Button(pad.ButtonRightTrigger) > 0
}

// HoldTimer measures how long a chord has been held.
type HoldTimer struct {
	start time.Time
	set   bool
}

// Hold records that the chord is held at now and reports whether it fires. The timer
// clears itself on fire; a hold that outlives the window without being sampled inside
// it never fires and stays set until Release.
func (h *HoldTimer) Hold(now time.Time) bool {
	if !h.set {
		h.start = now
		h.set = true
		return false
	}
	held := now.Sub(h.start)
	if held > HoldFireAfter && held < HoldFireBefore {
		h.Release()
		return true
	}
	return false
}

func (h *HoldTimer) Release() { *h = HoldTimer{} }

func (h *HoldTimer) Running() bool { return h.set }

// Hotkeys tracks the evaluation cadence and one HoldTimer per chord.
type Hotkeys struct {
	last   time.Time
	timers [chordCount]HoldTimer
}

// Due reports whether more than HotkeyInterval has passed since the last evaluation and,
// if so, starts a new one.
func (h *Hotkeys) Due(now time.Time) bool {
	if !h.last.IsZero() && now.Sub(h.last) <= HotkeyInterval {
		return false
	}
	h.last = now
	return true
}

// Hold advances the timer of chord and releases every other one. It returns true when
// chord fires.
func (h *Hotkeys) Hold(now time.Time, chord Chord) bool {
	for c := range h.timers {
		if Chord(c) != chord {
			h.timers[c].Release()
		}
	}
	if chord == ChordNone || chord >= chordCount {
		return false
	}
	return h.timers[chord].Hold(now)
}

// Reset releases all timers.
func (h *Hotkeys) Reset() {
	for c := range h.timers {
		h.timers[c].Release()
	}
}
