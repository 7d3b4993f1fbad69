package engine

import "time"

// MinUptime is how long the process must have run before the emulated pad may be
// withdrawn from the host.
const MinUptime = 7000 * time.Millisecond

// Phase is the hot-plug state of the emulated pad.
type Phase uint8

const (
	PhaseDetached Phase = iota
	PhaseAttached
	PhaseDraining
)

func (p Phase) String() string {
	switch p {
	case PhaseDetached:
		return "detached"
	case PhaseAttached:
		return "attached"
	case PhaseDraining:
		return "draining"
	}
	return "unknown"
}

// Action is what the presentation machine asks of the sink this cycle.
type Action uint8

const (
	ActionNone Action = iota
	ActionAttach
	ActionDetach
)

// Presentation decides when the emulated pad is presented to the host.
//
// It boots in PhaseDraining anchored at boot so the host can enumerate the pad before
// any physical controller shows up.
type Presentation struct {
	phase      Phase
	attached   bool
	boot       time.Time
	drainStart time.Time
	grace      time.Duration
}

func NewPresentation(boot time.Time, grace time.Duration) *Presentation {
	return &Presentation{
		phase:      PhaseDraining,
		boot:       boot,
		drainStart: boot,
		grace:      grace,
	}
}

func (p *Presentation) Phase() Phase { return p.phase }

// Attached reports whether the sink currently presents the pad.
func (p *Presentation) Attached() bool { return p.attached }

// Presenting reports whether reports should flow to the host.
func (p *Presentation) Presenting() bool {
	return p.attached && (p.phase == PhaseAttached || p.phase == PhaseDraining)
}

// Update advances the machine given whether a physical controller is active.
func (p *Presentation) Update(now time.Time, connected bool) Action {
	if connected {
		if p.attached {
			p.phase = PhaseAttached
			return ActionNone
		}
		return ActionAttach
	}

	switch p.phase {
	case PhaseAttached:
		p.phase = PhaseDraining
		p.drainStart = now
	case PhaseDraining:
		if now.Sub(p.drainStart) >= p.grace && now.Sub(p.boot) >= MinUptime {
			p.phase = PhaseDetached
			if p.attached {
				return ActionDetach
			}
			return ActionNone
		}
		if !p.attached {
			return ActionAttach
		}
	}
	return ActionNone
}

// Done records the outcome of the action returned by Update.
func (p *Presentation) Done(a Action, err error) {
	switch a {
	case ActionAttach:
		if err != nil {
			return
		}
		p.attached = true
		if p.phase == PhaseDetached {
			p.phase = PhaseAttached
		}
	case ActionDetach:
		// a failed withdrawal is not retried
		p.attached = false
	}
}
