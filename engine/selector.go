package engine

import (
	"sort"

	"github.com/ogxbridge/ogxbridge/pad"
)

// Transition records a change of the active controller.
type Transition struct {
	From, To pad.Identity
}

// Select returns the authoritative adapter among adapters, which must be in priority
// order. The last connected one wins. It returns nil when nothing is connected.
func Select(adapters []pad.Adapter) pad.Adapter {
	var active pad.Adapter
	for _, a := range adapters {
		if a != nil && a.Connected() {
			active = a
		}
	}
	return active
}

// Selector remembers the previous cycle's identity so changes can be reported.
type Selector struct {
	adapters []pad.Adapter
	current  pad.Identity
}

// NewSelector orders adapters by identity: Xbox 360, Xbox One, PS3, PS4.
func NewSelector(adapters []pad.Adapter) *Selector {
	ordered := make([]pad.Adapter, 0, len(adapters))
	for _, a := range adapters {
		if a != nil {
			ordered = append(ordered, a)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Identity() < ordered[j].Identity()
	})
	return &Selector{adapters: ordered}
}

func (s *Selector) Current() pad.Identity { return s.current }

// Update selects the active adapter for this cycle. changed is true when the identity
// differs from the previous call.
func (s *Selector) Update() (active pad.Adapter, t Transition, changed bool) {
	active = Select(s.adapters)
	next := pad.IdentityNone
	if active != nil {
		next = active.Identity()
	}
	t = Transition{From: s.current, To: next}
	changed = next != s.current
	s.current = next
	return active, t, changed
}
