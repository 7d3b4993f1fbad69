package status

import (
	"time"

	"github.com/ogxbridge/ogxbridge/engine"
)

// Message is what websocket clients receive.
type Message struct {
	Type        string    `json:"type"` // "status"
	Seq         int64     `json:"seq"`
	Timestamp   int64     `json:"timestamp"` // Unix milliseconds
	Event       string    `json:"event"`
	Controller  string    `json:"controller"`
	Previous    string    `json:"previous,omitempty"`
	Rumble      bool      `json:"rumble"`
	Motion      bool      `json:"motion"`
	Sensitivity string    `json:"sensitivity"`
	Phase       string    `json:"phase"`
	Lines       [2]string `json:"lines"`
}

// NewMessage renders a status snapshot.
func NewMessage(seq int64, s engine.Status) *Message {
	m := &Message{
		Type:        "status",
		Seq:         seq,
		Timestamp:   time.Now().UnixMilli(),
		Event:       s.Event.String(),
		Controller:  s.Identity.String(),
		Rumble:      s.Rumble,
		Motion:      s.Motion,
		Sensitivity: s.Sensitivity.String(),
		Phase:       s.Phase.String(),
		Lines:       s.Lines(),
	}
	if s.Event == engine.EventController {
		m.Previous = s.Transition.From.String()
	}
	return m
}
