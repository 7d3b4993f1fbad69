package testing

import (
	"errors"
	"sync"
	"time"

	"github.com/ogxbridge/ogxbridge/engine"
	"github.com/ogxbridge/ogxbridge/pad"
)

// Sent is one report captured by RecordingOutput.
type Sent struct {
	Kind pad.ReportKind
	Data []byte
}

// RecordingOutput is a pad.Output that keeps a copy of every report written to it.
type RecordingOutput struct {
	mu   sync.Mutex
	Sent []Sent
	Err  error
}

func (o *RecordingOutput) WriteReport(kind pad.ReportKind, p []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.Sent = append(o.Sent, Sent{Kind: kind, Data: append([]byte(nil), p...)})
	return nil
}

// RumbleCall is one SetRumble invocation on a FakePad.
type RumbleCall struct {
	Left, Right uint8
}

// FakePad is a scriptable pad.Adapter and pad.MotionSensor.
type FakePad struct {
	ID        pad.Identity
	Attached  bool
	Buttons   map[pad.Button]uint8
	Sticks    map[pad.Axis]int16
	Roll      float64
	Pitch     float64
	RumbleLog []RumbleCall
	LEDLog    []pad.LED
}

func NewFakePad(id pad.Identity) *FakePad {
	return &FakePad{
		ID:      id,
		Buttons: map[pad.Button]uint8{},
		Sticks:  map[pad.Axis]int16{},
		Roll:    180,
		Pitch:   180,
	}
}

func (p *FakePad) Identity() pad.Identity { return p.ID }
func (p *FakePad) Connected() bool        { return p.Attached }

func (p *FakePad) Button(b pad.Button) uint8 { return p.Buttons[b] }
func (p *FakePad) Stick(a pad.Axis) int16    { return p.Sticks[a] }

func (p *FakePad) Angle(a pad.Angle) float64 {
	if a == pad.AnglePitch {
		return p.Pitch
	}
	return p.Roll
}

func (p *FakePad) SetRumble(left, right uint8) {
	p.RumbleLog = append(p.RumbleLog, RumbleCall{Left: left, Right: right})
}

func (p *FakePad) SetLED(led pad.LED) { p.LEDLog = append(p.LEDLog, led) }

// Press sets each button to 0xFF.
func (p *FakePad) Press(bs ...pad.Button) {
	for _, b := range bs {
		p.Buttons[b] = 0xFF
	}
}

// ReleaseAll clears every button.
func (p *FakePad) ReleaseAll() {
	p.Buttons = map[pad.Button]uint8{}
}

// FakeClock is a manually advanced engine.Clock.
type FakeClock struct {
	T time.Time
}

func NewFakeClock() *FakeClock {
	return &FakeClock{T: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time { return c.T }

func (c *FakeClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// ErrAttach is returned by FakeSink.Attach while FailAttach is set.
var ErrAttach = errors.New("fake sink: attach refused")

// FakeSink is an engine.Sink that records everything the loop does to it. Its frame
// counter advances by FrameStep on every FrameNumber call.
type FakeSink struct {
	Frame      uint16
	FrameStep  uint16
	FailAttach bool

	Reports  []engine.Report
	Attaches int
	Detaches int
	Present  bool

	rumble []engine.Rumble
}

func (s *FakeSink) FrameNumber() uint16 {
	f := s.Frame & 0x7FF
	s.Frame += s.FrameStep
	return f
}

func (s *FakeSink) SendReport(r *engine.Report) error {
	s.Reports = append(s.Reports, *r)
	return nil
}

func (s *FakeSink) Attach() error {
	if s.FailAttach {
		return ErrAttach
	}
	s.Attaches++
	s.Present = true
	return nil
}

func (s *FakeSink) Detach() error {
	s.Detaches++
	s.Present = false
	return nil
}

// QueueRumble makes the next Pump return the given magnitudes.
func (s *FakeSink) QueueRumble(left, right uint8) {
	s.rumble = append(s.rumble, engine.Rumble{Left: left, Right: right})
}

func (s *FakeSink) Pump() (engine.Rumble, bool) {
	if len(s.rumble) == 0 {
		return engine.Rumble{}, false
	}
	r := s.rumble[0]
	s.rumble = s.rumble[1:]
	return r, true
}

// LastReport returns the most recent report, or a zero report if none was sent.
func (s *FakeSink) LastReport() engine.Report {
	if len(s.Reports) == 0 {
		return engine.Report{}
	}
	return s.Reports[len(s.Reports)-1]
}

// StatusRecorder is an engine.Display that keeps every status.
type StatusRecorder struct {
	Shown []engine.Status
}

func (r *StatusRecorder) Show(s engine.Status) { r.Shown = append(r.Shown, s) }
