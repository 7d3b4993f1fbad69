// Package engine is the controller normalization loop: it picks the active physical
// pad, builds the canonical report, applies motion, hotkeys and rumble gating, and drives
// the hot-plug state of the emulated pad.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogxbridge/ogxbridge/pad"
)

// frameMask keeps USB frame arithmetic inside the 11-bit frame counter.
const frameMask = 0x7FF

// ReportFrames is the minimum number of USB frames between two reports.
const ReportFrames = 4

// Host polls the physical controllers. Poll must not block.
type Host interface {
	Poll()
}

// Sink is the emulated pad as seen from the loop. None of its methods may block.
type Sink interface {
	FrameNumber() uint16
	SendReport(r *Report) error
	Attach() error
	Detach() error
	// Pump services the emulated device and returns a rumble request from the host
	// if one arrived since the last call.
	Pump() (Rumble, bool)
}

// Clock is the monotonic time source of the loop.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Config holds the runtime feature switches.
type Config struct {
	Motion       bool          `help:"Start with tilt-to-right-stick enabled" default:"false" negatable:"" env:"OGXBRIDGE_MOTION"`
	Sensitivity  string        `help:"Initial motion sensitivity" default:"med" enum:"low,med,high" env:"OGXBRIDGE_MOTION_SENSITIVITY"`
	Rumble       bool          `help:"Start with rumble forwarding enabled" default:"false" negatable:"" env:"OGXBRIDGE_RUMBLE"`
	Grace        time.Duration `help:"How long the emulated pad stays presented after the controller disappears" default:"2s" env:"OGXBRIDGE_GRACE"`
	PollInterval time.Duration `help:"Sleep between loop iterations; 0 to busy poll" default:"1ms" env:"OGXBRIDGE_POLL_INTERVAL"`
}

// Options carries the collaborators of an Engine.
type Options struct {
	Host     Host
	Sink     Sink
	Adapters []pad.Adapter
	Displays []Display
	// Clock defaults to SystemClock.
	Clock Clock
}

// State is everything the loop owns. It is only touched from the loop goroutine.
type State struct {
	Identity      pad.Identity
	Report        Report
	Motion        Motion
	RumbleEnabled bool
	Hotkeys       Hotkeys
	Presentation  *Presentation

	prevFrame uint16
}

type Engine struct {
	config   Config
	logger   *slog.Logger
	host     Host
	sink     Sink
	clock    Clock
	selector *Selector
	displays []Display
	state    State
}

func New(config Config, o Options, logger *slog.Logger) (*Engine, error) {
	if o.Sink == nil {
		return nil, fmt.Errorf("engine: sink is required")
	}
	level, err := ParseSensitivity(config.Sensitivity)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	clock := o.Clock
	if clock == nil {
		clock = SystemClock()
	}
	e := &Engine{
		config:   config,
		logger:   logger,
		host:     o.Host,
		sink:     o.Sink,
		clock:    clock,
		selector: NewSelector(o.Adapters),
		displays: o.Displays,
	}
	e.state = State{
		Motion:        NewMotion(config.Motion, level),
		RumbleEnabled: config.Rumble,
		Presentation:  NewPresentation(clock.Now(), config.Grace),
	}
	// first report goes out as soon as the pad is presented
	e.state.prevFrame = (o.Sink.FrameNumber() - ReportFrames) & frameMask
	return e, nil
}

// State exposes the loop state for inspection. Callers must not mutate it concurrently
// with Run.
func (e *Engine) State() *State { return &e.state }

// Run steps the loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.publish(EventStartup, Transition{})
	var ticker *time.Ticker
	if e.config.PollInterval > 0 {
		ticker = time.NewTicker(e.config.PollInterval)
		defer ticker.Stop()
	}
	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		e.Step()
	}
}

// Step runs one loop iteration.
func (e *Engine) Step() {
	now := e.clock.Now()
	st := &e.state

	if e.host != nil {
		e.host.Poll()
	}
	if r, ok := e.sink.Pump(); ok {
		st.Report.Rumble = Rumble{Left: r.Left, Right: r.Right, Pending: true}
	}

	active, t, changed := e.selector.Update()
	st.Identity = t.To
	if changed {
		e.logger.Info("Active controller changed", "from", t.From, "to", t.To)
		if active != nil {
			active.SetLED(pad.LED1)
		}
		e.publish(EventController, t)
	}

	BuildReport(&st.Report, active)
	if active != nil {
		st.Motion.Apply(&st.Report, active)
		e.commands(now, active)
	} else {
		st.Hotkeys.Reset()
	}

	e.present(now, active != nil)

	if st.Presentation.Presenting() {
		frame := e.sink.FrameNumber() & frameMask
		if (frame-st.prevFrame)&frameMask >= ReportFrames {
			st.prevFrame = frame
			if err := e.sink.SendReport(&st.Report); err != nil {
				e.logger.Debug("report not sent", "error", err)
			}
		}
	}
}

// commands handles the soft reset, the hotkey chords and rumble delivery.
func (e *Engine) commands(now time.Time, active pad.Adapter) {
	st := &e.state
	if SoftReset(active) {
		st.Report.Rumble = Rumble{Pending: true}
	}
	if !st.Hotkeys.Due(now) {
		return
	}

	chord := HeldChord(active)
	if st.Hotkeys.Hold(now, chord) {
		e.fire(chord, active)
	}
	if chord != ChordNone {
		return
	}
	if st.Report.Rumble.Pending {
		if st.RumbleEnabled {
			active.SetRumble(st.Report.Rumble.Left, st.Report.Rumble.Right)
		}
		st.Report.Rumble.Pending = false
	}
}

func (e *Engine) fire(chord Chord, active pad.Adapter) {
	st := &e.state
	switch chord {
	case ChordMotion:
		st.Motion.Enabled = !st.Motion.Enabled
		e.logger.Info("Motion toggled", "enabled", st.Motion.Enabled)
		e.publish(EventMotion, Transition{From: st.Identity, To: st.Identity})
	case ChordSensitivity:
		st.Motion.Cycle()
		e.logger.Info("Motion sensitivity changed", "level", st.Motion.Level())
		e.publish(EventSensitivity, Transition{From: st.Identity, To: st.Identity})
	case ChordRumble:
		st.RumbleEnabled = !st.RumbleEnabled
		if !st.RumbleEnabled {
			active.SetRumble(0, 0)
		}
		e.logger.Info("Rumble toggled", "enabled", st.RumbleEnabled)
		e.publish(EventRumble, Transition{From: st.Identity, To: st.Identity})
	}
}

func (e *Engine) present(now time.Time, connected bool) {
	p := e.state.Presentation
	before := p.Phase()
	switch a := p.Update(now, connected); a {
	case ActionAttach:
		err := e.sink.Attach()
		p.Done(a, err)
		if err != nil {
			e.logger.Debug("attach failed, retrying", "error", err)
		} else {
			e.logger.Info("Emulated controller presented")
		}
	case ActionDetach:
		err := e.sink.Detach()
		p.Done(a, err)
		if err != nil {
			e.logger.Warn("detach failed", "error", err)
		} else {
			e.logger.Info("Emulated controller withdrawn")
		}
	}
	if p.Phase() != before {
		e.logger.Debug("presentation", "from", before, "to", p.Phase())
		e.publish(EventPresentation, Transition{From: e.state.Identity, To: e.state.Identity})
	}
}

func (e *Engine) Status(ev Event, t Transition) Status {
	return Status{
		Event:       ev,
		Transition:  t,
		Identity:    e.state.Identity,
		Rumble:      e.state.RumbleEnabled,
		Motion:      e.state.Motion.Enabled,
		Sensitivity: e.state.Motion.Level(),
		Phase:       e.state.Presentation.Phase(),
	}
}

func (e *Engine) publish(ev Event, t Transition) {
	s := e.Status(ev, t)
	for _, d := range e.displays {
		d.Show(s)
	}
}
