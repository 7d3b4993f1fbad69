// Package sink presents the canonical report to the console as an emulated
// Duke exported over USB/IP.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogxbridge/ogxbridge/device/duke"
	"github.com/ogxbridge/ogxbridge/engine"
	"github.com/ogxbridge/ogxbridge/virtualbus"
)

type Config struct {
	AutoAttach bool `help:"Attach the emulated pad to this machine's vhci-hcd with 'usbip attach'" default:"false" negatable:"" env:"OGXBRIDGE_AUTO_ATTACH"`
}

// Attacher imports busid from the local USB/IP server on port.
type Attacher func(ctx context.Context, busid string, port uint16, logger *slog.Logger) error

// Options carries the collaborators of a Sink.
type Options struct {
	Bus *virtualbus.VirtualBus
	// Port reports the USB/IP server port, for the attacher.
	Port func() uint16
	// Attacher defaults to the platform usbip client.
	Attacher Attacher
	Clock    engine.Clock
}

// Sink implements engine.Sink. Only the loop goroutine calls its methods; the
// Duke device itself is shared with the USB/IP connection goroutine.
type Sink struct {
	ctx    context.Context
	config Config
	opts   Options
	logger *slog.Logger
	dev    *duke.Duke
	start  time.Time
	rumble chan duke.RumbleState
}

// New creates the sink. ctx bounds any attach helper processes.
func New(ctx context.Context, config Config, opts Options, logger *slog.Logger) (*Sink, error) {
	if opts.Bus == nil {
		return nil, errors.New("sink needs a bus")
	}
	if opts.Clock == nil {
		opts.Clock = engine.SystemClock()
	}
	if opts.Attacher == nil {
		opts.Attacher = attachLocal
	}
	if opts.Port == nil {
		opts.Port = func() uint16 { return 0 }
	}
	s := &Sink{
		ctx:    ctx,
		config: config,
		opts:   opts,
		logger: logger,
		dev:    duke.New(),
		start:  opts.Clock.Now(),
		rumble: make(chan duke.RumbleState, 1),
	}
	s.dev.SetRumbleCallback(s.onRumble)
	return s, nil
}

// onRumble keeps only the newest request.
func (s *Sink) onRumble(r duke.RumbleState) {
	for {
		select {
		case s.rumble <- r:
			return
		default:
		}
		select {
		case <-s.rumble:
		default:
		}
	}
}

// Device exposes the emulated pad.
func (s *Sink) Device() *duke.Duke { return s.dev }

// FrameNumber is a 1 kHz counter standing in for the USB SOF frame number.
func (s *Sink) FrameNumber() uint16 {
	return uint16(s.opts.Clock.Now().Sub(s.start)/time.Millisecond) & 0x7FF
}

func (s *Sink) SendReport(r *engine.Report) error {
	s.dev.UpdateInputState(InputState(r))
	return nil
}

// Attach exports the pad on the bus. With auto attach the local usbip client
// is started in the background.
func (s *Sink) Attach() error {
	_, meta, err := s.opts.Bus.Add(s.dev)
	if errors.Is(err, virtualbus.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("export pad: %w", err)
	}
	busid := meta.BusID()
	s.logger.Info("emulated pad exported", "busid", busid)
	if s.config.AutoAttach {
		port := s.opts.Port()
		go func() {
			if err := s.opts.Attacher(s.ctx, busid, port, s.logger); err != nil {
				s.logger.Error("auto attach failed", "busid", busid, "error", err)
			}
		}()
	}
	return nil
}

// Detach withdraws the pad. Any imported session is closed by the server.
func (s *Sink) Detach() error {
	if err := s.opts.Bus.Remove(s.dev); err != nil && !errors.Is(err, virtualbus.ErrNotFound) {
		return fmt.Errorf("withdraw pad: %w", err)
	}
	s.dev.UpdateInputState(duke.InputState{})
	return nil
}

func (s *Sink) Pump() (engine.Rumble, bool) {
	select {
	case r := <-s.rumble:
		return engine.Rumble{Left: r.Left, Right: r.Right}, true
	default:
		return engine.Rumble{}, false
	}
}

// InputState maps the canonical report onto the Duke layout.
func InputState(r *engine.Report) duke.InputState {
	return duke.InputState{
		Buttons: uint8(r.Buttons),
		A:       r.A,
		B:       r.B,
		X:       r.X,
		Y:       r.Y,
		Black:   r.RightBumper,
		White:   r.LeftBumper,
		L:       r.LeftTrigger,
		R:       r.RightTrigger,
		LX:      r.LX,
		LY:      r.LY,
		RX:      r.RX,
		RY:      r.RY,
	}
}
