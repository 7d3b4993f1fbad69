// Package host drives the physical controllers over libusb. Reader goroutines
// hand native reports to the loop through a buffered channel; Poll applies them
// to the pad adapters without blocking.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/ogxbridge/ogxbridge/internal/log"
	"github.com/ogxbridge/ogxbridge/pad"
)

type Config struct {
	ScanInterval time.Duration `help:"How often to look for newly plugged controllers" default:"500ms" env:"OGXBRIDGE_HOST_SCAN_INTERVAL"`
}

type eventKind uint8

const (
	evAttach eventKind = iota
	evReport
	evDetach
)

type event struct {
	kind eventKind
	id   pad.Identity
	uid  string
	out  pad.Output
	data []byte
}

// Host owns the libusb context and the open controllers.
type Host struct {
	config  Config
	logger  *slog.Logger
	raw     log.RawLogger
	targets map[pad.Identity]pad.Target
	events  chan event

	// loop side
	bound map[pad.Identity]string

	// scanner side
	mu   sync.Mutex
	open map[string]*device
	busy map[pad.Identity]bool
}

// New creates a host for the given pads. At most one physical controller is
// bound to each pad.
func New(config Config, logger *slog.Logger, raw log.RawLogger, targets []pad.Target) *Host {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	h := &Host{
		config:  config,
		logger:  logger,
		raw:     raw,
		targets: make(map[pad.Identity]pad.Target, len(targets)),
		events:  make(chan event, 256),
		bound:   make(map[pad.Identity]string),
		open:    make(map[string]*device),
		busy:    make(map[pad.Identity]bool),
	}
	for _, t := range targets {
		h.targets[t.Identity()] = t
	}
	return h
}

// Poll applies every pending controller event. It never blocks.
func (h *Host) Poll() {
	for {
		select {
		case ev := <-h.events:
			h.apply(ev)
		default:
			return
		}
	}
}

func (h *Host) apply(ev event) {
	t, ok := h.targets[ev.id]
	if !ok {
		return
	}
	switch ev.kind {
	case evAttach:
		h.bound[ev.id] = ev.uid
		if err := t.Attach(ev.out); err != nil {
			h.logger.Warn("controller init failed", "pad", ev.id, "device", ev.uid, "error", err)
		}
		h.logger.Info("controller connected", "pad", ev.id, "device", ev.uid)
	case evReport:
		if h.bound[ev.id] != ev.uid {
			return
		}
		if err := t.Update(ev.data); err != nil {
			h.logger.Debug("dropping malformed report", "pad", ev.id, "error", err, "len", len(ev.data))
		}
	case evDetach:
		if h.bound[ev.id] != ev.uid {
			return
		}
		delete(h.bound, ev.id)
		t.Detach()
		h.logger.Info("controller disconnected", "pad", ev.id, "device", ev.uid)
	}
}

func (h *Host) post(ctx context.Context, ev event) bool {
	select {
	case h.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run scans for controllers until ctx is cancelled, then closes them.
func (h *Host) Run(ctx context.Context) error {
	usb := gousb.NewContext()
	defer usb.Close()

	interval := h.config.ScanInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer func() {
		h.mu.Lock()
		for _, d := range h.open {
			d.cancel()
		}
		h.mu.Unlock()
		wg.Wait()
	}()

	for {
		h.scan(ctx, usb, &wg)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (h *Host) scan(ctx context.Context, usb *gousb.Context, wg *sync.WaitGroup) {
	var claimed []pad.Identity
	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		id, ok := h.claim(desc)
		if ok {
			claimed = append(claimed, id)
		}
		return ok
	})
	if err != nil {
		// Devices we have no permission for show up here on every scan.
		h.logger.Debug("usb scan", "error", err)
	}
	opened := make([]pad.Identity, 0, len(devs))
	for _, dev := range devs {
		m, _ := Lookup(dev.Desc.Vendor, dev.Desc.Product)
		opened = append(opened, m.Identity)
	}
	h.settle(claimed, opened)

	for _, dev := range devs {
		m, _ := Lookup(dev.Desc.Vendor, dev.Desc.Product)
		d, err := h.start(ctx, dev, m)
		if err != nil {
			h.logger.Warn("failed to open controller", "model", m.Name, "device", uid(dev.Desc), "error", err)
			dev.Close()
			h.release(m.Identity)
			continue
		}
		h.mu.Lock()
		h.open[d.uid] = d
		h.mu.Unlock()

		if !h.post(ctx, event{kind: evAttach, id: m.Identity, uid: d.uid, out: d}) {
			d.cancel()
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.read(d)
		}()
		go func() {
			defer wg.Done()
			d.writeLoop()
		}()
	}
}

// claim reserves the pad identity of a supported device that is not open yet.
// gousb runs the filter over every device before opening any of them, so a
// second pad of the same identity must be turned away here.
func (h *Host) claim(desc *gousb.DeviceDesc) (pad.Identity, bool) {
	m, ok := Lookup(desc.Vendor, desc.Product)
	if !ok {
		return pad.IdentityNone, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, isOpen := h.open[uid(desc)]; isOpen || h.busy[m.Identity] {
		return m.Identity, false
	}
	h.busy[m.Identity] = true
	return m.Identity, true
}

// settle releases claims whose device libusb failed to open.
func (h *Host) settle(claimed, opened []pad.Identity) {
	for _, id := range claimed {
		if !slices.Contains(opened, id) {
			h.release(id)
		}
	}
}

func (h *Host) release(id pad.Identity) {
	h.mu.Lock()
	delete(h.busy, id)
	h.mu.Unlock()
}

func uid(desc *gousb.DeviceDesc) string {
	return fmt.Sprintf("%d-%d", desc.Bus, desc.Address)
}

func (h *Host) start(parent context.Context, dev *gousb.Device, m Model) (*device, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		h.logger.Debug("auto detach unsupported", "error", err)
	}
	cfgNum, err := dev.ActiveConfigNum()
	if err != nil || cfgNum == 0 {
		cfgNum = 1
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return nil, fmt.Errorf("open config %d: %w", cfgNum, err)
	}
	intf, err := cfg.Interface(m.Interface, 0)
	if err != nil {
		cfg.Close()
		return nil, fmt.Errorf("claim interface %d: %w", m.Interface, err)
	}

	d := &device{
		uid:    uid(dev.Desc),
		model:  m,
		dev:    dev,
		cfg:    cfg,
		intf:   intf,
		writes: make(chan write, 16),
		raw:    h.raw.With(m.Identity.String()),
		logger: h.logger.With("pad", m.Identity, "device", uid(dev.Desc)),
	}
	for _, e := range intf.Setting.Endpoints {
		if e.TransferType != gousb.TransferTypeInterrupt && e.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case e.Direction == gousb.EndpointDirectionIn && d.in == nil:
			d.in, err = intf.InEndpoint(e.Number)
			d.packet = e.MaxPacketSize
		case e.Direction == gousb.EndpointDirectionOut && d.out == nil:
			d.out, err = intf.OutEndpoint(e.Number)
		}
		if err != nil {
			intf.Close()
			cfg.Close()
			return nil, fmt.Errorf("open endpoint %s: %w", e.Address, err)
		}
	}
	if d.in == nil {
		intf.Close()
		cfg.Close()
		return nil, fmt.Errorf("interface %d has no input endpoint", m.Interface)
	}
	d.ctx, d.cancel = context.WithCancel(parent)
	return d, nil
}

// read forwards input reports until the device goes away.
func (h *Host) read(d *device) {
	defer func() {
		d.close()
		h.mu.Lock()
		delete(h.open, d.uid)
		delete(h.busy, d.model.Identity)
		h.mu.Unlock()
		// never block here, the loop may already have stopped polling
		select {
		case h.events <- event{kind: evDetach, id: d.model.Identity, uid: d.uid}:
		default:
			h.logger.Warn("event queue full, dropping detach", "device", d.uid)
		}
	}()

	size := d.packet
	if size <= 0 {
		size = 64
	}
	buf := make([]byte, size)
	for {
		n, err := d.in.ReadContext(d.ctx, buf)
		if err != nil {
			if d.ctx.Err() == nil {
				d.logger.Info("controller read failed", "error", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		d.raw.Log(true, buf[:n])
		report := append([]byte(nil), buf[:n]...)
		if !h.post(d.ctx, event{kind: evReport, id: d.model.Identity, uid: d.uid, data: report}) {
			return
		}
	}
}
