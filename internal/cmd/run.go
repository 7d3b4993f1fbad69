package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogxbridge/ogxbridge/engine"
	"github.com/ogxbridge/ogxbridge/internal/host"
	"github.com/ogxbridge/ogxbridge/internal/log"
	"github.com/ogxbridge/ogxbridge/internal/server/usb"
	"github.com/ogxbridge/ogxbridge/internal/sink"
	"github.com/ogxbridge/ogxbridge/internal/status"
	"github.com/ogxbridge/ogxbridge/pad"
	"github.com/ogxbridge/ogxbridge/pad/ps3"
	"github.com/ogxbridge/ogxbridge/pad/ps4"
	"github.com/ogxbridge/ogxbridge/pad/xbox360"
	"github.com/ogxbridge/ogxbridge/pad/xboxone"
	"github.com/ogxbridge/ogxbridge/virtualbus"
)

// Run is the bridge itself: physical pads in, emulated Duke out.
type Run struct {
	Engine          engine.Config    `embed:""`
	Sink            sink.Config      `embed:""`
	Host            host.Config      `embed:"" prefix:"host."`
	UsbServerConfig usb.ServerConfig `embed:"" prefix:"usb."`
	Status          status.Config    `embed:"" prefix:"status."`
	Nice            int              `help:"Scheduling niceness for the process (-20..19, linux only)" default:"0" env:"OGXBRIDGE_NICE"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.StartBridge(ctx, logger, rawLogger)
}

// Pads returns one adapter per supported controller family.
func Pads() []pad.Target {
	return []pad.Target{xbox360.New(), xboxone.New(), ps3.New(), ps4.New()}
}

func (r *Run) StartBridge(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	if r.Nice != 0 {
		if err := setNice(r.Nice); err != nil {
			logger.Warn("failed to set process priority", "nice", r.Nice, "error", err)
		} else {
			logger.Debug("process priority set", "nice", r.Nice)
		}
	}

	usbSrv := usb.New(r.UsbServerConfig, logger, rawLogger)
	bus := virtualbus.New(1)
	if err := usbSrv.AddBus(bus); err != nil {
		return err
	}

	usbErrCh := make(chan error, 1)
	go func() {
		usbErrCh <- usbSrv.ListenAndServe()
	}()
	select {
	case err := <-usbErrCh:
		return fmt.Errorf("usbip server: %w", err)
	case <-usbSrv.Ready():
	}
	// usbSrvDone only fires if the server stops on its own
	usbSrvDone := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		err := <-usbErrCh
		select {
		case <-stopped:
		default:
			usbSrvDone <- err
		}
		close(usbSrvDone)
	}()
	defer func() {
		close(stopped)
		_ = usbSrv.Close()
		<-usbSrvDone
	}()

	if r.Sink.AutoAttach {
		logger.Info("Auto-attach is enabled, checking prerequisites...")
		if !sink.CheckAutoAttach(logger) {
			logger.Warn("Auto-attach prerequisites not met")
			logger.Info("You can disable auto-attach with --no-auto-attach")
		}
	}

	out, err := sink.New(ctx, r.Sink, sink.Options{Bus: bus, Port: usbSrv.ListenPort}, logger)
	if err != nil {
		return err
	}

	pads := Pads()
	adapters := make([]pad.Adapter, 0, len(pads))
	for _, p := range pads {
		adapters = append(adapters, p)
	}
	h := host.New(r.Host, logger, rawLogger, pads)

	displays, closeDisplays, err := r.displays(logger)
	if err != nil {
		return err
	}
	defer closeDisplays()

	eng, err := engine.New(r.Engine, engine.Options{
		Host:     h,
		Sink:     out,
		Adapters: adapters,
		Displays: displays,
	}, logger)
	if err != nil {
		return err
	}

	hostCtx, cancelHost := context.WithCancel(ctx)
	hostErrCh := make(chan error, 1)
	go func() {
		hostErrCh <- h.Run(hostCtx)
	}()
	defer func() {
		cancelHost()
		<-hostErrCh
	}()

	logger.Info("Bridge running", "usbip", usbSrv.ListenPort(), "motion", r.Engine.Motion, "rumble", r.Engine.Rumble)

	engCtx, cancelEng := context.WithCancel(ctx)
	defer cancelEng()
	engErrCh := make(chan error, 1)
	go func() {
		engErrCh <- eng.Run(engCtx)
	}()

	return supervise(cancelEng, engErrCh, usbSrvDone, out.Detach)
}

// supervise waits for the loop to end or the USB/IP server to fail. The loop
// has stopped and the pad is withdrawn by the time it returns.
func supervise(cancelLoop context.CancelFunc, loopDone, serverDone <-chan error, detach func() error) error {
	var err error
	select {
	case err = <-loopDone:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case srvErr := <-serverDone:
		cancelLoop()
		<-loopDone
		err = fmt.Errorf("usbip server stopped: %w", srvErr)
	}
	_ = detach()
	return err
}

func (r *Run) displays(logger *slog.Logger) ([]engine.Display, func(), error) {
	var displays []engine.Display
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if r.Status.Enabled("log") {
		displays = append(displays, status.NewLog(logger))
	}
	if r.Status.Enabled("terminal") {
		if t, ok := status.NewTerminal(); ok {
			displays = append(displays, t)
		} else {
			logger.Warn("stdout is not a terminal, terminal status display disabled")
		}
	}
	if r.Status.Enabled("websocket") {
		ln, err := net.Listen("tcp", r.Status.Addr)
		if err != nil {
			return nil, nil, fmt.Errorf("status server: %w", err)
		}
		hub := status.NewHub(logger)
		srv := status.NewServer(r.Status.Addr, hub, logger)
		go func() {
			if err := srv.Serve(ln); err != nil {
				logger.Error("status server stopped", "error", err)
			}
		}()
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
		displays = append(displays, hub)
	}
	return displays, closeAll, nil
}
