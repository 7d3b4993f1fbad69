package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/gousb"

	"github.com/ogxbridge/ogxbridge/internal/log"
	"github.com/ogxbridge/ogxbridge/pad"
)

// HID class request fields.
const (
	hidRequestTypeOut    = 0x21 // class, interface, host to device
	hidReqSetReport      = 0x09
	hidReportTypeOut     = 0x02
	hidReportTypeFeature = 0x03
)

type write struct {
	kind pad.ReportKind
	data []byte
}

// device is one opened controller. It is the pad.Output handed to the adapter.
type device struct {
	uid    string
	model  Model
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	packet int

	ctx    context.Context
	cancel context.CancelFunc
	writes chan write

	raw       log.RawLogger
	logger    *slog.Logger
	closeOnce sync.Once
}

// WriteReport queues p for the writer goroutine. When the writer is behind the
// oldest queued report is dropped, so the last rumble or LED state always
// reaches the controller.
func (d *device) WriteReport(kind pad.ReportKind, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w := write{kind: kind, data: append([]byte(nil), p...)}
	for {
		select {
		case d.writes <- w:
			return nil
		default:
		}
		select {
		case old := <-d.writes:
			d.logger.Debug("output queue full, dropping oldest report", "len", len(old.data))
		default:
		}
	}
}

func (d *device) writeLoop() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case w := <-d.writes:
			if err := d.send(w); err != nil && d.ctx.Err() == nil {
				d.logger.Debug("controller write failed", "error", err)
			}
		}
	}
}

func (d *device) send(w write) error {
	d.raw.Log(false, w.data)
	if w.kind == pad.ReportOutput && d.out != nil {
		_, err := d.out.WriteContext(d.ctx, w.data)
		return err
	}
	value, data := setReport(w.kind, w.data)
	if _, err := d.dev.Control(hidRequestTypeOut, hidReqSetReport, value, uint16(d.model.Interface), data); err != nil {
		return fmt.Errorf("set report %#04x: %w", value, err)
	}
	return nil
}

// setReport builds the wValue and data stage of a HID SET_REPORT. The first
// byte of p is the report id, which travels in wValue and not in the data.
func setReport(kind pad.ReportKind, p []byte) (uint16, []byte) {
	reportType := uint16(hidReportTypeOut)
	if kind == pad.ReportFeature {
		reportType = hidReportTypeFeature
	}
	return reportType<<8 | uint16(p[0]), p[1:]
}

func (d *device) close() {
	d.closeOnce.Do(func() {
		d.cancel()
		d.intf.Close()
		_ = d.cfg.Close()
		_ = d.dev.Close()
	})
}
