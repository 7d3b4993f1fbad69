package host

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/ogxbridge/ogxbridge/internal/testing"
	"github.com/ogxbridge/ogxbridge/pad"
	"github.com/ogxbridge/ogxbridge/pad/ps3"
	"github.com/ogxbridge/ogxbridge/pad/ps4"
	"github.com/ogxbridge/ogxbridge/pad/xbox360"
	"github.com/ogxbridge/ogxbridge/pad/xboxone"
)

func newTestHost(targets ...pad.Target) *Host {
	return New(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, targets)
}

func inputReport(buttons uint16) []byte {
	b := make([]byte, 20)
	b[1] = 0x14
	b[2] = byte(buttons)
	b[3] = byte(buttons >> 8)
	return b
}

func TestLookup(t *testing.T) {
	type testCase struct {
		vid, pid gousb.ID
		want     pad.Identity
		iface    int
		ok       bool
	}
	cases := []testCase{
		{vid: 0x045e, pid: 0x028e, want: pad.IdentityXbox360Wired, ok: true},
		{vid: 0x045e, pid: 0x0b12, want: pad.IdentityXboxOneWired, ok: true},
		{vid: 0x054c, pid: 0x0268, want: pad.IdentityPS3Wired, ok: true},
		{vid: 0x054c, pid: 0x09cc, want: pad.IdentityPS4Wired, iface: 3, ok: true},
		{vid: 0x045e, pid: 0x0202},
		{vid: 0x057e, pid: 0x2009},
	}
	for _, tc := range cases {
		m, ok := Lookup(tc.vid, tc.pid)
		assert.Equal(t, tc.ok, ok, "%s:%s", tc.vid, tc.pid)
		if ok {
			assert.Equal(t, tc.want, m.Identity)
			assert.Equal(t, tc.iface, m.Interface)
		}
	}
}

func TestPollAppliesEvents(t *testing.T) {
	x := xbox360.New()
	h := newTestHost(x)
	out := &th.RecordingOutput{}

	h.events <- event{kind: evAttach, id: pad.IdentityXbox360Wired, uid: "1-4", out: out}
	h.events <- event{kind: evReport, id: pad.IdentityXbox360Wired, uid: "1-4", data: inputReport(xbox360.ButtonA)}
	h.Poll()
	require.True(t, x.Connected())
	assert.Equal(t, uint8(0xFF), x.Button(pad.ButtonA))

	// a stale device with the same identity is ignored
	h.events <- event{kind: evReport, id: pad.IdentityXbox360Wired, uid: "1-2", data: inputReport(xbox360.ButtonB)}
	h.events <- event{kind: evDetach, id: pad.IdentityXbox360Wired, uid: "1-2"}
	h.Poll()
	assert.True(t, x.Connected())
	assert.Equal(t, uint8(0x00), x.Button(pad.ButtonB))

	h.events <- event{kind: evReport, id: pad.IdentityXbox360Wired, uid: "1-4", data: []byte{0x00}}
	h.events <- event{kind: evDetach, id: pad.IdentityXbox360Wired, uid: "1-4"}
	h.Poll()
	assert.False(t, x.Connected())
	assert.Equal(t, uint8(0x00), x.Button(pad.ButtonA))
}

func TestPollIgnoresUnknownIdentity(t *testing.T) {
	h := newTestHost(xbox360.New())
	h.events <- event{kind: evAttach, id: pad.IdentityPS4Wired, uid: "1-1", out: &th.RecordingOutput{}}
	h.Poll()
	assert.Empty(t, h.bound)
}

func TestPollNeverBlocks(t *testing.T) {
	h := newTestHost()
	h.Poll()
}

func TestAttachSendsInitThroughOutput(t *testing.T) {
	p := ps3.New()
	h := newTestHost(p)
	out := &th.RecordingOutput{}
	h.events <- event{kind: evAttach, id: pad.IdentityPS3Wired, uid: "2-1", out: out}
	h.Poll()
	require.Len(t, out.Sent, 1)
	assert.Equal(t, pad.ReportFeature, out.Sent[0].Kind)
}

func TestSetReport(t *testing.T) {
	value, data := setReport(pad.ReportFeature, []byte{0xF4, 0x42, 0x0C, 0x00, 0x00})
	assert.Equal(t, uint16(0x03F4), value)
	assert.Equal(t, []byte{0x42, 0x0C, 0x00, 0x00}, data)

	value, data = setReport(pad.ReportOutput, []byte{0x01, 0xAA})
	assert.Equal(t, uint16(0x0201), value)
	assert.Equal(t, []byte{0xAA}, data)
}

func TestDeviceWriteQueueKeepsNewest(t *testing.T) {
	d := &device{
		writes: make(chan write, 2),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	buf := []byte{1, 2, 3}
	require.NoError(t, d.WriteReport(pad.ReportOutput, buf))
	buf[0] = 9
	assert.NoError(t, d.WriteReport(pad.ReportOutput, nil))

	// rumble on, then off while the writer is stalled
	require.NoError(t, d.WriteReport(pad.ReportOutput, xbox360.RumblePacket(0xFF, 0xFF)))
	require.NoError(t, d.WriteReport(pad.ReportOutput, xbox360.RumblePacket(0, 0)))
	require.Len(t, d.writes, 2)

	w := <-d.writes
	assert.Equal(t, xbox360.RumblePacket(0xFF, 0xFF), w.data, "oldest report dropped")
	w = <-d.writes
	assert.Equal(t, xbox360.RumblePacket(0, 0), w.data, "rumble off survives")
}

func TestDeviceWriteQueueCopies(t *testing.T) {
	d := &device{writes: make(chan write, 1)}
	buf := []byte{1, 2, 3}
	require.NoError(t, d.WriteReport(pad.ReportOutput, buf))
	buf[0] = 9
	w := <-d.writes
	assert.Equal(t, []byte{1, 2, 3}, w.data, "report is copied")
}

func TestClaimOnePadPerIdentity(t *testing.T) {
	h := newTestHost(ps4.New(), xboxone.New())
	desc := func(bus, addr int, pid gousb.ID) *gousb.DeviceDesc {
		vid := gousb.ID(0x054c)
		if pid == 0x02d1 || pid == 0x0b12 {
			vid = 0x045e
		}
		return &gousb.DeviceDesc{Bus: bus, Address: addr, Vendor: vid, Product: pid}
	}

	// one scan sees two DualShock 4s and two different Xbox One models
	var claimed []pad.Identity
	for _, d := range []*gousb.DeviceDesc{
		desc(1, 2, 0x05c4),
		desc(1, 3, 0x09cc),
		desc(1, 4, 0x02d1),
		desc(1, 5, 0x0b12),
		desc(1, 6, 0x0202),
	} {
		if id, ok := h.claim(d); ok {
			claimed = append(claimed, id)
		}
	}
	assert.Equal(t, []pad.Identity{pad.IdentityPS4Wired, pad.IdentityXboxOneWired}, claimed)

	// the second DS4 is picked up once the first is gone
	h.release(pad.IdentityPS4Wired)
	id, ok := h.claim(desc(1, 3, 0x09cc))
	assert.True(t, ok)
	assert.Equal(t, pad.IdentityPS4Wired, id)
}

func TestClaimSkipsOpenDevice(t *testing.T) {
	h := newTestHost(ps4.New())
	d := &gousb.DeviceDesc{Bus: 2, Address: 7, Vendor: 0x054c, Product: 0x05c4}
	h.open[uid(d)] = &device{}
	_, ok := h.claim(d)
	assert.False(t, ok)
	assert.False(t, h.busy[pad.IdentityPS4Wired])
}

func TestSettleReleasesUnopenedClaims(t *testing.T) {
	h := newTestHost(ps3.New(), ps4.New())
	_, ok := h.claim(&gousb.DeviceDesc{Bus: 1, Address: 2, Vendor: 0x054c, Product: 0x0268})
	require.True(t, ok)
	_, ok = h.claim(&gousb.DeviceDesc{Bus: 1, Address: 3, Vendor: 0x054c, Product: 0x05c4})
	require.True(t, ok)

	// libusb could only open the PS3 pad
	h.settle([]pad.Identity{pad.IdentityPS3Wired, pad.IdentityPS4Wired}, []pad.Identity{pad.IdentityPS3Wired})
	assert.True(t, h.busy[pad.IdentityPS3Wired])
	assert.False(t, h.busy[pad.IdentityPS4Wired])
}
