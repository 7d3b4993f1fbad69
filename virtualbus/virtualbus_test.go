package virtualbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogxbridge/ogxbridge/usb"
	"github.com/ogxbridge/ogxbridge/virtualbus"
)

type stubDevice struct{ name string }

func (s *stubDevice) HandleTransfer(ep, dir uint32, out []byte) []byte { return nil }
func (s *stubDevice) GetDescriptor() *usb.Descriptor                  { return &usb.Descriptor{} }

func TestAddAssignsLowestFreeAddress(t *testing.T) {
	bus := virtualbus.New(3)
	a, b, c := &stubDevice{"a"}, &stubDevice{"b"}, &stubDevice{"c"}

	_, ma, err := bus.Add(a)
	require.NoError(t, err)
	_, mb, err := bus.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "3-1", ma.BusID())
	assert.Equal(t, "3-2", mb.BusID())

	_, _, err = bus.Add(a)
	assert.ErrorIs(t, err, virtualbus.ErrDuplicate)

	require.NoError(t, bus.Remove(a))
	_, mc, err := bus.Add(c)
	require.NoError(t, err)
	assert.Equal(t, "3-1", mc.BusID(), "freed address is reused")
	assert.Len(t, bus.GetAllDeviceMetas(), 2)
}

func TestRemoveCancelsContext(t *testing.T) {
	bus := virtualbus.New(0)
	assert.Equal(t, uint32(1), bus.BusID())
	d := &stubDevice{}
	ctx, meta, err := bus.Add(d)
	require.NoError(t, err)

	found, lctx, ok := bus.Lookup(meta.BusID())
	require.True(t, ok)
	assert.Same(t, d, found.Dev)
	assert.Equal(t, ctx, lctx)

	require.NoError(t, bus.Remove(d))
	assert.Error(t, ctx.Err())
	_, _, ok = bus.Lookup(meta.BusID())
	assert.False(t, ok)
	assert.ErrorIs(t, bus.Remove(d), virtualbus.ErrNotFound)
}

func TestCloseRemovesAll(t *testing.T) {
	bus := virtualbus.New(1)
	ctx, _, err := bus.Add(&stubDevice{})
	require.NoError(t, err)
	require.NoError(t, bus.Close())
	assert.Error(t, ctx.Err())
	assert.Empty(t, bus.GetAllDeviceMetas())
}
