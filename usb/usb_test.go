package usb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogxbridge/ogxbridge/usb"
)

func TestEncodeStringDescriptor(t *testing.T) {
	assert.Equal(t, []byte{0x06, 0x03, 'O', 0, 'G', 0}, usb.EncodeStringDescriptor("OG"))
	assert.Equal(t, []byte{0x02, 0x03}, usb.EncodeStringDescriptor(""))
	assert.Equal(t, []byte{0x04, 0x03, 0x09, 0x04}, usb.LangIDs(0x0409))
}

func testDescriptor() usb.Descriptor {
	return usb.Descriptor{
		Device: usb.DeviceDescriptor{
			BcdUSB:             0x0110,
			BMaxPacketSize0:    8,
			IDVendor:           0x045e,
			IDProduct:          0x0202,
			BcdDevice:          0x0100,
			BNumConfigurations: 1,
		},
		Interfaces: []usb.InterfaceConfig{{
			Descriptor: usb.InterfaceDescriptor{BNumEndpoints: 1, BInterfaceClass: 0x58, BInterfaceSubClass: 0x42},
			Endpoints: []usb.EndpointDescriptor{
				{BEndpointAddress: 0x81, BMAttributes: usb.TransferInterrupt, WMaxPacketSize: 32, BInterval: 4},
			},
			ClassDescriptor: []byte{0x03, 0x21, 0xAA},
		}},
	}
}

func TestDeviceDescriptorBytes(t *testing.T) {
	b := testDescriptor().Bytes()
	require.Len(t, b, usb.DeviceDescLen)
	assert.Equal(t, []byte{0x12, 0x01, 0x10, 0x01, 0, 0, 0, 8, 0x5e, 0x04, 0x02, 0x02, 0x00, 0x01, 0, 0, 0, 1}, b)
}

func TestConfigurationBytes(t *testing.T) {
	b := testDescriptor().ConfigurationBytes(0x80, 50)
	want := []byte{
		0x09, 0x02, 0x1C, 0x00, 0x01, 0x01, 0x00, 0x80, 50,
		0x09, 0x04, 0x00, 0x00, 0x01, 0x58, 0x42, 0x00, 0x00,
		0x03, 0x21, 0xAA,
		0x07, 0x05, 0x81, 0x03, 0x20, 0x00, 0x04,
	}
	assert.Equal(t, want, b)

	ep, ok := testDescriptor().Endpoint(0x81)
	assert.True(t, ok)
	assert.Equal(t, uint16(32), ep.WMaxPacketSize)
	_, ok = testDescriptor().Endpoint(0x02)
	assert.False(t, ok)
}

func TestParseSetup(t *testing.T) {
	s, err := usb.ParseSetup([]byte{0xC1, 0x06, 0x00, 0x42, 0x00, 0x00, 0x10, 0x00})
	require.NoError(t, err)
	assert.True(t, s.In())
	assert.Equal(t, uint8(usb.RequestTypeVendor), s.Type())
	assert.Equal(t, uint8(usb.RecipientInterface), s.Recipient())
	assert.Equal(t, uint16(0x4200), s.Value)
	assert.Equal(t, uint16(16), s.Length)
	assert.Len(t, s.Truncate(make([]byte, 20)), 16)
	assert.Len(t, s.Truncate(make([]byte, 4)), 4)

	_, err = usb.ParseSetup([]byte{1, 2, 3})
	assert.Error(t, err)
}
