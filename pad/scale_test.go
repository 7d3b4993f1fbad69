package pad_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogxbridge/ogxbridge/pad"
)

func TestScaleUnsigned8(t *testing.T) {
	for r := 0; r <= 255; r++ {
		raw := uint8(r)
		want := (int32(r) - 127) * 255
		assert.Equal(t, int16(want), pad.ScaleUnsigned8(raw, false), "horizontal raw=%d", r)
		assert.Equal(t, int16(-want), pad.ScaleUnsigned8(raw, true), "vertical raw=%d", r)
	}
}

func TestScaleUnsigned8Monotonic(t *testing.T) {
	for r := 1; r <= 255; r++ {
		assert.Greater(t, pad.ScaleUnsigned8(uint8(r), false), pad.ScaleUnsigned8(uint8(r-1), false))
		assert.Less(t, pad.ScaleUnsigned8(uint8(r), true), pad.ScaleUnsigned8(uint8(r-1), true))
	}
}

func TestScaleUnsigned8Antisymmetric(t *testing.T) {
	assert.Equal(t, int16(0), pad.ScaleUnsigned8(127, false))
	assert.Equal(t, int16(0), pad.ScaleUnsigned8(127, true))
	for d := 1; d <= 127; d++ {
		lo := pad.ScaleUnsigned8(uint8(127-d), false)
		hi := pad.ScaleUnsigned8(uint8(127+d), false)
		assert.Equal(t, -lo, hi, "offset %d", d)
	}
}

func TestGravityAngle(t *testing.T) {
	cases := []struct {
		name     string
		along, z float64
		want     float64
	}{
		{name: "level", along: 0, z: 1, want: 180},
		{name: "tilted positive", along: 1, z: 1, want: 225},
		{name: "tilted negative", along: -1, z: 1, want: 135},
		{name: "on its side", along: 1, z: 0, want: 270},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, pad.GravityAngle(tc.along, tc.z), 1e-9)
		})
	}
}

func TestIdentity(t *testing.T) {
	assert.False(t, pad.IdentityNone.SupportsMotion())
	assert.False(t, pad.IdentityXbox360Wired.SupportsMotion())
	assert.False(t, pad.IdentityXboxOneWired.SupportsMotion())
	assert.True(t, pad.IdentityPS3Wired.SupportsMotion())
	assert.True(t, pad.IdentityPS4Wired.SupportsMotion())
	assert.Equal(t, "ps4", pad.IdentityPS4Wired.String())
	assert.Equal(t, "none", pad.Identity(42).String())
}
