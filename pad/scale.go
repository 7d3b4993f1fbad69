package pad

import "math"

// StickCenter is the resting value of an unsigned 8-bit PlayStation stick.
const StickCenter = 127

// ScaleUnsigned8 widens an unsigned 8-bit stick centred on 127 to the signed 16-bit
// range. Vertical axes are inverted because PlayStation pads report down as positive.
func ScaleUnsigned8(raw uint8, vertical bool) int16 {
	v := (int32(raw) - StickCenter) * 255
	if vertical {
		v = -v
	}
	return int16(v)
}

// Vertical reports whether the axis is one of the two Y axes.
func (a Axis) Vertical() bool {
	return a == AxisLeftY || a == AxisRightY
}

// GravityAngle turns two accelerometer components into a 0..360 degree angle where
// 180 means the pad is lying level.
func GravityAngle(along, z float64) float64 {
	return (math.Atan2(along, z) + math.Pi) * 180 / math.Pi
}
