package engine

import (
	"fmt"
	"strings"

	"github.com/ogxbridge/ogxbridge/pad"
)

// Sensitivity selects how far the pad must tilt for a full right stick deflection.
type Sensitivity uint8

const (
	SensitivityLow Sensitivity = iota
	SensitivityMed
	SensitivityHigh
)

var sensitivityAngles = [...]float64{60, 45, 30}

func (s Sensitivity) String() string {
	switch s {
	case SensitivityLow:
		return "Low"
	case SensitivityMed:
		return "Med"
	case SensitivityHigh:
		return "High"
	}
	return fmt.Sprintf("Sensitivity(%d)", uint8(s))
}

// ParseSensitivity accepts low, med or high in any case.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SensitivityLow, nil
	case "med", "medium", "":
		return SensitivityMed, nil
	case "high":
		return SensitivityHigh, nil
	}
	return SensitivityMed, fmt.Errorf("unknown motion sensitivity %q", s)
}

// Angle returns the tilt in degrees that maps to a full stick deflection.
func (s Sensitivity) Angle() float64 {
	if int(s) >= len(sensitivityAngles) {
		return sensitivityAngles[SensitivityMed]
	}
	return sensitivityAngles[s]
}

// Motion is the tilt-to-right-stick remap state. It survives controller swaps.
type Motion struct {
	Enabled bool

	level    Sensitivity
	angle    float64
	minInput float64
	maxInput float64
}

func NewMotion(enabled bool, level Sensitivity) Motion {
	m := Motion{Enabled: enabled}
	m.SetLevel(level)
	return m
}

// SetLevel changes the sensitivity and recomputes the accepted input range.
func (m *Motion) SetLevel(level Sensitivity) {
	if level > SensitivityHigh {
		level = SensitivityMed
	}
	m.level = level
	m.angle = level.Angle()
	m.minInput = 180 - m.angle
	m.maxInput = 180 + m.angle
}

// Cycle steps Low → Med → High → Low.
func (m *Motion) Cycle() {
	m.SetLevel((m.level + 1) % (SensitivityHigh + 1))
}

func (m *Motion) Level() Sensitivity { return m.level }

func (m *Motion) Angle() float64 { return m.angle }

// InputRange returns the clamp window applied to raw angles.
func (m *Motion) InputRange() (min, max float64) { return m.minInput, m.maxInput }

// Adjust converts a raw 0..360 angle into a -1..1 proportion of a full deflection.
func (m *Motion) Adjust(angle float64) float64 {
	return (clampFloat(angle, m.minInput, m.maxInput) - 180) / m.angle
}

// Apply blends the pad's tilt into the right stick of r. It does nothing unless motion
// is enabled and a is a motion capable PlayStation pad.
func (m *Motion) Apply(r *Report, a pad.Adapter) {
	if !m.Enabled || a == nil || !a.Identity().SupportsMotion() {
		return
	}
	sensor, ok := a.(pad.MotionSensor)
	if !ok {
		return
	}

	adjustX := m.Adjust(sensor.Angle(pad.AngleRoll))
	adjustY := m.Adjust(sensor.Angle(pad.AnglePitch))
	switch a.Identity() {
	case pad.IdentityPS3Wired:
		adjustY = -adjustY
	case pad.IdentityPS4Wired:
		adjustX = -adjustX
		adjustY = -adjustY
	}

	r.RX = blend(r.RX, adjustX)
	r.RY = blend(r.RY, adjustY)
}

func blend(stick int16, adjust float64) int16 {
	return int16(clampFloat(float64(stick)+adjust*32767, -32767, 32767))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
