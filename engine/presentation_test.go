package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ogxbridge/ogxbridge/engine"
)

func TestPresentationBootsDraining(t *testing.T) {
	boot := time.Unix(0, 0)
	p := engine.NewPresentation(boot, 2*time.Second)
	assert.Equal(t, engine.PhaseDraining, p.Phase())

	a := p.Update(boot, false)
	assert.Equal(t, engine.ActionAttach, a, "pad is presented for initial enumeration")
	p.Done(a, nil)
	assert.True(t, p.Presenting())

	// grace has elapsed but uptime has not
	assert.Equal(t, engine.ActionNone, p.Update(boot.Add(6999*time.Millisecond), false))
	assert.Equal(t, engine.PhaseDraining, p.Phase())

	a = p.Update(boot.Add(7000*time.Millisecond), false)
	assert.Equal(t, engine.ActionDetach, a)
	p.Done(a, nil)
	assert.Equal(t, engine.PhaseDetached, p.Phase())
	assert.False(t, p.Presenting())
	assert.Equal(t, engine.ActionNone, p.Update(boot.Add(8*time.Second), false))
}

func TestPresentationAttachRetries(t *testing.T) {
	boot := time.Unix(0, 0)
	p := engine.NewPresentation(boot, time.Second)
	fail := errors.New("busy")

	for i := 0; i < 3; i++ {
		a := p.Update(boot.Add(time.Duration(i)*time.Millisecond), true)
		assert.Equal(t, engine.ActionAttach, a)
		p.Done(a, fail)
		assert.False(t, p.Attached())
	}
	a := p.Update(boot.Add(5*time.Millisecond), true)
	p.Done(a, nil)
	assert.True(t, p.Attached())
	assert.Equal(t, engine.ActionNone, p.Update(boot.Add(6*time.Millisecond), true))
	assert.Equal(t, engine.PhaseAttached, p.Phase())
}

func TestPresentationReconnectInsideGrace(t *testing.T) {
	boot := time.Unix(0, 0)
	p := engine.NewPresentation(boot, 2*time.Second)
	p.Done(p.Update(boot, true), nil)
	p.Update(boot.Add(10*time.Second), true)
	assert.Equal(t, engine.PhaseAttached, p.Phase())

	assert.Equal(t, engine.ActionNone, p.Update(boot.Add(10*time.Second+time.Millisecond), false))
	assert.Equal(t, engine.PhaseDraining, p.Phase())
	assert.True(t, p.Presenting(), "reports keep flowing while draining")

	assert.Equal(t, engine.ActionNone, p.Update(boot.Add(11*time.Second), false))
	assert.Equal(t, engine.ActionNone, p.Update(boot.Add(11*time.Second+time.Millisecond), true))
	assert.Equal(t, engine.PhaseAttached, p.Phase())

	// a later disconnect starts a fresh window
	p.Update(boot.Add(20*time.Second), false)
	assert.Equal(t, engine.ActionNone, p.Update(boot.Add(21*time.Second), false))
	assert.Equal(t, engine.ActionDetach, p.Update(boot.Add(22*time.Second), false))
}
