package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type phase string

const (
	phaseOpen    phase = "open"
	phaseReview  phase = "review"
	phaseClosed  phase = "closed"
	phaseUnknown phase = "unknown"
)

func TestCanTransition(t *testing.T) {
	sm := New(map[phase][]phase{
		phaseOpen:   {phaseReview},
		phaseReview: {phaseClosed, phaseOpen},
		phaseClosed: {},
	})

	assert.True(t, sm.CanTransition(phaseOpen, phaseReview))
	assert.True(t, sm.CanTransition(phaseReview, phaseOpen))
	assert.False(t, sm.CanTransition(phaseOpen, phaseClosed))
	assert.False(t, sm.CanTransition(phaseClosed, phaseOpen))
	assert.False(t, sm.CanTransition(phaseUnknown, phaseOpen))
}

func TestAllowedTransitions(t *testing.T) {
	sm := New(map[phase][]phase{
		phaseOpen:   {phaseReview},
		phaseClosed: {},
	})

	assert.Equal(t, []phase{phaseReview}, sm.AllowedTransitions(phaseOpen))
	assert.Empty(t, sm.AllowedTransitions(phaseClosed))
	assert.Empty(t, sm.AllowedTransitions(phaseUnknown))
}
