package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTableExhaustive(t *testing.T) {
	type key struct {
		state   PresenceState
		trigger Trigger
	}
	legal := map[key]PresenceState{
		{StateNone, TriggerConnected}:    StateConnected,
		{StateNone, TriggerWaiting}:      StateDisconnected,
		{StateNone, TriggerDisconnected}: StateDisconnected,
		{StateNone, TriggerClose}:        StateNone,

		{StateConnected, TriggerConnected}:    StateConnected,
		{StateConnected, TriggerWaiting}:      StateWaiting,
		{StateConnected, TriggerDisconnected}: StateDisconnected,
		{StateConnected, TriggerClose}:        StateNone,

		{StateWaiting, TriggerConnected}:    StateConnected,
		{StateWaiting, TriggerWaiting}:      StateWaiting,
		{StateWaiting, TriggerDisconnected}: StateDisconnected,
		{StateWaiting, TriggerClose}:        StateNone,

		{StateDisconnected, TriggerConnected}:    StateConnected,
		{StateDisconnected, TriggerDisconnected}: StateDisconnected,
		{StateDisconnected, TriggerClose}:        StateNone,
	}

	states := []PresenceState{StateNone, StateConnected, StateWaiting, StateDisconnected}
	triggers := []Trigger{TriggerConnected, TriggerWaiting, TriggerDisconnected, TriggerClose}

	for _, state := range states {
		for _, trigger := range triggers {
			next, err := transition(state, trigger)
			want, ok := legal[key{state, trigger}]
			if !ok {
				assert.Errorf(t, err, "%s x %s should be rejected", state, trigger)
				continue
			}
			require.NoErrorf(t, err, "%s x %s", state, trigger)
			assert.Equalf(t, want, next, "%s x %s", state, trigger)
		}
	}
}

func TestTransitionRejectsWaitingFromDisconnected(t *testing.T) {
	_, err := transition(StateDisconnected, TriggerWaiting)
	require.Error(t, err)
}

func TestTransitionRejectsUnknownState(t *testing.T) {
	_, err := transition(PresenceState("bogus"), TriggerConnected)
	require.Error(t, err)
}

func TestMachineReportsEdges(t *testing.T) {
	m := newPresenceMachine()
	require.Equal(t, StateNone, m.current())

	prev, next, changed, err := m.fire(TriggerConnected)
	require.NoError(t, err)
	assert.Equal(t, StateNone, prev)
	assert.Equal(t, StateConnected, next)
	assert.True(t, changed)

	// Self-loop: legal, but not a change.
	prev, next, changed, err = m.fire(TriggerConnected)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, prev)
	assert.Equal(t, StateConnected, next)
	assert.False(t, changed)
}

func TestMachineStaysPutOnIllegalTrigger(t *testing.T) {
	m := &presenceMachine{state: StateDisconnected}
	_, _, changed, err := m.fire(TriggerWaiting)
	require.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, StateDisconnected, m.current())
}
