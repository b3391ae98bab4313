package main

import "fmt"

// Trigger is an input to the presence state machine.
type Trigger string

const (
	TriggerConnected    Trigger = "Connected"
	TriggerWaiting      Trigger = "WaitingConfirmDisconnect"
	TriggerDisconnected Trigger = "Disconnected"
	TriggerClose        Trigger = "Close"
)

// transitions maps (state, trigger) to the next state. A missing entry is an
// illegal pair. An entry equal to its own state is a legal no-op: the trigger
// is accepted but nothing changes.
var transitions = map[PresenceState]map[Trigger]PresenceState{
	StateNone: {
		TriggerConnected:    StateConnected,
		TriggerWaiting:      StateDisconnected,
		TriggerDisconnected: StateDisconnected,
		TriggerClose:        StateNone,
	},
	StateConnected: {
		TriggerConnected:    StateConnected,
		TriggerWaiting:      StateWaiting,
		TriggerDisconnected: StateDisconnected,
		TriggerClose:        StateNone,
	},
	StateWaiting: {
		TriggerConnected:    StateConnected,
		TriggerWaiting:      StateWaiting,
		TriggerDisconnected: StateDisconnected,
		TriggerClose:        StateNone,
	},
	StateDisconnected: {
		TriggerConnected:    StateConnected,
		TriggerDisconnected: StateDisconnected,
		TriggerClose:        StateNone,
	},
}

// transition resolves (state, trigger) against the table. It returns an error
// only for pairs the table does not list; self-loops come back unchanged.
func transition(state PresenceState, trigger Trigger) (PresenceState, error) {
	row, ok := transitions[state]
	if !ok {
		return state, fmt.Errorf("unknown state %q", state)
	}
	next, ok := row[trigger]
	if !ok {
		return state, fmt.Errorf("trigger %q not permitted in state %q", trigger, state)
	}
	return next, nil
}

// presenceMachine holds the current state and fires triggers through the
// table. Not safe for concurrent use; the monitor session owns it.
type presenceMachine struct {
	state PresenceState
}

func newPresenceMachine() *presenceMachine {
	return &presenceMachine{state: StateNone}
}

func (m *presenceMachine) current() PresenceState {
	return m.state
}

// fire applies trigger and reports the previous and new states so the caller
// can run edge side effects exactly once per real change. changed is false
// for self-loops.
func (m *presenceMachine) fire(trigger Trigger) (prev, next PresenceState, changed bool, err error) {
	prev = m.state
	next, err = transition(prev, trigger)
	if err != nil {
		return prev, prev, false, err
	}
	m.state = next
	return prev, next, next != prev, nil
}
