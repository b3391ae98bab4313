package main

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// presenceSource is the probe side of the monitor, satisfied by *bluez and
// faked in tests.
type presenceSource interface {
	Connected(addr string) (bool, error)
	Name(addr string) string
	Connect(addr string) error
}

// session owns everything the poll loop mutates: the tracked device, the
// presence machine, the lock latch, and the pending-departure timestamp.
// It is not safe for concurrent use; the daemon serializes ticks and IPC
// commands through one mutex. The single exception is the reconnection
// latch, which the attempt goroutine clears on completion.
type session struct {
	probe  presenceSource
	locker SessionLocker
	log    zerolog.Logger
	now    func() time.Time

	machine    *presenceMachine
	device     string // selected MAC address, "" when none
	deviceName string

	// canLock latches when a Connected state is observed and clears when a
	// lock fires, so each departure episode locks at most once.
	canLock      bool
	pendingSince time.Time
	timeout      time.Duration

	reconnecting atomic.Bool
}

func newSession(probe presenceSource, locker SessionLocker, timeout time.Duration, log zerolog.Logger) *session {
	return &session{
		probe:   probe,
		locker:  locker,
		log:     log,
		now:     time.Now,
		machine: newPresenceMachine(),
		timeout: timeout,
	}
}

func (s *session) state() PresenceState { return s.machine.current() }

// selectDevice switches the tracked slot. The Close trigger runs first so a
// pending departure episode from the old device can never lock on behalf of
// the new one.
func (s *session) selectDevice(addr, name string) {
	s.fire(TriggerClose)
	s.device = addr
	s.deviceName = name
	s.log.Info().Str("device", addr).Str("name", name).Msg("device selected")
}

// deselect clears the tracked slot via the same Close path.
func (s *session) deselect() {
	s.fire(TriggerClose)
	s.device = ""
	s.deviceName = ""
	s.log.Info().Msg("monitoring disabled")
}

func (s *session) setTimeout(d time.Duration) {
	s.timeout = d
	s.log.Info().Dur("timeout", d).Msg("confirmation timeout changed")
}

// tick is one scheduler pass: probe, advance the machine, arbitrate the
// lock, and kick the reconnection attempter. A probe failure makes the tick
// a no-op; prior state is retained and the next tick retries.
func (s *session) tick() {
	if s.device == "" {
		return
	}

	connected, err := s.probe.Connected(s.device)
	if err != nil {
		s.log.Debug().Err(err).Str("device", s.device).Msg("probe failed, skipping tick")
		return
	}

	if connected {
		s.fire(TriggerConnected)
		return
	}

	switch s.machine.current() {
	case StateConnected:
		s.fire(TriggerWaiting)
	case StateWaiting:
		if s.now().Sub(s.pendingSince) >= s.timeout {
			s.fire(TriggerDisconnected)
		}
	}

	s.maybeReconnect()
}

// fire runs a trigger through the machine and dispatches edge side effects.
// Self-loops change nothing and have no side effects.
func (s *session) fire(trigger Trigger) {
	prev, next, changed, err := s.machine.fire(trigger)
	if err != nil {
		// Tick policy only fires triggers the table permits.
		s.log.Error().Err(err).Msg("illegal presence transition")
		return
	}
	if !changed {
		return
	}

	s.log.Debug().
		Str("from", string(prev)).
		Str("to", string(next)).
		Str("trigger", string(trigger)).
		Msg("presence transition")

	switch next {
	case StateConnected:
		s.canLock = true
		s.pendingSince = time.Time{}
		s.log.Info().Str("name", s.deviceName).Msg("device present")
	case StateWaiting:
		s.pendingSince = s.now()
		s.log.Info().Str("name", s.deviceName).Dur("timeout", s.timeout).Msg("connection lost, confirming departure")
	case StateDisconnected:
		s.pendingSince = time.Time{}
		s.arbitrateLock(prev)
	case StateNone:
		s.canLock = false
		s.pendingSince = time.Time{}
	}
}

// arbitrateLock fires the lock action on the one edge that means a confirmed
// departure: Waiting -> Disconnected with a Connected state seen since the
// last lock. Anything else reaching Disconnected stays quiet.
func (s *session) arbitrateLock(prev PresenceState) {
	if !s.canLock || prev != StateWaiting {
		s.log.Debug().Str("from", string(prev)).Bool("can_lock", s.canLock).Msg("departure without lock")
		return
	}
	s.canLock = false
	s.log.Info().Str("name", s.deviceName).Msg("departure confirmed, locking session")
	if err := s.locker.Lock(); err != nil {
		// Not retried; the next confirmed departure needs a fresh
		// Connected observation anyway.
		s.log.Error().Err(err).Msg("session lock failed")
	}
}

// maybeReconnect launches a fire-and-forget connection attempt. The latch
// guarantees at most one attempt in flight; the tick never waits for it.
func (s *session) maybeReconnect() {
	if !s.reconnecting.CompareAndSwap(false, true) {
		return
	}
	addr := s.device
	go func() {
		defer s.reconnecting.Store(false)
		if err := s.probe.Connect(addr); err != nil {
			s.log.Debug().Err(err).Str("device", addr).Msg("reconnect attempt failed")
			return
		}
		s.log.Debug().Str("device", addr).Msg("reconnect attempt succeeded")
	}()
}
