package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDaemon(t *testing.T) (*daemon, *fakeLocker) {
	t.Helper()
	probe := &fakeProbe{}
	locker := &fakeLocker{}
	d := &daemon{
		sess:   newSession(probe, locker, 5*time.Second, zerolog.Nop()),
		log:    zerolog.Nop(),
		cancel: func() {},
		devices: []bluezDevice{
			{Address: "AA:BB:CC:DD:EE:FF", Name: "Buds", Connected: true},
			{Address: "11:22:33:44:55:66", Name: "Phone", Connected: false},
		},
		detected: true,
	}
	return d, locker
}

func TestHandleStatusWhileDetecting(t *testing.T) {
	d, _ := testDaemon(t)
	d.detected = false

	resp := d.handleRequest(IPCRequest{Command: "status"})
	assert.Equal(t, StateDetecting, resp.State)

	resp = d.handleRequest(IPCRequest{Command: "devices"})
	assert.Equal(t, StateDetecting, resp.State)

	resp = d.handleRequest(IPCRequest{Command: "select", Device: "0"})
	assert.NotEmpty(t, resp.Error)
}

func TestHandleSelectByIndexAndAddress(t *testing.T) {
	d, _ := testDaemon(t)

	resp := d.handleRequest(IPCRequest{Command: "select", Device: "1"})
	require.Empty(t, resp.Error)
	assert.Equal(t, "11:22:33:44:55:66", resp.Device)
	assert.Equal(t, "Phone", resp.Name)
	assert.Equal(t, string(StateNone), resp.State)

	// Addresses match case-insensitively.
	resp = d.handleRequest(IPCRequest{Command: "select", Device: "aa:bb:cc:dd:ee:ff"})
	require.Empty(t, resp.Error)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", resp.Device)
}

func TestHandleSelectRejectsUnknownDevice(t *testing.T) {
	d, _ := testDaemon(t)

	resp := d.handleRequest(IPCRequest{Command: "select", Device: "5"})
	assert.NotEmpty(t, resp.Error)

	resp = d.handleRequest(IPCRequest{Command: "select", Device: "FF:FF:FF:FF:FF:FF"})
	assert.NotEmpty(t, resp.Error)

	resp = d.handleRequest(IPCRequest{Command: "select"})
	assert.NotEmpty(t, resp.Error)
}

func TestHandleDevicesMarksSelection(t *testing.T) {
	d, _ := testDaemon(t)
	d.handleRequest(IPCRequest{Command: "select", Device: "0"})

	resp := d.handleRequest(IPCRequest{Command: "devices"})
	require.Len(t, resp.Devices, 2)
	assert.True(t, resp.Devices[0].Selected)
	assert.False(t, resp.Devices[1].Selected)
}

func TestHandleDisable(t *testing.T) {
	d, _ := testDaemon(t)
	d.handleRequest(IPCRequest{Command: "select", Device: "0"})

	resp := d.handleRequest(IPCRequest{Command: "disable"})
	assert.Equal(t, string(StateNone), resp.State)
	assert.Empty(t, d.sess.device)
}

func TestHandleTimeout(t *testing.T) {
	d, _ := testDaemon(t)

	resp := d.handleRequest(IPCRequest{Command: "timeout", Seconds: 15})
	require.Empty(t, resp.Error)
	assert.Equal(t, 15, resp.Timeout)
	assert.Equal(t, 15*time.Second, d.sess.timeout)

	resp = d.handleRequest(IPCRequest{Command: "timeout", Seconds: 7})
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, 15*time.Second, d.sess.timeout)
}

func TestHandleQuitCancels(t *testing.T) {
	d, _ := testDaemon(t)
	cancelled := false
	d.cancel = func() { cancelled = true }

	d.handleRequest(IPCRequest{Command: "quit"})
	assert.True(t, cancelled)
}

func TestHandleUnknownCommand(t *testing.T) {
	d, _ := testDaemon(t)
	resp := d.handleRequest(IPCRequest{Command: "bogus"})
	assert.NotEmpty(t, resp.Error)
}

// Switching devices over IPC mid-departure must never carry the old episode
// into the new selection.
func TestSelectSwitchOverIPC(t *testing.T) {
	d, locker := testDaemon(t)
	probe := d.sess.probe.(*fakeProbe)
	clock := time.Unix(1000, 0)
	d.sess.now = func() time.Time { return clock }

	d.handleRequest(IPCRequest{Command: "select", Device: "0"})
	probe.set(true, nil)
	d.sess.tick()
	probe.set(false, nil)
	clock = clock.Add(time.Second)
	d.sess.tick()
	require.Equal(t, StateWaiting, d.sess.state())

	d.handleRequest(IPCRequest{Command: "select", Device: "1"})
	assert.Equal(t, StateNone, d.sess.state())

	clock = clock.Add(time.Minute)
	d.sess.tick()
	assert.Zero(t, locker.lockCalls())
}
