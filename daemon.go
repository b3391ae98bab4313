package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func socketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "proxlock.sock")
}

type daemon struct {
	sess   *session
	bz     *bluez
	log    zerolog.Logger
	cancel context.CancelFunc
	mu     sync.Mutex

	// devices is the startup discovery snapshot; detected stays false while
	// the scan is still in flight and status reports "detecting".
	devices  []bluezDevice
	detected bool
	fatalErr error
}

func (d *daemon) handleRequest(req IPCRequest) IPCResponse {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch req.Command {
	case "status":
		if !d.detected {
			return IPCResponse{State: StateDetecting}
		}
		return IPCResponse{
			State:   string(d.sess.state()),
			Device:  d.sess.device,
			Name:    d.sess.deviceName,
			Timeout: int(d.sess.timeout / time.Second),
		}

	case "devices":
		if !d.detected {
			return IPCResponse{State: StateDetecting}
		}
		resp := IPCResponse{}
		for _, dev := range d.devices {
			resp.Devices = append(resp.Devices, IPCDevice{
				Address:   dev.Address,
				Name:      dev.Name,
				Connected: dev.Connected,
				Selected:  strings.EqualFold(dev.Address, d.sess.device),
			})
		}
		return resp

	case "select":
		if !d.detected {
			return IPCResponse{Error: "device detection still running, try again"}
		}
		dev, err := d.resolveDevice(req.Device)
		if err != nil {
			return IPCResponse{Error: err.Error()}
		}
		d.sess.selectDevice(dev.Address, dev.Name)
		return IPCResponse{State: string(d.sess.state()), Device: dev.Address, Name: dev.Name}

	case "disable":
		d.sess.deselect()
		return IPCResponse{State: string(d.sess.state())}

	case "timeout":
		if err := validateTimeout(req.Seconds); err != nil {
			return IPCResponse{Error: err.Error()}
		}
		d.sess.setTimeout(time.Duration(req.Seconds) * time.Second)
		return IPCResponse{Timeout: req.Seconds}

	case "quit":
		d.log.Info().Msg("quit requested over ipc")
		d.cancel()
		return IPCResponse{}

	default:
		return IPCResponse{Error: fmt.Sprintf("unknown command: %q", req.Command)}
	}
}

// resolveDevice accepts either a list index from `proxlock devices` or a MAC
// address of a discovered device. Caller holds d.mu.
func (d *daemon) resolveDevice(arg string) (bluezDevice, error) {
	if arg == "" {
		return bluezDevice{}, fmt.Errorf("device address or index is required")
	}
	if idx, err := strconv.Atoi(arg); err == nil {
		if idx < 0 || idx >= len(d.devices) {
			return bluezDevice{}, fmt.Errorf("device index %d out of range (have %d devices)", idx, len(d.devices))
		}
		return d.devices[idx], nil
	}
	for _, dev := range d.devices {
		if strings.EqualFold(dev.Address, arg) {
			return dev, nil
		}
	}
	return bluezDevice{}, fmt.Errorf("no paired device with address %s", arg)
}

func (d *daemon) handleConn(conn net.Conn) {
	defer conn.Close()

	var req IPCRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		resp := IPCResponse{Error: "invalid request: " + err.Error()}
		json.NewEncoder(conn).Encode(resp)
		return
	}

	resp := d.handleRequest(req)
	json.NewEncoder(conn).Encode(resp)
}

// discover runs the one-shot device scan off the tick path. An unavailable
// stack is fatal to the whole daemon; any other failure just leaves the
// device list empty.
func (d *daemon) discover(preselect string) {
	devs, err := d.bz.Discover()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		if errors.Is(err, errProbeUnavailable) {
			d.fatalErr = err
			d.cancel()
			return
		}
		d.log.Warn().Err(err).Msg("device discovery failed")
	}
	d.devices = devs
	d.detected = true
	d.log.Info().Int("count", len(devs)).Msg("paired devices discovered")

	if preselect == "" {
		return
	}
	for _, dev := range devs {
		if strings.EqualFold(dev.Address, preselect) {
			d.sess.selectDevice(dev.Address, dev.Name)
			return
		}
	}
	d.log.Warn().Str("device", preselect).Msg("configured device not among paired devices")
}

func runDaemon(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	bz, err := newBluez(cfg.Adapter)
	if err != nil {
		return err
	}
	defer bz.close()

	locker, err := newLogindLocker(bz.conn)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d := &daemon{
		sess:   newSession(bz, locker, time.Duration(cfg.LockTimeout)*time.Second, log),
		bz:     bz,
		log:    log,
		cancel: cancel,
	}

	sock := socketPath()
	os.Remove(sock) // remove stale socket
	ln, err := net.Listen("unix", sock)
	if err != nil {
		return fmt.Errorf("listen %s: %w", sock, err)
	}
	os.Chmod(sock, 0700)
	defer os.Remove(sock)
	defer ln.Close()

	go d.discover(cfg.Device)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				// Listener closed on shutdown.
				return
			}
			go d.handleConn(conn)
		}
	}()

	log.Info().
		Str("socket", sock).
		Str("adapter", cfg.Adapter).
		Dur("poll_interval", cfg.PollEvery).
		Int("lock_timeout", cfg.LockTimeout).
		Msg("proxlock daemon started")

	ticker := time.NewTicker(cfg.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			fatal := d.fatalErr
			d.mu.Unlock()
			if fatal != nil {
				return fatal
			}
			log.Info().Msg("shutting down")
			return nil
		case <-ticker.C:
			d.mu.Lock()
			d.sess.tick()
			d.mu.Unlock()
		}
	}
}
