package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
	omIface      = "org.freedesktop.DBus.ObjectManager"
)

// errProbeUnavailable means the host has no usable Bluetooth stack. Fatal:
// the daemon cannot do its one job without it.
var errProbeUnavailable = errors.New("bluetooth stack unavailable")

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/<adapter>/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(adapter, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(addr, ":", "_")
	return dbus.ObjectPath("/org/bluez/" + adapter + "/dev_" + escaped)
}

// bluezDevice is one paired device found during discovery.
type bluezDevice struct {
	Address   string
	Name      string
	Connected bool
}

// bluez wraps a system D-Bus connection for BlueZ operations.
type bluez struct {
	conn    *dbus.Conn
	adapter string // e.g. "hci0"
}

func newBluez(adapter string) (*bluez, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	// Quick check that BlueZ is on the bus.
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("%w: org.bluez not found on system bus — is bluetooth.service running?", errProbeUnavailable)
	}
	return &bluez{conn: conn, adapter: adapter}, nil
}

func (b *bluez) close() {
	b.conn.Close()
}

func (b *bluez) adapterPath() dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + b.adapter)
}

// --- property helpers ---

func (b *bluez) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	obj := b.conn.Object(busName, path)
	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (b *bluez) getBool(path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := b.getProp(path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property %s is not bool", prop)
	}
	return val, nil
}

func (b *bluez) getString(path dbus.ObjectPath, iface, prop string) (string, error) {
	v, err := b.getProp(path, iface, prop)
	if err != nil {
		return "", err
	}
	val, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("property %s is not string", prop)
	}
	return val, nil
}

// --- discovery ---

// Discover enumerates the devices already paired with the adapter. BlueZ
// keeps pairings in its object tree, so this is a single bus round trip, not
// a radio scan.
func (b *bluez) Discover() ([]bluezDevice, error) {
	powered, err := b.getBool(b.adapterPath(), adapterIface, "Powered")
	if err != nil {
		return nil, fmt.Errorf("%w: adapter %s not present", errProbeUnavailable, b.adapter)
	}
	if !powered {
		return nil, fmt.Errorf("%w: adapter %s is powered off", errProbeUnavailable, b.adapter)
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := b.conn.Object(busName, "/")
	if err := root.Call(omIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("enumerate bluez objects: %w", err)
	}

	prefix := string(b.adapterPath()) + "/dev_"
	var devices []bluezDevice
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		paired, _ := props["Paired"].Value().(bool)
		if !paired {
			continue
		}
		addr, _ := props["Address"].Value().(string)
		if addr == "" {
			continue
		}
		name, _ := props["Alias"].Value().(string)
		if name == "" {
			name = addr
		}
		connected, _ := props["Connected"].Value().(bool)
		devices = append(devices, bluezDevice{Address: addr, Name: name, Connected: connected})
	}
	return devices, nil
}

// --- per-tick probing ---

// Connected reads the device's current Connected property. Any failure is a
// transient probe fault for the caller to swallow; the daemon keeps ticking.
func (b *bluez) Connected(addr string) (bool, error) {
	return b.getBool(deviceObjectPath(b.adapter, addr), deviceIface, "Connected")
}

// Name reads the device's display alias, falling back to the address.
func (b *bluez) Name(addr string) string {
	name, err := b.getString(deviceObjectPath(b.adapter, addr), deviceIface, "Alias")
	if err != nil || name == "" {
		return addr
	}
	return name
}

// Connect asks BlueZ to re-establish the connection. Best effort: the
// reconnection attempter discards the outcome beyond logging, and BlueZ
// itself times the call out if the device stays out of range.
func (b *bluez) Connect(addr string) error {
	obj := b.conn.Object(busName, deviceObjectPath(b.adapter, addr))
	return obj.Call(deviceIface+".Connect", 0).Err
}
