package main

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	loginBusName = "org.freedesktop.login1"
	loginPath    = "/org/freedesktop/login1"
	managerIface = "org.freedesktop.login1.Manager"
	sessionIface = "org.freedesktop.login1.Session"
)

// SessionLocker locks the interactive session the daemon belongs to.
type SessionLocker interface {
	Lock() error
}

// logindLocker locks via systemd-logind. The session object is resolved once
// from our own PID; logind keeps the path stable for the session's lifetime.
type logindLocker struct {
	conn    *dbus.Conn
	session dbus.ObjectPath
}

func newLogindLocker(conn *dbus.Conn) (*logindLocker, error) {
	mgr := conn.Object(loginBusName, loginPath)
	var session dbus.ObjectPath
	if err := mgr.Call(managerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&session); err != nil {
		return nil, fmt.Errorf("resolve logind session: %w", err)
	}
	return &logindLocker{conn: conn, session: session}, nil
}

func (l *logindLocker) Lock() error {
	obj := l.conn.Object(loginBusName, l.session)
	if err := obj.Call(sessionIface+".Lock", 0).Err; err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	return nil
}
