// Package port picks a free loopback TCP port for the preview server.
package port

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrPortUnavailable is returned when the OS refuses to hand out or bind a port.
var ErrPortUnavailable = errors.New("port unavailable")

// Host is the loopback address every probe and listener binds to.
const Host = "127.0.0.1"

// Allocate asks the OS for an ephemeral port on the loopback interface,
// releases it immediately and returns its number. The port was unbound at
// the moment of the probe.
func Allocate() (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(Host, "0"))
	if err != nil {
		return 0, fmt.Errorf("%w: probing loopback: %v", ErrPortUnavailable, err)
	}

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		return 0, fmt.Errorf("%w: unexpected listener address %s", ErrPortUnavailable, ln.Addr())
	}
	if err := ln.Close(); err != nil {
		return 0, fmt.Errorf("%w: releasing probe: %v", ErrPortUnavailable, err)
	}
	return addr.Port, nil
}

// Listen binds the given loopback port. A port grabbed by someone else
// since Allocate also yields ErrPortUnavailable.
func Listen(host string, port int) (net.Listener, error) {
	if host == "" {
		host = Host
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: binding %s:%d: %v", ErrPortUnavailable, host, port, err)
	}
	return ln, nil
}
