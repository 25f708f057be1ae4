// Package netutil wraps the raw socket syscalls the worker's event loop
// needs: listening with SO_REUSEPORT so every worker can independently
// accept on the same port, edge-triggered-friendly non-blocking accept,
// socket tuning, and sendfile. It operates on bare file descriptors rather
// than net.Conn, since the reactor registers raw fds directly — the
// teacher's socket package (shockwave/pkg/shockwave/socket) reaches the
// same options through net.Conn.SyscallConn; we go one layer lower because
// our event loop owns the fd instead of the runtime netpoller.
package netutil

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listen creates a non-blocking, SO_REUSEADDR|SO_REUSEPORT IPv4 TCP listen
// socket bound to addr:port with a SOMAXCONN backlog, per spec.md §6.
func Listen(addr string, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("netutil: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: SO_REUSEADDR: %w", err)
	}
	if err := setReusePort(fd); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: SO_REUSEPORT: %w", err)
	}

	var ip [4]byte
	if addr != "" && addr != "0.0.0.0" {
		parsed := net.ParseIP(addr)
		if parsed == nil || parsed.To4() == nil {
			unix.Close(fd)
			return -1, fmt.Errorf("netutil: invalid IPv4 address %q", addr)
		}
		copy(ip[:], parsed.To4())
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: bind: %w", err)
	}

	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netutil: listen: %w", err)
	}

	return fd, nil
}

// Accept4 performs a non-blocking accept, returning the accepted
// connection's fd (already non-blocking/close-on-exec) and its peer
// address. Returns unix.EAGAIN when the edge-triggered accept loop should
// stop draining.
func Accept4(listenFD int) (int, unix.Sockaddr, error) {
	return unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}

// PeerAddr converts a unix.Sockaddr from Accept4 into a net.TCPAddr.
func PeerAddr(sa unix.Sockaddr) *net.TCPAddr {
	if v, ok := sa.(*unix.SockaddrInet4); ok {
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return &net.TCPAddr{IP: ip, Port: v.Port}
	}
	return &net.TCPAddr{}
}

// Close closes a raw fd.
func Close(fd int) error { return unix.Close(fd) }
