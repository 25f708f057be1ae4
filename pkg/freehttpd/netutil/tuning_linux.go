//go:build linux

package netutil

import "golang.org/x/sys/unix"

// Linux-only TCP_* sockopt numbers not exposed by x/sys/unix on every arch,
// kept alongside the teacher's socket/tuning_linux.go constant table.
const (
	tcpQuickAck    = 12
	tcpDeferAccept = 9
	tcpFastOpen    = 23
	tcpUserTimeout = 18
	tcpKeepIdle    = 4
	tcpKeepIntvl   = 5
	tcpKeepCnt     = 6
)

// ListenerTuning carries the Linux-specific knobs applied to the listening
// socket once, rather than per-connection.
type ListenerTuning struct {
	DeferAccept int // seconds; 0 disables
	FastOpen    int // backlog queue length; 0 disables
}

// ApplyListener applies Linux-only listen-socket tuning. DEFER_ACCEPT avoids
// waking the worker until the client has actually sent data, and FASTOPEN
// lets repeat clients skip a round trip on the handshake.
func ApplyListener(fd int, cfg ListenerTuning) error {
	if cfg.DeferAccept > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpDeferAccept, cfg.DeferAccept); err != nil {
			return err
		}
	}
	if cfg.FastOpen > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpFastOpen, cfg.FastOpen); err != nil {
			return err
		}
	}
	return nil
}

// ApplyKeepaliveTimers sets the idle/interval/count triple that determines
// how long a half-open connection survives before the kernel gives up on it.
func ApplyKeepaliveTimers(fd int, idleSecs, intervalSecs, count int) error {
	if idleSecs > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpKeepIdle, idleSecs); err != nil {
			return err
		}
	}
	if intervalSecs > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpKeepIntvl, intervalSecs); err != nil {
			return err
		}
	}
	if count > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpKeepCnt, count); err != nil {
			return err
		}
	}
	return nil
}

// SetUserTimeout bounds how long unacknowledged data may sit before the
// kernel tears the connection down, independent of keepalive.
func SetUserTimeout(fd int, millis int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpUserTimeout, millis)
}

// QuickAck disables delayed ACKs for a connection, useful right after a
// request has been fully parsed and we're about to push a response.
func QuickAck(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpQuickAck, 1)
}
