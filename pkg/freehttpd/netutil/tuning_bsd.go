//go:build darwin || freebsd || netbsd || openbsd

package netutil

import "golang.org/x/sys/unix"

// ListenerTuning mirrors the Linux variant's shape so callers in worker/
// don't need build tags of their own, but FastOpen/DeferAccept have no
// portable equivalent here and are silently ignored.
type ListenerTuning struct {
	DeferAccept int
	FastOpen    int
}

func ApplyListener(fd int, cfg ListenerTuning) error {
	return nil
}

func ApplyKeepaliveTimers(fd int, idleSecs, intervalSecs, count int) error {
	if idleSecs > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, idleSecs); err != nil {
			return err
		}
	}
	return nil
}

func SetUserTimeout(fd int, millis int) error {
	return nil
}

func QuickAck(fd int) error {
	return nil
}
