package netutil

import "golang.org/x/sys/unix"

// TuningConfig mirrors the teacher's socket.Config (shockwave/pkg/shockwave/socket/tuning.go),
// trimmed to the per-connection options that matter for an origin file
// server rather than a general-purpose proxy. TCP Fast Open and quick-ack
// are not part of it; they are set separately through ListenerTuning/
// ApplyListener and QuickAck.
type TuningConfig struct {
	NoDelay    bool
	RecvBuffer int
	SendBuffer int
	KeepAlive  bool
}

// DefaultTuning returns the recommended options for HTTP/1.x request/response traffic.
func DefaultTuning() TuningConfig {
	return TuningConfig{
		NoDelay:    true,
		RecvBuffer: 256 * 1024,
		SendBuffer: 256 * 1024,
		KeepAlive:  true,
	}
}

// ApplyConn applies tuning to an accepted connection's fd.
func ApplyConn(fd int, cfg TuningConfig) error {
	if cfg.NoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return err
		}
	}
	if cfg.RecvBuffer > 0 {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.RecvBuffer)
	}
	if cfg.SendBuffer > 0 {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SendBuffer)
	}
	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	}
	return nil
}
