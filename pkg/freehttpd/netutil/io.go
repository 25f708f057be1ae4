package netutil

import "golang.org/x/sys/unix"

// Recv reads into buf, translating EAGAIN/EWOULDBLOCK into (0, nil, true)
// so the reactor caller can tell "no data yet" apart from a real error or
// an orderly close (n == 0, err == nil).
func Recv(fd int, buf []byte) (n int, err error, wouldBlock bool) {
	for {
		n, err = unix.Read(fd, buf)
		if err == nil {
			return n, nil, false
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return 0, nil, true
		}
		return 0, err, false
	}
}

// Send writes buf to fd, translating EAGAIN/EWOULDBLOCK the same way Recv
// does: a partial write of n < len(buf) with wouldBlock == true means the
// caller should re-arm for writability and resume from buf[n:].
func Send(fd int, buf []byte) (n int, err error, wouldBlock bool) {
	for {
		n, err = unix.Write(fd, buf)
		if n < 0 {
			n = 0
		}
		if err == nil {
			return n, nil, false
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return n, nil, true
		}
		return n, err, false
	}
}

// Shutdown half-closes fd for the given direction (unix.SHUT_RD/WR/RDWR).
func Shutdown(fd int, how int) error {
	return unix.Shutdown(fd, how)
}

// OpenRead opens path read-only, close-on-exec, for the filesystem
// handler's static file branch (spec.md §4.8), returning a raw fd suitable
// for SendFile and for attaching to a response arena's destructor.
func OpenRead(path string) (int, error) {
	return unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
}
