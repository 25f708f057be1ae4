//go:build linux

package netutil

import "golang.org/x/sys/unix"

// maxSendfileChunk mirrors the teacher's 1GB-per-call cap in
// socket/sendfile_linux.go, since sendfile(2) can only move a bounded
// amount of data per invocation on Linux.
const maxSendfileChunk = 1 << 30

// SendFile transmits up to count bytes of srcFD starting at offset
// directly to dstFD via sendfile(2), without copying through userspace.
// It retries on EINTR internally. When the socket's send buffer fills, it
// returns the bytes transferred so far with wouldBlock true, so the
// caller can re-arm the reactor for writability and resume from
// offset+n rather than treating it as a fatal error.
func SendFile(dstFD, srcFD int, offset int64, count int64) (n int64, err error, wouldBlock bool) {
	var total int64
	cur := offset
	remaining := count

	for remaining > 0 {
		chunk := remaining
		if chunk > maxSendfileChunk {
			chunk = maxSendfileChunk
		}

		written, serr := unix.Sendfile(dstFD, srcFD, &cur, int(chunk))
		if written > 0 {
			total += int64(written)
			remaining -= int64(written)
		}
		if serr != nil {
			if serr == unix.EINTR {
				continue
			}
			if serr == unix.EAGAIN {
				return total, nil, true
			}
			return total, serr, false
		}
		if written == 0 {
			break
		}
	}

	return total, nil, false
}
