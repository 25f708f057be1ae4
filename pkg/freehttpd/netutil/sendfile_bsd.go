//go:build darwin || freebsd || netbsd || openbsd

package netutil

import "golang.org/x/sys/unix"

const maxSendfileChunk = 1 << 30

// SendFile mirrors the Linux variant; x/sys/unix exposes the same
// (outfd, infd, *offset, count) shape on BSD/Darwin even though the
// underlying sendfile(2) syscall takes different arguments there.
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
