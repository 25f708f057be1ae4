//go:build linux

package reactor

import "golang.org/x/sys/unix"

func newSocketpair() ([2]int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{fds[0], fds[1]}, nil
}

func writeFD(fd int, data []byte) (int, error) {
	return unix.Write(fd, data)
}

func closeFDs(fds [2]int) {
	unix.Close(fds[0])
	unix.Close(fds[1])
}
