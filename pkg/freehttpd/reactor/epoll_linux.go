//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

type epollMultiplexer struct {
	epfd int
}

func newPlatform() (Multiplexer, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollMultiplexer{epfd: fd}, nil
}

func toEpollEvents(flags Flags) uint32 {
	var ev uint32
	if flags&In != 0 {
		ev |= unix.EPOLLIN
	}
	if flags&Out != 0 {
		ev |= unix.EPOLLOUT
	}
	// Edge-triggered semantics are normative for this reactor (spec.md §4.3).
	ev |= unix.EPOLLET
	return ev
}

func (m *epollMultiplexer) Add(fd int, flags Flags) error {
	ev := unix.EpollEvent{Events: toEpollEvents(flags), Fd: int32(fd)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (m *epollMultiplexer) Modify(fd int, flags Flags) error {
	ev := unix.EpollEvent{Events: toEpollEvents(flags), Fd: int32(fd)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (m *epollMultiplexer) Delete(fd int) error {
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (m *epollMultiplexer) Wait(events []Event, timeout time.Duration) (int, error) {
	raw := make([]unix.EpollEvent, len(events))

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	n, err := unix.EpollWait(m.epfd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		var f Flags
		e := raw[i].Events
		if e&unix.EPOLLIN != 0 {
			f |= In
		}
		if e&unix.EPOLLOUT != 0 {
			f |= Out
		}
		if e&unix.EPOLLHUP != 0 {
			f |= Hangup
		}
		if e&unix.EPOLLRDHUP != 0 {
			f |= ReadHangup
		}
		if e&unix.EPOLLERR != 0 {
			f |= errFlag
		}
		events[i] = Event{FD: int(raw[i].Fd), Flags: f}
	}

	return n, nil
}

func (m *epollMultiplexer) GetError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func (m *epollMultiplexer) Close() error {
	return unix.Close(m.epfd)
}
