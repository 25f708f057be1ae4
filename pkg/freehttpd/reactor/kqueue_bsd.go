//go:build darwin || freebsd || netbsd || openbsd

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

type kqueueMultiplexer struct {
	kq int
	// interest tracks which directions (In/Out) each fd is currently
	// registered for, since kqueue uses separate EVFILT_READ/EVFILT_WRITE
	// filters rather than a single combined event like epoll.
	interest map[int]Flags
}

func newPlatform() (Multiplexer, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueueMultiplexer{kq: kq, interest: make(map[int]Flags)}, nil
}

func (m *kqueueMultiplexer) changeList(fd int, want Flags) []unix.Kevent_t {
	have := m.interest[fd]
	var changes []unix.Kevent_t

	addOrDel := func(filter int16, wanted, had bool) {
		if wanted && !had {
			changes = append(changes, unix.Kevent_t{
				Ident: uint64(fd), Filter: filter, Flags: unix.EV_ADD | unix.EV_CLEAR,
			})
		} else if !wanted && had {
			changes = append(changes, unix.Kevent_t{
				Ident: uint64(fd), Filter: filter, Flags: unix.EV_DELETE,
			})
		}
	}

	addOrDel(unix.EVFILT_READ, want&In != 0, have&In != 0)
	addOrDel(unix.EVFILT_WRITE, want&Out != 0, have&Out != 0)

	return changes
}

func (m *kqueueMultiplexer) apply(fd int, want Flags) error {
	changes := m.changeList(fd, want)
	if len(changes) == 0 {
		m.interest[fd] = want
		return nil
	}
	_, err := unix.Kevent(m.kq, changes, nil, nil)
	if err != nil {
		return err
	}
	m.interest[fd] = want
	return nil
}

func (m *kqueueMultiplexer) Add(fd int, flags Flags) error {
	return m.apply(fd, flags)
}

func (m *kqueueMultiplexer) Modify(fd int, flags Flags) error {
	return m.apply(fd, flags)
}

func (m *kqueueMultiplexer) Delete(fd int) error {
	err := m.apply(fd, 0)
	delete(m.interest, fd)
	return err
}

func (m *kqueueMultiplexer) Wait(events []Event, timeout time.Duration) (int, error) {
	raw := make([]unix.Kevent_t, len(events))

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	n, err := unix.Kevent(m.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		var f Flags
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			f |= In
		case unix.EVFILT_WRITE:
			f |= Out
		}
		if raw[i].Flags&unix.EV_EOF != 0 {
			f |= Hangup
			if raw[i].Fflags != 0 {
				f |= errFlag
			}
		}
		events[i] = Event{FD: int(raw[i].Ident), Flags: f}
	}

	return n, nil
}

func (m *kqueueMultiplexer) GetError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func (m *kqueueMultiplexer) Close() error {
	return unix.Close(m.kq)
}
