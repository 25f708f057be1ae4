// Package reactor is a thin, edge-triggered façade over epoll (Linux) and
// kqueue (BSD/Darwin), matching the original C implementation's xpoll
// abstraction (original_source/src/event/xpoll.h) one for one: a single
// interface, two platform backends selected at build time via Go build
// tags instead of #ifdef.
package reactor

import "time"

// Flags is a bitset of readiness interests and reported conditions.
type Flags uint32

const (
	In         Flags = 1 << iota // readable
	Out                          // writable
	EdgeTrig                     // request edge-triggered semantics (always set by this package)
	Hangup                       // peer hung up
	ReadHangup                   // peer half-closed its write side
	errFlag                      // internal: an error condition was reported
)

// HasError reports whether the event multiplexer observed an error
// condition for this event (resolve the errno with GetError).
func (f Flags) HasError() bool { return f&errFlag != 0 }

// Event is a single readiness notification, translated from the native
// epoll_event/kevent representation into a uniform record.
type Event struct {
	FD    int
	Flags Flags
}

// Multiplexer abstracts epoll_create/kqueue, add/modify/delete interest,
// and wait. Edge-triggered semantics are normative: after In is reported,
// the caller must drain until a read would block; after Out, it must write
// until it would block or complete (spec.md §4.3).
type Multiplexer interface {
	// Add registers fd for the given interest flags. It does not change the
	// fd's blocking mode; callers set O_NONBLOCK themselves beforehand.
	Add(fd int, flags Flags) error

	// Modify changes the interest flags for an already-registered fd.
	Modify(fd int, flags Flags) error

	// Delete removes fd from the interest set.
	Delete(fd int) error

	// Wait blocks until at least one registered fd is ready, the timeout
	// elapses, or the multiplexer is closed from another goroutine, and
	// fills events (up to len(events)) with ready notifications. It
	// returns the number of events written.
	Wait(events []Event, timeout time.Duration) (int, error)

	// GetError resolves the pending socket error via getsockopt(SO_ERROR)
	// for an fd reported with Hangup or an error condition, on both the
	// epoll and kqueue backends; the kevent's data field is not consulted.
	GetError(fd int) error

	// Close releases the multiplexer's own file descriptor.
	Close() error
}

// New creates the platform-appropriate Multiplexer (epoll on Linux, kqueue
// on Darwin/BSD).
func New() (Multiplexer, error) {
	return newPlatform()
}
