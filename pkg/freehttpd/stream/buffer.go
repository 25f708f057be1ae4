// Package stream implements the buffer chain ("stream of buffers") that
// backs a connection's receive and send paths: a singly-linked list of
// byte regions, each either an arena-owned memory span, a borrowed
// read-only slice, or a file descriptor range sent with sendfile/zero-copy.
//
// Traversal is forward-only via a (link, offset) cursor, matching the
// teacher's size-classed BufferPool (shockwave/buffer_pool.go) in spirit:
// buffers are reused/grown in place rather than copied link-to-link.
package stream

import "github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"

// Kind discriminates the two Buffer shapes.
type Kind uint8

const (
	KindMemory Kind = iota
	KindFile
)

// Buffer is the tagged union of spec.md §3's "Buffer" type.
type Buffer struct {
	Kind Kind

	// Memory fields.
	Data     []byte // len(Data) is the logical length; cap(Data) is the reserved capacity
	ReadOnly bool
	Freeable bool // true if Data came from make([]byte, ...) rather than an arena

	// File fields.
	FD     int
	Offset int64
	Len    int64
}

// MemoryBuffer wraps an arena-owned or borrowed byte span.
func MemoryBuffer(data []byte, readOnly, freeable bool) Buffer {
	return Buffer{Kind: KindMemory, Data: data, ReadOnly: readOnly, Freeable: freeable}
}

// FileBuffer describes a byte range of an open file descriptor.
func FileBuffer(fd int, offset, length int64) Buffer {
	return Buffer{Kind: KindFile, FD: fd, Offset: offset, Len: length}
}

// Link is one node of a Stream. Links are immutable once appended, except
// for a Memory link's Data, which may grow up to cap(Data) while it is the
// current tail (the in-place recv-fill rule in spec.md §4.2).
type Link struct {
	Buf     Buffer
	Next    *Link
	IsEOS   bool
	IsStart bool
}

// Stream is an ordered chain of Links forming one logical byte sequence.
// A Stream is single-writer/single-reader within one connection.
type Stream struct {
	Head  *Link
	Tail  *Link
	Total int64
}

// recvFillChunk is the size of a freshly allocated receive buffer when the
// caller does not request a specific capacity (spec.md §4.2: "~4 KiB").
const recvFillChunk = 4096

func (s *Stream) appendLink(l *Link) {
	if s.Head == nil {
		s.Head = l
	} else {
		s.Tail.Next = l
	}
	s.Tail = l
}

// AppendData copies len(src) bytes into a fresh arena-backed memory link
// with room for capHint total bytes (so a subsequent recv can fill the
// spare capacity in place without appending another link). If capHint is
// smaller than len(src), it is raised to len(src).
func (s *Stream) AppendData(a *memory.Arena, src []byte, capHint int) *Link {
	if capHint < len(src) {
		capHint = len(src)
	}
	if capHint <= 0 {
		capHint = recvFillChunk
	}
	buf := a.Alloc(capHint)[:len(src)]
	copy(buf, src)

	l := &Link{Buf: MemoryBuffer(buf, false, false)}
	s.appendLink(l)
	s.Total += int64(len(src))
	return l
}

// AppendBorrowed appends a non-owned, read-only reference to src. The
// caller is responsible for keeping src alive for the stream's lifetime.
func (s *Stream) AppendBorrowed(src []byte) *Link {
	l := &Link{Buf: MemoryBuffer(src, true, false)}
	s.appendLink(l)
	s.Total += int64(len(src))
	return l
}

// AppendFile appends a file descriptor range, to be sent with sendfile.
func (s *Stream) AppendFile(fd int, offset, length int64) *Link {
	l := &Link{Buf: FileBuffer(fd, offset, length)}
	s.appendLink(l)
	s.Total += length
	return l
}

// AppendEOS appends a zero-length terminal link marking end of stream.
func (s *Stream) AppendEOS() *Link {
	l := &Link{IsEOS: true}
	s.appendLink(l)
	return l
}

// TailSpare reports how many more bytes can be written into the tail link's
// Memory buffer before it must allocate a new link (spec.md §4.2's recv rule).
func (s *Stream) TailSpare() int {
	if s.Tail == nil || s.Tail.Buf.Kind != KindMemory || s.Tail.Buf.ReadOnly {
		return 0
	}
	return cap(s.Tail.Buf.Data) - len(s.Tail.Buf.Data)
}

// GrowTail extends the tail link's Memory buffer by appending n bytes from
// src into its spare capacity. The caller must have checked TailSpare() >= n.
func (s *Stream) GrowTail(src []byte) {
	d := s.Tail.Buf.Data
	d = d[:len(d)+len(src)]
	copy(d[len(d)-len(src):], src)
	s.Tail.Buf.Data = d
	s.Total += int64(len(src))
}

// NewChunk allocates a new ~4KiB (or larger, if requested) arena-backed
// memory link with zero logical length and the requested spare capacity,
// appends it, and returns it — used by the recv loop when TailSpare() == 0.
func (s *Stream) NewChunk(a *memory.Arena, capacity int) *Link {
	if capacity < recvFillChunk {
		capacity = recvFillChunk
	}
	buf := a.Alloc(capacity)[:0]
	l := &Link{Buf: MemoryBuffer(buf, false, false)}
	s.appendLink(l)
	return l
}

// Cursor walks a Stream forward, byte-for-byte, independent of link
// boundaries — the parser's primary read handle.
type Cursor struct {
	link   *Link
	offset int
}

// NewCursor returns a cursor positioned at the start of s.
func NewCursor(s *Stream) Cursor {
	return Cursor{link: s.Head}
}

// Link returns the link the cursor currently points into (nil at end of stream).
func (c Cursor) Link() *Link { return c.link }

// Offset returns the cursor's byte offset within the current link.
func (c Cursor) Offset() int { return c.offset }

// Remaining returns the unread tail of the current link's Memory buffer.
// For File links, it returns nil; callers must special-case file ranges.
func (c Cursor) Remaining() []byte {
	if c.link == nil || c.link.Buf.Kind != KindMemory {
		return nil
	}
	return c.link.Buf.Data[c.offset:]
}

// Advance moves the cursor forward n bytes within the current link.
func (c Cursor) Advance(n int) Cursor {
	return Cursor{link: c.link, offset: c.offset + n}
}

// Next moves the cursor to the start of the next link.
func (c Cursor) Next() Cursor {
	return Cursor{link: c.link.Next, offset: 0}
}

// AtEnd reports whether there is no more buffered data to read from this
// cursor's position onward (the stream's current tail has been exhausted).
func (c Cursor) AtEnd() bool {
	if c.link == nil {
		return true
	}
	if c.link.Buf.Kind == KindMemory {
		return c.offset >= len(c.link.Buf.Data) && c.link.Next == nil
	}
	return c.link.Next == nil
}

// AdvanceBytes walks c forward up to n bytes across link boundaries without
// copying (used by the Body phase, which counts bytes against
// Content-Length but leaves them in the stream for the handler to read).
// It returns the number of bytes actually available to advance over,
// which is less than n when the stream's tail is exhausted first.
func (c Cursor) AdvanceBytes(n int64) (consumed int64, next Cursor, exhausted bool) {
	cur := c
	for consumed < n {
		rem := cur.Remaining()
		if len(rem) == 0 {
			if cur.link == nil || cur.link.Next == nil {
				return consumed, cur, true
			}
			cur = cur.Next()
			continue
		}
		take := int64(len(rem))
		if remaining := n - consumed; take > remaining {
			take = remaining
		}
		cur = cur.Advance(int(take))
		consumed += take
	}
	return consumed, cur, false
}
