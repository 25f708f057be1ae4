package stream

import (
	"bytes"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"
)

// Token is the result of scanning a Stream for a delimiter: either a
// zero-copy reference into a single link, or a linearised arena copy when
// the token spanned more than one link.
type Token struct {
	Bytes     []byte
	End       Cursor // cursor positioned just past the delimiter
	Linearised bool
}

// ScanDelim searches forward from c for delim (a single byte), accumulating
// the byte count of any links it must cross. If the delimiter is found
// within the current link, it returns a zero-copy slice into that link.
// If the token spans multiple links, it linearises the accumulated bytes
// into a single arena allocation of exactly the accumulated size.
//
// found is false if delim was not encountered before the stream's current
// tail is exhausted (the caller must Recv more bytes and retry).
func ScanDelim(a *memory.Arena, c Cursor, delim byte, maxLen int) (tok Token, found bool, overlong bool) {
	// Fast path: delimiter in the current link.
	if rem := c.Remaining(); rem != nil {
		if idx := bytes.IndexByte(rem, delim); idx >= 0 {
			if idx > maxLen {
				return Token{}, false, true
			}
			return Token{Bytes: rem[:idx], End: c.Advance(idx + 1)}, true, false
		}
	}

	// Slow path: accumulate across links.
	var acc []byte
	cur := c
	for {
		rem := cur.Remaining()
		if rem == nil {
			if cur.link == nil || cur.link.Next == nil {
				return Token{}, false, false // need more bytes
			}
			cur = cur.Next()
			continue
		}
		if idx := bytes.IndexByte(rem, delim); idx >= 0 {
			acc = append(acc, rem[:idx]...)
			if len(acc) > maxLen {
				return Token{}, false, true
			}
			buf := a.Alloc(len(acc))
			copy(buf, acc)
			return Token{Bytes: buf, End: cur.Advance(idx + 1), Linearised: true}, true, false
		}
		acc = append(acc, rem...)
		if len(acc) > maxLen {
			return Token{}, false, true
		}
		if cur.link.Next == nil {
			return Token{}, false, false // need more bytes
		}
		cur = cur.Next()
	}
}

// ScanDelimCRLF searches for a literal "\r\n" the same way ScanDelim
// searches for a single byte, used by the Version and header-value phases.
// A CRLF that straddles a link boundary is handled by re-scanning the
// accumulated bytes on every link crossing. The worker appends each recv
// as its own link, so a CRLF split across two recv calls takes this path.
func ScanDelimCRLF(a *memory.Arena, c Cursor, maxLen int) (tok Token, found bool, overlong bool) {
	if rem := c.Remaining(); rem != nil {
		if idx := bytes.Index(rem, crlf); idx >= 0 {
			if idx > maxLen {
				return Token{}, false, true
			}
			return Token{Bytes: rem[:idx], End: c.Advance(idx + 2)}, true, false
		}
	}

	var acc []byte
	var linkOffsets []int // byte offset in acc where each crossed link began
	cur := c
	for {
		rem := cur.Remaining()
		if rem == nil {
			if cur.link == nil || cur.link.Next == nil {
				return Token{}, false, false
			}
			cur = cur.Next()
			continue
		}
		linkOffsets = append(linkOffsets, len(acc))
		acc = append(acc, rem...)
		if idx := bytes.Index(acc, crlf); idx >= 0 {
			if idx > maxLen {
				return Token{}, false, true
			}
			buf := a.Alloc(idx)
			copy(buf, acc[:idx])
			// Position End relative to the link the delimiter's end falls in.
			end := idx + 2
			lastStart := linkOffsets[len(linkOffsets)-1]
			consumedInLast := end - lastStart
			return Token{Bytes: buf, End: cur.Advance(consumedInLast), Linearised: true}, true, false
		}
		if len(acc) > maxLen+2 {
			return Token{}, false, true
		}
		if cur.link.Next == nil {
			return Token{}, false, false
		}
		cur = cur.Next()
	}
}

// PeekByte returns the next unread byte from c without consuming it,
// walking forward across empty/exhausted links. ok is false when the
// stream's current tail is exhausted before a byte is found (the caller
// must Recv more bytes and retry).
func PeekByte(c Cursor) (b byte, ok bool) {
	cur := c
	for {
		rem := cur.Remaining()
		if len(rem) > 0 {
			return rem[0], true
		}
		if cur.link == nil || cur.link.Next == nil {
			return 0, false
		}
		cur = cur.Next()
	}
}

var crlf = []byte("\r\n")
