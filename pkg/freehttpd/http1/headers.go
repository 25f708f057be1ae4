package http1

import "strings"

// Header is one name/value pair in an insertion-ordered Headers list.
type Header struct {
	Name  string
	Value string
	next  *Header
}

// Headers is an insertion-ordered singly-linked list of header fields,
// the request/response analogue of stream.Stream: cheap to append,
// cheap to walk in wire order, never needs random-access mutation.
type Headers struct {
	head  *Header
	tail  *Header
	count int
}

// MaxHeaderCount bounds the number of distinct header fields per
// spec.md §4.5's "> 128 headers" error trigger.
const MaxHeaderCount = 128

// tokenChar reports whether b is a legal RFC 7230 "token" character.
func tokenChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// ValidName reports whether name is a non-empty sequence of token chars.
func ValidName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !tokenChar(name[i]) {
			return false
		}
	}
	return true
}

// Add appends a header field in insertion order. The caller is expected to
// have already validated and trimmed name/value (the parser does this
// during the HeaderName/HeaderValue phases).
func (h *Headers) Add(name, value string) {
	f := &Header{Name: name, Value: value}
	if h.head == nil {
		h.head = f
	} else {
		h.tail.next = f
	}
	h.tail = f
	h.count++
}

// Count returns the number of header fields.
func (h *Headers) Count() int { return h.count }

// Get returns the first value for name (case-insensitive), or "" if absent.
func (h *Headers) Get(name string) (string, bool) {
	for f := h.head; f != nil; f = f.next {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Walk calls fn for every header field in insertion order.
func (h *Headers) Walk(fn func(name, value string)) {
	for f := h.head; f != nil; f = f.next {
		fn(f.Name, f.Value)
	}
}

// TotalSize computes Σ(name_len + value_len + 4) across all fields, the
// invariant checked against the materialised header block length in
// spec.md §8 invariant 5 (the "+4" is ": " plus the trailing "\r\n").
func (h *Headers) TotalSize() int {
	total := 0
	for f := h.head; f != nil; f = f.next {
		total += len(f.Name) + len(f.Value) + 4
	}
	return total
}
