package http1

import "github.com/onesoft-sudo/freehttpd/pkg/freehttpd/stream"

// Request is the parsed form of an HTTP/1.x request line plus headers.
// String fields are ordinary Go strings copied from the parsed tokens; they
// do not alias the receive stream or the connection's arena.
type Request struct {
	Method    Method
	MethodRaw string
	URI       string
	Path      string
	Query     string
	Major     int
	Minor     int

	Headers Headers

	Host     string
	HostPort int // 80 when the Host header has no port; 0 when no Host header was parsed

	ContentLength   int64
	HasContentLen   bool
	ChunkedTE       bool
	Close           bool

	// BodyStart is where the body phase began in the receive stream; the
	// zero Cursor when the method skips the body or Content-Length is 0.
	BodyStart stream.Cursor
	HasBody   bool
}

// KeepAliveRequested reports whether the client asked for a persistent
// connection. The response builder ignores this per spec.md §4.6 (keep-alive
// is deferred), but the field is retained for the config/logging surface
// and so a future implementation can wire it without re-parsing Connection.
func (r *Request) KeepAliveRequested() bool {
	if r.Major == 1 && r.Minor == 0 {
		v, ok := r.Headers.Get("Connection")
		return ok && equalFoldTrim(v, "keep-alive")
	}
	return !r.Close
}

func equalFoldTrim(s, want string) bool {
	s = trimOWS(s)
	if len(s) != len(want) {
		return false
	}
	for i := 0; i < len(s); i++ {
		a, b := s[i], want[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

func trimOWS(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}
