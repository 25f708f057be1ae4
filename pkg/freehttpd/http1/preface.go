package http1

// H2Preface is the literal client connection preface RFC 7540 §3.5
// requires before any HTTP/2 frame. Detecting it lets the connection
// layer reject (or, in a future build, hand off) HTTP/2 traffic before
// committing any bytes to the HTTP/1 receive stream, per spec.md §4.4.
const H2Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// MatchesH2Preface reports whether buf is exactly the 24-byte H2 preface.
// It does not do partial/prefix matching — the caller is responsible for
// buffering up to len(H2Preface) bytes before calling this.
func MatchesH2Preface(buf []byte) bool {
	return string(buf) == H2Preface
}

// IsH2PrefacePrefix reports whether buf (shorter than the full preface) is
// consistent with being the start of one, so the caller knows whether to
// keep withholding bytes from the HTTP/1 stream while more arrive.
func IsH2PrefacePrefix(buf []byte) bool {
	if len(buf) > len(H2Preface) {
		return false
	}
	return H2Preface[:len(buf)] == string(buf)
}
