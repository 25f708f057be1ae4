package http1

import (
	"strconv"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/ferrors"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/netutil"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/stream"
)

// ResponseState is the outer response builder state from spec.md §4.6:
// Headers → Body → Done.
type ResponseState uint8

const (
	ResponseHeaders ResponseState = iota
	ResponseBody
	ResponseDone
)

// ServerSignature is the default Server header value.
const ServerSignature = "freehttpd"

// Response is the HTTP/1.x response builder: a state machine that
// formats a status line and header block into one arena buffer, then
// drains an output chain (the body stream.Stream) link by link through a
// non-blocking socket, using sendfile for File links. The inner "Write"
// state from spec.md §4.6 is this struct's headerOff/linkOff pair, which
// lets Drain resume across multiple OUT readiness events without
// re-entering the router (the CALL_ONCE contract in spec.md §4.7).
type Response struct {
	arena *memory.Arena

	Status  int
	Major   int
	Minor   int
	Headers Headers

	body        stream.Stream
	bodyLen     int64
	noSendBody  bool
	chunked     bool
	contentKnown bool

	state       ResponseState
	headerBytes []byte
	headerOff   int
	curLink     *stream.Link
	linkOff     int64
}

// NewResponse creates a response builder writing into a. The protocol
// defaults to HTTP/1.1; callers building a response to an HTTP/1.0 request
// should call SetProtocol(1, 0) before Finalize so the status line echoes
// the request's version, per spec.md §6.
func NewResponse(a *memory.Arena) *Response {
	return &Response{arena: a, Status: 200, Major: 1, Minor: 1}
}

// SetProtocol sets the HTTP version echoed in the status line.
func (r *Response) SetProtocol(major, minor int) {
	r.Major, r.Minor = major, minor
}

// SetNoSendBody implements HEAD's "no_send_body" flag: body frames are
// suppressed but Content-Length still reflects the would-be body size.
func (r *Response) SetNoSendBody(v bool) { r.noSendBody = v }

// Arena exposes the response's arena so a handler can attach
// destructor-driven cleanup (e.g. closing a static file's fd) scoped to
// this response rather than the whole connection.
func (r *Response) Arena() *memory.Arena { return r.arena }

// SetContentLength records a Content-Length without appending a body
// link, for HEAD requests whose static-file branch reports the would-be
// file size without opening it (spec.md §4.8: "For HEAD, omit the file
// link but still set content_length").
func (r *Response) SetContentLength(n int64) {
	r.bodyLen = n
	r.contentKnown = true
}

// UseDefaultErrorResponse sets status and formats the minimal HTML error
// page spec.md §6 describes ("status code, text, description, and a
// Server footer"), per the handler contract of spec.md §7: a handler that
// cannot produce a real body sets use_default_error_response and the
// builder fills in the rest. Must be called before Finalize.
func (r *Response) UseDefaultErrorResponse(status int) {
	r.Status = status
	r.Headers.Add("Content-Type", "text/html; charset=UTF-8")
	body := "<!DOCTYPE html>\n<html><head><title>" + strconv.Itoa(status) + " " + StatusText(status) +
		"</title></head><body>\n<h1>" + strconv.Itoa(status) + " " + StatusText(status) + "</h1>\n" +
		"<p>" + errorDescription(status) + "</p>\n<hr><address>" + ServerSignature + "</address>\n</body></html>\n"
	r.AppendMemory([]byte(body))
}

// errorDescription gives a one-line human description for the default
// error page's body paragraph.
func errorDescription(status int) string {
	switch status {
	case 400:
		return "The request could not be understood by the server."
	case 403:
		return "You do not have permission to access this resource."
	case 404:
		return "The requested resource was not found on this server."
	case 405:
		return "The requested method is not allowed for this resource."
	case 413:
		return "The request payload is too large."
	case 414:
		return "The request URI is too long."
	default:
		return "The server encountered an error processing the request."
	}
}

// AppendFile adds a zero-copy file body link (the static file branch of
// the filesystem handler). Must not be mixed with AppendMemory or chunks.
func (r *Response) AppendFile(fd int, offset, length int64) {
	r.body.AppendFile(fd, offset, length)
	r.bodyLen += length
	r.contentKnown = true
}

// AppendMemory adds a plain in-memory body link with an exact
// Content-Length contribution (the autoindex HTTP/1.0 branch, or any
// small generated body such as an error page).
func (r *Response) AppendMemory(data []byte) {
	r.body.AppendData(r.arena, data, len(data))
	r.bodyLen += int64(len(data))
	r.contentKnown = true
}

// EnableChunked switches the body into Transfer-Encoding: chunked framing;
// Content-Length is omitted from the header block. Must be called before
// any AppendChunk.
func (r *Response) EnableChunked() { r.chunked = true }

// AppendChunk frames data as one chunk (hex length, CRLF, data, CRLF) and
// appends it as a single arena-backed link, per spec.md §4.6 point 2.
func (r *Response) AppendChunk(data []byte) {
	hex := strconv.FormatInt(int64(len(data)), 16)
	framed := r.arena.Alloc(len(hex) + 2 + len(data) + 2)
	n := copy(framed, hex)
	framed[n] = '\r'
	framed[n+1] = '\n'
	n += 2
	n += copy(framed[n:], data)
	framed[n] = '\r'
	framed[n+1] = '\n'
	r.body.AppendBorrowed(framed)
}

// FinishChunked appends the terminal zero-length chunk that ends a
// chunked body, per spec.md §8 invariant 6.
func (r *Response) FinishChunked() {
	r.body.AppendBorrowed([]byte("0\r\n\r\n"))
}

// Finalize formats the status line and header block. It must be called
// exactly once, after the body (or chunk sequence) has been fully
// assembled, since Content-Length depends on the accumulated body size.
func (r *Response) Finalize() {
	statusLine := "HTTP/" + strconv.Itoa(r.Major) + "." + strconv.Itoa(r.Minor) + " " +
		strconv.Itoa(r.Status) + " " + StatusText(r.Status) + "\r\n"

	var defaults Headers
	defaults.Add("Server", ServerSignature)
	if r.chunked {
		defaults.Add("Transfer-Encoding", "chunked")
	} else if r.contentKnown {
		defaults.Add("Content-Length", strconv.FormatInt(r.bodyLen, 10))
	}

	size := len(statusLine) + defaults.TotalSize() + r.Headers.TotalSize() + 2
	buf := r.arena.Alloc(size)[:0]
	buf = append(buf, statusLine...)
	defaults.Walk(func(name, value string) {
		buf = append(buf, name...)
		buf = append(buf, ':', ' ')
		buf = append(buf, value...)
		buf = append(buf, '\r', '\n')
	})
	r.Headers.Walk(func(name, value string) {
		buf = append(buf, name...)
		buf = append(buf, ':', ' ')
		buf = append(buf, value...)
		buf = append(buf, '\r', '\n')
	})
	buf = append(buf, '\r', '\n')

	r.headerBytes = buf
	r.curLink = r.body.Head
	r.state = ResponseHeaders
}

// Drain writes as much of the response as fd accepts without blocking.
// done is true once the whole response (headers + body) has been
// transmitted. A (false, nil) return means the caller should re-arm
// interest in OUT and call Drain again once the socket is writable,
// without re-invoking the route handler (CALL_ONCE).
func (r *Response) Drain(fd int) (done bool, err error) {
	if r.state == ResponseHeaders {
		for r.headerOff < len(r.headerBytes) {
			n, werr, wouldBlock := netutil.Send(fd, r.headerBytes[r.headerOff:])
			r.headerOff += n
			if werr != nil {
				return false, ferrors.Wrap(ferrors.KindIoFatal, "response header write failed", werr)
			}
			if wouldBlock {
				return false, nil
			}
		}
		r.state = ResponseBody
		if r.noSendBody {
			r.state = ResponseDone
			return true, nil
		}
	}

	if r.state == ResponseBody {
		for r.curLink != nil {
			switch r.curLink.Buf.Kind {
			case stream.KindMemory:
				data := r.curLink.Buf.Data
				for r.linkOff < int64(len(data)) {
					n, werr, wouldBlock := netutil.Send(fd, data[r.linkOff:])
					r.linkOff += int64(n)
					if werr != nil {
						return false, ferrors.Wrap(ferrors.KindIoFatal, "response body write failed", werr)
					}
					if wouldBlock {
						return false, nil
					}
				}
			case stream.KindFile:
				remaining := r.curLink.Buf.Len - r.linkOff
				for remaining > 0 {
					n, werr, wouldBlock := netutil.SendFile(fd, r.curLink.Buf.FD, r.curLink.Buf.Offset+r.linkOff, remaining)
					r.linkOff += n
					remaining -= n
					if werr != nil {
						return false, ferrors.Wrap(ferrors.KindIoFatal, "sendfile failed", werr)
					}
					if wouldBlock || n == 0 {
						return false, nil
					}
				}
			}
			r.curLink = r.curLink.Next
			r.linkOff = 0
		}
		r.state = ResponseDone
	}

	return true, nil
}

// Done reports whether the response has been fully transmitted.
func (r *Response) Done() bool { return r.state == ResponseDone }
