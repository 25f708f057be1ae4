package http1

import (
	"errors"
	"strconv"
	"strings"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/ferrors"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/stream"
)

// Phase is one state of the request parser's state machine, matching the
// phase table in spec.md §4.5: Method → Uri → Version →
// (HeaderName → HeaderValue)* → EndOfHeaders → (Body | Done).
type Phase uint8

const (
	PhaseMethod Phase = iota
	PhaseURI
	PhaseVersion
	PhaseHeaderName
	PhaseHeaderValue
	PhaseEndOfHeaders
	PhaseBody
	PhaseDone
	PhaseError
)

// DefaultMaxBodyLen is the body-phase ceiling absent a config override
// (spec.md §4.5's "128 MiB (or config)").
const DefaultMaxBodyLen int64 = 128 * 1024 * 1024

// ErrNeedBytes is returned by Step when the current phase cannot make
// progress with the bytes currently buffered in the stream; the caller
// (the worker's recv handler) must append more data and call Step again.
// It is the "NeedBytes" arm of the {Advance, NeedBytes, Error} dispatch
// result described in spec.md §9.
var ErrNeedBytes = errors.New("http1: need more bytes to continue parsing")

// Parser drives the incremental request parser over one stream.Stream,
// allocating linearised tokens (when a token spans link boundaries) from
// the supplied arena. A Parser is single-use: construct one per request
// via NewParser.
type Parser struct {
	arena *memory.Arena
	cur   stream.Cursor
	phase Phase
	req   *Request
	err   error

	maxBodyLen int64

	pendingHeaderName string
	hasContentLength  bool
	hasTransferEnc    bool
	hasHost           bool
	contentLengthSeen int64
}

// NewParser creates a parser positioned at the start of s, writing any
// linearised tokens into a.
func NewParser(a *memory.Arena, s *stream.Stream) *Parser {
	return &Parser{
		arena:      a,
		cur:        stream.NewCursor(s),
		req:        &Request{},
		maxBodyLen: DefaultMaxBodyLen,
	}
}

// SetMaxBodyLen overrides the body-phase ceiling from config.
func (p *Parser) SetMaxBodyLen(n int64) { p.maxBodyLen = n }

// Request returns the request being populated. Only safe to read fields
// once Step has returned PhaseDone (earlier fields are partially filled).
func (p *Parser) Request() *Request { return p.req }

// Cursor returns the parser's current read position in the stream —
// for PhaseDone, this is where any remaining pipelined bytes begin.
func (p *Parser) Cursor() stream.Cursor { return p.cur }

func (p *Parser) fail(err error) (Phase, error) {
	p.phase = PhaseError
	p.err = err
	return p.phase, err
}

// Step advances the state machine as far as the currently buffered bytes
// allow. It returns (PhaseDone, nil) once the request is fully parsed,
// (phase, ErrNeedBytes) when it needs more data to proceed without having
// consumed a partial token, or (PhaseError, err) on a parse failure.
func (p *Parser) Step() (Phase, error) {
	for {
		switch p.phase {
		case PhaseMethod:
			tok, found, overlong := stream.ScanDelim(p.arena, p.cur, ' ', 16)
			if overlong {
				return p.fail(ferrors.ErrMethodOverlong)
			}
			if !found {
				return p.phase, ErrNeedBytes
			}
			if len(tok.Bytes) == 0 {
				return p.fail(ferrors.ErrMethodEmpty)
			}
			p.req.MethodRaw = string(tok.Bytes)
			p.req.Method = ParseMethod(tok.Bytes)
			if p.req.Method == MethodUnknown {
				return p.fail(ferrors.ErrMethodUnknown)
			}
			p.cur = tok.End
			p.phase = PhaseURI

		case PhaseURI:
			tok, found, overlong := stream.ScanDelim(p.arena, p.cur, ' ', 4096)
			if overlong {
				return p.fail(ferrors.ErrURIOverlong)
			}
			if !found {
				return p.phase, ErrNeedBytes
			}
			if len(tok.Bytes) == 0 {
				return p.fail(ferrors.ErrURIEmpty)
			}
			if tok.Bytes[0] != '/' && tok.Bytes[0] != '*' {
				return p.fail(ferrors.ErrURINotAbsPath)
			}
			uri := string(tok.Bytes)
			p.req.URI = uri
			if idx := strings.IndexByte(uri, '?'); idx >= 0 {
				p.req.Path = uri[:idx]
				p.req.Query = uri[idx+1:]
			} else {
				p.req.Path = uri
			}
			p.cur = tok.End
			p.phase = PhaseVersion

		case PhaseVersion:
			tok, found, overlong := stream.ScanDelimCRLF(p.arena, p.cur, 8)
			if overlong {
				return p.fail(ferrors.ErrVersionMalformed)
			}
			if !found {
				return p.phase, ErrNeedBytes
			}
			major, minor, ok := parseVersion(tok.Bytes)
			if !ok {
				return p.fail(ferrors.ErrVersionMalformed)
			}
			if major != 1 {
				return p.fail(ferrors.ErrVersionUnsupported)
			}
			p.req.Major, p.req.Minor = major, minor
			p.cur = tok.End
			p.phase = PhaseHeaderName

		case PhaseHeaderName:
			b, ok := stream.PeekByte(p.cur)
			if !ok {
				return p.phase, ErrNeedBytes
			}
			if b == '\r' {
				tok, found, _ := stream.ScanDelimCRLF(p.arena, p.cur, 0)
				if !found {
					return p.phase, ErrNeedBytes
				}
				p.cur = tok.End
				p.phase = PhaseEndOfHeaders
				continue
			}
			if p.req.Headers.Count() >= MaxHeaderCount {
				return p.fail(ferrors.ErrTooManyHeaders)
			}

			tok, found, overlong := stream.ScanDelim(p.arena, p.cur, ':', 128)
			if overlong {
				return p.fail(ferrors.ErrHeaderNameOverlong)
			}
			if !found {
				return p.phase, ErrNeedBytes
			}
			if len(tok.Bytes) == 0 {
				return p.fail(ferrors.ErrHeaderNameEmpty)
			}
			if !validNameBytes(tok.Bytes) {
				return p.fail(ferrors.ErrHeaderNameInvalid)
			}
			p.pendingHeaderName = string(tok.Bytes)
			p.cur = tok.End
			p.phase = PhaseHeaderValue

		case PhaseHeaderValue:
			tok, found, overlong := stream.ScanDelimCRLF(p.arena, p.cur, 256)
			if overlong {
				return p.fail(ferrors.ErrHeaderValueOverlong)
			}
			if !found {
				return p.phase, ErrNeedBytes
			}
			val := trimOWSBytes(tok.Bytes)
			if len(val) == 0 {
				return p.fail(ferrors.ErrHeaderValueEmpty)
			}
			valStr := string(val)
			if err := p.applySpecialHeader(p.pendingHeaderName, valStr); err != nil {
				return p.fail(err)
			}
			p.req.Headers.Add(p.pendingHeaderName, valStr)
			p.cur = tok.End
			p.phase = PhaseHeaderName

		case PhaseEndOfHeaders:
			if p.hasContentLength && p.hasTransferEnc {
				return p.fail(ferrors.ErrContentLengthAndTE)
			}
			if p.req.Method.SkipsBody() || !p.hasContentLength || p.req.ContentLength == 0 {
				p.phase = PhaseDone
				return p.phase, nil
			}
			p.req.BodyStart = p.cur
			p.req.HasBody = true
			p.phase = PhaseBody

		case PhaseBody:
			consumed, next, exhausted := p.cur.AdvanceBytes(p.req.ContentLength - p.bodyConsumed())
			p.cur = next
			p.addBodyConsumed(consumed)
			if p.bodyConsumed() < p.req.ContentLength {
				if exhausted {
					return p.phase, ErrNeedBytes
				}
				continue
			}
			p.phase = PhaseDone

		case PhaseDone:
			return PhaseDone, nil

		case PhaseError:
			return PhaseError, p.err
		}
	}
}

// bodyConsumed/addBodyConsumed track progress through the body phase
// across repeated Step calls without needing a separate field reset.
func (p *Parser) bodyConsumed() int64 { return p.contentLengthSeen }
func (p *Parser) addBodyConsumed(n int64) { p.contentLengthSeen += n }

func (p *Parser) applySpecialHeader(name, value string) error {
	switch {
	case strings.EqualFold(name, "Content-Length"):
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return ferrors.ErrContentLengthInvalid
		}
		if p.hasContentLength {
			if n != p.req.ContentLength {
				return ferrors.ErrDuplicateContentLength
			}
			return nil
		}
		if n > p.maxBodyLen {
			return ferrors.ErrBodyOverlong
		}
		p.hasContentLength = true
		p.req.HasContentLen = true
		p.req.ContentLength = n

	case strings.EqualFold(name, "Transfer-Encoding"):
		p.hasTransferEnc = true
		if strings.EqualFold(strings.TrimSpace(value), "chunked") {
			p.req.ChunkedTE = true
		}

	case strings.EqualFold(name, "Connection"):
		if strings.EqualFold(strings.TrimSpace(value), "close") {
			p.req.Close = true
		}

	case strings.EqualFold(name, "Host"):
		if p.hasHost {
			return ferrors.ErrHostInvalid
		}
		p.hasHost = true
		host, port, ok := splitHostPort(value)
		if !ok {
			return ferrors.ErrHostInvalid
		}
		p.req.Host = host
		p.req.HostPort = port
	}
	return nil
}

// splitHostPort implements spec.md §4.5's Host-header contract: split on
// the first ':', the part after is a port in [1, 65535], absent ':'
// implies port 80.
func splitHostPort(v string) (host string, port int, ok bool) {
	idx := strings.IndexByte(v, ':')
	if idx < 0 {
		return v, 80, len(v) > 0
	}
	host = v[:idx]
	portStr := v[idx+1:]
	n, err := strconv.Atoi(portStr)
	if err != nil || n < 1 || n > 65535 || len(host) == 0 {
		return "", 0, false
	}
	return host, n, true
}

func parseVersion(b []byte) (major, minor int, ok bool) {
	if len(b) != 8 {
		return 0, 0, false
	}
	if string(b[:5]) != "HTTP/" || b[6] != '.' {
		return 0, 0, false
	}
	if b[5] < '0' || b[5] > '9' || b[7] < '0' || b[7] > '9' {
		return 0, 0, false
	}
	return int(b[5] - '0'), int(b[7] - '0'), true
}

func validNameBytes(b []byte) bool {
	for _, c := range b {
		if !tokenChar(c) {
			return false
		}
	}
	return true
}

func trimOWSBytes(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	for j > i && (b[j-1] == ' ' || b[j-1] == '\t') {
		j--
	}
	return b[i:j]
}
