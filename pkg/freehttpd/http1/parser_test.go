package http1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/ferrors"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/stream"
)

// buildStream appends each element of chunks as its own link, letting
// tests simulate however many TCP segments recv happened to deliver.
func buildStream(a *memory.Arena, chunks ...string) *stream.Stream {
	s := &stream.Stream{}
	for _, c := range chunks {
		s.AppendData(a, []byte(c), len(c))
	}
	return s
}

// runParser drives Step until Done/Error, feeding no further bytes (the
// stream passed in must already contain the full request).
func runParser(t *testing.T, s *stream.Stream) (*Request, error) {
	t.Helper()
	a := memory.New()
	p := NewParser(a, s)
	for {
		phase, err := p.Step()
		if err == ErrNeedBytes {
			t.Fatalf("parser ran out of buffered bytes prematurely at phase %d", phase)
		}
		if phase == PhaseDone {
			return p.Request(), nil
		}
		if phase == PhaseError {
			return nil, err
		}
	}
}

func TestParseSimpleGET(t *testing.T) {
	s := buildStream(memory.New(), "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
	req, err := runParser(t, s)
	require.NoError(t, err)
	assert.Equal(t, MethodGET, req.Method)
	assert.Equal(t, "/", req.Path)
	assert.Equal(t, "", req.Query)
	assert.Equal(t, 1, req.Major)
	assert.Equal(t, 1, req.Minor)
	assert.Equal(t, "localhost", req.Host)
	assert.Equal(t, 80, req.HostPort)
	assert.False(t, req.HasBody)
}

func TestParseWithQuery(t *testing.T) {
	s := buildStream(memory.New(), "GET /search?q=test&limit=10 HTTP/1.1\r\nHost: x\r\n\r\n")
	req, err := runParser(t, s)
	require.NoError(t, err)
	assert.Equal(t, "/search", req.Path)
	assert.Equal(t, "q=test&limit=10", req.Query)
}

func TestParseHostWithPort(t *testing.T) {
	s := buildStream(memory.New(), "GET / HTTP/1.1\r\nHost: example.com:8080\r\n\r\n")
	req, err := runParser(t, s)
	require.NoError(t, err)
	assert.Equal(t, "example.com", req.Host)
	assert.Equal(t, 8080, req.HostPort)
}

// TestMethodsSkipBody is spec.md §8 invariant 2: GET/HEAD/TRACE never enter
// the Body phase regardless of Content-Length, so Done is reached even
// though the 5 declared body bytes were never appended to the stream.
func TestMethodsSkipBody(t *testing.T) {
	for _, method := range []string{"GET", "HEAD", "TRACE"} {
		s := buildStream(memory.New(), method+" /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\n")
		req, err := runParser(t, s)
		require.NoError(t, err, method)
		assert.False(t, req.HasBody, method)
	}
}

func TestParseBodyPhase(t *testing.T) {
	a := memory.New()
	s := buildStream(a, "POST /submit HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello")
	p := NewParser(a, s)
	var req *Request
	for {
		phase, err := p.Step()
		require.NotEqual(t, ErrNeedBytes, err)
		if phase == PhaseDone {
			req = p.Request()
			break
		}
		require.NotEqual(t, PhaseError, phase)
	}
	require.True(t, req.HasBody)
	assert.Equal(t, int64(5), req.ContentLength)
	body := req.BodyStart.Remaining()
	assert.Equal(t, "hello", string(body))
}

// TestParseSplitAcrossSegments is scenario S6: the same request delivered
// as two TCP segments must parse identically to one delivered whole.
func TestParseSplitAcrossSegments(t *testing.T) {
	whole, err := runParser(t, buildStream(memory.New(), "GET /index.html HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	split, err := runParser(t, buildStream(memory.New(), "GET /index.", "html HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	assert.Equal(t, whole.Method, split.Method)
	assert.Equal(t, whole.Path, split.Path)
	assert.Equal(t, whole.Major, split.Major)
	assert.Equal(t, whole.Minor, split.Minor)
}

// TestParseChunkSizeIndependence is invariant 1, pushed to the extreme of
// one byte per link.
func TestParseChunkSizeIndependence(t *testing.T) {
	full := "GET /a/b?c=d HTTP/1.1\r\nHost: example.com\r\nX-Test: value\r\n\r\n"

	whole, err := runParser(t, buildStream(memory.New(), full))
	require.NoError(t, err)

	chunks := make([]string, len(full))
	for i, b := range []byte(full) {
		chunks[i] = string(b)
	}
	byteAtATime, err := runParser(t, buildStream(memory.New(), chunks...))
	require.NoError(t, err)

	assert.Equal(t, whole.Method, byteAtATime.Method)
	assert.Equal(t, whole.Path, byteAtATime.Path)
	assert.Equal(t, whole.Query, byteAtATime.Query)
	assert.Equal(t, whole.Host, byteAtATime.Host)
	v1, _ := whole.Headers.Get("X-Test")
	v2, _ := byteAtATime.Headers.Get("X-Test")
	assert.Equal(t, v1, v2)
}

func TestParseNeedsBytesOnIncompleteRequestLine(t *testing.T) {
	a := memory.New()
	s := buildStream(a, "GET / HTTP/1.1\r\n")
	p := NewParser(a, s)
	for {
		phase, err := p.Step()
		if err == ErrNeedBytes {
			return
		}
		require.NotEqual(t, PhaseError, phase)
	}
}

func TestParseRejectsContentLengthAndTransferEncoding(t *testing.T) {
	s := buildStream(memory.New(), "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n")
	_, err := runParser(t, s)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.KindProtocolParse))
}

func TestParseRejectsDuplicateContentLengthMismatch(t *testing.T) {
	s := buildStream(memory.New(), "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\n")
	_, err := runParser(t, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrDuplicateContentLength)
}

func TestParseRejectsNonAbsolutePath(t *testing.T) {
	s := buildStream(memory.New(), "GET foo HTTP/1.1\r\nHost: h\r\n\r\n")
	_, err := runParser(t, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrURINotAbsPath)
}

func TestParseRejectsUnknownMethod(t *testing.T) {
	s := buildStream(memory.New(), "FOOBAR / HTTP/1.1\r\nHost: h\r\n\r\n")
	_, err := runParser(t, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrMethodUnknown)
}

func TestParseRejectsUnsupportedMajorVersion(t *testing.T) {
	s := buildStream(memory.New(), "GET / HTTP/2.0\r\nHost: h\r\n\r\n")
	_, err := runParser(t, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ferrors.ErrVersionUnsupported)
}
