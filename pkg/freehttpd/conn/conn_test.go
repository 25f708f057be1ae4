package conn

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/http1"
)

func newTestConn() *Connection {
	client := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 54321}
	server := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80}
	host := &config.Host{IsDefault: true, DocRoot: "/var/www"}
	return New(-1, client, server, host)
}

func TestNewAssignsDefaultHostAndMonotonicID(t *testing.T) {
	c1 := newTestConn()
	c2 := newTestConn()

	assert.Equal(t, "/var/www", c1.Host.DocRoot)
	assert.Greater(t, c2.ID, c1.ID)
}

// TestFeedPrefaceDecidesHTTP1Early covers spec.md §4.4: an ordinary request
// line diverges from the H2 preface at its first byte ('G' vs 'P'), so
// FeedPreface decides after one byte, commits that byte to Recv, and leaves
// the rest of data for the caller to append.
func TestFeedPrefaceDecidesHTTP1Early(t *testing.T) {
	c := newTestConn()
	data := []byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")

	consumed, decided := c.FeedPreface(data)
	require.True(t, decided)
	assert.Equal(t, 1, consumed)
	assert.Equal(t, ProtoHTTP1, c.Proto)
	assert.Equal(t, int64(consumed), c.Recv.Total)
}

// TestFeedPrefaceDetectsH2 covers the literal 24-byte H2 client preface.
func TestFeedPrefaceDetectsH2(t *testing.T) {
	c := newTestConn()
	data := []byte(http1.H2Preface)

	consumed, decided := c.FeedPreface(data)
	require.True(t, decided)
	assert.Equal(t, len(data), consumed)
	assert.Equal(t, ProtoH2, c.Proto)
	assert.Equal(t, int64(0), c.Recv.Total, "H2 bytes must never reach the HTTP/1 stream")
}

// TestFeedPrefaceAcrossSplitReads covers spec.md §8 invariant 1 applied to
// the preface-detection phase itself: the preface may arrive byte-by-byte
// across several recv calls before it resolves.
func TestFeedPrefaceAcrossSplitReads(t *testing.T) {
	c := newTestConn()
	full := []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

	decided := false
	for i := 0; i < len(full) && !decided; i++ {
		_, decided = c.FeedPreface(full[i : i+1])
	}
	assert.True(t, decided)
	assert.Equal(t, ProtoH2, c.Proto)
}

func TestBeginRequestAndBeginResponse(t *testing.T) {
	c := newTestConn()
	data := []byte("GET / HTTP/1.1\r\n\r\n")
	c.FeedPreface(data)
	require.Equal(t, ProtoHTTP1, c.Proto)

	c.BeginRequest()
	require.NotNil(t, c.Parser)

	resp := c.BeginResponse()
	require.NotNil(t, resp)
	assert.Same(t, resp, c.Response)
	assert.False(t, c.RouteCalled)
}

func TestDestroyIsIdempotent(t *testing.T) {
	c := newTestConn()
	c.Destroy()
	assert.NotPanics(t, func() { c.Destroy() })
}
