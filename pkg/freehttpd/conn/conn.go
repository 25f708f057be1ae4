// Package conn implements spec.md §3's Connection type: the object tying
// one accepted client socket to its arena, receive stream, protocol
// detection state, in-flight parser/response, and the virtual host it
// currently resolves to. Workers own a table of these, keyed by fd.
package conn

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/http1"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/stream"
)

// Proto is the protocol a connection has settled on after preface
// detection (spec.md §4.4).
type Proto uint8

const (
	ProtoUnknown Proto = iota
	ProtoHTTP1 // exact 1.0 vs 1.1 is known only once the request line parses
	ProtoH2
)

var nextID uint64

// NextID hands out monotonically increasing connection IDs, shared across
// all connections a worker accepts (spec.md §3's Connection.id).
func NextID() uint64 { return atomic.AddUint64(&nextID, 1) }

// Connection is one accepted client socket plus everything scoped to its
// lifetime: its arena, the inbound byte stream, protocol detection state,
// and (once the preface has resolved to HTTP/1) the request parser and
// in-flight response.
type Connection struct {
	ID         uint64
	FD         int
	ClientAddr *net.TCPAddr
	ServerAddr *net.TCPAddr

	Arena *memory.Arena
	Recv  stream.Stream

	Proto Proto

	Created     time.Time
	LastRecv    time.Time
	LastSend    time.Time
	LastRequest time.Time

	Host *config.Host // selected virtual host; the default host until a Host header arrives

	Parser   *http1.Parser
	Response *http1.Response

	// WantWrite is true once the worker has registered OUT interest to
	// resume a partially-drained response (the CALL_ONCE resume path of
	// spec.md §4.7).
	WantWrite bool

	// RouteCalled records whether the router's handler has already run
	// for the response currently being drained, per spec.md §4.7's
	// CALL_ONCE route flag.
	RouteCalled bool

	prefaceScratch []byte
}

// New creates a Connection for a freshly accepted socket, defaulting its
// virtual host to defaultHost until a Host header narrows the choice
// (spec.md §4.9: "each with its own arena and initial virtual-host
// assignment — the default host until Host is known").
func New(fd int, client, server *net.TCPAddr, defaultHost *config.Host) *Connection {
	now := time.Now()
	return &Connection{
		ID:         NextID(),
		FD:         fd,
		ClientAddr: client,
		ServerAddr: server,
		Arena:      memory.New(),
		Host:       defaultHost,
		Created:    now,
		LastRecv:   now,
	}
}

// Destroy releases the connection's arena. The caller is responsible for
// removing FD from the reactor and closing the socket beforehand.
func (c *Connection) Destroy() {
	c.Arena.Destroy()
}

// FeedPreface accumulates up to len(http1.H2Preface) bytes from data
// without committing them to Recv, deciding the connection's protocol as
// soon as the accumulated prefix can no longer match the H2 preface (most
// HTTP/1 request lines diverge within the first few bytes) or once all 24
// bytes have arrived. It returns how many bytes of data it consumed;
// decided is true once Proto is no longer ProtoUnknown. Any bytes left
// unconsumed in data (decided became true before data was exhausted) are
// the caller's to feed through the normal recv-append path.
func (c *Connection) FeedPreface(data []byte) (consumed int, decided bool) {
	for _, b := range data {
		c.prefaceScratch = append(c.prefaceScratch, b)
		consumed++

		if !http1.IsH2PrefacePrefix(c.prefaceScratch) {
			c.Proto = ProtoHTTP1
			c.commitPreface()
			return consumed, true
		}
		if len(c.prefaceScratch) == len(http1.H2Preface) {
			if http1.MatchesH2Preface(c.prefaceScratch) {
				c.Proto = ProtoH2
			} else {
				c.Proto = ProtoHTTP1
				c.commitPreface()
			}
			return consumed, true
		}
	}
	return consumed, false
}

func (c *Connection) commitPreface() {
	if len(c.prefaceScratch) > 0 {
		c.Recv.AppendData(c.Arena, c.prefaceScratch, len(c.prefaceScratch))
	}
	c.prefaceScratch = nil
}

// BeginRequest creates a fresh parser positioned at the start of the
// connection's receive stream. Called once per connection, since
// keep-alive is deferred (spec.md §9): one request per connection.
func (c *Connection) BeginRequest() {
	c.Parser = http1.NewParser(c.Arena, &c.Recv)
}

// BeginResponse creates a response builder in a child arena of the
// connection's arena, so the response's allocations (and any attached
// file descriptors) are released independently of the connection's
// receive-side arena, per spec.md §3's Response.pool field.
func (c *Connection) BeginResponse() *http1.Response {
	resp := http1.NewResponse(c.Arena.Child())
	c.Response = resp
	c.RouteCalled = false
	return resp
}
