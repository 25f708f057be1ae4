// Package worker implements spec.md §4.9's worker: a single-threaded,
// non-blocking event loop owning a set of SO_REUSEPORT listen sockets, a
// connection table keyed by fd, and one router. Workers never share
// mutable state; the only cross-worker coordination is the kernel's
// SO_REUSEPORT accept queue.
package worker

import (
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/conn"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/ferrors"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/fshandler"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/http1"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/netutil"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/reactor"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/router"
)

// waitBatchSize bounds how many reactor events are drained per Wait call.
const waitBatchSize = 256

// waitTimeout is how long Wait blocks before re-checking the exit flag, so
// a worker with no traffic still notices SIGTERM/SIGINT promptly.
const waitTimeout = 500 * time.Millisecond

type listener struct {
	fd         int
	port       int
	serverAddr *net.TCPAddr
}

// Worker is one forked child's event loop state: its listen sockets, its
// live connection table, and the router every accepted connection shares.
type Worker struct {
	root   *config.Root
	logger *zap.Logger
	mux    reactor.Multiplexer
	router *router.Router

	listeners map[int]*listener
	conns     map[int]*conn.Connection

	exiting atomic.Bool
}

// New builds a Worker's listen sockets (one per distinct port named across
// the configured virtual hosts, SO_REUSEADDR|SO_REUSEPORT, SOMAXCONN
// backlog) and registers them with a fresh reactor, per spec.md §4.9's
// "creates its server state" step. Listener binds happen concurrently via
// errgroup, since each is an independent syscall sequence; the reactor
// loop itself remains strictly single-threaded once Run starts.
func New(root *config.Root, logger *zap.Logger) (*Worker, error) {
	mux, err := reactor.New()
	if err != nil {
		return nil, err
	}

	w := &Worker{
		root:      root,
		logger:    logger,
		mux:       mux,
		router:    router.New(fshandler.Handle),
		listeners: make(map[int]*listener),
		conns:     make(map[int]*conn.Connection),
	}

	ports := listenPorts(root)
	type bound struct {
		port int
		fd   int
	}
	results := make([]bound, len(ports))

	var g errgroup.Group
	for i, port := range ports {
		i, port := i, port
		g.Go(func() error {
			fd, err := netutil.Listen("0.0.0.0", port)
			if err != nil {
				return err
			}
			results[i] = bound{port: port, fd: fd}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, r := range results {
			if r.fd != 0 {
				netutil.Close(r.fd)
			}
		}
		mux.Close()
		return nil, err
	}

	for _, r := range results {
		if err := mux.Add(r.fd, reactor.In); err != nil {
			mux.Close()
			return nil, err
		}
		w.listeners[r.fd] = &listener{
			fd:         r.fd,
			port:       r.port,
			serverAddr: &net.TCPAddr{IP: net.IPv4zero, Port: r.port},
		}
	}

	return w, nil
}

// listenPorts collects the distinct ports the configured virtual hosts
// name, falling back to port 80 when no host block is present (the
// top-level docroot then serves as the sole default host).
func listenPorts(root *config.Root) []int {
	seen := map[int]bool{}
	var ports []int
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}
	for _, h := range root.Hosts {
		for _, name := range h.Names {
			_, port, hasPort := splitLast(name)
			if !hasPort {
				port = 80
			}
			add(port)
		}
	}
	if len(ports) == 0 {
		add(80)
	}
	return ports
}

func splitLast(s string) (name string, port int, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			p := 0
			valid := i+1 < len(s)
			for _, c := range s[i+1:] {
				if c < '0' || c > '9' {
					valid = false
					break
				}
				p = p*10 + int(c-'0')
			}
			if valid {
				return s[:i], p, true
			}
		}
	}
	return s, 0, false
}

// defaultHost returns the one host marked is_default, or a synthesized
// host backed by the top-level docroot when no host blocks are configured.
func defaultHost(root *config.Root) *config.Host {
	for i := range root.Hosts {
		if root.Hosts[i].IsDefault {
			return &root.Hosts[i]
		}
	}
	return &config.Host{IsDefault: true, DocRoot: root.DocRoot}
}

// Run installs SIGTERM/SIGINT (set the exit flag) and ignores SIGHUP, then
// blocks in the event loop until the exit flag is set and every connection
// has been torn down, per spec.md §4.9's graceful-exit contract.
func (w *Worker) Run() error {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				w.exiting.Store(true)
			case syscall.SIGHUP:
				// reserved for future config reload; ignored in this core.
			}
		}
	}()

	events := make([]reactor.Event, waitBatchSize)

	for {
		if w.exiting.Load() && len(w.conns) == 0 {
			break
		}

		n, err := w.mux.Wait(events, waitTimeout)
		if err != nil {
			if w.logger != nil {
				w.logger.Error("reactor wait failed", zap.Error(err))
			}
			continue
		}

		for i := 0; i < n; i++ {
			w.dispatch(events[i])
		}
	}

	for fd := range w.conns {
		w.closeConn(fd)
	}
	for fd := range w.listeners {
		w.mux.Delete(fd)
		netutil.Close(fd)
	}
	return w.mux.Close()
}

func (w *Worker) dispatch(ev reactor.Event) {
	if l, ok := w.listeners[ev.FD]; ok {
		w.acceptLoop(l)
		return
	}

	c, ok := w.conns[ev.FD]
	if !ok {
		return
	}

	if ev.Flags.HasError() || ev.Flags&(reactor.Hangup|reactor.ReadHangup) != 0 {
		if ev.Flags&reactor.In == 0 {
			w.closeConn(ev.FD)
			return
		}
	}

	if ev.Flags&reactor.In != 0 {
		w.handleReadable(c)
		if _, stillOpen := w.conns[c.FD]; !stillOpen {
			return
		}
	}
	if ev.Flags&reactor.Out != 0 {
		w.handleWritable(c)
	}
}

// acceptLoop drains l's pending connections until EAGAIN, per spec.md
// §4.9's "edge-triggered accept" rule.
func (w *Worker) acceptLoop(l *listener) {
	tuning := netutil.DefaultTuning()
	for {
		fd, sa, err := netutil.Accept4(l.fd)
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				return
			}
			if w.logger != nil {
				w.logger.Warn("accept failed", zap.Error(err))
			}
			return
		}

		peer := netutil.PeerAddr(sa)
		_ = netutil.ApplyConn(fd, tuning)

		c := conn.New(fd, peer, l.serverAddr, defaultHost(w.root))
		if err := w.mux.Add(fd, reactor.In); err != nil {
			c.Destroy()
			netutil.Close(fd)
			continue
		}
		w.conns[fd] = c
	}
}

// handleReadable drains fd until EAGAIN or orderly close, feeding bytes
// through preface detection and the HTTP/1 parser, per spec.md §4.4/§4.5.
func (w *Worker) handleReadable(c *conn.Connection) {
	buf := make([]byte, 16*1024)

	for {
		n, err, wouldBlock := netutil.Recv(c.FD, buf)
		if err != nil {
			w.closeConn(c.FD)
			return
		}
		if wouldBlock {
			return
		}
		if n == 0 {
			w.closeConn(c.FD)
			return
		}

		c.LastRecv = time.Now()
		data := buf[:n]

		if c.Proto == conn.ProtoUnknown {
			consumed, decided := c.FeedPreface(data)
			if !decided {
				continue
			}
			if consumed < len(data) {
				c.Recv.AppendData(c.Arena, data[consumed:], 0)
			}
			if c.Proto == conn.ProtoH2 {
				w.rejectH2(c)
				return
			}
			c.BeginRequest()
			if limit := w.root.Security.MaxResponseBodySize; limit > 0 {
				c.Parser.SetMaxBodyLen(limit)
			}
		} else {
			c.Recv.AppendData(c.Arena, data, 0)
		}

		if w.stepParser(c) {
			return
		}
	}
}

// stepParser advances c's parser as far as buffered bytes allow. It
// returns true once the connection has been handed off to a response (or
// torn down), meaning the caller's recv loop must stop touching c.
func (w *Worker) stepParser(c *conn.Connection) bool {
	if c.Parser == nil {
		return false
	}

	phase, err := c.Parser.Step()
	if err == http1.ErrNeedBytes {
		return false
	}
	if err != nil {
		w.respondError(c, err)
		return true
	}
	if phase != http1.PhaseDone {
		return false
	}

	w.route(c)
	return true
}

// route resolves the virtual host now that Host (if any) has been parsed,
// dispatches to the router exactly once (CALL_ONCE, spec.md §4.7), and
// begins draining the response.
func (w *Worker) route(c *conn.Connection) {
	req := c.Parser.Request()
	if req.Host != "" {
		if h := w.root.HostFor(req.Host, c.ServerAddr.Port); h != nil {
			c.Host = h
		}
	}

	resp := c.BeginResponse()
	route := w.router.Match(req.Path)

	ctx := &router.Context{
		Request:    req,
		Host:       c.Host,
		ServerAddr: serverAddrString(c.ServerAddr),
	}
	route.Handler(ctx, resp)
	c.RouteCalled = true
	resp.Finalize()

	w.drain(c)
}

func (w *Worker) respondError(c *conn.Connection, err error) {
	resp := c.BeginResponse()
	major, minor := 1, 1
	if c.Parser != nil {
		if req := c.Parser.Request(); req.Major != 0 {
			major, minor = req.Major, req.Minor
		}
	}
	resp.SetProtocol(major, minor)
	resp.UseDefaultErrorResponse(statusForParseError(err))
	resp.Finalize()
	w.drain(c)
}

// statusForParseError maps a parser failure's ferrors.Kind to a status
// code, per spec.md §7's ProtocolParseError/ResourceLimit rows.
func statusForParseError(err error) int {
	if fe, ok := err.(*ferrors.Error); ok {
		switch fe.Kind {
		case ferrors.KindResourceLimit:
			if fe == ferrors.ErrURIOverlong {
				return 414
			}
			return 413
		case ferrors.KindProtocolParse:
			return 400
		}
	}
	return 400
}

// rejectH2 writes a minimal HTTP/1.1 400 and closes the connection: full
// HTTP/2 is out of scope (spec.md §1), only preface detection is.
func (w *Worker) rejectH2(c *conn.Connection) {
	resp := c.BeginResponse()
	resp.SetProtocol(1, 1)
	resp.UseDefaultErrorResponse(400)
	resp.Finalize()
	w.drain(c)
}

// drain writes as much of the response as the socket accepts right away;
// if it would block, it arms OUT interest and leaves the rest to a
// subsequent writable event.
func (w *Worker) drain(c *conn.Connection) {
	done, err := c.Response.Drain(c.FD)
	if err != nil {
		w.closeConn(c.FD)
		return
	}
	if done {
		// Keep-alive is deferred (spec.md §9): exactly one request per
		// connection, so the response's completion always closes it.
		w.closeConn(c.FD)
		return
	}
	c.WantWrite = true
	w.mux.Modify(c.FD, reactor.In|reactor.Out)
}

func (w *Worker) handleWritable(c *conn.Connection) {
	if c.Response == nil {
		return
	}
	done, err := c.Response.Drain(c.FD)
	if err != nil {
		w.closeConn(c.FD)
		return
	}
	if done {
		w.closeConn(c.FD)
	}
}

func (w *Worker) closeConn(fd int) {
	c, ok := w.conns[fd]
	if !ok {
		return
	}
	delete(w.conns, fd)
	w.mux.Delete(fd)
	netutil.Shutdown(fd, syscall.SHUT_RDWR)
	netutil.Close(fd)
	c.Destroy()
}

func serverAddrString(a *net.TCPAddr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
