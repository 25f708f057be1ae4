// Package router implements spec.md §4.7's request router: a map of
// path → route, defaulting to the filesystem handler when nothing more
// specific matches. It is deliberately small — the specified core only
// ever populates the default route — but the shape leaves room for
// additional routes without the worker needing to change.
package router

import (
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/http1"
)

// Flags augments a Route with dispatch-time policy.
type Flags uint8

const (
	// CallOnce marks a handler as invoked only the first time a response
	// enters the builder; subsequent OUT readiness events resume
	// Response.Drain directly without calling Handler again, per
	// spec.md §4.7's CALL_ONCE contract.
	CallOnce Flags = 1 << iota
)

// Context is everything a Handler needs to populate a Response: the
// parsed request, the selected virtual host, and the connection metadata
// the filesystem handler's autoindex tail chunk reports (spec.md §4.8).
type Context struct {
	Request    *http1.Request
	Host       *config.Host
	ServerAddr string // "host:port" the connection was accepted on, for the autoindex footer
}

// Handler populates resp from ctx. It must not block; any filesystem or
// other syscall it performs is expected to be fast (spec.md §5's
// "permitted to block briefly" carve-out for stat/open/sendfile).
type Handler func(ctx *Context, resp *http1.Response)

// Route is one entry in the Router's table.
type Route struct {
	Path    string
	Handler Handler
	Flags   Flags
}

// Router dispatches a request to a Handler. The zero value is not usable;
// construct one with New and a default handler.
type Router struct {
	routes  map[string]Route
	def     Route
}

// New creates a Router whose unmatched requests fall through to
// defaultHandler (ordinarily the filesystem handler).
func New(defaultHandler Handler) *Router {
	return &Router{
		routes: make(map[string]Route),
		def:    Route{Path: "", Handler: defaultHandler, Flags: CallOnce},
	}
}

// Handle registers a route for an exact request path. Later calls for the
// same path overwrite the earlier registration.
func (r *Router) Handle(path string, h Handler, flags Flags) {
	r.routes[path] = Route{Path: path, Handler: h, Flags: flags}
}

// Match returns the route a request's path selects, falling back to the
// default route (the filesystem handler) when nothing more specific is
// registered.
func (r *Router) Match(path string) Route {
	if route, ok := r.routes[path]; ok {
		return route
	}
	return r.def
}
