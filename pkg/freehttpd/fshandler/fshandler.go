// Package fshandler implements spec.md §4.8: the default router.Handler
// that resolves a request URI under a virtual host's document root and
// serves either a static file (zero-copy via sendfile) or a generated
// directory index.
package fshandler

import (
	"os"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/http1"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/netutil"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/router"
)

// Handle is the filesystem router.Handler: it accepts only GET/HEAD,
// resolves request.Path under ctx.Host.DocRoot, and dispatches to the
// static-file or autoindex branch per the stat result, per spec.md §4.8's
// dispatch table.
func Handle(ctx *router.Context, resp *http1.Response) {
	req := ctx.Request
	resp.SetProtocol(req.Major, req.Minor)

	if req.Method != http1.MethodGET && req.Method != http1.MethodHEAD {
		resp.UseDefaultErrorResponse(405)
		return
	}

	if req.Method == http1.MethodHEAD {
		resp.SetNoSendBody(true)
	}

	full, ok := Resolve(ctx.Host.DocRoot, req.Path)
	if !ok {
		resp.UseDefaultErrorResponse(414)
		return
	}

	st, err := os.Stat(full)
	if err != nil {
		resp.UseDefaultErrorResponse(statusForStatError(err))
		return
	}

	switch {
	case st.IsDir():
		serveAutoindex(ctx, resp, full, req.Path)
	case st.Mode().IsRegular():
		serveStaticFile(ctx, resp, full, st.Size())
	default:
		resp.UseDefaultErrorResponse(404)
	}
}

// statusForStatError maps a stat/open errno to an HTTP status, per
// spec.md §4.8's "stat error → 404 (ENOENT), 403 (EACCES, EPERM), else
// 500" dispatch table.
func statusForStatError(err error) int {
	switch {
	case os.IsNotExist(err):
		return 404
	case os.IsPermission(err):
		return 403
	default:
		return 500
	}
}

// serveStaticFile opens full read-only and attaches a single File body
// link for zero-copy transmission, registering the fd with the response
// arena's destructor so it closes when the response is destroyed
// (spec.md §4.8's "Static file" branch).
func serveStaticFile(ctx *router.Context, resp *http1.Response, full string, size int64) {
	req := ctx.Request

	if req.Method == http1.MethodHEAD {
		resp.Status = 200
		resp.SetContentLength(size)
		return
	}

	fd, err := netutil.OpenRead(full)
	if err != nil {
		resp.UseDefaultErrorResponse(statusForStatError(err))
		return
	}

	resp.Arena().Attach(func() { netutil.Close(fd) })
	resp.Status = 200
	resp.AppendFile(fd, 0, size)
}

// serveAutoindex generates the directory listing body, chunked on
// HTTP/1.1 and as a plain exact-Content-Length body on HTTP/1.0, per
// spec.md §4.8's "Autoindex" branch.
func serveAutoindex(ctx *router.Context, resp *http1.Response, dir, uriPath string) {
	req := ctx.Request
	isRoot := uriPath == "/"

	entries, err := readEntries(dir, isRoot)
	if err != nil {
		resp.UseDefaultErrorResponse(statusForStatError(err))
		return
	}

	resp.Status = 200
	resp.Headers.Add("Content-Type", "text/html; charset=UTF-8")

	rows := make([][]byte, 0, len(entries)+1)
	if !isRoot {
		rows = append(rows, []byte(parentRow))
	}
	for _, e := range entries {
		rows = append(rows, renderRow(e))
	}

	if req.Major == 1 && req.Minor == 0 {
		var buf []byte
		buf = append(buf, renderHead(uriPath)...)
		for _, r := range rows {
			buf = append(buf, r...)
		}
		buf = append(buf, renderTail(ctx.ServerAddr)...)
		resp.AppendMemory(buf)
		return
	}

	resp.EnableChunked()
	resp.AppendChunk(renderHead(uriPath))
	for _, r := range rows {
		resp.AppendChunk(r)
	}
	resp.AppendChunk(renderTail(ctx.ServerAddr))
	resp.FinishChunked()
}
