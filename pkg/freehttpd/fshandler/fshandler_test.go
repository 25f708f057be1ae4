package fshandler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/config"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/http1"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/netutil"
	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/router"
)

// TestNormalizeDegenerateTraversal is spec.md §8 invariant 8.
func TestNormalizeDegenerateTraversal(t *testing.T) {
	got := Normalize("/a/../README/../.././../.././../../../.././")
	assert.Equal(t, "/", got)
}

// TestNormalizeDotSegments is spec.md §8 invariant 9.
func TestNormalizeDotSegments(t *testing.T) {
	got := Normalize("/home/user/./test/../test2/./file.txt")
	assert.Equal(t, "/home/user/test2/file.txt", got)
}

// TestResolveContainment is spec.md §8 invariant 4 / scenario S4: no
// sequence of "." / ".." / "//" escapes the docroot.
func TestResolveContainment(t *testing.T) {
	full, ok := Resolve("/var/www/example", "/../../etc/passwd")
	require.True(t, ok)
	assert.Equal(t, "/var/www/example/etc/passwd", full)
}

func socketpairForTest(t *testing.T) (client, server int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	return fds[0], fds[1]
}

func drainAll(t *testing.T, resp *http1.Response, fd int) {
	t.Helper()
	for {
		done, err := resp.Drain(fd)
		require.NoError(t, err)
		if done {
			return
		}
	}
}

func newContext(req *http1.Request, docroot string) *router.Context {
	return &router.Context{
		Request:    req,
		Host:       &config.Host{DocRoot: docroot},
		ServerAddr: "127.0.0.1:80",
	}
}

// TestHandleServesDirectoryIndexForRoot is scenario S1: "GET /" against a
// docroot containing only index.html does not auto-probe the index file;
// it yields a 200 directory listing naming that one entry.
func TestHandleServesDirectoryIndexForRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("Hello, World\n"), 0o644))

	req := &http1.Request{Method: http1.MethodGET, Path: "/", Major: 1, Minor: 1}
	ctx := newContext(req, dir)
	resp := http1.NewResponse(memory.New())

	Handle(ctx, resp)
	resp.Finalize()

	client, server := socketpairForTest(t)
	defer netutil.Close(client)
	drainAll(t, resp, server)
	netutil.Close(server)

	buf := make([]byte, 8192)
	n, _, _ := netutil.Recv(client, buf)
	out := string(buf[:n])
	assert.Contains(t, out, "HTTP/1.1 200 OK")
	assert.Contains(t, out, "Transfer-Encoding: chunked")
	assert.Contains(t, out, "index.html")
}

// TestHandleHead is scenario S2.
func TestHandleHead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("Hello, World\n"), 0o644))

	req := &http1.Request{Method: http1.MethodHEAD, Path: "/index.html", Major: 1, Minor: 1}
	ctx := newContext(req, dir)
	resp := http1.NewResponse(memory.New())

	Handle(ctx, resp)
	resp.Finalize()

	client, server := socketpairForTest(t)
	defer netutil.Close(client)
	drainAll(t, resp, server)
	netutil.Close(server)

	buf := make([]byte, 8192)
	n, _, _ := netutil.Recv(client, buf)
	out := string(buf[:n])
	assert.Contains(t, out, "HTTP/1.1 200 OK")
	assert.Contains(t, out, "Content-Length: 13")
	assert.True(t, len(out) < 200, "HEAD response must carry no body bytes")
}

// TestHandleNotFound is scenario S3.
func TestHandleNotFound(t *testing.T) {
	dir := t.TempDir()

	req := &http1.Request{Method: http1.MethodGET, Path: "/nope", Major: 1, Minor: 0}
	ctx := newContext(req, dir)
	resp := http1.NewResponse(memory.New())

	Handle(ctx, resp)
	resp.Finalize()

	client, server := socketpairForTest(t)
	defer netutil.Close(client)
	drainAll(t, resp, server)
	netutil.Close(server)

	buf := make([]byte, 8192)
	n, _, _ := netutil.Recv(client, buf)
	out := string(buf[:n])
	assert.Contains(t, out, "HTTP/1.0 404 Not Found")
	assert.Contains(t, out, "text/html; charset=UTF-8")
	assert.Contains(t, out, "404")
	assert.Contains(t, out, "Not Found")
}

// TestHandleChunkedAutoindex is scenario S5.
func TestHandleChunkedAutoindex(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "subdir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(sub, "b"), 0o755))

	req := &http1.Request{Method: http1.MethodGET, Path: "/subdir/", Major: 1, Minor: 1}
	ctx := newContext(req, dir)
	resp := http1.NewResponse(memory.New())

	Handle(ctx, resp)
	resp.Finalize()

	client, server := socketpairForTest(t)
	defer netutil.Close(client)
	drainAll(t, resp, server)
	netutil.Close(server)

	buf := make([]byte, 8192)
	n, _, _ := netutil.Recv(client, buf)
	out := string(buf[:n])
	assert.Contains(t, out, "Transfer-Encoding: chunked")
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "5B")
	assert.True(t, indexOf(out, "b/") < indexOf(out, "a.txt"), "directories sort before files")
	assert.Contains(t, out, "0\r\n\r\n")
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// TestStatusForStatError covers spec.md §7's stat-error mapping.
func TestStatusForStatError(t *testing.T) {
	_, err := os.Stat(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, 404, statusForStatError(err))
}
