package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBasicDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "freehttpd.conf", `
root = "/var/www/default";
worker_count = 4;

logging {
	enabled = yes;
	min_level = "warn";
	file = "/var/log/freehttpd/access.log";
	error_file = "/var/log/freehttpd/error.log";
}

security {
	max_response_body_size = 1048576;
	max_connections = 256;
	recv_timeout = 30;
	send_timeout = 30;
	header_timeout = 10;
	body_timeout = 60;
}

host (example.com, www.example.com) {
	is_default = yes;
	docroot = "/var/www/example";
}

host (static.example.com:8080) {
	docroot = "/var/www/static";
}
`)

	root, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/www/default", root.DocRoot)
	assert.Equal(t, 4, root.WorkerCount)
	assert.True(t, root.Logging.Enabled)
	assert.Equal(t, "warn", root.Logging.MinLevel)
	assert.Equal(t, int64(1048576), root.Security.MaxResponseBodySize)
	assert.Equal(t, 256, root.Security.MaxConnections)
	assert.Equal(t, 30*time.Second, root.Security.RecvTimeout)
	require.Len(t, root.Hosts, 2)
	assert.True(t, root.Hosts[0].IsDefault)
	assert.Equal(t, []string{"example.com", "www.example.com"}, root.Hosts[0].Names)
	assert.Equal(t, []string{"static.example.com:8080"}, root.Hosts[1].Names)
}

func TestHostForFallsBackToDefault(t *testing.T) {
	root := &Root{
		Hosts: []Host{
			{Names: []string{"example.com"}, IsDefault: true, DocRoot: "/a"},
			{Names: []string{"static.example.com:8080"}, DocRoot: "/b"},
		},
	}

	got := root.HostFor("static.example.com", 8080)
	require.NotNil(t, got)
	assert.Equal(t, "/b", got.DocRoot)

	got = root.HostFor("unknown.example.com", 80)
	require.NotNil(t, got)
	assert.Equal(t, "/a", got.DocRoot)

	got = root.HostFor("EXAMPLE.COM", 80)
	require.NotNil(t, got)
	assert.Equal(t, "/a", got.DocRoot)
}

func TestLoadMissingRootFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "freehttpd.conf", `worker_count = 2;`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownDirective(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "freehttpd.conf", `
root = "/var/www";
bogus_directive = "x";
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresExactlyOneDefaultHost(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "freehttpd.conf", `
root = "/var/www/default";
host (example.com) {
	docroot = "/var/www/example";
}
host (other.example.com) {
	docroot = "/var/www/other";
}
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadWithIncludeDirective(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hosts.conf", `
host (example.com) {
	is_default = yes;
	docroot = "/var/www/example";
}
`)
	path := writeFile(t, dir, "freehttpd.conf", `
root = "/var/www/default";
include "hosts.conf";
`)

	root, err := Load(path)
	require.NoError(t, err)
	require.Len(t, root.Hosts, 1)
	assert.Equal(t, "/var/www/example", root.Hosts[0].DocRoot)
}

func TestLoadIncludeOptionalToleratesNoMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "freehttpd.conf", `
root = "/var/www/default";
include_optional "conf.d/*.conf";
`)

	root, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/www/default", root.DocRoot)
}

func TestLoadRejectsRecursiveInclude(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.conf", `
root = "/var/www/default";
include "b.conf";
`)
	writeFile(t, dir, "b.conf", `
include "a.conf";
`)

	_, err := Load(a)
	require.Error(t, err)
}

func TestLoadMergesBareHCLFragment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "override.hcl", `
worker_count = 16
security {
  max_connections = 4096
}
`)
	path := writeFile(t, dir, "freehttpd.conf", `
root = "/var/www/default";
include "override.hcl";
`)

	root, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, root.WorkerCount)
	assert.Equal(t, 4096, root.Security.MaxConnections)
}

func TestLexerRejectsUnterminatedString(t *testing.T) {
	lx := NewLexer(`root = "unterminated`)
	for {
		tok, err := lx.Next()
		if err != nil {
			require.Error(t, err)
			return
		}
		if tok.Kind == TokenEOF {
			t.Fatal("expected lexer error before EOF")
		}
	}
}
