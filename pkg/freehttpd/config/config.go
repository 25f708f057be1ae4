// Package config implements the configuration tree spec.md §6 treats as an
// external collaborator. The type shapes below (Root/Host/Security/Logging)
// are the "fh_config" tree realized in Go; Load parses the block/assignment
// DSL described in the original C source (original_source/src/conf.c,
// core/confproc.c) with a hand-written lexer and recursive-descent parser,
// since none of the example repos' config libraries (HCL, TOML, viper)
// accept this grammar's bare parenthesized multi-label blocks.
package config

import "time"

// Root is the top-level parsed configuration tree.
type Root struct {
	DocRoot     string
	WorkerCount int
	Logging     Logging
	Security    Security
	Hosts       []Host
}

// Host is one `host (...) { ... }` block.
type Host struct {
	Names     []string // "hostname[:port]" tuples
	IsDefault bool
	DocRoot   string
	Logging   *Logging // optional override
}

// Security holds resource-limit and timeout knobs. Most timeouts are
// declared-but-unused in the core event loop per spec.md §5's "Open
// questions" note; they exist so a future timer wheel has somewhere to
// read them from.
type Security struct {
	MaxResponseBodySize int64
	MaxConnections      int
	RecvTimeout         time.Duration
	SendTimeout         time.Duration
	HeaderTimeout       time.Duration
	BodyTimeout         time.Duration
}

// Logging configures one log sink (access or error).
type Logging struct {
	Enabled   bool
	MinLevel  string
	File      string
	ErrorFile string
}

// DefaultWorkerCount is used when the config omits worker_count, per
// spec.md §4.9 ("default 8 or configured").
const DefaultWorkerCount = 8

// DefaultMaxResponseBodySize is the body-phase ceiling absent an explicit
// security.max_response_body_size, matching spec.md §4.5's "128 MiB (or config)".
const DefaultMaxResponseBodySize = 128 * 1024 * 1024

// HostFor resolves the virtual host a request's parsed Host header (and the
// port the connection was accepted on) selects, falling back to the
// configured default host. hostname is matched case-insensitively and without
// its port, since Host-header ports are validated separately by the parser.
func (r *Root) HostFor(hostname string, port int) *Host {
	var fallback *Host
	for i := range r.Hosts {
		h := &r.Hosts[i]
		if h.IsDefault {
			fallback = h
		}
		for _, n := range h.Names {
			name, p, hasPort := splitNamePort(n)
			if !equalFold(name, hostname) {
				continue
			}
			if !hasPort || p == port {
				return h
			}
		}
	}
	return fallback
}

func splitNamePort(s string) (name string, port int, hasPort bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			p := 0
			ok := i+1 < len(s)
			for _, c := range s[i+1:] {
				if c < '0' || c > '9' {
					ok = false
					break
				}
				p = p*10 + int(c-'0')
			}
			if ok {
				return s[:i], p, true
			}
		}
	}
	return s, 0, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
