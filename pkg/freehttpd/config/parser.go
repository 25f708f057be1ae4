package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/ferrors"
)

// Parser consumes a pre-lexed token stream and builds a *Root, following the
// recursive-descent shape of original_source/src/core/confproc.c's block
// dispatch (valid_blocks: logging, host, security) over the token enum
// produced by original_source/src/conf.c.
type Parser struct {
	toks    []Token
	pos     int
	baseDir string
	// included tracks canonicalized absolute paths already pulled in via
	// include/include_optional, rejecting cycles the way
	// fh_conf_traverse_include_file does in confproc.c.
	included map[string]bool
}

func newParser(src, baseDir string, included map[string]bool) (*Parser, error) {
	lx := NewLexer(src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
	return &Parser{toks: toks, baseDir: baseDir, included: included}, nil
}

func (p *Parser) cur() Token { return p.toks[p.pos] }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	t := p.cur()
	if t.Kind != k {
		return t, &ParseError{Pos: t.Pos, Msg: fmt.Sprintf("unexpected token %q", t.Text)}
	}
	return p.advance(), nil
}

// Load reads path and parses it (and any included files) into a *Root.
func Load(path string) (*Root, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindConfig, "resolving config path", err)
	}
	root := &Root{
		WorkerCount: DefaultWorkerCount,
		Security:    Security{MaxResponseBodySize: DefaultMaxResponseBodySize},
	}
	included := map[string]bool{abs: true}
	if err := loadInto(root, abs, included); err != nil {
		return nil, AsConfigError(err)
	}
	if root.DocRoot == "" {
		return nil, AsConfigError(&ParseError{Msg: "missing top-level root directive"})
	}
	if err := validateDefaultHost(root); err != nil {
		return nil, AsConfigError(err)
	}
	return root, nil
}

// validateDefaultHost enforces that exactly one host block is marked
// is_default, per spec.md §6 ("Exactly one host must be marked is_default").
func validateDefaultHost(root *Root) error {
	if len(root.Hosts) == 0 {
		return nil
	}
	count := 0
	for _, h := range root.Hosts {
		if h.IsDefault {
			count++
		}
	}
	switch {
	case count == 0:
		return &ParseError{Msg: "no host block is marked is_default"}
	case count > 1:
		return &ParseError{Msg: "more than one host block is marked is_default"}
	default:
		return nil
	}
}

func loadInto(root *Root, path string, included map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ParseError{Msg: fmt.Sprintf("reading %s: %v", path, err)}
	}
	p, err := newParser(string(data), filepath.Dir(path), included)
	if err != nil {
		return err
	}
	return p.parseTopLevel(root)
}

func (p *Parser) parseTopLevel(root *Root) error {
	for p.cur().Kind != TokenEOF {
		name, err := p.expect(TokenIdentifier)
		if err != nil {
			return err
		}
		switch name.Text {
		case "root":
			v, err := p.parseStringAssignment()
			if err != nil {
				return err
			}
			root.DocRoot = v
		case "worker_count":
			v, err := p.parseIntAssignment()
			if err != nil {
				return err
			}
			root.WorkerCount = int(v)
		case "logging":
			lg, err := p.parseLoggingBlock()
			if err != nil {
				return err
			}
			root.Logging = *lg
		case "security":
			sec, err := p.parseSecurityBlock()
			if err != nil {
				return err
			}
			root.Security = *sec
		case "host":
			h, err := p.parseHostBlock()
			if err != nil {
				return err
			}
			root.Hosts = append(root.Hosts, *h)
		case "include":
			if err := p.parseInclude(root, false); err != nil {
				return err
			}
		case "include_optional":
			if err := p.parseInclude(root, true); err != nil {
				return err
			}
		default:
			return &ParseError{Pos: name.Pos, Msg: "unknown top-level directive " + name.Text}
		}
	}
	return nil
}

func (p *Parser) parseStringAssignment() (string, error) {
	if _, err := p.expect(TokenEquals); err != nil {
		return "", err
	}
	tok, err := p.expect(TokenString)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return "", err
	}
	return tok.Text, nil
}

func (p *Parser) parseIntAssignment() (int64, error) {
	if _, err := p.expect(TokenEquals); err != nil {
		return 0, err
	}
	tok, err := p.expect(TokenInt)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return 0, err
	}
	return tok.Int, nil
}

func (p *Parser) parseBoolAssignment() (bool, error) {
	if _, err := p.expect(TokenEquals); err != nil {
		return false, err
	}
	tok, err := p.expect(TokenBool)
	if err != nil {
		return false, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return false, err
	}
	return tok.Bool, nil
}

// parseDurationAssignment reads an integer count of seconds, matching
// conf.c's representation of timeouts as plain seconds values.
func (p *Parser) parseDurationAssignment() (time.Duration, error) {
	secs, err := p.parseIntAssignment()
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

func (p *Parser) parseBraceBlockBody(fields map[string]func() error) error {
	if _, err := p.expect(TokenOpenBrace); err != nil {
		return err
	}
	for p.cur().Kind != TokenCloseBrace {
		if p.cur().Kind == TokenEOF {
			return &ParseError{Pos: p.cur().Pos, Msg: "unterminated block"}
		}
		name, err := p.expect(TokenIdentifier)
		if err != nil {
			return err
		}
		fn, ok := fields[name.Text]
		if !ok {
			return &ParseError{Pos: name.Pos, Msg: "unknown property " + name.Text}
		}
		if err := fn(); err != nil {
			return err
		}
	}
	_, err := p.expect(TokenCloseBrace)
	return err
}

func (p *Parser) parseLoggingBlock() (*Logging, error) {
	lg := &Logging{Enabled: true, MinLevel: "info"}
	err := p.parseBraceBlockBody(map[string]func() error{
		"enabled": func() error {
			v, err := p.parseBoolAssignment()
			lg.Enabled = v
			return err
		},
		"min_level": func() error {
			v, err := p.parseStringAssignment()
			lg.MinLevel = v
			return err
		},
		"file": func() error {
			v, err := p.parseStringAssignment()
			lg.File = v
			return err
		},
		"error_file": func() error {
			v, err := p.parseStringAssignment()
			lg.ErrorFile = v
			return err
		},
	})
	return lg, err
}

func (p *Parser) parseSecurityBlock() (*Security, error) {
	sec := &Security{MaxResponseBodySize: DefaultMaxResponseBodySize}
	err := p.parseBraceBlockBody(map[string]func() error{
		"max_response_body_size": func() error {
			v, err := p.parseIntAssignment()
			sec.MaxResponseBodySize = v
			return err
		},
		"max_connections": func() error {
			v, err := p.parseIntAssignment()
			sec.MaxConnections = int(v)
			return err
		},
		"recv_timeout": func() error {
			v, err := p.parseDurationAssignment()
			sec.RecvTimeout = v
			return err
		},
		"send_timeout": func() error {
			v, err := p.parseDurationAssignment()
			sec.SendTimeout = v
			return err
		},
		"header_timeout": func() error {
			v, err := p.parseDurationAssignment()
			sec.HeaderTimeout = v
			return err
		},
		"body_timeout": func() error {
			v, err := p.parseDurationAssignment()
			sec.BodyTimeout = v
			return err
		},
	})
	return sec, err
}

// parseHostBlock handles `host (name[, name...]) { ... }`, where each label
// is a bare identifier or string literal naming a "hostname[:port]" tuple,
// per confproc.c's host block label handling.
func (p *Parser) parseHostBlock() (*Host, error) {
	if _, err := p.expect(TokenOpenParen); err != nil {
		return nil, err
	}
	var names []string
	for {
		t := p.cur()
		var label string
		switch t.Kind {
		case TokenIdentifier, TokenString:
			label = t.Text
			p.advance()
		default:
			return nil, &ParseError{Pos: t.Pos, Msg: "expected hostname label"}
		}
		// Unquoted "host:port" labels lex as identifier, COLON, int since
		// ':' isn't a valid identifier character; reassemble them here.
		if p.cur().Kind == TokenColon {
			p.advance()
			port, err := p.expect(TokenInt)
			if err != nil {
				return nil, err
			}
			label = fmt.Sprintf("%s:%d", label, port.Int)
		}
		names = append(names, label)
		if p.cur().Kind == TokenComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokenCloseParen); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &ParseError{Pos: p.cur().Pos, Msg: "host block requires at least one name"}
	}

	h := &Host{Names: names}
	err := p.parseBraceBlockBody(map[string]func() error{
		"is_default": func() error {
			v, err := p.parseBoolAssignment()
			h.IsDefault = v
			return err
		},
		"docroot": func() error {
			v, err := p.parseStringAssignment()
			h.DocRoot = v
			return err
		},
		"logging": func() error {
			lg, err := p.parseLoggingBlock()
			if err != nil {
				return err
			}
			h.Logging = lg
			return nil
		},
	})
	return h, err
}

// parseInclude handles `include "glob"; ` / `include_optional "glob";`,
// expanding the glob and recursively parsing each match into root, rejecting
// paths already visited to guard against include cycles.
func (p *Parser) parseInclude(root *Root, optional bool) error {
	pattern, err := p.parseStringAssignment()
	if err != nil {
		return err
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(p.baseDir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return &ParseError{Msg: fmt.Sprintf("invalid include glob %q: %v", pattern, err)}
	}
	if len(matches) == 0 {
		if optional {
			return nil
		}
		return &ParseError{Msg: fmt.Sprintf("include %q matched no files", pattern)}
	}
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			return &ParseError{Msg: fmt.Sprintf("resolving include %q: %v", m, err)}
		}
		if p.included[abs] {
			return &ParseError{Msg: fmt.Sprintf("recursive include of %q", abs)}
		}
		p.included[abs] = true
		if isBareFragment(abs) {
			if err := mergeBareFragment(root, abs); err != nil {
				return err
			}
			continue
		}
		if err := loadInto(root, abs, p.included); err != nil {
			return err
		}
	}
	return nil
}
