package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl"
	"github.com/mitchellh/mapstructure"
)

// isBareFragment reports whether an included path should be parsed as a
// bare key/value fragment (HCL) rather than the block DSL. Fragments are
// distinguished by extension so an operator can drop a small override file
// (worker_count, docroot, security knobs) without learning the full block
// grammar.
func isBareFragment(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".hcl" || ext == ".override"
}

// fragmentOverrides is the leaf shape mapstructure decodes a bare fragment
// into: the top-level scalars plus the security block's two size knobs.
// Other blocks (host, logging) still require the custom DSL.
type fragmentOverrides struct {
	DocRoot     string `mapstructure:"root"`
	WorkerCount int    `mapstructure:"worker_count"`
	Security    struct {
		MaxResponseBodySize int64 `mapstructure:"max_response_body_size"`
		MaxConnections      int   `mapstructure:"max_connections"`
	} `mapstructure:"security"`
}

// mergeBareFragment parses path as an HCL key/value document and applies any
// non-zero leaves onto root, used for include/include_optional targets that
// don't use the block-label shorthand the hand-written parser implements.
func mergeBareFragment(root *Root, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ParseError{Msg: fmt.Sprintf("reading fragment %s: %v", path, err)}
	}

	var raw map[string]interface{}
	if err := hcl.Unmarshal(data, &raw); err != nil {
		return &ParseError{Msg: fmt.Sprintf("parsing fragment %s: %v", path, err)}
	}

	// HCL decodes a nested block as a list of objects; merge each list into
	// one map so mapstructure can fill the matching struct field.
	for k, v := range raw {
		if list, ok := v.([]map[string]interface{}); ok {
			merged := map[string]interface{}{}
			for _, m := range list {
				for mk, mv := range m {
					merged[mk] = mv
				}
			}
			raw[k] = merged
		}
	}

	var ov fragmentOverrides
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ov,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return &ParseError{Msg: fmt.Sprintf("building fragment decoder for %s: %v", path, err)}
	}
	if err := dec.Decode(raw); err != nil {
		return &ParseError{Msg: fmt.Sprintf("decoding fragment %s: %v", path, err)}
	}

	if ov.DocRoot != "" {
		root.DocRoot = ov.DocRoot
	}
	if ov.WorkerCount != 0 {
		root.WorkerCount = ov.WorkerCount
	}
	if ov.Security.MaxResponseBodySize != 0 {
		root.Security.MaxResponseBodySize = ov.Security.MaxResponseBodySize
	}
	if ov.Security.MaxConnections != 0 {
		root.Security.MaxConnections = ov.Security.MaxConnections
	}
	return nil
}
