package fshandler

import "strings"

// PathMax bounds the joined docroot+URI buffer, mirroring PATH_MAX in
// original_source/src/router/filesystem.c.
const PathMax = 4096

// Normalize collapses "//" runs and resolves "." and ".." segments in an
// absolute path, the same textual algorithm as
// original_source/src/utils/path.c's path_normalize, applied to the
// request's own path component rather than to docroot+path the way the C
// original does it. Running it against the request path alone — which is
// always rooted at "/" — guarantees a ".." can never climb above that
// root, so spec.md §4.8's containment property holds regardless of what
// docroot is joined on afterward (spec.md §8 invariant 4: no sequence of
// "." / ".." / "//" escapes the root).
//
// p need not be syntactically absolute; a leading "/" is assumed.
func Normalize(p string) string {
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))

	for _, seg := range segs {
		switch seg {
		case "", ".":
			// skip: repeated separators and the current-dir segment
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}

	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

// Resolve joins docroot with a request URI path, normalizing the URI in
// isolation first (so "." / ".." can never reach above docroot) and
// returns the full filesystem path plus whether it fits within PathMax,
// per spec.md §4.8 steps 1-2.
func Resolve(docroot, uriPath string) (full string, ok bool) {
	normalized := Normalize(uriPath)
	full = docroot + normalized
	return full, len(full) <= PathMax
}
