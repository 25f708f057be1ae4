package fshandler

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one row of a generated directory listing.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
	Class   string // "folder", "text", or "file" — original_source/src/autoindex.c's icon classes
}

// textExtensions mirrors autoindex_icons' single "text" class in
// original_source/src/autoindex.c (".txt"/".text" get a distinct icon
// from the generic "file" class).
var textExtensions = map[string]bool{
	"txt":  true,
	"text": true,
}

// classifyEntry assigns an icon/CSS class to a directory entry, per
// SPEC_FULL.md §9's "autoindex icon classification" supplement.
func classifyEntry(name string, isDir bool) string {
	if isDir {
		return "folder"
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if textExtensions[strings.ToLower(ext)] {
		return "text"
	}
	return "file"
}

// readEntries lists dir's contents, skipping "." and ".." always (the
// handler adds its own parent row when the request URI is not the root),
// and sorts directories first then by natModeLess's natural
// name order — fhttpd_autoindex_sort in original_source/src/autoindex.c.
func readEntries(dir string, isRoot bool) ([]Entry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		st, err := os.Lstat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    name,
			IsDir:   st.IsDir(),
			Size:    st.Size(),
			ModTime: st.ModTime(),
			Class:   classifyEntry(name, st.IsDir()),
		})
	}
	_ = isRoot // ".." is never emitted by readEntries; the handler prepends it itself

	sortEntries(entries)
	return entries, nil
}

func sortEntries(e []Entry) {
	// Simple insertion sort: directory listings are small enough that
	// O(n^2) is not a concern, and it keeps natModeLess's comparator the
	// single source of truth without pulling in sort.Slice's closure
	// allocation on the hot path.
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && natModeLess(e[j], e[j-1]); j-- {
			e[j], e[j-1] = e[j-1], e[j]
		}
	}
}

// natModeLess orders directories before files, then within each group by
// natural (digit-run-aware) name order — the Go equivalent of versionsort,
// which fhttpd_autoindex_sort delegates to for same-type entries.
func natModeLess(a, b Entry) bool {
	if a.IsDir != b.IsDir {
		return a.IsDir
	}
	return naturalLess(a.Name, b.Name)
}

// naturalLess compares two names the way versionsort(3) does: runs of
// digits compare numerically, everything else compares byte-wise.
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ai, aEnd := i, i
			for aEnd < len(a) && isDigit(a[aEnd]) {
				aEnd++
			}
			bj, bEnd := j, j
			for bEnd < len(b) && isDigit(b[bEnd]) {
				bEnd++
			}
			an := trimLeadingZeros(a[ai:aEnd])
			bn := trimLeadingZeros(b[bj:bEnd])
			if len(an) != len(bn) {
				return len(an) < len(bn)
			}
			if an != bn {
				return an < bn
			}
			i, j = aEnd, bEnd
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

// formatSize renders n as a human-readable size using powers of 1024,
// matching original_source's format_size helper (B/KB/MB/... suffixes).
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return itoa(n) + "B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	val := float64(n) / float64(div)
	return formatFloat1(val) + string(units[exp]) + "B"
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// formatFloat1 formats a float with exactly one decimal place without
// pulling in strconv.FormatFloat's rounding-mode surface for this one call site.
func formatFloat1(f float64) string {
	whole := int64(f)
	frac := int64((f-float64(whole))*10 + 0.5)
	if frac >= 10 {
		whole++
		frac = 0
	}
	return itoa(whole) + "." + itoa(frac)
}
