package fshandler

// parentRow is the static "parent directory" row, shared across
// responses: original_source/src/autoindex.c hard-codes this exact HTML
// fragment as a process-global constant; spec.md §9's open question
// permits either sharing or per-response copying so long as the bytes
// match, and sharing a read-only package-level constant is the simplest
// choice available in Go.
const parentRow = `<tr><td><img src="/icons/folder.png" alt="[DIR]" /></td><td colspan="3">` +
	`<a href="../">Parent Directory</a></td></tr>` + "\n"

func renderHead(uriPath string) []byte {
	return []byte(`<!DOCTYPE html>
<html>
<head><title>Index of ` + uriPath + `</title></head>
<body>
<h1>Index of ` + uriPath + `</h1>
<hr>
<table>
`)
}

func renderRow(e Entry) []byte {
	href := e.Name
	alt := "[FILE]"
	size := formatSize(e.Size)
	if e.IsDir {
		href += "/"
		alt = "[DIR]"
		size = "-"
	}
	name := e.Name
	if e.IsDir {
		name += "/"
	}
	mtime := e.ModTime.Local().Format("2006-01-02 15:04:05")
	return []byte(`<tr><td><img src="/icons/` + e.Class + `.png" alt="` + alt + `" /></td><td>` +
		`<a href="` + href + `">` + name + `</a></td><td>` + size + `</td><td>` + mtime + `</td></tr>` + "\n")
}

func renderTail(serverAddr string) []byte {
	return []byte(`</table>
<hr>
<address>freehttpd server at ` + serverAddr + `</address>
</body>
</html>
`)
}
