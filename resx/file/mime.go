package file

import (
	"path/filepath"
	"strings"
)

// mimeTable maps a single filename suffix to its MIME type. Unlisted suffixes
// still produce a content type chain per deriveMIME's fallback rule.
var mimeTable = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"xml":  "application/xml",
	"csv":  "text/csv",
	"md":   "text/markdown",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"zip":  "application/zip",
	"bin":  "application/octet-stream",
}

// deriveMIME implements §6's "MIME derivation": split the basename on '.'
// with leading dots ignored; no suffix yields application/octet-stream; one
// suffix yields a single-element list via the MIME table (falling back to
// octet-stream for unknown suffixes); multiple
// suffixes yield a list of types, outermost-first (i.e. rightmost suffix
// first, since it is the final encoding applied).
func deriveMIME(path string) []string {
	base := filepath.Base(path)
	base = strings.TrimLeft(base, ".")
	if base == "" {
		return []string{"application/octet-stream"}
	}
	parts := strings.Split(base, ".")
	suffixes := parts[1:]
	if len(suffixes) == 0 {
		return []string{"application/octet-stream"}
	}

	types := make([]string, len(suffixes))
	for i, suffix := range suffixes {
		t, ok := mimeTable[strings.ToLower(suffix)]
		if !ok {
			t = "application/octet-stream"
		}
		types[i] = t
	}

	// outermost first: the last-applied (rightmost) suffix describes the
	// outermost encoding, so reverse the left-to-right split order.
	out := make([]string, len(types))
	for i, t := range types {
		out[len(types)-1-i] = t
	}
	return out
}
