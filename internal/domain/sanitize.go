package domain

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

var (
	repeatedSlashes = regexp.MustCompile(`/+`)
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\-/._]`)
)

// Sanitize turns an untrusted declared source path into a relative path that
// cannot climb out of the output root. It never fails; the result may be
// empty when nothing usable survives.
func Sanitize(declared string) m.OutputPath {
	p := webPath(declared)

	p = collapseTraversal(p)
	p = repeatedSlashes.ReplaceAllString(p, "/")
	p = disallowedChars.ReplaceAllString(p, "")

	// Stripping can splice dots and slashes back together.
	p = collapseTraversal(p)
	p = repeatedSlashes.ReplaceAllString(p, "/")
	p = strings.TrimLeft(p, "/")

	return m.OutputPath(p)
}

// ResolveOutputPath joins p under root and reports whether the result is a
// usable file path strictly inside root.
func ResolveOutputPath(root string, p m.OutputPath) (string, bool) {
	if p == "" || strings.HasSuffix(string(p), "/") {
		return "", false
	}

	if base := path.Base(string(p)); base == "." || base == ".." {
		return "", false
	}

	cleanRoot := filepath.Clean(root)
	full := filepath.Join(cleanRoot, filepath.FromSlash(string(p)))

	rel, err := filepath.Rel(cleanRoot, full)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return full, true
}

// webPath keeps only the path of a full http(s) URL so scheme, host and query
// never reach the filesystem.
func webPath(declared string) string {
	u, err := url.Parse(declared)
	if err != nil || u.Host == "" {
		return declared
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Path
	default:
		return declared
	}
}

func collapseTraversal(p string) string {
	for strings.Contains(p, "..") {
		p = strings.ReplaceAll(p, "..", ".")
	}

	return p
}
