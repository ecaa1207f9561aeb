package storage

import (
	"path"
	"strings"
)

// CleanPath normalizes a document path to the slash-separated, relative form
// every backend uses as its key. Empty paths and paths escaping the store
// root are rejected.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "", NewValidationError("empty document path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", NewValidationError("document path %q escapes the store root", p)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return "", NewValidationError("document path %q names the store root", p)
	}
	return cleaned, nil
}

// JoinPath joins a directory prefix and a file name into a document path.
func JoinPath(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
