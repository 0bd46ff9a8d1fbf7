package http

import (
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// resolveStatic maps a request path onto a path relative to root. ok is false
// when the result would leave root. Symlinks are checked when the file is
// opened through an os.Root.
func resolveStatic(root, requestPath string) (string, bool) {
	// Cleaning a rooted path drops every leading "..".
	cleaned := path.Clean("/" + requestPath)
	full := filepath.Join(root, filepath.FromSlash(cleaned))

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// contentType prefers the extension of name and falls back to sniffing f,
// which itself ends at text/plain or application/octet-stream. f is rewound.
func contentType(name string, f io.ReadSeeker) string {
	if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
		return ctype
	}
	mt, err := mimetype.DetectReader(f)
	if _, seekErr := f.Seek(0, io.SeekStart); err != nil || seekErr != nil {
		return "application/octet-stream"
	}
	return mt.String()
}
