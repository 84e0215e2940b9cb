package browse

import (
	"mime"
	"path"
	"strings"
)

// DefaultExtensions is the document allow-list applied to file listings.
var DefaultExtensions = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"txt", "csv", "rtf", "odt", "ods", "odp",
	"html", "htm", "xml", "json", "md",
}

// DefaultMimeTypes admits extension-less files whose provider MIME type
// identifies a document.
var DefaultMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/vnd.oasis.opendocument.presentation",
	"application/rtf",
	"application/json",
	"application/xml",
	"text/plain",
	"text/csv",
	"text/rtf",
	"text/html",
	"text/xml",
	"text/markdown",
}

// Filter decides which files are documents. A file with an extension is
// judged by the extension alone; the MIME type only decides for names
// without one.
type Filter struct {
	extensions map[string]bool
	mimeTypes  map[string]bool
}

// NewFilter builds a Filter. Extensions may be given with or without the
// leading dot; matching is case-insensitive.
func NewFilter(extensions, mimeTypes []string) *Filter {
	f := &Filter{
		extensions: make(map[string]bool, len(extensions)),
		mimeTypes:  make(map[string]bool, len(mimeTypes)),
	}

	for _, e := range extensions {
		if e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), ".")); e != "" {
			f.extensions[e] = true
		}
	}

	for _, m := range mimeTypes {
		if m = baseMimeType(m); m != "" {
			f.mimeTypes[m] = true
		}
	}

	return f
}

// DefaultFilter returns the built-in document allow-list.
func DefaultFilter() *Filter {
	return NewFilter(DefaultExtensions, DefaultMimeTypes)
}

// Allowed reports whether a file named name with the given MIME type is a
// document.
func (f *Filter) Allowed(name, mimeType string) bool {
	if ext := extension(name); ext != "" {
		return f.extensions[ext]
	}

	return f.mimeTypes[baseMimeType(mimeType)]
}

// extension returns the lower-cased extension without the dot. Dotfiles
// such as ".env" count as having the extension "env". A suffix holding a
// space or only digits ("Budget v2.1", "Minutes 3.10 draft") is a version
// or date fragment, not an extension.
func extension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" || strings.ContainsRune(ext, ' ') || isDigits(ext) {
		return ""
	}

	return ext
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func baseMimeType(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}

	if mt, _, err := mime.ParseMediaType(m); err == nil {
		return mt
	}

	return strings.ToLower(m)
}
