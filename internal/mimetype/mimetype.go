// Package mimetype determines a file's true content type from its leading
// bytes and enforces the upload allow/deny policy. Client-declared MIME types
// and file names are advisory only; classification never consults them, so
// double extensions or null-byte tricks in the name cannot bypass it.
package mimetype

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrUnsupportedType means the detected type is outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTypeMismatch means declared and detected types diverge beyond the
	// tolerated category pairs (e.g. declared image, detected executable).
	ErrTypeMismatch = errors.New("declared and detected content types do not match")
)

// Category groups MIME types for policy decisions.
type Category string

const (
	CategoryDocument    Category = "document"
	CategorySpreadsheet Category = "spreadsheet"
	CategoryImage       Category = "image"
	CategoryText        Category = "text"
	CategoryArchive     Category = "archive"
	CategoryExecutable  Category = "executable"
	CategoryUnknown     Category = "unknown"
)

// SniffLen is how many leading bytes Detect needs at most.
const SniffLen = 512

type signature struct {
	prefix []byte
	mime   string
}

// Content signatures checked before falling back to http.DetectContentType.
// Executable formats come first: they must never be misread as anything else.
var signatures = []signature{
	{[]byte{0x7F, 'E', 'L', 'F'}, "application/x-executable"},
	{[]byte{'M', 'Z'}, "application/vnd.microsoft.portable-executable"},
	{[]byte{0xFE, 0xED, 0xFA, 0xCE}, "application/x-mach-binary"},
	{[]byte{0xFE, 0xED, 0xFA, 0xCF}, "application/x-mach-binary"},
	{[]byte{0xCF, 0xFA, 0xED, 0xFE}, "application/x-mach-binary"},
	{[]byte{0xCA, 0xFE, 0xBA, 0xBE}, "application/x-mach-binary"},
	{[]byte("#!"), "text/x-script"},
	{[]byte("%PDF-"), "application/pdf"},
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte{'P', 'K', 0x03, 0x04}, "application/zip"},
	{[]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, "application/x-ole-storage"},
	{[]byte{0x1F, 0x8B}, "application/gzip"},
}

// Detect classifies content by its leading bytes. Pass at most SniffLen bytes;
// shorter (including empty) input is fine. Unknown binary content comes back
// as application/octet-stream.
func Detect(prefix []byte) string {
	if len(prefix) == 0 {
		return "text/plain"
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(prefix, sig.prefix) {
			return sig.mime
		}
	}
	ct := http.DetectContentType(prefix)
	// Strip parameters such as "; charset=utf-8".
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// CategoryOf maps a MIME type to its policy category.
func CategoryOf(mime string) Category {
	switch mime {
	case "application/pdf",
		"application/msword",
		"application/x-ole-storage",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return CategoryDocument
	case "application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return CategorySpreadsheet
	case "text/plain", "text/csv", "text/html", "text/xml":
		return CategoryText
	case "application/zip", "application/gzip", "application/x-tar":
		return CategoryArchive
	case "application/x-executable",
		"application/vnd.microsoft.portable-executable",
		"application/x-mach-binary",
		"text/x-script":
		return CategoryExecutable
	}
	switch {
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case strings.HasPrefix(mime, "text/"):
		return CategoryText
	}
	return CategoryUnknown
}

// Policy is the allow/deny decision table consulted on every upload.
type Policy struct {
	allowed map[Category]bool
}

// DefaultPolicy allows documents, spreadsheets, images, plain text and common
// archives. Executables are never allowed regardless of this list.
func DefaultPolicy() *Policy {
	return NewPolicy(CategoryDocument, CategorySpreadsheet, CategoryImage, CategoryText, CategoryArchive)
}

// NewPolicy builds a policy allowing exactly the given categories.
func NewPolicy(allow ...Category) *Policy {
	m := make(map[Category]bool, len(allow))
	for _, c := range allow {
		m[c] = true
	}
	return &Policy{allowed: m}
}

// Check validates the detected type against the allow-list and against the
// client-declared type. Detection always wins: an executable is rejected with
// ErrTypeMismatch when anything else was declared, before allow-list checks,
// because a spoofed declaration is a stronger signal than a bad extension.
func (p *Policy) Check(detected, declared string) error {
	detCat := CategoryOf(detected)

	if detCat == CategoryExecutable {
		if declared != "" && CategoryOf(declared) != CategoryExecutable {
			return ErrTypeMismatch
		}
		return ErrUnsupportedType
	}

	if !p.allowed[detCat] {
		return ErrUnsupportedType
	}

	if declared != "" && !compatible(CategoryOf(declared), detCat) {
		return ErrTypeMismatch
	}
	return nil
}

// compatible reports whether a declared category is an acceptable claim for
// the detected one. Office formats are containers, so declaring docx/xlsx for
// content detected as zip or OLE storage is tolerated.
func compatible(declared, detected Category) bool {
	if declared == detected {
		return true
	}
	switch declared {
	case CategoryDocument, CategorySpreadsheet:
		return detected == CategoryArchive || detected == CategoryDocument
	case CategoryUnknown:
		// application/octet-stream and friends carry no real claim.
		return true
	case CategoryText:
		// CSV and friends are routinely declared text but sniff as unknown.
		return detected == CategoryText
	}
	return false
}
