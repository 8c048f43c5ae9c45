// Package upload validates documents before they are parsed or forwarded to
// the backend.
package upload

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/multierr"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Kind is an accepted document kind.
type Kind string

const (
	KindUnknown  Kind = ""
	KindPDF      Kind = "pdf"
	KindEPUB     Kind = "epub"
	KindHTML     Kind = "html"
	KindText     Kind = "txt"
	KindMarkdown Kind = "md"
	KindDOCX     Kind = "docx"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrUnsupported   = errors.New("unsupported file type")
	ErrTooLarge      = errors.New("file too large")
	ErrEmpty         = errors.New("file is empty")
)

var byExtension = map[string]Kind{
	".pdf":      KindPDF,
	".epub":     KindEPUB,
	".html":     KindHTML,
	".htm":      KindHTML,
	".xhtml":    KindHTML,
	".txt":      KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".docx":     KindDOCX,
}

var byMediaType = map[string]Kind{
	"application/pdf":       KindPDF,
	"application/epub+zip":  KindEPUB,
	"text/html":             KindHTML,
	"application/xhtml+xml": KindHTML,
	"text/plain":            KindText,
	"text/markdown":         KindMarkdown,
	"text/x-markdown":       KindMarkdown,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindDOCX,
}

// KindFromMediaType maps a declared Content-Type (parameters allowed).
func KindFromMediaType(contentType string) Kind {
	if contentType == "" {
		return KindUnknown
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return KindUnknown
	}
	return byMediaType[mt]
}

// KindFromExtension maps a filename extension, case-insensitively.
func KindFromExtension(filename string) Kind {
	return byExtension[strings.ToLower(filepath.Ext(filename))]
}

// KindFromContent sniffs magic bytes. Only binary containers can be detected.
func KindFromContent(head []byte) Kind {
	if len(head) == 0 {
		return KindUnknown
	}
	t, err := filetype.Match(head)
	if err != nil || t == filetype.Unknown {
		return KindUnknown
	}
	switch t.Extension {
	case "pdf":
		return KindPDF
	case "epub":
		return KindEPUB
	case "docx":
		return KindDOCX
	}
	return KindUnknown
}

// Detect classifies a file by declared media type, then extension, then
// content. A blank or generic media type falls through to the extension.
func Detect(filename, contentType string, head []byte) Kind {
	if k := KindFromMediaType(contentType); k != KindUnknown {
		return k
	}
	if k := KindFromExtension(filename); k != KindUnknown {
		return k
	}
	return KindFromContent(head)
}

// File describes an upload candidate. Head holds the first bytes of the
// content for sniffing and may be empty.
type File struct {
	Title       string
	Filename    string
	ContentType string
	Size        int64
	Head        []byte
}

// IsValidDocument reports whether the file is of an accepted kind.
func IsValidDocument(f File) bool {
	return Detect(f.Filename, f.ContentType, f.Head) != KindUnknown
}

// Validate checks title, kind and size and returns every failure combined.
// A maxBytes of zero or less uses DefaultMaxBytes.
func Validate(f File, maxBytes int64) (Kind, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	var err error
	if strings.TrimSpace(f.Title) == "" {
		err = multierr.Append(err, ErrTitleRequired)
	}
	kind := Detect(f.Filename, f.ContentType, f.Head)
	if kind == KindUnknown {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrUnsupported, describe(f)))
	}
	switch {
	case f.Size == 0:
		err = multierr.Append(err, ErrEmpty)
	case !ValidateSize(f.Size, maxBytes):
		err = multierr.Append(err, fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, FormatFileSize(f.Size), FormatFileSize(maxBytes)))
	}
	return kind, err
}

func describe(f File) string {
	if f.ContentType != "" {
		return fmt.Sprintf("%s (%s)", f.Filename, f.ContentType)
	}
	return f.Filename
}

// ValidateSize reports whether size is within maxBytes.
func ValidateSize(size, maxBytes int64) bool {
	return size <= maxBytes
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with one decimal in binary units,
// e.g. 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", v, sizeUnits[i])
}
