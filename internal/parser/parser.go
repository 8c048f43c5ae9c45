package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/tini/internal/doctree"
)

// FallbackTitle names the single chapter produced when segmentation gives up.
const FallbackTitle = "Document"

// ErrUnsupported is returned by ForFile for kinds that are not segmented locally.
var ErrUnsupported = errors.New("unsupported document kind")

// Parser converts raw document bytes into chapters and metadata.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Book, error)
}

// SupportedExtensions lists file extensions this package can segment.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".xhtml":    true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, log *slog.Logger) (Parser, error) {
	seg := NewSegmenter(log)
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{seg: seg}, nil
	case ".md", ".markdown":
		return &MarkdownParser{seg: seg}, nil
	case ".html", ".htm", ".xhtml":
		return &HTMLParser{seg: seg}, nil
	case ".pdf":
		return &PDFParser{seg: seg, FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXParser{seg: seg}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension can be segmented.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Segmenter splits raw document content into chapters. It never fails:
// anything that goes wrong is logged and degrades to a single chapter.
type Segmenter struct {
	log *slog.Logger
}

// NewSegmenter creates a segmenter. A nil logger uses slog.Default().
func NewSegmenter(log *slog.Logger) *Segmenter {
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{log: log}
}

var defaultSegmenter = NewSegmenter(nil)

// ParseChapters segments raw content with the default segmenter.
func ParseChapters(raw string) []doctree.Chapter {
	return defaultSegmenter.Chapters(raw)
}

// ParseMetadata extracts metadata with the default segmenter.
func ParseMetadata(raw string) doctree.Metadata {
	return defaultSegmenter.Metadata(raw)
}

// IsMarkup reports whether raw looks like an HTML document rather than plain text.
func IsMarkup(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<!doctype")
}

// Book segments raw content and extracts its metadata.
func (s *Segmenter) Book(raw string) *doctree.Book {
	return &doctree.Book{
		Metadata: s.Metadata(raw),
		Chapters: s.Chapters(raw),
	}
}

// Chapters classifies raw content and splits it into ordered chapters.
func (s *Segmenter) Chapters(raw string) []doctree.Chapter {
	if IsMarkup(raw) {
		return s.MarkupChapters(raw)
	}
	return s.TextChapters(raw)
}

// MarkupChapters runs the markup strategies regardless of classification.
func (s *Segmenter) MarkupChapters(raw string) (chapters []doctree.Chapter) {
	defer s.recoverInto(raw, &chapters)
	if strings.TrimSpace(raw) == "" {
		return fallbackChapters(raw)
	}
	chapters, err := markupChapters(raw)
	if err != nil {
		s.log.Warn("markup segmentation failed, using single chapter", "error", err)
		return fallbackChapters(raw)
	}
	return chapters
}

// TextChapters runs the plain-text splitters regardless of classification.
func (s *Segmenter) TextChapters(raw string) (chapters []doctree.Chapter) {
	defer s.recoverInto(raw, &chapters)
	if strings.TrimSpace(raw) == "" {
		return fallbackChapters(raw)
	}
	return textChapters(raw)
}

func (s *Segmenter) recoverInto(raw string, out *[]doctree.Chapter) {
	if r := recover(); r != nil {
		s.log.Error("chapter segmentation panicked", "panic", r)
		*out = fallbackChapters(raw)
		return
	}
	if len(*out) == 0 {
		*out = fallbackChapters(raw)
	}
}

func fallbackChapters(raw string) []doctree.Chapter {
	return []doctree.Chapter{doctree.NewChapter(1, FallbackTitle, formatTextContent(raw))}
}

func trimExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
