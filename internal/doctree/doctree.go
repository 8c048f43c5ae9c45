package doctree

import "fmt"

// Book is the result of segmenting one document.
type Book struct {
	Metadata Metadata  `json:"metadata" yaml:"metadata"`
	Chapters []Chapter `json:"chapters" yaml:"chapters"`
}

// Chapter is one logical section of a document in reading order.
type Chapter struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"` // Always markup; plain text is escaped into <p> elements.
	Order   int    `json:"order" yaml:"order"`     // 1-based, contiguous
}

// Metadata holds best-effort document information. Absent fields stay empty.
type Metadata struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Publisher   string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// NewChapter builds a chapter for the given 1-based position.
func NewChapter(order int, title, content string) Chapter {
	return Chapter{
		ID:      ChapterID(order),
		Title:   title,
		Content: content,
		Order:   order,
	}
}

// ChapterID returns the positional identifier for a chapter.
func ChapterID(order int) string {
	return fmt.Sprintf("chapter-%d", order)
}

// DefaultTitle is the positional title used when none can be inferred.
func DefaultTitle(order int) string {
	return fmt.Sprintf("Chapter %d", order)
}
