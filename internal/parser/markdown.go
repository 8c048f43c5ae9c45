package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/tini/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser renders Markdown to HTML with goldmark and segments the
// result on the markup path, so "#"/"##" headings become chapter boundaries.
type MarkdownParser struct {
	seg *Segmenter
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Book, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	markup := "<html><body>" + buf.String() + "</body></html>"

	book := &doctree.Book{
		Metadata: doctree.Metadata{Title: firstHeading(md, src)},
		Chapters: p.seg.MarkupChapters(markup),
	}
	if book.Metadata.Title == "" {
		book.Metadata.Title = trimExt(filename)
	}
	return book, nil
}

// firstHeading returns the text of the first level-1 heading.
func firstHeading(md goldmark.Markdown, src []byte) string {
	doc := md.Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return string(h.Text(src))
		}
	}
	return ""
}
