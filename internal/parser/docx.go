package parser

import (
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/tini/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser renders .docx paragraphs to HTML, keeping heading styles as
// h1-h6, and segments the result on the markup path.
type DOCXParser struct {
	seg *Segmenter
}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Book, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "tini-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var body strings.Builder
	title := ""
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			if title == "" && level == 1 {
				title = text
			}
			fmt.Fprintf(&body, "<h%d>%s</h%d>\n", level, html.EscapeString(text), level)
			continue
		}
		fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(text))
	}

	if title == "" {
		title = trimExt(filename)
	}
	return &doctree.Book{
		Metadata: doctree.Metadata{Title: title},
		Chapters: p.seg.MarkupChapters("<html><body>" + body.String() + "</body></html>"),
	}, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
