package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/tini/internal/doctree"
	"github.com/dgallion1/tini/internal/dom"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML and XHTML files.
type HTMLParser struct {
	seg *Segmenter
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	raw := string(data)
	// Fragments are still markup here even without an <html> wrapper.
	if !IsMarkup(raw) {
		raw = "<html><body>" + raw + "</body></html>"
	}

	book := &doctree.Book{
		Metadata: p.seg.Metadata(raw),
		Chapters: p.seg.MarkupChapters(raw),
	}
	if book.Metadata.Title == "" {
		book.Metadata.Title = trimExt(filename)
	}
	return book, nil
}

// markupStrategy finds candidate chapter elements. Each returned node's
// children become one chapter's content.
type markupStrategy interface {
	units(root *html.Node) []*html.Node
}

// elementStrategy matches outermost elements satisfying match.
type elementStrategy struct {
	match func(*html.Node) bool
}

func (s elementStrategy) units(root *html.Node) []*html.Node {
	return dom.FindOutermost(root, s.match)
}

// headingStrategy groups each h1/h2 with the siblings that follow it.
type headingStrategy struct{}

func (headingStrategy) units(root *html.Node) []*html.Node {
	headings := dom.FindAll(root, func(n *html.Node) bool { return dom.IsElement(n, "h1", "h2") })
	if len(headings) < 2 {
		return nil
	}

	units := make([]*html.Node, 0, len(headings))
	for i, h := range headings {
		var next *html.Node
		if i+1 < len(headings) {
			next = headings[i+1]
		}

		div := &html.Node{Type: html.ElementNode, Data: "div"}
		div.AppendChild(dom.Clone(h))
		for sib := h.NextSibling; sib != nil && sib != next; sib = sib.NextSibling {
			if next != nil && dom.Contains(sib, next) {
				break
			}
			div.AppendChild(dom.Clone(sib))
		}
		units = append(units, div)
	}
	return units
}

// markupStrategies are tried in priority order; the first yielding more
// than one unit wins.
var markupStrategies = []markupStrategy{
	elementStrategy{match: isChapterContainer},
	elementStrategy{match: func(n *html.Node) bool { return dom.IsElement(n, "article") }},
	elementStrategy{match: func(n *html.Node) bool { return dom.IsElement(n, "section") }},
	elementStrategy{match: isChapterDiv},
	headingStrategy{},
}

func isChapterContainer(n *html.Node) bool {
	if !dom.IsElement(n, "section", "div") {
		return false
	}
	return strings.Contains(strings.ToLower(dom.Attr(n, "class")), "chapter") ||
		strings.Contains(strings.ToLower(dom.Attr(n, "id")), "chapter")
}

// chapterID matches EPUB-style ids such as "ch01", "ch_2" or "chap-3".
var chapterID = regexp.MustCompile(`(?i)^ch(ap(ter)?)?[-_]?\d`)

func isChapterDiv(n *html.Node) bool {
	return dom.IsElement(n, "div") && chapterID.MatchString(dom.Attr(n, "id"))
}

func markupChapters(raw string) ([]doctree.Chapter, error) {
	doc, err := dom.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	root := dom.Body(doc)
	if root == nil {
		root = doc
	}

	for _, strategy := range markupStrategies {
		units := strategy.units(root)
		if len(units) <= 1 {
			continue
		}
		chapters := make([]doctree.Chapter, 0, len(units))
		for i, u := range units {
			order := i + 1
			title := unitTitle(u)
			if title == "" {
				title = doctree.DefaultTitle(order)
			}
			chapters = append(chapters, doctree.NewChapter(order, title, dom.InnerHTML(u)))
		}
		return chapters, nil
	}

	title := documentTitle(doc)
	if title == "" {
		title = FallbackTitle
	}
	content := raw
	if body := dom.Body(doc); body != nil {
		content = dom.InnerHTML(body)
	}
	return []doctree.Chapter{doctree.NewChapter(1, title, content)}, nil
}

// unitTitle returns the text of the first h1/h2/h3 or .title/.chapter-title descendant.
func unitTitle(unit *html.Node) string {
	for c := unit.FirstChild; c != nil; c = c.NextSibling {
		n := dom.FindFirst(c, func(n *html.Node) bool {
			return dom.IsElement(n, "h1", "h2", "h3") ||
				dom.HasClass(n, "title") || dom.HasClass(n, "chapter-title")
		})
		if n != nil {
			return dom.TextContent(n)
		}
	}
	return ""
}

// documentTitle returns the first non-empty <title> or <h1> text.
func documentTitle(doc *html.Node) string {
	n := dom.FindFirst(doc, func(n *html.Node) bool {
		return dom.IsElement(n, "title", "h1") && dom.TextContent(n) != ""
	})
	if n == nil {
		return ""
	}
	return dom.TextContent(n)
}
