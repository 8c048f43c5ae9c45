// Package selection turns an active text range in a parsed document into a
// portable descriptor that can be stored as a highlight.
package selection

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/tini/internal/dom"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/net/html"
)

const (
	// ContextChars bounds context_before and context_after.
	ContextChars = 100
	// DefaultPage is used when no page hint is found on any ancestor.
	DefaultPage = 1

	idSnippetChars = 50
)

// Descriptor is a serializable snapshot of a text selection.
type Descriptor struct {
	SelectedText     string `json:"selected_text"`
	StartContainerID string `json:"start_container_id"`
	EndContainerID   string `json:"end_container_id"`
	StartOffset      int    `json:"start_offset"`
	EndOffset        int    `json:"end_offset"`
	PageNumber       int    `json:"page_number"`
	BoundingRect     *Rect  `json:"bounding_rect,omitempty"`
	ContextBefore    string `json:"context_before,omitempty"`
	ContextAfter     string `json:"context_after,omitempty"`
	ChapterTitle     string `json:"chapter_title,omitempty"`
}

// Extract reads the active range from src. It returns nil when there is no
// range, the range is collapsed, or the selected text is blank.
func Extract(src Source) *Descriptor {
	if src == nil {
		return nil
	}
	r := src.ActiveRange()
	if r == nil || r.StartContainer == nil || r.EndContainer == nil {
		return nil
	}

	top := root(r.StartContainer)
	if root(r.EndContainer) != top {
		return nil
	}
	start, ok := position(top, r.StartContainer, r.StartOffset)
	if !ok {
		return nil
	}
	end, ok := position(top, r.EndContainer, r.EndOffset)
	if !ok {
		return nil
	}

	startNode, startOff := r.StartContainer, r.StartOffset
	endNode, endOff := r.EndContainer, r.EndOffset
	if end < start {
		start, end = end, start
		startNode, endNode = endNode, startNode
		startOff, endOff = endOff, startOff
	}
	if start == end {
		return nil
	}

	runes := []rune(dom.RawText(top))
	text := strings.TrimSpace(string(runes[start:min(end, len(runes))]))
	if text == "" {
		return nil
	}

	startEl := anchor(startNode)
	endEl := anchor(endNode)

	d := &Descriptor{
		SelectedText:     text,
		StartContainerID: ContainerID(startEl),
		EndContainerID:   ContainerID(endEl),
		StartOffset:      startOff,
		EndOffset:        endOff,
		PageNumber:       PageNumber(startEl),
		ContextBefore:    contextBefore(startNode, startOff),
		ContextAfter:     contextAfter(endNode, endOff),
		ChapterTitle:     ChapterTitle(startEl),
	}
	if r.Bounds != nil {
		b := *r.Bounds
		d.BoundingRect = &b
	}
	return d
}

// anchor returns the closest element carrying an id, or the nearest element
// when no ancestor has one.
func anchor(n *html.Node) *html.Node {
	el := dom.Element(n)
	for p := el; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && dom.Attr(p, "id") != "" {
			return p
		}
	}
	return el
}

// ContainerID returns the element's id, or a deterministic identifier built
// from its tag, a slug of its leading text, and a token derived from its
// position in the tree.
func ContainerID(el *html.Node) string {
	if el == nil {
		return ""
	}
	if id := dom.Attr(el, "id"); id != "" {
		return id
	}

	snippet := []rune(dom.RawText(el))
	if len(snippet) > idSnippetChars {
		snippet = snippet[:idSnippetChars]
	}
	token := uuid.NewSHA1(uuid.NameSpaceURL, []byte(treePath(el))).String()[:8]

	parts := []string{el.Data}
	if s := slug.Make(string(snippet)); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, token)
	return strings.Join(parts, "-")
}

// treePath renders the child-index path from the root to n, e.g. "html/body[1]/p[0]".
func treePath(n *html.Node) string {
	var segs []string
	for ; n != nil && n.Parent != nil; n = n.Parent {
		i := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			i++
		}
		segs = append(segs, fmt.Sprintf("%s[%d]", n.Data, i))
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteString(segs[i])
		if i > 0 {
			b.WriteByte('/')
		}
	}
	return b.String()
}

var (
	classPage = regexp.MustCompile(`page-(\d+)`)
	idPage    = regexp.MustCompile(`(?i)page-?(\d+)`)
)

// PageNumber walks outward from el looking for a data-page attribute, then a
// page-N class, then a page-N id. Values below 1 are ignored.
func PageNumber(el *html.Node) int {
	for p := el; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if n, ok := leadingInt(dom.Attr(p, "data-page")); ok && n >= 1 {
			return n
		}
		if m := classPage.FindStringSubmatch(dom.Attr(p, "class")); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
				return n
			}
		}
		if m := idPage.FindStringSubmatch(dom.Attr(p, "id")); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
				return n
			}
		}
	}
	return DefaultPage
}

// leadingInt parses the leading decimal digits of s, ignoring surrounding space.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// ChapterTitle walks outward from el: a heading ancestor wins, then a
// data-chapter attribute, then the last heading nested under the ancestor.
func ChapterTitle(el *html.Node) string {
	for p := el; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if dom.IsHeading(p) {
			if t := dom.TextContent(p); t != "" {
				return t
			}
		}
		if c := strings.TrimSpace(dom.Attr(p, "data-chapter")); c != "" {
			return c
		}
		headings := dom.FindAll(p, func(n *html.Node) bool { return n != p && dom.IsHeading(n) })
		if len(headings) > 0 {
			if t := dom.TextContent(headings[len(headings)-1]); t != "" {
				return t
			}
		}
	}
	return ""
}

func contextBefore(n *html.Node, offset int) string {
	if n == nil || n.Type != html.TextNode {
		return ""
	}
	runes := []rune(n.Data)
	offset = clamp(offset, 0, len(runes))
	return strings.TrimSpace(string(runes[max(0, offset-ContextChars):offset]))
}

func contextAfter(n *html.Node, offset int) string {
	if n == nil || n.Type != html.TextNode {
		return ""
	}
	runes := []rune(n.Data)
	offset = clamp(offset, 0, len(runes))
	return strings.TrimSpace(string(runes[offset:min(len(runes), offset+ContextChars)]))
}

// Text returns the raw text a range covers, or "" if it cannot be resolved.
func Text(r *Range) string {
	if r == nil || r.StartContainer == nil || r.EndContainer == nil {
		return ""
	}
	top := root(r.StartContainer)
	start, ok1 := position(top, r.StartContainer, r.StartOffset)
	end, ok2 := position(top, r.EndContainer, r.EndOffset)
	if !ok1 || !ok2 {
		return ""
	}
	if end < start {
		start, end = end, start
	}
	s := dom.RawText(top)
	if utf8.RuneCountInString(s) < end {
		return ""
	}
	return string([]rune(s)[start:end])
}
