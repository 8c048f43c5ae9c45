package selection

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Rect is the on-screen box of a selection, used for visual anchoring.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Range is a pair of boundary points in a parsed document. For a text node
// the offset counts runes into its data; for an element it counts children.
type Range struct {
	StartContainer *html.Node
	StartOffset    int
	EndContainer   *html.Node
	EndOffset      int
	Bounds         *Rect
}

// Source supplies the currently active range, or nil when nothing is selected.
type Source interface {
	ActiveRange() *Range
}

// StaticSource always reports the same range.
type StaticSource struct {
	Range *Range
}

func (s StaticSource) ActiveRange() *Range { return s.Range }

// SourceFunc adapts a function to Source.
type SourceFunc func() *Range

func (f SourceFunc) ActiveRange() *Range { return f() }

// root returns the topmost ancestor of n.
func root(n *html.Node) *html.Node {
	for n != nil && n.Parent != nil {
		n = n.Parent
	}
	return n
}

// position maps a boundary point to a rune index into the concatenated text
// of top. It reports false if container is not under top.
func position(top, container *html.Node, offset int) (int, bool) {
	pos := 0
	found := -1
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode {
			size := utf8.RuneCountInString(n.Data)
			if n == container {
				found = pos + clamp(offset, 0, size)
				return true
			}
			pos += size
			return false
		}
		i := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if n == container && i == offset {
				found = pos
				return true
			}
			if walk(c) {
				return true
			}
			i++
		}
		if n == container {
			found = pos
			return true
		}
		return false
	}
	if top == nil || container == nil || !walk(top) {
		return 0, false
	}
	return found, true
}

// textNodes lists every text node under n in document order.
func textNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// FindText returns a range covering the nth (0-based) occurrence of text in
// the document text under top, anchored on text nodes. The range may cross
// node boundaries. It returns nil when there is no such occurrence.
func FindText(top *html.Node, text string, occurrence int) *Range {
	if top == nil || text == "" || occurrence < 0 {
		return nil
	}
	nodes := textNodes(top)
	var all strings.Builder
	for _, n := range nodes {
		all.WriteString(n.Data)
	}
	haystack := all.String()

	idx := -1
	from := 0
	for i := 0; i <= occurrence; i++ {
		j := strings.Index(haystack[from:], text)
		if j < 0 {
			return nil
		}
		idx = from + j
		from = idx + len(text)
	}

	start := utf8.RuneCountInString(haystack[:idx])
	end := start + utf8.RuneCountInString(text)

	r := &Range{}
	pos := 0
	for _, n := range nodes {
		size := utf8.RuneCountInString(n.Data)
		if r.StartContainer == nil && start < pos+size {
			r.StartContainer, r.StartOffset = n, start-pos
		}
		if r.StartContainer != nil && end > pos && end <= pos+size {
			r.EndContainer, r.EndOffset = n, end-pos
			break
		}
		pos += size
	}
	if r.StartContainer == nil || r.EndContainer == nil {
		return nil
	}
	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
