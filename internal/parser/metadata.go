package parser

import (
	"strings"

	"github.com/dgallion1/tini/internal/doctree"
	"github.com/dgallion1/tini/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

// Metadata extracts title and <meta> fields from markup. Plain text yields
// empty metadata; failures are logged and never returned.
func (s *Segmenter) Metadata(raw string) (md doctree.Metadata) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("metadata extraction panicked", "panic", r)
			md = doctree.Metadata{}
		}
	}()

	if !IsMarkup(raw) {
		return md
	}
	doc, err := dom.Parse(raw)
	if err != nil {
		s.log.Warn("metadata extraction failed", "error", err)
		return md
	}

	md.Title = documentTitle(doc)

	for _, meta := range dom.FindAll(doc, func(n *html.Node) bool { return dom.IsElement(n, "meta") }) {
		content := strings.TrimSpace(dom.Attr(meta, "content"))
		if content == "" {
			continue
		}
		name := strings.ToLower(dom.Attr(meta, "name"))
		property := strings.ToLower(dom.Attr(meta, "property"))

		switch {
		case name == "author" || property == "dc:creator":
			md.Author = content
		case name == "publisher" || property == "dc:publisher":
			md.Publisher = content
		case name == "language" || property == "dc:language":
			md.Language = canonicalLanguage(content)
		case name == "description" || property == "dc:description":
			md.Description = content
		}
	}
	return md
}

// canonicalLanguage normalizes a BCP 47 tag ("EN_us" -> "en-US"), keeping
// unparseable values verbatim.
func canonicalLanguage(v string) string {
	tag, err := language.Parse(strings.ReplaceAll(v, "_", "-"))
	if err != nil {
		return v
	}
	return tag.String()
}
