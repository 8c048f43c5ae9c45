package parser

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/tini/internal/doctree"
)

const (
	// minSegmentChars is the trimmed length below which a split segment is noise.
	minSegmentChars = 100
	// maxSegments is the exclusive upper bound on a plausible split.
	maxSegments = 50
	// maxTitleChars bounds the first line considered as a chapter title.
	maxTitleChars = 100
)

// TextParser handles plain text files.
type TextParser struct {
	seg *Segmenter
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return &doctree.Book{
		Metadata: doctree.Metadata{Title: trimExt(filename)},
		Chapters: p.seg.TextChapters(string(data)),
	}, nil
}

// splitter cuts plain text into candidate chapter segments.
type splitter interface {
	split(content string) []string
}

// markerSplitter splits before a chapter marker that follows at least one
// blank line. The separator is dropped; the marker starts the next segment.
type markerSplitter struct {
	re *regexp.Regexp // group 1 is the marker
}

func (s markerSplitter) split(content string) []string {
	matches := s.re.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return []string{content}
	}
	segments := make([]string, 0, len(matches)+1)
	start := 0
	for _, m := range matches {
		segments = append(segments, content[start:m[0]])
		start = m[2]
	}
	return append(segments, content[start:])
}

// separatorSplitter splits on the separator itself.
type separatorSplitter struct {
	re *regexp.Regexp
}

func (s separatorSplitter) split(content string) []string {
	return s.re.Split(content, -1)
}

// textSplitters are tried in order of decreasing specificity.
var textSplitters = []splitter{
	markerSplitter{re: regexp.MustCompile(`(?:\n\s*){2,}((?i)chapter\s+\d+)`)},
	markerSplitter{re: regexp.MustCompile(`(?:\n\s*){2,}(CHAPTER\s+\d+)`)},
	markerSplitter{re: regexp.MustCompile(`(?:\n\s*){2,}(\d+\.\s+[A-Z])`)},
	separatorSplitter{re: regexp.MustCompile(`(?:\n\s*){3,}`)},
}

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	headingLine    = regexp.MustCompile(`(?i)^(chapter|\d+\.)`)
)

func textChapters(raw string) []doctree.Chapter {
	content := strings.ReplaceAll(raw, "\r\n", "\n")
	segments := []string{content}

	for _, s := range textSplitters {
		parts := s.split(content)
		if len(parts) > 1 && len(parts) < maxSegments {
			segments = dropNoise(parts)
			break
		}
	}

	chapters := make([]doctree.Chapter, 0, len(segments))
	for i, seg := range segments {
		order := i + 1
		title := titleFromText(seg)
		if title == "" {
			title = doctree.DefaultTitle(order)
		}
		chapters = append(chapters, doctree.NewChapter(order, title, formatTextContent(seg)))
	}
	return chapters
}

// dropNoise discards short segments. If nothing would survive, the
// non-blank segments are kept instead so short documents still split.
func dropNoise(parts []string) []string {
	var kept, nonBlank []string
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t == "" {
			continue
		}
		nonBlank = append(nonBlank, p)
		if len([]rune(t)) >= minSegmentChars {
			kept = append(kept, p)
		}
	}
	if len(kept) > 0 {
		return kept
	}
	if len(nonBlank) > 0 {
		return nonBlank
	}
	return parts[:1]
}

// titleFromText uses the first line when it is short and looks like a heading.
func titleFromText(content string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	first = strings.TrimSpace(first)
	if first == "" || len([]rune(first)) >= maxTitleChars {
		return ""
	}
	if headingLine.MatchString(first) || isUpperCase(first) {
		return first
	}
	return ""
}

func isUpperCase(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

// formatTextContent converts plain text into escaped paragraph markup.
func formatTextContent(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var paragraphs []string
	for _, p := range paragraphBreak.Split(strings.TrimSpace(content), -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		text := strings.ReplaceAll(p, "\n", " ")
		paragraphs = append(paragraphs, fmt.Sprintf(`<p id="para-%d">%s</p>`, len(paragraphs), html.EscapeString(text)))
	}
	return strings.Join(paragraphs, "\n")
}
