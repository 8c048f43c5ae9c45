// Package highlight overlays stored highlights onto rendered chapter markup.
package highlight

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Record is a stored highlight. Only ID, Color and SelectedText drive
// reapplication; unknown fields survive a JSON round trip in Extra.
type Record struct {
	ID           string `json:"id"`
	Color        string `json:"color"`
	SelectedText string `json:"selected_text"`
	PageNumber   int    `json:"page_number,omitempty"`
	IsFavorite   bool   `json:"is_favorite,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type recordFields Record

var knownFields = map[string]bool{
	"id": true, "color": true, "selected_text": true, "page_number": true, "is_favorite": true,
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var f recordFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Record(f)

	parsed := gjson.ParseBytes(data)
	parsed.ForEach(func(key, value gjson.Result) bool {
		if knownFields[key.String()] {
			return true
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[key.String()] = json.RawMessage(value.Raw)
		return true
	})
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(recordFields(r))
	if err != nil || len(r.Extra) == 0 {
		return base, err
	}
	out := make(map[string]json.RawMessage, len(r.Extra)+len(knownFields))
	for k, v := range r.Extra {
		out[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// Open returns the opening marker tag for a highlight.
func Open(id, color string) string {
	return fmt.Sprintf(`<mark class="highlight" style="background-color: %s;" data-highlight-id="%s">`,
		html.EscapeString(color), html.EscapeString(id))
}

// Close is the closing marker tag.
const Close = "</mark>"

// Apply wraps every case-insensitive occurrence of each highlight's text in a
// marker. Longer texts are applied first; later, shorter texts may nest inside
// earlier markers. Matching only looks at text between tags, so attribute
// values and tag names are never rewritten. Highlights whose text does not
// occur are skipped.
func Apply(content string, highlights []Record) string {
	out, _ := ApplyMatched(content, highlights)
	return out
}

// ApplyMatched is Apply that also reports the IDs of the highlights that
// wrapped at least one occurrence, in application order.
func ApplyMatched(content string, highlights []Record) (string, []string) {
	sorted := slices.Clone(highlights)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return utf8.RuneCountInString(b.SelectedText) - utf8.RuneCountInString(a.SelectedText)
	})

	out := content
	var matched []string
	for _, h := range sorted {
		if h.SelectedText == "" {
			continue
		}
		var n int
		out, n = wrapAll(out, matcher(h.SelectedText), Open(h.ID, h.Color))
		if n > 0 {
			matched = append(matched, h.ID)
		}
	}
	return out, matched
}

// matcher matches text against decoded text runs. A space also matches a
// no-break space, which is how &nbsp; decodes.
func matcher(text string) *regexp.Regexp {
	pattern := strings.ReplaceAll(regexp.QuoteMeta(text), " ", `[ \x{00A0}]`)
	return regexp.MustCompile("(?i)" + pattern)
}

func wrapAll(content string, re *regexp.Regexp, open string) (string, int) {
	var b strings.Builder
	b.Grow(len(content))
	n := 0
	for _, seg := range segments(content) {
		if seg.tag {
			b.WriteString(seg.s)
			continue
		}
		n += wrapRun(&b, seg.s, re, open)
	}
	return b.String(), n
}

// wrapRun matches against the entity-decoded form of a text run and writes
// the run with markers around the source bytes of every match.
func wrapRun(b *strings.Builder, run string, re *regexp.Regexp, open string) int {
	dec := decodeRun(run)
	locs := re.FindAllStringIndex(dec.text, -1)
	last := 0
	for _, loc := range locs {
		from, to := dec.start[loc[0]], dec.end[loc[1]-1]
		b.WriteString(run[last:from])
		b.WriteString(open)
		b.WriteString(run[from:to])
		b.WriteString(Close)
		last = to
	}
	b.WriteString(run[last:])
	return len(locs)
}

// decoded is a text run with character references resolved. For every byte
// of text, start and end give the source span of the character it came from.
type decoded struct {
	text       string
	start, end []int
}

func decodeRun(run string) decoded {
	var d decoded
	var b strings.Builder
	for i := 0; i < len(run); {
		unit, size := run[i:i+1], 1
		if run[i] == '&' {
			if semi := strings.IndexByte(run[i:], ';'); semi > 1 && semi <= maxEntityLen && isRefName(run[i+1:i+semi]) {
				if u := html.UnescapeString(run[i : i+semi+1]); u != run[i:i+semi+1] {
					unit, size = u, semi+1
				}
			}
		}
		b.WriteString(unit)
		for range len(unit) {
			d.start = append(d.start, i)
			d.end = append(d.end, i+size)
		}
		i += size
	}
	d.text = b.String()
	return d
}

func isRefName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '#') {
			return false
		}
	}
	return true
}

// maxEntityLen bounds the distance from '&' to ';' of a character reference.
const maxEntityLen = 32

type segment struct {
	s   string
	tag bool
}

// segments splits markup into alternating text runs and tags. A "<" that
// does not start a tag stays in the text run.
func segments(s string) []segment {
	var out []segment
	text := 0
	i := 0
	for i < len(s) {
		if s[i] != '<' || !startsTag(s[i+1:]) {
			i++
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			break
		}
		if text < i {
			out = append(out, segment{s: s[text:i]})
		}
		out = append(out, segment{s: s[i : i+end+1], tag: true})
		i += end + 1
		text = i
	}
	if text < len(s) {
		out = append(out, segment{s: s[text:]})
	}
	return out
}

func startsTag(rest string) bool {
	if rest == "" {
		return false
	}
	c := rest[0]
	return c == '/' || c == '!' || c == '?' || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

var markOpen = regexp.MustCompile(`^<mark\b[^>]*>$`)

// Strip removes highlight markers produced by Apply, leaving other markup
// (including unrelated <mark> elements) untouched.
func Strip(content string) string {
	var b strings.Builder
	var stack []bool
	for _, seg := range segments(content) {
		if !seg.tag {
			b.WriteString(seg.s)
			continue
		}
		lower := strings.ToLower(seg.s)
		switch {
		case markOpen.MatchString(lower):
			isHighlight := strings.Contains(lower, `class="highlight"`)
			stack = append(stack, isHighlight)
			if isHighlight {
				continue
			}
		case lower == Close:
			if n := len(stack); n > 0 {
				drop := stack[n-1]
				stack = stack[:n-1]
				if drop {
					continue
				}
			}
		}
		b.WriteString(seg.s)
	}
	return b.String()
}
