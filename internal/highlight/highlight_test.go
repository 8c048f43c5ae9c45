package highlight

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/dgallion1/tini/internal/parser"
)

func TestApply_WrapsEveryOccurrence(t *testing.T) {
	h := Record{ID: "h1", Color: "#ffff00", SelectedText: "hello"}
	got := Apply("hello world hello", []Record{h})

	open := Open("h1", "#ffff00")
	want := open + "hello" + Close + " world " + open + "hello" + Close
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if open != `<mark class="highlight" style="background-color: #ffff00;" data-highlight-id="h1">` {
		t.Errorf("unexpected marker %q", open)
	}
}

func TestApply_CaseInsensitiveKeepsOriginalCase(t *testing.T) {
	got := Apply("Hello and HELLO", []Record{{ID: "x", Color: "red", SelectedText: "hello"}})
	if strings.Count(got, "<mark") != 2 {
		t.Fatalf("expected 2 markers, got %q", got)
	}
	if !strings.Contains(got, ">Hello</mark>") || !strings.Contains(got, ">HELLO</mark>") {
		t.Errorf("expected original casing preserved, got %q", got)
	}
}

func TestApply_LongestFirst(t *testing.T) {
	short := Record{ID: "s", Color: "blue", SelectedText: "world"}
	long := Record{ID: "l", Color: "green", SelectedText: "hello world"}
	highlights := []Record{short, long}
	got := Apply("say hello world", highlights)

	want := "say " + Open("l", "green") + "hello " + Open("s", "blue") + "world" + Close + Close
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if highlights[0].ID != "s" {
		t.Error("Apply reordered the caller's slice")
	}
}

func TestApply_LeavesTagsAlone(t *testing.T) {
	content := `<p class="hello" title="hello">hello</p>`
	got := Apply(content, []Record{{ID: "h", Color: "y", SelectedText: "hello"}})
	want := `<p class="hello" title="hello">` + Open("h", "y") + "hello" + Close + `</p>`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestApply_SkipsMissingAndEmpty(t *testing.T) {
	content := "<p>nothing to see</p>"
	got := Apply(content, []Record{{ID: "a", Color: "y", SelectedText: "absent"}, {ID: "b", Color: "y"}})
	if got != content {
		t.Errorf("expected content unchanged, got %q", got)
	}
}

func TestApply_MatchesEscapedText(t *testing.T) {
	got := Apply("<p>Tom &amp; Jerry</p>", []Record{{ID: "t", Color: "y", SelectedText: "Tom & Jerry"}})
	want := "<p>" + Open("t", "y") + "Tom &amp; Jerry" + Close + "</p>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestApply_MatchesQuoteReferences(t *testing.T) {
	for _, content := range []string{
		"<p>don&#39;t &#34;go&#34;</p>",
		"<p>don&#x27;t &quot;go&quot;</p>",
		"<p>don&apos;t \"go\"</p>",
	} {
		got := Apply(content, []Record{{ID: "q", Color: "y", SelectedText: `don't "go"`}})
		if strings.Count(got, "<mark") != 1 {
			t.Errorf("expected 1 marker in %q, got %q", content, got)
		}
		if Strip(got) != content {
			t.Errorf("expected Strip to restore %q, got %q", content, Strip(got))
		}
	}
}

func TestApply_SpaceMatchesNoBreakSpace(t *testing.T) {
	got := Apply("<p>New&nbsp;York</p>", []Record{{ID: "n", Color: "y", SelectedText: "new york"}})
	want := "<p>" + Open("n", "y") + "New&nbsp;York" + Close + "</p>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestApply_SegmentedChapterContent(t *testing.T) {
	highlights := []Record{
		{ID: "a", Color: "y", SelectedText: "don't matter"},
		{ID: "b", Color: "y", SelectedText: `"said"`},
	}

	text := parser.ParseChapters("It don't matter what they \"said\" today.")[0].Content
	got := Apply(text, highlights)
	if n := strings.Count(got, "<mark"); n != 2 {
		t.Fatalf("expected 2 marks in %q, got %d", got, n)
	}
	if Strip(got) != text {
		t.Errorf("expected Strip to restore %q, got %q", text, Strip(got))
	}

	markup := parser.ParseChapters("<html><body><p>It don't matter</p></body></html>")[0].Content
	if got := Apply(markup, highlights); strings.Count(got, "<mark") != 1 {
		t.Errorf("expected 1 mark in %q, got %q", markup, got)
	}
}

func TestApplyMatched_ReportsMatchedIDs(t *testing.T) {
	_, ids := ApplyMatched("<p>hello world</p>", []Record{
		{ID: "missing", SelectedText: "absent"},
		{ID: "w", SelectedText: "world"},
		{ID: "empty"},
	})
	if !slices.Equal(ids, []string{"w"}) {
		t.Errorf("expected [w], got %v", ids)
	}
}

func TestApply_EscapesAttributes(t *testing.T) {
	got := Open(`a"b`, `red" onclick="x`)
	if strings.Contains(got, `onclick="x"`) {
		t.Errorf("attribute injection not escaped: %q", got)
	}
}

func TestApply_StripRestoresContent(t *testing.T) {
	cases := []struct {
		content    string
		highlights []Record
	}{
		{"hello world hello", []Record{{ID: "h1", Color: "#ffff00", SelectedText: "hello"}}},
		{"<p>a b c</p><p>b c d</p>", []Record{{ID: "1", SelectedText: "b c"}, {ID: "2", SelectedText: "c"}}},
		{"<p><mark>keep</mark> keep me</p>", []Record{{ID: "k", SelectedText: "keep"}}},
		{"x < y and y > z", []Record{{ID: "y", SelectedText: "y"}}},
	}
	for _, c := range cases {
		applied := Apply(c.content, c.highlights)
		if got := Strip(applied); got != c.content {
			t.Errorf("Strip(Apply(%q)): expected original, got %q (applied %q)", c.content, got, applied)
		}
	}
}

func TestRecord_JSONKeepsExtraFields(t *testing.T) {
	in := `{"id":"h1","color":"#90ee90","selected_text":"hi","page_number":4,"is_favorite":true,"user_note":"remember","x_coordinate":1.5}`
	var r Record
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.ID != "h1" || r.PageNumber != 4 || !r.IsFavorite {
		t.Errorf("unexpected record %+v", r)
	}
	if string(r.Extra["user_note"]) != `"remember"` {
		t.Errorf("expected user_note in extras, got %v", r.Extra)
	}
	if _, ok := r.Extra["id"]; ok {
		t.Error("known field leaked into extras")
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"user_note":"remember"`, `"x_coordinate":1.5`, `"selected_text":"hi"`} {
		if !strings.Contains(string(out), key) {
			t.Errorf("expected %s in %s", key, out)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Record{
		{Color: "#ffff00", PageNumber: 1, IsFavorite: true},
		{Color: "#ffff00", PageNumber: 2},
		{Color: "#90ee90", PageNumber: 2},
		{Color: "#90ee90"},
	})
	if s.Total != 4 || s.Favorites != 1 {
		t.Errorf("expected total 4 / favorites 1, got %d / %d", s.Total, s.Favorites)
	}
	if s.ByColor["#ffff00"] != 2 || s.ByColor["#90ee90"] != 2 {
		t.Errorf("unexpected by_color %v", s.ByColor)
	}
	if s.ByPage[2] != 2 || len(s.ByPage) != 2 {
		t.Errorf("unexpected by_page %v", s.ByPage)
	}
}

func TestColorValue(t *testing.T) {
	if got := ColorValue("green"); got != "#90ee90" {
		t.Errorf("expected #90ee90, got %q", got)
	}
	if got := ColorValue(""); got != DefaultColor {
		t.Errorf("expected default, got %q", got)
	}
	if got := ColorValue("#123456"); got != "#123456" {
		t.Errorf("expected passthrough, got %q", got)
	}
	if len(Colors()) != 8 {
		t.Errorf("expected 8 palette colors, got %d", len(Colors()))
	}
}
