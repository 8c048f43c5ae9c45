package highlight

import "strings"

// Color is a named highlight color offered to readers.
type Color struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// DefaultColor is used when a highlight is created without one.
const DefaultColor = "#ffff00"

// Colors returns the palette in display order.
func Colors() []Color {
	return []Color{
		{Name: "Yellow", Value: "#ffff00"},
		{Name: "Green", Value: "#90ee90"},
		{Name: "Blue", Value: "#87ceeb"},
		{Name: "Pink", Value: "#ffb6c1"},
		{Name: "Orange", Value: "#ffa500"},
		{Name: "Purple", Value: "#dda0dd"},
		{Name: "Red", Value: "#ff6b6b"},
		{Name: "Cyan", Value: "#40e0d0"},
	}
}

// ColorValue resolves a palette name ("green") or passes a literal value through.
func ColorValue(nameOrValue string) string {
	if nameOrValue == "" {
		return DefaultColor
	}
	for _, c := range Colors() {
		if strings.EqualFold(c.Name, nameOrValue) {
			return c.Value
		}
	}
	return nameOrValue
}

// Statistics summarizes a document's highlights.
type Statistics struct {
	Total     int            `json:"total_highlights"`
	ByColor   map[string]int `json:"by_color"`
	ByPage    map[int]int    `json:"by_page"`
	Favorites int            `json:"favorites"`
}

// Summarize counts highlights by color and page. Records without a page are
// not counted by page.
func Summarize(records []Record) Statistics {
	s := Statistics{
		ByColor: make(map[string]int),
		ByPage:  make(map[int]int),
	}
	for _, r := range records {
		s.Total++
		s.ByColor[r.Color]++
		if r.PageNumber > 0 {
			s.ByPage[r.PageNumber]++
		}
		if r.IsFavorite {
			s.Favorites++
		}
	}
	return s
}
