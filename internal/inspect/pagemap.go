package inspect

import (
	"fmt"
	"io"
)

// PageMap is what was on screen when a step failed
type PageMap struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Elements []Element `json:"elements"`
}

// Element represents a visible interactive element
type Element struct {
	Tag         string `json:"tag"`
	Role        string `json:"role,omitempty"`
	Text        string `json:"text,omitempty"`
	Title       string `json:"title,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

func (e Element) String() string {
	s := "<" + e.Tag
	if e.Role != "" {
		s += fmt.Sprintf(" role=%q", e.Role)
	}
	if e.Title != "" {
		s += fmt.Sprintf(" title=%q", e.Title)
	}
	if e.Placeholder != "" {
		s += fmt.Sprintf(" placeholder=%q", e.Placeholder)
	}
	if e.Disabled {
		s += " disabled"
	}
	s += ">"
	if e.Text != "" {
		s += " " + e.Text
	}
	return s
}

// Print writes the snapshot, at most limit elements (all when limit <= 0)
func (m *PageMap) Print(w io.Writer, limit int) {
	fmt.Fprintf(w, "  page: %s (%q)\n", m.URL, m.Title)
	if len(m.Elements) == 0 {
		fmt.Fprintln(w, "  no visible interactive elements")
		return
	}
	for i, el := range m.Elements {
		if limit > 0 && i == limit {
			fmt.Fprintf(w, "  ... %d more\n", len(m.Elements)-limit)
			return
		}
		fmt.Fprintf(w, "  [%d] %s\n", i+1, el)
	}
}
