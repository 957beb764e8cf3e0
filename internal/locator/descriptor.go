package locator

import (
	"errors"
	"fmt"
)

// Kind selects how a Descriptor finds elements
type Kind string

const (
	KindRole        Kind = "role"        // ARIA role + accessible name
	KindPlaceholder Kind = "placeholder" // placeholder attribute
	KindTitle       Kind = "title"       // title attribute
	KindSelector    Kind = "selector"    // CSS selector
)

// Descriptor is a declarative description of target elements. It holds no
// reference to the DOM and can be built before the element exists.
type Descriptor struct {
	Kind  Kind   `json:"kind"`
	Role  string `json:"role,omitempty"`  // for KindRole
	Name  string `json:"name,omitempty"`  // accessible name (KindRole)
	Text  string `json:"text,omitempty"`  // attribute text (KindPlaceholder, KindTitle)
	CSS   string `json:"css,omitempty"`   // for KindSelector
	Exact bool   `json:"exact,omitempty"` // full, case-sensitive match instead of substring
}

// ByRole matches elements by role, and by accessible name when name is set
func ByRole(role, name string) Descriptor {
	return Descriptor{Kind: KindRole, Role: role, Name: name}
}

// ByPlaceholder matches elements whose placeholder contains text
func ByPlaceholder(text string) Descriptor {
	return Descriptor{Kind: KindPlaceholder, Text: text}
}

// ByTitle matches elements whose title attribute contains text
func ByTitle(text string) Descriptor {
	return Descriptor{Kind: KindTitle, Text: text}
}

// ByCSS matches elements with a CSS selector
func ByCSS(css string) Descriptor {
	return Descriptor{Kind: KindSelector, CSS: css}
}

// Exactly returns a copy that requires a full, case-sensitive text match
func (d Descriptor) Exactly() Descriptor {
	d.Exact = true
	return d
}

// Validate reports descriptors that can never match anything
func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindRole:
		if d.Role == "" {
			return errors.New("role descriptor needs a role")
		}
	case KindPlaceholder, KindTitle:
		if d.Text == "" {
			return fmt.Errorf("%s descriptor needs text", d.Kind)
		}
	case KindSelector:
		if d.CSS == "" {
			return errors.New("selector descriptor needs css")
		}
	default:
		return fmt.Errorf("unknown descriptor kind %q", d.Kind)
	}
	return nil
}

// String renders the descriptor for logs and failure messages
func (d Descriptor) String() string {
	op := "*="
	if d.Exact {
		op = "="
	}
	switch d.Kind {
	case KindRole:
		if d.Name == "" {
			return "role=" + d.Role
		}
		return fmt.Sprintf("role=%s[name%s%q]", d.Role, op, d.Name)
	case KindPlaceholder, KindTitle:
		return fmt.Sprintf("%s%s%q", d.Kind, op, d.Text)
	case KindSelector:
		return "css=" + d.CSS
	}
	return fmt.Sprintf("unknown(%q)", d.Kind)
}

// want is the text the query compares against
func (d Descriptor) want() string {
	if d.Kind == KindRole {
		return d.Name
	}
	return d.Text
}
