// Package aria implements the accessibility selector dialect: selectors of the
// form "<name>&<role>" resolved by the browser's accessibility tree.
//
//   - "title&heading" matches elements named "title" with role heading.
//   - "&img" matches elements with role img and any name.
//   - "label" matches elements named "label" with any role.
//
// Matching itself is done by the browser (Accessibility.queryAXTree); this
// package parses selectors, issues the query and adopts the matched nodes.
package aria

import "strings"

// Selector is a parsed accessibility selector. An unset field places no
// constraint on that dimension.
type Selector struct {
	name    string
	role    string
	hasName bool
	hasRole bool
}

// ParseSelector splits s on the first '&'. The part before it, when
// non-empty, is the accessible name; the part after it, when a '&' is
// present, is the role. There is no escaping: everything after the first '&'
// belongs to the role.
func ParseSelector(s string) Selector {
	var sel Selector
	name, role, found := strings.Cut(s, "&")
	if name != "" {
		sel.name, sel.hasName = name, true
	}
	if found {
		sel.role, sel.hasRole = role, true
	}
	return sel
}

// Name returns the accessible name filter and whether it is set.
func (s Selector) Name() (string, bool) { return s.name, s.hasName }

// Role returns the role filter and whether it is set.
func (s Selector) Role() (string, bool) { return s.role, s.hasRole }

// String renders the selector back into its textual form.
func (s Selector) String() string {
	if !s.hasRole {
		return s.name
	}
	return s.name + "&" + s.role
}
