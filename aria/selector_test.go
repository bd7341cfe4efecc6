package aria

import "testing"

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		hasName bool
		role    string
		hasRole bool
	}{
		{in: "foo&button", name: "foo", hasName: true, role: "button", hasRole: true},
		{in: "&button", role: "button", hasRole: true},
		{in: "label", name: "label", hasName: true},
		{in: ""},
		{in: "&", role: "", hasRole: true},
		{in: "name&", name: "name", hasName: true, role: "", hasRole: true},
		{in: "a&b&c", name: "a", hasName: true, role: "b&c", hasRole: true},
		{in: "menu div", name: "menu div", hasName: true},
	}

	for _, tt := range tests {
		sel := ParseSelector(tt.in)
		name, hasName := sel.Name()
		role, hasRole := sel.Role()
		if name != tt.name || hasName != tt.hasName {
			t.Errorf("ParseSelector(%q) name: got (%q, %v), want (%q, %v)", tt.in, name, hasName, tt.name, tt.hasName)
		}
		if role != tt.role || hasRole != tt.hasRole {
			t.Errorf("ParseSelector(%q) role: got (%q, %v), want (%q, %v)", tt.in, role, hasRole, tt.role, tt.hasRole)
		}
	}
}

func TestSelector_String(t *testing.T) {
	for _, in := range []string{"foo&button", "&img", "label", "", "x&"} {
		if got := ParseSelector(in).String(); got != in {
			t.Errorf("String: got %q, want %q", got, in)
		}
	}
}
