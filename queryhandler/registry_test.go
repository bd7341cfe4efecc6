package queryhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/axquery/jshandle"
)

type stubHandler struct{ name string }

func (s *stubHandler) QueryOne(context.Context, *jshandle.ElementHandle, string) (*jshandle.ElementHandle, error) {
	return nil, nil
}

func (s *stubHandler) QueryAll(context.Context, *jshandle.ElementHandle, string) ([]*jshandle.ElementHandle, error) {
	return nil, nil
}

func (s *stubHandler) QueryAllArray(context.Context, *jshandle.ElementHandle, string) (*jshandle.JSHandle, error) {
	return nil, nil
}

func (s *stubHandler) WaitFor(context.Context, *jshandle.ElementHandle, string, WaitOptions) (*jshandle.ElementHandle, error) {
	return nil, nil
}

func TestResolve_DefaultHandler(t *testing.T) {
	def := &stubHandler{name: "css"}
	reg := NewRegistry(def)

	for _, sel := range []string{"div > a", "#id", "a[href='x/y']", "1x/abc", ""} {
		h, rest, err := reg.Resolve(sel)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", sel, err)
		}
		if h != def {
			t.Fatalf("Resolve(%q): got %v, want default", sel, h)
		}
		if rest != sel {
			t.Fatalf("Resolve(%q): selector rewritten to %q", sel, rest)
		}
	}
}

func TestResolve_Prefixed(t *testing.T) {
	aria := &stubHandler{name: "aria"}
	reg := NewRegistry(&stubHandler{name: "css"})
	if err := reg.RegisterBuiltin("aria", aria); err != nil {
		t.Fatal(err)
	}

	h, rest, err := reg.Resolve("aria/Submit&button")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if h != aria || rest != "Submit&button" {
		t.Fatalf("Resolve: got (%v, %q)", h, rest)
	}

	// Only the first '/' separates the prefix.
	_, rest, _ = reg.Resolve("aria/a/b&link")
	if rest != "a/b&link" {
		t.Fatalf("Resolve: got %q, want %q", rest, "a/b&link")
	}
}

func TestResolve_UnknownPrefix(t *testing.T) {
	reg := NewRegistry(&stubHandler{})
	_, _, err := reg.Resolve("nope/x")
	var unknown *ErrUnknownHandler
	if !errors.As(err, &unknown) || unknown.Name != "nope" {
		t.Fatalf("Resolve: got %v, want ErrUnknownHandler{nope}", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	reg := NewRegistry(&stubHandler{})

	var invalid *ErrInvalidName
	for _, name := range []string{"", "a1", "with space", "x/y", "ünï"} {
		if err := reg.Register(name, &stubHandler{}); !errors.As(err, &invalid) {
			t.Errorf("Register(%q): got %v, want ErrInvalidName", name, err)
		}
	}

	if err := reg.Register("custom", &stubHandler{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	var dup *ErrDuplicateHandler
	if err := reg.Register("custom", &stubHandler{}); !errors.As(err, &dup) {
		t.Fatalf("Register duplicate: got %v, want ErrDuplicateHandler", err)
	}
}

func TestUnregisterAndClear(t *testing.T) {
	reg := NewRegistry(&stubHandler{})
	if err := reg.RegisterBuiltin("aria", &stubHandler{}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"one", "two"} {
		if err := reg.Register(name, &stubHandler{}); err != nil {
			t.Fatal(err)
		}
	}

	var builtin *ErrBuiltinHandler
	if err := reg.Unregister("aria"); !errors.As(err, &builtin) {
		t.Fatalf("Unregister builtin: got %v, want ErrBuiltinHandler", err)
	}
	if err := reg.Unregister("one"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "aria" || got[1] != "two" {
		t.Fatalf("Names: got %v", got)
	}

	reg.ClearCustom()
	if got := reg.Names(); len(got) != 1 || got[0] != "aria" {
		t.Fatalf("Names after clear: got %v", got)
	}
}
