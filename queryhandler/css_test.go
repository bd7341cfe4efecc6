package queryhandler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/axquery/internal/cdptest"
	"github.com/hazyhaar/axquery/jshandle"
)

func cssRoot(t *testing.T) (*cdptest.Page, *jshandle.ElementHandle) {
	t.Helper()
	page := cdptest.NewPage()
	h, err := jshandle.New(page, 0).Evaluate(context.Background(), "document")
	if err != nil {
		t.Fatal(err)
	}
	return page, h.AsElement()
}

func TestCSS_QueryOne(t *testing.T) {
	page, root := cssRoot(t)
	page.Functions["querySelector("] = func(this string, _ []string) (map[string]any, error) {
		if this != "root" {
			t.Errorf("receiver: got %q, want root", this)
		}
		return cdptest.NodeObject("btn"), nil
	}

	el, err := NewCSS().QueryOne(context.Background(), root, `button[name="a\"b"]`)
	if err != nil {
		t.Fatalf("QueryOne: %v", err)
	}
	if el == nil || el.ObjectID() != "btn" {
		t.Fatalf("QueryOne: got %v", el)
	}

	var req struct {
		FunctionDeclaration string `json:"functionDeclaration"`
	}
	calls := page.Calls("Runtime.callFunctionOn")
	if err := json.Unmarshal(calls[0].Params, &req); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(req.FunctionDeclaration, `querySelector("button[name=\"a\\\"b\"]")`) {
		t.Fatalf("selector not quoted as JS string: %s", req.FunctionDeclaration)
	}
}

func TestCSS_QueryOne_NoMatch(t *testing.T) {
	page, root := cssRoot(t)
	page.Functions["querySelector("] = func(string, []string) (map[string]any, error) {
		return map[string]any{"type": "object", "subtype": "null", "value": nil}, nil
	}

	el, err := NewCSS().QueryOne(context.Background(), root, "div")
	if err != nil {
		t.Fatalf("QueryOne: %v", err)
	}
	if el != nil {
		t.Fatalf("QueryOne: got %v, want nil", el.ObjectID())
	}
}

func TestCSS_QueryAll(t *testing.T) {
	page, root := cssRoot(t)
	page.Functions["querySelectorAll("] = func(string, []string) (map[string]any, error) {
		id := page.NewArray("a", "b", "c")
		return map[string]any{"type": "object", "subtype": "array", "objectId": id}, nil
	}

	els, err := NewCSS().QueryAll(context.Background(), root, "li")
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if len(els) != 3 || els[0].ObjectID() != "a" || els[2].ObjectID() != "c" {
		t.Fatalf("QueryAll: got %d handles", len(els))
	}
	if page.Released("array-1") != 1 {
		t.Fatal("QueryAll: intermediate array not released")
	}
}

func TestCSS_WaitFor(t *testing.T) {
	page, root := cssRoot(t)
	var polls atomic.Int32
	page.Functions["querySelector("] = func(string, []string) (map[string]any, error) {
		if polls.Add(1) < 3 {
			return map[string]any{"type": "object", "subtype": "null"}, nil
		}
		return cdptest.NodeObject("late"), nil
	}

	el, err := NewCSS().WaitFor(context.Background(), root, "#late", WaitOptions{Interval: time.Millisecond, Timeout: time.Second})
	if err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
	if el.ObjectID() != "late" {
		t.Fatalf("WaitFor: got %s", el.ObjectID())
	}
}

func TestCSS_WaitFor_Timeout(t *testing.T) {
	page, root := cssRoot(t)
	page.Functions["querySelector("] = func(string, []string) (map[string]any, error) {
		return map[string]any{"type": "object", "subtype": "null"}, nil
	}

	_, err := NewCSS().WaitFor(context.Background(), root, "#never", WaitOptions{Interval: time.Millisecond, Timeout: 20 * time.Millisecond})
	var timeout *ErrWaitTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("WaitFor: got %v, want ErrWaitTimeout", err)
	}
}
