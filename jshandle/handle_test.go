package jshandle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/axquery/internal/cdptest"
)

func TestAdoptBackendNode(t *testing.T) {
	page := cdptest.NewPage()
	ec := New(page, 7)

	a, err := ec.AdoptBackendNode(context.Background(), 42)
	if err != nil {
		t.Fatalf("adopt: %v", err)
	}
	b, err := ec.AdoptBackendNode(context.Background(), 42)
	if err != nil {
		t.Fatalf("adopt again: %v", err)
	}
	if a == b {
		t.Fatal("adopt: repeated calls returned the same handle object")
	}
	if a.ObjectID() != b.ObjectID() || a.BackendNodeID() != 42 {
		t.Fatalf("adopt: got %s/%s backend %d", a.ObjectID(), b.ObjectID(), a.BackendNodeID())
	}

	calls := page.Calls("DOM.resolveNode")
	var req struct {
		BackendNodeID      int `json:"backendNodeId"`
		ExecutionContextID int `json:"executionContextId"`
	}
	if err := json.Unmarshal(calls[0].Params, &req); err != nil {
		t.Fatal(err)
	}
	if req.BackendNodeID != 42 || req.ExecutionContextID != 7 {
		t.Fatalf("resolveNode params: got %+v", req)
	}
}

func TestAdoptBackendNode_Detached(t *testing.T) {
	page := cdptest.NewPage()
	page.Detach(5)

	_, err := New(page, 0).AdoptBackendNode(context.Background(), 5)
	if err == nil {
		t.Fatal("adopt detached node: expected error")
	}
}

func TestAdoptBackendNode_NoObject(t *testing.T) {
	page := cdptest.NewPage()
	page.Handle("DOM.resolveNode", func(json.RawMessage) (any, error) {
		return map[string]any{"object": map[string]any{"type": "undefined"}}, nil
	})

	_, err := New(page, 0).AdoptBackendNode(context.Background(), 1)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("adopt: got %v, want %v", err, ErrNoResult)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	page := cdptest.NewPage()
	ec := New(page, 0)

	el, err := ec.AdoptBackendNode(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := el.Release(context.Background()); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if n := page.Released(cdptest.NodeObjectID(3)); n != 1 {
		t.Fatalf("releaseObject calls: got %d, want 1", n)
	}
	if !el.Released() {
		t.Fatal("Released: got false")
	}
}

func TestElements_IndexOrder(t *testing.T) {
	page := cdptest.NewPage()
	ec := New(page, 0)

	id := page.NewArray("n1", "n2", "n3")
	arr := NewHandle(ec, &proto.RuntimeRemoteObject{
		Type:     proto.RuntimeRemoteObjectTypeObject,
		Subtype:  proto.RuntimeRemoteObjectSubtypeArray,
		ObjectID: proto.RuntimeRemoteObjectID(id),
	})

	els, err := arr.Elements(context.Background())
	if err != nil {
		t.Fatalf("elements: %v", err)
	}
	want := []string{"n1", "n2", "n3"}
	if len(els) != len(want) {
		t.Fatalf("elements: got %d, want %d", len(els), len(want))
	}
	for i, el := range els {
		if string(el.ObjectID()) != want[i] {
			t.Fatalf("elements[%d]: got %s, want %s", i, el.ObjectID(), want[i])
		}
	}
}

func TestElements_SparseIndices(t *testing.T) {
	page := cdptest.NewPage()
	ec := New(page, 0)

	prop := func(name string, value map[string]any) map[string]any {
		return map[string]any{"name": name, "value": value, "configurable": true, "enumerable": true, "isOwn": true}
	}
	page.Handle("Runtime.getProperties", func(json.RawMessage) (any, error) {
		return map[string]any{"result": []map[string]any{
			prop("4294967294", cdptest.NodeObject("last")),
			prop("7", cdptest.NodeObject("middle")),
			prop("3", map[string]any{"type": "object", "className": "Object", "objectId": "obj-3"}),
			prop("0", cdptest.NodeObject("first")),
			prop("length", map[string]any{"type": "number", "value": 4294967295}),
		}}, nil
	})
	arr := NewHandle(ec, &proto.RuntimeRemoteObject{
		Type:     proto.RuntimeRemoteObjectTypeObject,
		Subtype:  proto.RuntimeRemoteObjectSubtypeArray,
		ObjectID: "sparse",
	})

	start := time.Now()
	els, err := arr.Elements(context.Background())
	if err != nil {
		t.Fatalf("elements: %v", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("elements took %v for four entries", d)
	}
	want := []string{"first", "middle", "last"}
	if len(els) != len(want) {
		t.Fatalf("elements: got %d, want %d", len(els), len(want))
	}
	for i, el := range els {
		if string(el.ObjectID()) != want[i] {
			t.Fatalf("elements[%d]: got %s, want %s", i, el.ObjectID(), want[i])
		}
	}
	if n := page.Released("obj-3"); n != 1 {
		t.Fatalf("non-node entry released %d times, want 1", n)
	}
}

func TestCallFunctionOn_Exception(t *testing.T) {
	page := cdptest.NewPage()
	page.Handle("Runtime.callFunctionOn", func(json.RawMessage) (any, error) {
		return map[string]any{
			"result": map[string]any{"type": "object"},
			"exceptionDetails": map[string]any{
				"exceptionId":  1,
				"text":         "Uncaught",
				"lineNumber":   0,
				"columnNumber": 0,
				"exception":    map[string]any{"type": "object", "description": "TypeError: boom"},
			},
		}, nil
	})
	ec := New(page, 0)
	root, err := ec.Evaluate(context.Background(), "document")
	if err != nil {
		t.Fatal(err)
	}

	_, err = root.Evaluate(context.Background(), "el => el.boom()")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("evaluate: got %v, want *EvaluationError", err)
	}
	if evalErr.Description != "TypeError: boom" {
		t.Fatalf("description: got %q", evalErr.Description)
	}
}

func TestCallFunctionOn_MissingReceiver(t *testing.T) {
	ec := New(cdptest.NewPage(), 0)
	if _, err := ec.CallFunctionOn(context.Background(), nil, "function() {}", true); err == nil {
		t.Fatal("expected error for nil receiver")
	}
}

func TestEvaluate_ByValue(t *testing.T) {
	page := cdptest.NewPage()
	page.Functions["return (el => el.id)"] = func(this string, args []string) (map[string]any, error) {
		if len(args) != 1 || args[0] != this {
			t.Errorf("args: got %v, want [%s]", args, this)
		}
		return map[string]any{"type": "string", "value": "btn"}, nil
	}
	ec := New(page, 0)
	el, err := ec.AdoptBackendNode(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}

	v, err := el.Evaluate(context.Background(), "el => el.id")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v.Str() != "btn" {
		t.Fatalf("evaluate: got %q, want %q", v.Str(), "btn")
	}
}

func TestDocument(t *testing.T) {
	page := cdptest.NewPage()
	ec := New(page, 0)

	doc, err := ec.Document(context.Background())
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.ObjectID() != "root" {
		t.Fatalf("document object id: got %q, want root", doc.ObjectID())
	}

	page.Handle("Runtime.evaluate", func(json.RawMessage) (any, error) {
		return map[string]any{"result": map[string]any{"type": "string", "value": "x"}}, nil
	})
	if _, err := ec.Document(context.Background()); err == nil {
		t.Fatal("expected error for non-node document")
	}
}
