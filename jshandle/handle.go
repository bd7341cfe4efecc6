package jshandle

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// JSHandle is an owned reference to a remote JavaScript value.
type JSHandle struct {
	ec       *ExecutionContext
	obj      *proto.RuntimeRemoteObject
	released atomic.Bool
}

func newHandle(ec *ExecutionContext, obj *proto.RuntimeRemoteObject) *JSHandle {
	return &JSHandle{ec: ec, obj: obj}
}

// NewHandle wraps an existing remote object. Ownership of the object moves to
// the returned handle.
func NewHandle(ec *ExecutionContext, obj *proto.RuntimeRemoteObject) *JSHandle {
	return newHandle(ec, obj)
}

// ExecutionContext returns the realm the handle lives in.
func (h *JSHandle) ExecutionContext() *ExecutionContext { return h.ec }

// Object returns the protocol description of the remote value.
func (h *JSHandle) Object() *proto.RuntimeRemoteObject { return h.obj }

// ObjectID returns the remote object id, empty for primitives.
func (h *JSHandle) ObjectID() proto.RuntimeRemoteObjectID {
	if h == nil || h.obj == nil {
		return ""
	}
	return h.obj.ObjectID
}

// AsElement returns the handle as an ElementHandle when it references a DOM
// node, nil otherwise.
func (h *JSHandle) AsElement() *ElementHandle {
	if h.obj == nil || h.obj.Subtype != proto.RuntimeRemoteObjectSubtypeNode {
		return nil
	}
	return &ElementHandle{JSHandle: JSHandle{ec: h.ec, obj: h.obj}}
}

// Evaluate calls fn with the handle as its first argument followed by args and
// returns the JSON-serialised result.
func (h *JSHandle) Evaluate(ctx context.Context, fn string, args ...*JSHandle) (gson.JSON, error) {
	obj, err := h.ec.CallFunctionOn(ctx, h, wrapFirstArg(fn), true, append([]*JSHandle{h}, args...)...)
	if err != nil {
		return gson.New(nil), err
	}
	return obj.Value, nil
}

// EvaluateHandle is Evaluate that keeps the result remote.
func (h *JSHandle) EvaluateHandle(ctx context.Context, fn string, args ...*JSHandle) (*JSHandle, error) {
	obj, err := h.ec.CallFunctionOn(ctx, h, wrapFirstArg(fn), false, append([]*JSHandle{h}, args...)...)
	if err != nil {
		return nil, err
	}
	return newHandle(h.ec, obj), nil
}

// Elements lists the indexed entries of a remote array in index order and
// returns those that are DOM nodes. Other entries are skipped.
func (h *JSHandle) Elements(ctx context.Context) ([]*ElementHandle, error) {
	var res proto.RuntimeGetPropertiesResult
	err := h.ec.Call(ctx, proto.RuntimeGetProperties{
		ObjectID:      h.ObjectID(),
		OwnProperties: true,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("jshandle: get properties: %w", err)
	}
	if res.ExceptionDetails != nil {
		return nil, exceptionError(res.ExceptionDetails)
	}

	type entry struct {
		index int
		obj   *proto.RuntimeRemoteObject
	}
	entries := make([]entry, 0, len(res.Result))
	for _, p := range res.Result {
		i, err := strconv.Atoi(p.Name)
		if err != nil || i < 0 || p.Value == nil {
			continue
		}
		entries = append(entries, entry{i, p.Value})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	out := make([]*ElementHandle, 0, len(entries))
	for _, e := range entries {
		if e.obj.Subtype != proto.RuntimeRemoteObjectSubtypeNode {
			_ = h.ec.release(context.WithoutCancel(ctx), e.obj.ObjectID)
			continue
		}
		out = append(out, &ElementHandle{JSHandle: JSHandle{ec: h.ec, obj: e.obj}})
	}
	return out, nil
}

// Release drops the remote object. Calling it more than once is a no-op.
func (h *JSHandle) Release(ctx context.Context) error {
	if h == nil || h.released.Swap(true) {
		return nil
	}
	return h.ec.release(ctx, h.ObjectID())
}

// Released reports whether Release was called.
func (h *JSHandle) Released() bool { return h.released.Load() }

// ElementHandle is a JSHandle that references a DOM element.
type ElementHandle struct {
	JSHandle
	backend proto.DOMBackendNodeID
}

// BackendNodeID returns the backend DOM node id the handle was adopted from,
// or zero when the handle was produced another way.
func (e *ElementHandle) BackendNodeID() proto.DOMBackendNodeID { return e.backend }

// Handle returns the underlying JSHandle.
func (e *ElementHandle) Handle() *JSHandle { return &e.JSHandle }

// ReleaseAll releases every handle, returning the first error.
func ReleaseAll(ctx context.Context, handles []*ElementHandle) error {
	var first error
	for _, h := range handles {
		if h == nil {
			continue
		}
		if err := h.Release(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// wrapFirstArg turns a function taking the receiver as first argument into a
// declaration callable through Runtime.callFunctionOn.
func wrapFirstArg(fn string) string {
	return "function(...args) { return (" + fn + ")(...args); }"
}
