// CLAUDE:SUMMARY Execution context over a CDP client: adopts backend node ids into handles and calls functions on remote objects.
// Package jshandle models a JavaScript realm reachable over CDP and the
// remote-object handles produced inside it.
//
// An ExecutionContext wraps any proto.Client (a *rod.Page satisfies it) plus
// the id of the realm. Handles are owned references to remote objects; the
// caller releases them when done.
package jshandle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"
)

// ErrNoResult is returned when the protocol answers a call without a result
// object.
var ErrNoResult = errors.New("jshandle: protocol returned no object")

// ExecutionContext is a scripting realm bound to one frame of a CDP session.
// It is safe for concurrent use.
type ExecutionContext struct {
	client proto.Client
	id     proto.RuntimeExecutionContextID
	logger *slog.Logger
}

// Option configures an ExecutionContext.
type Option func(*ExecutionContext)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(ec *ExecutionContext) { ec.logger = l }
}

// New creates an ExecutionContext. id may be zero, meaning the default realm
// of the target (the main world of its top frame).
func New(client proto.Client, id proto.RuntimeExecutionContextID, opts ...Option) *ExecutionContext {
	ec := &ExecutionContext{client: client, id: id, logger: slog.Default()}
	for _, o := range opts {
		o(ec)
	}
	return ec
}

// ID returns the protocol id of the realm (zero for the default realm).
func (ec *ExecutionContext) ID() proto.RuntimeExecutionContextID {
	return ec.id
}

// Call sends one protocol request on the session and decodes the answer into
// res. res may be nil when the result is not needed.
func (ec *ExecutionContext) Call(ctx context.Context, req proto.Request, res any) error {
	var session string
	if s, ok := ec.client.(proto.Sessionable); ok {
		session = string(s.GetSessionID())
	}
	raw, err := ec.client.Call(ctx, session, req.ProtoReq(), req)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("jshandle: decode %s: %w", req.ProtoReq(), err)
	}
	return nil
}

// AdoptBackendNode resolves a backend DOM node id into an element handle in
// this realm. Each call produces a new handle; handles obtained for the same
// id reference the same element. It fails once the node is gone.
func (ec *ExecutionContext) AdoptBackendNode(ctx context.Context, id proto.DOMBackendNodeID) (*ElementHandle, error) {
	var res proto.DOMResolveNodeResult
	err := ec.Call(ctx, proto.DOMResolveNode{
		BackendNodeID:      id,
		ExecutionContextID: ec.id,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("jshandle: resolve backend node %d: %w", id, err)
	}
	if res.Object == nil || res.Object.ObjectID == "" {
		return nil, fmt.Errorf("jshandle: resolve backend node %d: %w", id, ErrNoResult)
	}
	return &ElementHandle{
		JSHandle: JSHandle{ec: ec, obj: res.Object},
		backend:  id,
	}, nil
}

// Evaluate runs a JavaScript expression in the realm and returns a handle to
// its value.
func (ec *ExecutionContext) Evaluate(ctx context.Context, expr string) (*JSHandle, error) {
	var res proto.RuntimeEvaluateResult
	err := ec.Call(ctx, proto.RuntimeEvaluate{
		Expression: expr,
		ContextID:  ec.id,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("jshandle: evaluate: %w", err)
	}
	if res.ExceptionDetails != nil {
		return nil, exceptionError(res.ExceptionDetails)
	}
	if res.Result == nil {
		return nil, ErrNoResult
	}
	return newHandle(ec, res.Result), nil
}

// Document returns a handle to the realm's document node.
func (ec *ExecutionContext) Document(ctx context.Context) (*ElementHandle, error) {
	h, err := ec.Evaluate(ctx, "document")
	if err != nil {
		return nil, err
	}
	doc := h.AsElement()
	if doc == nil {
		_ = h.Release(ctx)
		return nil, fmt.Errorf("jshandle: document is not a node")
	}
	return doc, nil
}

// CallFunctionOn calls fn with this bound to the given handle and args passed
// by object id. With byValue the result is serialised into the returned
// remote object's Value; otherwise the object stays remote and must be
// released by the caller.
func (ec *ExecutionContext) CallFunctionOn(ctx context.Context, this *JSHandle, fn string, byValue bool, args ...*JSHandle) (*proto.RuntimeRemoteObject, error) {
	if this == nil || this.ObjectID() == "" {
		return nil, fmt.Errorf("jshandle: call function: missing receiver")
	}

	callArgs := make([]*proto.RuntimeCallArgument, 0, len(args))
	for i, a := range args {
		if a == nil || a.ObjectID() == "" {
			return nil, fmt.Errorf("jshandle: call function: argument %d has no object", i)
		}
		callArgs = append(callArgs, &proto.RuntimeCallArgument{ObjectID: a.ObjectID()})
	}

	var res proto.RuntimeCallFunctionOnResult
	err := ec.Call(ctx, proto.RuntimeCallFunctionOn{
		FunctionDeclaration: fn,
		ObjectID:            this.ObjectID(),
		Arguments:           callArgs,
		ReturnByValue:       byValue,
		AwaitPromise:        true,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("jshandle: call function: %w", err)
	}
	if res.ExceptionDetails != nil {
		return nil, exceptionError(res.ExceptionDetails)
	}
	if res.Result == nil {
		return nil, ErrNoResult
	}
	return res.Result, nil
}

// release drops a remote object. Objects without an id (primitives) are
// ignored.
func (ec *ExecutionContext) release(ctx context.Context, id proto.RuntimeRemoteObjectID) error {
	if id == "" {
		return nil
	}
	if err := ec.Call(ctx, proto.RuntimeReleaseObject{ObjectID: id}, nil); err != nil {
		return fmt.Errorf("jshandle: release %s: %w", id, err)
	}
	return nil
}

// EvaluationError is a JavaScript exception thrown inside the page.
type EvaluationError struct {
	Text        string
	Description string
}

func (e *EvaluationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("jshandle: evaluation failed: %s", e.Description)
	}
	return fmt.Sprintf("jshandle: evaluation failed: %s", e.Text)
}

func exceptionError(d *proto.RuntimeExceptionDetails) error {
	e := &EvaluationError{Text: d.Text}
	if d.Exception != nil {
		e.Description = d.Exception.Description
	}
	return e
}
