// CLAUDE:SUMMARY Scripted in-memory CDP client for tests: canned method handlers plus a tiny remote-object model.
// Package cdptest provides a fake proto.Client that answers CDP methods from
// Go callbacks, so query code can be tested without a browser.
package cdptest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// HandlerFunc answers one CDP method. The returned value is JSON-encoded as
// the method result.
type HandlerFunc func(params json.RawMessage) (any, error)

// Call is one recorded protocol call.
type Call struct {
	Method string
	Params json.RawMessage
}

// Client is a fake proto.Client. Safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Call
}

// New returns a Client with no handlers.
func New() *Client {
	return &Client{handlers: make(map[string]HandlerFunc)}
}

// Handle installs fn for method, replacing any previous handler.
func (c *Client) Handle(method string, fn HandlerFunc) {
	c.mu.Lock()
	c.handlers[method] = fn
	c.mu.Unlock()
}

// Call implements proto.Client.
func (c *Client) Call(ctx context.Context, _ string, method string, params any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("cdptest: marshal %s params: %w", method, err)
	}

	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: method, Params: raw})
	fn := c.handlers[method]
	c.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("cdptest: unexpected call %s", method)
	}
	res, err := fn(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

// Calls returns the recorded calls for method, in call order. An empty method
// returns every call.
func (c *Client) Calls(method string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if method == "" || call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// AXNode builds an Accessibility.AXNode as the provider would send it.
func AXNode(role, name string, backendID int) map[string]any {
	n := map[string]any{
		"nodeId":  "ax-" + strconv.Itoa(backendID),
		"ignored": false,
		"role":    map[string]any{"type": "role", "value": role},
	}
	if name != "" {
		n["name"] = map[string]any{"type": "computedString", "value": name}
	}
	if backendID > 0 {
		n["backendDOMNodeId"] = backendID
	}
	return n
}

// Page is a Client preloaded with a minimal remote-object model:
// DOM.resolveNode turns backend ids into node objects, Runtime.callFunctionOn
// gathers arguments into arrays (or answers through Functions), and
// Runtime.getProperties lists array entries. Accessibility.queryAXTree answers
// with AXNodes.
type Page struct {
	*Client

	mu        sync.Mutex
	axNodes   []map[string]any
	gone      map[int]bool
	arrays    map[string][]string
	released  map[string]int
	nextArray int

	// Functions answers Runtime.callFunctionOn for declarations containing the
	// key. The callback receives the receiver and argument object ids.
	Functions map[string]func(this string, args []string) (map[string]any, error)
}

// NewPage returns a Page whose document root has object id "root".
func NewPage() *Page {
	p := &Page{
		Client:    New(),
		gone:      make(map[int]bool),
		arrays:    make(map[string][]string),
		released:  make(map[string]int),
		Functions: make(map[string]func(string, []string) (map[string]any, error)),
	}
	p.Handle("Accessibility.queryAXTree", p.queryAXTree)
	p.Handle("DOM.resolveNode", p.resolveNode)
	p.Handle("Runtime.callFunctionOn", p.callFunctionOn)
	p.Handle("Runtime.getProperties", p.getProperties)
	p.Handle("Runtime.releaseObject", p.releaseObject)
	p.Handle("Runtime.evaluate", func(json.RawMessage) (any, error) {
		return map[string]any{"result": NodeObject("root")}, nil
	})
	return p
}

// SetAXNodes sets the provider answer for every queryAXTree call.
func (p *Page) SetAXNodes(nodes ...map[string]any) {
	p.mu.Lock()
	p.axNodes = nodes
	p.mu.Unlock()
}

// Detach makes DOM.resolveNode fail for the backend id.
func (p *Page) Detach(backendID int) {
	p.mu.Lock()
	p.gone[backendID] = true
	p.mu.Unlock()
}

// Released reports how many times objectID was released.
func (p *Page) Released(objectID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released[objectID]
}

// ArrayItems returns the object ids held by a fake array.
func (p *Page) ArrayItems(objectID string) ([]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, ok := p.arrays[objectID]
	return items, ok
}

// NodeObject is the remote object for a DOM node.
func NodeObject(objectID string) map[string]any {
	return map[string]any{
		"type":      "object",
		"subtype":   "node",
		"className": "HTMLElement",
		"objectId":  objectID,
	}
}

// NodeObjectID is the object id DOM.resolveNode hands out for a backend id.
func NodeObjectID(backendID int) string {
	return "node-" + strconv.Itoa(backendID)
}

func (p *Page) queryAXTree(json.RawMessage) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := p.axNodes
	if nodes == nil {
		nodes = []map[string]any{}
	}
	return map[string]any{"nodes": nodes}, nil
}

func (p *Page) resolveNode(raw json.RawMessage) (any, error) {
	var req struct {
		BackendNodeID int `json:"backendNodeId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p.mu.Lock()
	gone := p.gone[req.BackendNodeID]
	p.mu.Unlock()
	if gone {
		return nil, fmt.Errorf("No node with given id found")
	}
	return map[string]any{"object": NodeObject(NodeObjectID(req.BackendNodeID))}, nil
}

func (p *Page) callFunctionOn(raw json.RawMessage) (any, error) {
	var req struct {
		FunctionDeclaration string `json:"functionDeclaration"`
		ObjectID            string `json:"objectId"`
		Arguments           []struct {
			ObjectID string `json:"objectId"`
		} `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	args := make([]string, len(req.Arguments))
	for i, a := range req.Arguments {
		args[i] = a.ObjectID
	}

	for key, fn := range p.Functions {
		if strings.Contains(req.FunctionDeclaration, key) {
			obj, err := fn(req.ObjectID, args)
			if err != nil {
				return nil, err
			}
			return map[string]any{"result": obj}, nil
		}
	}

	p.mu.Lock()
	p.nextArray++
	id := "array-" + strconv.Itoa(p.nextArray)
	p.arrays[id] = args
	p.mu.Unlock()

	return map[string]any{"result": map[string]any{
		"type":     "object",
		"subtype":  "array",
		"objectId": id,
	}}, nil
}

// NewArray registers a fake array holding items and returns its object id.
func (p *Page) NewArray(items ...string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextArray++
	id := "array-" + strconv.Itoa(p.nextArray)
	p.arrays[id] = items
	return id
}

func (p *Page) getProperties(raw json.RawMessage) (any, error) {
	var req struct {
		ObjectID string `json:"objectId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p.mu.Lock()
	items, ok := p.arrays[req.ObjectID]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("Could not find object with given id")
	}

	props := make([]map[string]any, 0, len(items)+1)
	for i, id := range items {
		props = append(props, map[string]any{
			"name":         strconv.Itoa(i),
			"value":        NodeObject(id),
			"configurable": true,
			"enumerable":   true,
			"isOwn":        true,
		})
	}
	props = append(props, map[string]any{
		"name":         "length",
		"value":        map[string]any{"type": "number", "value": len(items)},
		"configurable": false,
		"enumerable":   false,
		"isOwn":        true,
	})
	return map[string]any{"result": props}, nil
}

func (p *Page) releaseObject(raw json.RawMessage) (any, error) {
	var req struct {
		ObjectID string `json:"objectId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.released[req.ObjectID]++
	p.mu.Unlock()
	return map[string]any{}, nil
}
