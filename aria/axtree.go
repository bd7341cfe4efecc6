package aria

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/axquery/jshandle"
)

// textRole marks the provider's plain text runs. They are never results.
const textRole = "text"

// axTreeQuery is the Accessibility.queryAXTree request. The filters are
// pointers so an unset filter is left out of the request while a set but
// empty one is sent as "".
type axTreeQuery struct {
	ObjectID       proto.RuntimeRemoteObjectID `json:"objectId"`
	AccessibleName *string                     `json:"accessibleName,omitempty"`
	Role           *string                     `json:"role,omitempty"`
}

// ProtoReq implements proto.Request.
func (axTreeQuery) ProtoReq() string { return "Accessibility.queryAXTree" }

func newAXTreeQuery(root proto.RuntimeRemoteObjectID, sel Selector) axTreeQuery {
	q := axTreeQuery{ObjectID: root}
	if name, ok := sel.Name(); ok {
		q.AccessibleName = &name
	}
	if role, ok := sel.Role(); ok {
		q.Role = &role
	}
	return q
}

// queryAXTree asks the provider for the nodes under root matching sel and
// drops text runs. Order is the provider's.
func queryAXTree(ctx context.Context, ec *jshandle.ExecutionContext, root *jshandle.ElementHandle, sel Selector) ([]*proto.AccessibilityAXNode, error) {
	var res proto.AccessibilityQueryAXTreeResult
	if err := ec.Call(ctx, newAXTreeQuery(root.ObjectID(), sel), &res); err != nil {
		return nil, fmt.Errorf("aria: query ax tree: %w", err)
	}

	nodes := make([]*proto.AccessibilityAXNode, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		if n == nil || roleOf(n) == textRole {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func roleOf(n *proto.AccessibilityAXNode) string {
	if n.Role == nil {
		return ""
	}
	return n.Role.Value.Str()
}
