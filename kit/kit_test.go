package kit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	resp, err := Chain(mw("a"), mw("b"))(base)(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	want := []string{"a_before", "b_before", "endpoint", "b_after", "a_after"}
	if len(order) != len(want) {
		t.Fatalf("order: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	ep := RequestID(func() string { return "req-1" })(func(ctx context.Context, _ any) (any, error) {
		seen = GetRequestID(ctx)
		return nil, nil
	})

	ep(context.Background(), nil)
	if seen != "req-1" {
		t.Fatalf("generated id: got %q, want req-1", seen)
	}

	ep(WithRequestID(context.Background(), "given"), nil)
	if seen != "given" {
		t.Fatalf("existing id: got %q, want given", seen)
	}
}

func TestLogging_PassesThrough(t *testing.T) {
	errFail := errors.New("fail")
	ep := Logging(nil, "x")(func(context.Context, any) (any, error) { return nil, errFail })
	if _, err := ep(context.Background(), nil); !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestTransportDefault(t *testing.T) {
	if got := GetTransport(context.Background()); got != "http" {
		t.Fatalf("default transport: got %q, want http", got)
	}
	if got := GetTransport(WithTransport(context.Background(), "cli")); got != "cli" {
		t.Fatalf("transport: got %q, want cli", got)
	}
}

type echoReq struct {
	Text string `json:"text"`
}

func TestRegisterMCPTool(t *testing.T) {
	impl := &mcp.Implementation{Name: "kit-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)

	var transport string
	RegisterMCPTool(srv, &mcp.Tool{
		Name: "echo",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
		},
	}, func(ctx context.Context, req any) (any, error) {
		transport = GetTransport(ctx)
		r := req.(*echoReq)
		if r.Text == "fail" {
			return nil, errors.New("echo failed")
		}
		return map[string]string{"echo": r.Text}, nil
	}, DecodeArgs[echoReq])

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "hi"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if got := res.Content[0].(*mcp.TextContent).Text; got != `{"echo":"hi"}` {
		t.Fatalf("content: got %s", got)
	}
	if transport != "mcp" {
		t.Fatalf("transport: got %q, want mcp", transport)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "fail"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error")
	}
}

func TestDecodeArgs(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `{"text":"hi"}`, want: "hi"},
		{raw: ``, want: ""},
		{raw: `null`, want: ""},
		{raw: `{"text":`, wantErr: true},
	}
	for _, c := range cases {
		req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(c.raw)}}
		res, err := DecodeArgs[echoReq](req)
		if c.wantErr {
			if err == nil {
				t.Errorf("DecodeArgs(%q): expected error", c.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("DecodeArgs(%q): %v", c.raw, err)
			continue
		}
		if got := res.Request.(*echoReq).Text; got != c.want {
			t.Errorf("DecodeArgs(%q): got %q, want %q", c.raw, got, c.want)
		}
	}
}
