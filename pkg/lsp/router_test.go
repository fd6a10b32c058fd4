package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/pipeline"
	"src.mwls.dev/pkg/session"
	"src.mwls.dev/pkg/testutil"
)

// Connects a client to a server conn handled by r.
func serveRouter(t *testing.T, r *router) *jsonrpc2.Conn {
	serverSide, clientSide := net.Pipe()
	server := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(serverSide, jsonrpc2.VSCodeObjectCodec{}), r)
	client := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), nopHandler{})
	t.Cleanup(func() {
		client.Close()
		server.Close()
		<-client.DisconnectNotify()
		<-server.DisconnectNotify()
		r.close()
	})
	return client
}

type nopHandler struct{}

func (nopHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

func TestRouter_CancelRequest(t *testing.T) {
	started := make(chan struct{})
	r := routingHandler(map[string]method{
		"block": func(ctx context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	client := serveRouter(t, r)

	id := jsonrpc2.ID{Str: "block", IsString: true}
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Call(context.Background(), "block", nil, nil, jsonrpc2.PickID(id))
	}()
	select {
	case <-started:
	case <-time.After(testutil.Scaled(2 * time.Second)):
		t.Fatal("request did not start")
	}
	if err := client.Notify(context.Background(), "$/cancelRequest", map[string]any{"id": "block"}); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errCh:
		if rpcCode(err) != codeRequestCancelled {
			t.Errorf("got error %v, want code %d", err, codeRequestCancelled)
		}
	case <-time.After(testutil.Scaled(2 * time.Second)):
		t.Fatal("request was not cancelled")
	}
}

func TestRouter_OrderedRequestsAndNotifications(t *testing.T) {
	var seen []string
	record := func(name string) method {
		return func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error) {
			seen = append(seen, name)
			return name, nil
		}
	}
	r := routingHandler(map[string]method{
		"a": record("a"), "b": record("b"), "c": record("c"),
	}, "a", "c")
	client := serveRouter(t, r)

	var result string
	if err := client.Call(context.Background(), "a", nil, &result); err != nil || result != "a" {
		t.Fatalf("a returned %q, %v", result, err)
	}
	if err := client.Notify(context.Background(), "b", nil); err != nil {
		t.Fatal(err)
	}
	if err := client.Call(context.Background(), "c", nil, &result); err != nil || result != "c" {
		t.Fatalf("c returned %q, %v", result, err)
	}
	// Both ordered requests and notifications run in the read loop, so b has
	// been handled before c was read.
	if fmt.Sprint(seen) != "[a b c]" {
		t.Errorf("handled %v, want [a b c]", seen)
	}
}

func TestRouter_UnknownNotificationIsIgnored(t *testing.T) {
	r := routingHandler(map[string]method{"ping": noop})
	client := serveRouter(t, r)
	if err := client.Notify(context.Background(), "$/setTrace", nil); err != nil {
		t.Fatal(err)
	}
	if err := client.Call(context.Background(), "ping", nil, nil); err != nil {
		t.Errorf("ping after unknown notification: %v", err)
	}
}

var toRPCErrorTests = []struct {
	err  error
	code int64
}{
	{errInvalidParams, jsonrpc2.CodeInvalidParams},
	{fmt.Errorf("wrapped: %w", errNotInitialized), codeServerNotInitialized},
	{context.Canceled, codeRequestCancelled},
	{fmt.Errorf("x: %w", session.ErrUnknownDocument), jsonrpc2.CodeInvalidRequest},
	{pipeline.ErrClosed, jsonrpc2.CodeInvalidRequest},
	{fmt.Errorf("change: %w", document.ErrInvalidEdit), jsonrpc2.CodeInvalidParams},
	{errors.New("boom"), jsonrpc2.CodeInternalError},
}

func TestToRPCError(t *testing.T) {
	for _, test := range toRPCErrorTests {
		if got := toRPCError(test.err); got.Code != test.code {
			t.Errorf("toRPCError(%v).Code = %d, want %d", test.err, got.Code, test.code)
		}
	}
}
