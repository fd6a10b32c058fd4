package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/jsonrpc2"
	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/pipeline"
	"src.mwls.dev/pkg/session"
)

// Error codes defined by LSP on top of JSON-RPC.
const (
	codeServerNotInitialized int64 = -32002
	codeRequestCancelled     int64 = -32800
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
	errNotInitialized = &jsonrpc2.Error{
		Code: codeServerNotInitialized, Message: "server not initialized"}
)

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error) {
	return nil, nil
}

// Dispatches messages to methods.
//
// Notifications, and requests named in ordered, are handled in the read loop of
// the connection, so they observe the order of messages. Other requests run
// concurrently and can be cancelled with $/cancelRequest.
type router struct {
	methods map[string]method
	ordered map[string]bool

	mu       sync.Mutex
	inflight map[jsonrpc2.ID]context.CancelFunc
	wg       conc.WaitGroup
}

func routingHandler(methods map[string]method, ordered ...string) *router {
	r := &router{methods: methods, ordered: map[string]bool{},
		inflight: map[jsonrpc2.ID]context.CancelFunc{}}
	for _, name := range ordered {
		r.ordered[name] = true
	}
	return r
}

func (r *router) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := json.RawMessage("null")
	if req.Params != nil {
		params = *req.Params
	}
	if req.Method == "$/cancelRequest" {
		r.cancel(params)
		return
	}
	fn, ok := r.methods[req.Method]
	if req.Notif {
		if !ok {
			// Notifications without a handler are ignored, as LSP requires.
			return
		}
		if _, err := fn(ctx, conn, params); err != nil {
			logger.Printf("notification %s: %v", req.Method, err)
		}
		return
	}
	if !ok {
		reply(ctx, conn, req, nil, errMethodNotFound)
		return
	}
	if r.ordered[req.Method] {
		result, err := fn(ctx, conn, params)
		reply(ctx, conn, req, result, err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.inflight[req.ID] = cancel
	r.mu.Unlock()
	r.wg.Go(func() {
		defer func() {
			r.mu.Lock()
			delete(r.inflight, req.ID)
			r.mu.Unlock()
			cancel()
		}()
		result, err := fn(ctx, conn, params)
		reply(ctx, conn, req, result, err)
	})
}

func (r *router) cancel(params json.RawMessage) {
	var p struct {
		ID jsonrpc2.ID `json:"id"`
	}
	if json.Unmarshal(params, &p) != nil {
		return
	}
	r.mu.Lock()
	cancel := r.inflight[p.ID]
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancels all in-flight requests and waits for them to finish.
func (r *router) close() {
	r.mu.Lock()
	for _, cancel := range r.inflight {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result any, err error) {
	var sendErr error
	if err != nil {
		sendErr = conn.ReplyWithError(ctx, req.ID, toRPCError(err))
	} else {
		sendErr = conn.Reply(ctx, req.ID, result)
	}
	if sendErr != nil && !errors.Is(sendErr, jsonrpc2.ErrClosed) {
		logger.Printf("reply to %s: %v", req.Method, sendErr)
	}
}

// Converts an error returned by a method to a JSON-RPC error.
func toRPCError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	var code int64 = jsonrpc2.CodeInternalError
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, context.Canceled):
		code = codeRequestCancelled
	case errors.Is(err, session.ErrUnknownDocument), errors.Is(err, pipeline.ErrClosed):
		code = jsonrpc2.CodeInvalidRequest
	case errors.Is(err, document.ErrInvalidEdit):
		code = jsonrpc2.CodeInvalidParams
	default:
		logger.Printf("internal error: %v", err)
	}
	return &jsonrpc2.Error{Code: code, Message: err.Error()}
}
