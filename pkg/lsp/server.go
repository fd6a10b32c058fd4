package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"sync/atomic"
	"time"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/jsonrpc2"
	"src.mwls.dev/pkg/config"
	"src.mwls.dev/pkg/diag"
	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/logutil"
	"src.mwls.dev/pkg/pipeline"
	"src.mwls.dev/pkg/query"
	"src.mwls.dev/pkg/session"
	"src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/sys"
)

var logger = logutil.GetLogger("[lsp] ")

// DumpCommand is the command that returns every record reachable through
// transclusion names.
const DumpCommand = "wikitext.server.dumpPageInfoStore"

// Extensions of files that hold wikitext.
var wikitextExtensions = map[string]bool{".wiki": true, ".mediawiki": true, ".wikitext": true}

// LSP file change type of deleted files.
const fileDeleted = 3

// Config configures a server.
type Config struct {
	Session session.Options
	// Log every message sent or received.
	Verbose bool
	// How often the client process named in initialize is checked.
	// Defaults to 10s.
	PollInterval time.Duration
}

// ErrNoShutdown is returned by Serve when the client sent exit or closed the
// connection without asking for a shutdown first.
var ErrNoShutdown = errors.New("connection closed without shutdown")

// Serve serves one session over rwc until the connection is closed.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, registry *session.Registry, cfg Config) error {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := &server{registry: registry, cfg: cfg, ctx: ctx}
	var opts []jsonrpc2.ConnOpt
	if cfg.Verbose {
		opts = append(opts, jsonrpc2.LogMessages(logger))
	}
	r := s.handler()
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), r, opts...)
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
		<-conn.DisconnectNotify()
	}
	cancel()
	r.close()
	s.wg.Wait()
	if sess := s.session(); sess != nil {
		sess.Close()
	}
	if !s.shutdown.Load() {
		return ErrNoShutdown
	}
	return nil
}

type server struct {
	registry *session.Registry
	cfg      Config
	// Canceled when the connection is closed.
	ctx context.Context
	wg  conc.WaitGroup

	mu   sync.Mutex
	sess *session.Session

	shutdown atomic.Bool
}

func (s *server) handler() *router {
	return routingHandler(map[string]method{
		"initialize":  s.initialize,
		"initialized": noop,
		"shutdown":    s.shutdownMethod,
		"exit":        s.exit,

		"textDocument/didOpen":       s.withSession(s.didOpen),
		"textDocument/didChange":     s.withSession(s.didChange),
		"textDocument/didClose":      s.withSession(s.didClose),
		"textDocument/willSave":      noop,
		"textDocument/hover":         s.withSession(s.hover),
		"textDocument/signatureHelp": s.withSession(s.signatureHelp),
		"textDocument/completion":    s.withSession(s.completion),

		"workspace/didChangeConfiguration": s.withSession(s.didChangeConfiguration),
		// Called by clients even when server doesn't advertise support:
		// https://microsoft.github.io/language-server-protocol/specification#workspace_didChangeWatchedFiles
		"workspace/didChangeWatchedFiles": s.withSession(s.didChangeWatchedFiles),
		"workspace/executeCommand":        s.withSession(s.executeCommand),
	}, "initialize", "shutdown")
}

func (s *server) session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

type sessionMethod func(context.Context, *session.Session, json.RawMessage) (any, error)

// Rejects calls before initialize and after shutdown.
func (s *server) withSession(fn sessionMethod) method {
	return func(ctx context.Context, _ jsonrpc2.JSONRPC2, params json.RawMessage) (any, error) {
		sess := s.session()
		if sess == nil {
			return nil, errNotInitialized
		}
		if s.shutdown.Load() {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shut down"}
		}
		return fn(ctx, sess, params)
	}
}

// Sends diagnostics to the client as notifications.
type publisher struct{ conn jsonrpc2.JSONRPC2 }

func (p publisher) Publish(uri string, snap *document.Snapshot, ds []diag.Diagnostic) {
	err := p.conn.Notify(context.Background(), "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: lsp.DocumentURI(uri), Diagnostics: fromDiagnostics(snap, ds)})
	if err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		logger.Printf("publish diagnostics of %s: %v", uri, err)
	}
}

func (s *server) initialize(_ context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.InitializeParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "already initialized"}
	}
	s.sess = s.registry.Open(publisher{conn}, s.cfg.Session)
	if pid := params.ProcessID; pid > 0 {
		s.wg.Go(func() { s.watch(pid, conn) })
	}

	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKIncremental,
					WillSave:  true,
				},
			},
			HoverProvider: true,
			SignatureHelpProvider: &lsp.SignatureHelpOptions{
				TriggerCharacters: []string{"{", "[", "#", ":", "|", "="},
			},
			CompletionProvider: &lsp.CompletionOptions{
				TriggerCharacters: []string{"{", "[", "#", "|", "="},
			},
			ExecuteCommandProvider: &lsp.ExecuteCommandOptions{
				Commands: []string{DumpCommand},
			},
		},
	}, nil
}

// Closes the connection when the client process dies.
func (s *server) watch(pid int, conn jsonrpc2.JSONRPC2) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !sys.ProcessAlive(pid) {
				logger.Printf("client process %d is gone, closing connection", pid)
				conn.Close()
				return
			}
		}
	}
}

func (s *server) shutdownMethod(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error) {
	s.shutdown.Store(true)
	if sess := s.session(); sess != nil {
		sess.Close()
	}
	return nil, nil
}

func (s *server) exit(_ context.Context, conn jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	conn.Close()
	return nil, nil
}

func (s *server) didOpen(_ context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	doc := params.TextDocument
	sess.OpenDocument(string(doc.URI), doc.Version, doc.Text)
	return nil, nil
}

func (s *server) didChange(_ context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	changes := make([]document.Change, len(params.ContentChanges))
	for i, c := range params.ContentChanges {
		changes[i] = toChange(c)
	}
	return nil, sess.ChangeDocument(string(params.TextDocument.URI), params.TextDocument.Version, changes...)
}

func (s *server) didClose(_ context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	return nil, sess.CloseDocument(string(params.TextDocument.URI))
}

func (s *server) hover(ctx context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	doc, pos, err := awaitDoc(ctx, sess, rawParams)
	if err != nil {
		return noResult(err)
	}
	if h := doc.Hover(sess.Store(), pos); h != nil {
		return fromHover(h), nil
	}
	return nil, nil
}

func (s *server) signatureHelp(ctx context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	doc, pos, err := awaitDoc(ctx, sess, rawParams)
	if err != nil {
		return noResult(err)
	}
	if h := doc.SignatureHelp(sess.Store(), pos); h != nil {
		return fromSignatureHelp(h), nil
	}
	return nil, nil
}

func (s *server) completion(ctx context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	doc, pos, err := awaitDoc(ctx, sess, rawParams)
	if err != nil {
		return noResult(err)
	}
	if l := doc.Complete(sess.Store(), pos); l != nil {
		return fromCompletionList(l), nil
	}
	return nil, nil
}

func (s *server) didChangeConfiguration(_ context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	var params struct {
		Settings json.RawMessage `json:"settings"`
	}
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	settings, err := config.FromLSP(sess.Settings(), params.Settings)
	if err != nil {
		return nil, err
	}
	sess.SetSettings(settings)
	return nil, nil
}

func (s *server) didChangeWatchedFiles(_ context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeWatchedFilesParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	for _, ev := range params.Changes {
		uri := string(ev.URI)
		if int(ev.Type) != fileDeleted || !wikitextExtensions[path.Ext(uri)] {
			continue
		}
		if _, err := sess.Document(uri); err == nil {
			// Still open in the editor.
			continue
		}
		sess.ClearDiagnostics(uri)
	}
	return nil, nil
}

func (s *server) executeCommand(_ context.Context, sess *session.Session, rawParams json.RawMessage) (any, error) {
	var params lsp.ExecuteCommandParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	switch params.Command {
	case DumpCommand:
		recs := sess.Store().Dump()
		if recs == nil {
			recs = []*store.PageRecord{}
		}
		return recs, nil
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams,
			Message: fmt.Sprintf("unknown command %q", params.Command)}
	}
}

// A document whose every analysis has failed has nothing to answer with.
func noResult(err error) (any, error) {
	if errors.Is(err, pipeline.ErrNoAnalysis) {
		return nil, nil
	}
	return nil, err
}

// Waits for a fresh analysis of the document named in a
// TextDocumentPositionParams.
func awaitDoc(ctx context.Context, sess *session.Session, rawParams json.RawMessage) (q query.Doc, pos document.Position, err error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return q, pos, errInvalidParams
	}
	doc, err := sess.Query(ctx, string(params.TextDocument.URI))
	if err != nil {
		return q, pos, err
	}
	return doc, toPosition(params.Position), nil
}
