// Package session keeps track of editor sessions and the documents open in
// them.
//
// All sessions share one Knowledge Store. Each open document is served by its
// own pipeline, so documents never contend with each other.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"src.mwls.dev/pkg/config"
	"src.mwls.dev/pkg/diag"
	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/logutil"
	"src.mwls.dev/pkg/pipeline"
	"src.mwls.dev/pkg/query"
	"src.mwls.dev/pkg/store"
)

// ErrUnknownDocument is returned when a request names a document that is not
// open in the session.
var ErrUnknownDocument = errors.New("unknown document")

var logger = logutil.GetLogger("[session] ")

// Publisher receives the diagnostics of documents.
type Publisher interface {
	// Publish replaces the diagnostics of a document. When the document has
	// been closed, snap is nil and ds is empty.
	Publish(uri string, snap *document.Snapshot, ds []diag.Diagnostic)
}

// Options configures a session.
type Options struct {
	// Base options of document pipelines. OnAnalysis and MaxProblems are
	// set by the session.
	Pipeline pipeline.Options
	// Initial settings.
	Settings config.Settings
	// Log debug messages regardless of the trace setting.
	Verbose bool
}

// Registry holds the live sessions of the process.
type Registry struct {
	store *store.Store

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry returns a registry whose sessions use the given store.
func NewRegistry(st *store.Store) *Registry {
	return &Registry{store: st, sessions: map[uuid.UUID]*Session{}}
}

// Open starts a new session.
func (r *Registry) Open(pub Publisher, opts Options) *Session {
	s := &Session{
		id: uuid.New(), registry: r, store: r.store, pub: pub,
		opts: opts, docs: map[string]*pipeline.Pipeline{},
	}
	s.settings.Store(&opts.Settings)
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	s.debugf("session %s opened, %d live", s.id, r.Len())
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes all sessions.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Session is the state of one editor session.
type Session struct {
	id       uuid.UUID
	registry *Registry
	store    *store.Store
	pub      Publisher
	opts     Options

	settings atomic.Pointer[config.Settings]
	inferred atomic.Bool

	mu   sync.Mutex
	docs map[string]*pipeline.Pipeline
}

// ID returns the id of the session.
func (s *Session) ID() uuid.UUID { return s.id }

// Store returns the Knowledge Store used by the session.
func (s *Session) Store() *store.Store { return s.store }

// Settings returns the current settings.
func (s *Session) Settings() config.Settings { return *s.settings.Load() }

// SetSettings replaces the settings and re-analyzes all open documents so
// that they take effect.
func (s *Session) SetSettings(settings config.Settings) {
	s.settings.Store(&settings)
	s.debugf("settings changed to %+v", settings)
	for _, p := range s.pipelines() {
		p.RequestAnalyze()
	}
}

// OpenDocument starts tracking a document. A document already open with the
// same URI is replaced.
func (s *Session) OpenDocument(uri string, version int, text string) {
	opts := s.opts.Pipeline
	opts.MaxProblems = func() int { return s.Settings().MaxNumberOfProblems }
	opts.OnAnalysis = func(a *pipeline.Analysis) { s.onAnalysis(uri, a) }
	p := pipeline.Open(uri, version, text, opts)

	s.mu.Lock()
	old := s.docs[uri]
	s.docs[uri] = p
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.debugf("opened %s version %d", uri, version)
}

// ChangeDocument buffers edits to an open document.
func (s *Session) ChangeDocument(uri string, version int, changes ...document.Change) error {
	p, err := s.Document(uri)
	if err != nil {
		return err
	}
	if err := p.NotifyChange(version, changes...); err != nil {
		return fmt.Errorf("change %s: %w", uri, err)
	}
	return nil
}

// CloseDocument stops tracking a document and clears its diagnostics.
func (s *Session) CloseDocument(uri string) error {
	s.mu.Lock()
	p, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", uri, ErrUnknownDocument)
	}
	p.Close()
	s.ClearDiagnostics(uri)
	s.debugf("closed %s", uri)
	return nil
}

// ClearDiagnostics publishes an empty set of diagnostics for a document.
func (s *Session) ClearDiagnostics(uri string) {
	s.pub.Publish(uri, nil, []diag.Diagnostic{})
}

// Document returns the pipeline of an open document.
func (s *Session) Document(uri string) (*pipeline.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.docs[uri]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, ErrUnknownDocument)
	}
	return p, nil
}

// Documents returns the URIs of all open documents, sorted.
func (s *Session) Documents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}

// Query waits for an analysis of a document that reflects every edit
// accepted so far, and returns it for querying.
func (s *Session) Query(ctx context.Context, uri string) (query.Doc, error) {
	p, err := s.Document(uri)
	if err != nil {
		return query.Doc{}, err
	}
	a, err := p.AwaitFresh(ctx)
	if err != nil {
		return query.Doc{}, err
	}
	return query.Doc{Snapshot: a.Snapshot, Root: a.Root}, nil
}

// Close closes all documents of the session and removes it from its
// registry. Diagnostics are left alone.
func (s *Session) Close() {
	s.debugf("session %s closing %v", s.id, s.Documents())
	s.mu.Lock()
	docs := s.docs
	s.docs = map[string]*pipeline.Pipeline{}
	s.mu.Unlock()
	for _, p := range docs {
		p.Close()
	}
	r := s.registry
	r.mu.Lock()
	delete(r.sessions, s.id)
	r.mu.Unlock()
	s.debugf("session %s closed", s.id)
}

func (s *Session) pipelines() []*pipeline.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := make([]*pipeline.Pipeline, 0, len(s.docs))
	for _, p := range s.docs {
		ps = append(ps, p)
	}
	return ps
}

// Called from the analyze goroutine of a document.
func (s *Session) onAnalysis(uri string, a *pipeline.Analysis) {
	if s.inferred.CompareAndSwap(false, true) {
		n := s.infer(a)
		s.debugf("inferred %d records from %s", n, uri)
	}
	s.debugf("publishing %d diagnostics for %s version %d (%d lines)",
		len(a.Diagnostics), uri, a.Snapshot.Version, a.Snapshot.LineCount())
	s.pub.Publish(uri, a.Snapshot, a.Diagnostics)
}

func (s *Session) debugf(format string, args ...any) {
	if s.opts.Verbose || s.Settings().Trace == config.TraceVerbose {
		logger.Printf(format, args...)
	}
}
